package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/shopping-cart/internal/core/domain"
	"github.com/rl1809/shopping-cart/internal/core/service"
)

type HTTPHandler struct {
	store  *service.Store
	logger *zap.Logger
}

type AddItemRequest struct {
	ProductID int64 `json:"product_id"`
}

type CartResponse struct {
	Lines    []domain.CartLine    `json:"lines"`
	Products []domain.CartProduct `json:"products"`
	Total    string               `json:"total"`
	Status   string               `json:"checkout_status"`
}

type AddItemResponse struct {
	Added bool         `json:"added"`
	Cart  CartResponse `json:"cart"`
}

type CheckoutResponse struct {
	Status string       `json:"status"`
	Cart   CartResponse `json:"cart"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func NewHTTPHandler(store *service.Store, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{store: store, logger: logger}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Post("/products/reload", h.ReloadProducts)
		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddItem)
		r.Post("/checkout", h.Checkout)
	})
	return r
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.Product{
		"products": h.store.AvailableProducts(),
	})
}

func (h *HTTPHandler) ReloadProducts(w http.ResponseWriter, r *http.Request) {
	select {
	case err := <-h.store.LoadProducts(r.Context()):
		if err != nil {
			writeJSON(w, http.StatusBadGateway, ErrorResponse{Message: "catalog unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string][]domain.Product{
			"products": h.store.AvailableProducts(),
		})
	case <-r.Context().Done():
	}
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cart())
}

// AddItem always answers 200: an unavailable product is reported via added=false.
func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	if req.ProductID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "missing product_id"})
		return
	}

	added := h.store.AddProductToCart(req.ProductID)
	writeJSON(w, http.StatusOK, AddItemResponse{Added: added, Cart: h.cart()})
}

// Checkout waits for the purchase outcome. The purchase itself is detached
// from the request so a dropped client cannot cancel it halfway.
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	result := h.store.Checkout(context.WithoutCancel(r.Context()))

	select {
	case status := <-result:
		writeJSON(w, http.StatusOK, CheckoutResponse{Status: status.String(), Cart: h.cart()})
	case <-r.Context().Done():
		h.logger.Info("client left before checkout resolved",
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !h.store.Loaded() {
		status = "loading"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *HTTPHandler) cart() CartResponse {
	snap := h.store.Snapshot()
	return CartResponse{
		Lines:    snap.CartLines,
		Products: snap.CartProducts,
		Total:    snap.CartTotal.StringFixed(2),
		Status:   snap.CheckoutStatus.String(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
