package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shopping-cart/internal/core/domain"
	"github.com/rl1809/shopping-cart/internal/port"
)

const (
	DefaultFetchTimeout    = 5 * time.Second
	DefaultPurchaseTimeout = 5 * time.Second
)

// Snapshot is a consistent read of the whole store.
type Snapshot struct {
	AvailableProducts []domain.Product
	CartLines         []domain.CartLine
	CartProducts      []domain.CartProduct
	CartTotal         decimal.Decimal
	CheckoutStatus    domain.CheckoutStatus
}

type Option func(*Store)

func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) { s.fetchTimeout = d }
}

func WithPurchaseTimeout(d time.Duration) Option {
	return func(s *Store) { s.purchaseTimeout = d }
}

// Store owns the catalog and the cart. mu guards both of them together;
// checkoutMu keeps at most one purchase in flight.
type Store struct {
	mu         sync.Mutex
	checkoutMu sync.Mutex

	catalog *Catalog
	cart    *Cart
	logger  *zap.Logger

	fetchTimeout    time.Duration
	purchaseTimeout time.Duration
}

func NewStore(shop port.ShopService, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		logger:          logger,
		fetchTimeout:    DefaultFetchTimeout,
		purchaseTimeout: DefaultPurchaseTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.catalog = NewCatalog(shop, s.fetchTimeout)
	s.cart = NewCart(s.catalog, shop, s.purchaseTimeout, logger.Named("cart"))
	return s
}

// LoadProducts fetches the catalog without blocking the caller. The returned
// channel yields exactly one value: nil once the catalog was replaced, or the
// fetch/validation error with the previous catalog left in place. Units held
// by cart lines stay out of the reloaded inventory.
func (s *Store) LoadProducts(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)

		products, err := s.catalog.Fetch(ctx)
		if err != nil {
			s.logger.Warn("catalog load failed", zap.Error(err))
			done <- err
			return
		}

		s.mu.Lock()
		err = s.catalog.Replace(products)
		if err == nil {
			s.catalog.Hold(s.cart.Lines())
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("catalog rejected", zap.Error(err))
			done <- err
			return
		}

		s.logger.Info("catalog loaded", zap.Int("products", len(products)))
		done <- nil
	}()

	return done
}

// AddProductToCart reports whether a unit was added. Unknown and
// out-of-stock products are silent no-ops.
func (s *Store) AddProductToCart(productID int64) bool {
	s.mu.Lock()
	err := s.cart.AddProduct(productID)
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("add to cart skipped", zap.Int64("product_id", productID), zap.Error(err))
		return false
	}
	return true
}

// Checkout submits the cart without blocking the caller. The returned
// channel yields the resulting status exactly once.
func (s *Store) Checkout(ctx context.Context) <-chan domain.CheckoutStatus {
	done := make(chan domain.CheckoutStatus, 1)

	go func() {
		defer close(done)

		s.checkoutMu.Lock()
		defer s.checkoutMu.Unlock()

		s.mu.Lock()
		purchase := s.cart.BeginCheckout()
		s.mu.Unlock()

		err := s.cart.Submit(ctx, purchase)

		s.mu.Lock()
		status := s.cart.CompleteCheckout(purchase, err)
		s.mu.Unlock()

		done <- status
	}()

	return done
}

func (s *Store) AvailableProducts() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.AvailableProducts()
}

func (s *Store) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Products()
}

func (s *Store) CartLines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

func (s *Store) CartProducts() []domain.CartProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Products()
}

func (s *Store) CartTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

func (s *Store) CheckoutStatus() domain.CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Status()
}

// Loaded reports whether a catalog load has completed successfully.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Loaded()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		AvailableProducts: s.catalog.AvailableProducts(),
		CartLines:         s.cart.Lines(),
		CartProducts:      s.cart.Products(),
		CartTotal:         s.cart.Total(),
		CheckoutStatus:    s.cart.Status(),
	}
}
