package shop

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shopping-cart/internal/core/domain"
	"github.com/rl1809/shopping-cart/internal/port"
)

const (
	DefaultLatency     = 100 * time.Millisecond
	DefaultFailureRate = 0.5
)

func DemoProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Title: "iPad 128GB Space Gray", Price: decimal.RequireFromString("429.00"), Inventory: 2},
		{ID: 2, Title: "Nike Sportswear", Price: decimal.RequireFromString("699.99"), Inventory: 10},
		{ID: 3, Title: "The Weeknd - Starboy CD", Price: decimal.RequireFromString("11.99"), Inventory: 5},
	}
}

// MockShop simulates the remote shop: fixed latency, a catalog that never
// fails to load and purchases that are declined at random. Accepted
// purchases take their units out of the simulated stock.
type MockShop struct {
	latency     time.Duration
	failureRate float64

	mu       sync.Mutex
	products []domain.Product
	rng      *rand.Rand
}

// NewMockShop builds a simulated shop. A nil src seeds from the clock.
func NewMockShop(products []domain.Product, latency time.Duration, failureRate float64, src rand.Source) *MockShop {
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), 0)
	}
	s := &MockShop{
		latency:     latency,
		failureRate: failureRate,
		rng:         rand.New(src),
	}
	s.products = cloneProducts(products)
	return s
}

func (s *MockShop) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProducts(s.products), nil
}

func (s *MockShop) SubmitPurchase(ctx context.Context, purchase domain.Purchase) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.failureRate {
		return port.ErrPurchaseDeclined
	}
	return s.takeStock(purchase.Lines)
}

// takeStock removes the purchased units, all or nothing.
func (s *MockShop) takeStock(lines []domain.CartLine) error {
	index := make(map[int64]int, len(s.products))
	for i, p := range s.products {
		index[p.ID] = i
	}

	for _, line := range lines {
		i, ok := index[line.ProductID]
		if !ok || s.products[i].Inventory < line.Quantity {
			return ErrInsufficientStock
		}
	}
	for _, line := range lines {
		s.products[index[line.ProductID]].Inventory -= line.Quantity
	}
	return nil
}

func (s *MockShop) Seed(ctx context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = cloneProducts(products)
	return nil
}

func (s *MockShop) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cloneProducts(products []domain.Product) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out
}
