package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/shopping-cart/internal/core/domain"
	"github.com/rl1809/shopping-cart/internal/port"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOutOfStock      = errors.New("out of stock")
	ErrInvalidCatalog  = errors.New("invalid catalog")
)

// Catalog holds the known products and their live inventory.
// It is not safe for concurrent use; Store serializes access.
type Catalog struct {
	shop         port.ShopService
	fetchTimeout time.Duration

	products []domain.Product
	index    map[int64]int
	loaded   bool
}

func NewCatalog(shop port.ShopService, fetchTimeout time.Duration) *Catalog {
	return &Catalog{
		shop:         shop,
		fetchTimeout: fetchTimeout,
		index:        make(map[int64]int),
	}
}

// Fetch asks the shop service for the full catalog. It does not touch state.
func (c *Catalog) Fetch(ctx context.Context) ([]domain.Product, error) {
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	products, err := c.shop.FetchProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return products, nil
}

// Replace overwrites the whole catalog. A catalog with duplicate ids,
// negative prices or negative inventory is rejected and the current one kept.
func (c *Catalog) Replace(products []domain.Product) error {
	index := make(map[int64]int, len(products))
	next := make([]domain.Product, 0, len(products))

	for _, p := range products {
		if _, dup := index[p.ID]; dup {
			return fmt.Errorf("%w: duplicate product id %d", ErrInvalidCatalog, p.ID)
		}
		if p.Inventory < 0 {
			return fmt.Errorf("%w: product %d has negative inventory", ErrInvalidCatalog, p.ID)
		}
		if p.Price.IsNegative() {
			return fmt.Errorf("%w: product %d has negative price", ErrInvalidCatalog, p.ID)
		}
		index[p.ID] = len(next)
		next = append(next, p)
	}

	c.products = next
	c.index = index
	c.loaded = true
	return nil
}

// Hold takes the units already sitting in cart lines out of a freshly
// replaced catalog. The shop only counts them once they are purchased.
func (c *Catalog) Hold(lines []domain.CartLine) {
	for _, line := range lines {
		i, ok := c.index[line.ProductID]
		if !ok {
			continue
		}
		c.products[i].Inventory = max(c.products[i].Inventory-line.Quantity, 0)
	}
}

func (c *Catalog) Loaded() bool {
	return c.loaded
}

func (c *Catalog) IsInStock(p domain.Product) bool {
	return p.InStock()
}

func (c *Catalog) Find(id int64) (domain.Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) AvailableProducts() []domain.Product {
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if c.IsInStock(p) {
			out = append(out, p)
		}
	}
	return out
}

// DecrementInventory removes exactly one unit. Callers check IsInStock first;
// a product already at zero is reported, never driven negative.
func (c *Catalog) DecrementInventory(id int64) error {
	i, ok := c.index[id]
	if !ok {
		return ErrProductNotFound
	}
	if !c.IsInStock(c.products[i]) {
		return ErrOutOfStock
	}
	c.products[i].Inventory--
	return nil
}
