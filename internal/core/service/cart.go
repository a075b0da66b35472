package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shopping-cart/internal/core/domain"
	"github.com/rl1809/shopping-cart/internal/port"
)

// Cart holds the selected lines and the outcome of the last checkout.
// It is not safe for concurrent use; Store serializes access.
type Cart struct {
	catalog         *Catalog
	shop            port.ShopService
	purchaseTimeout time.Duration
	logger          *zap.Logger

	lines  []domain.CartLine
	status domain.CheckoutStatus
}

func NewCart(catalog *Catalog, shop port.ShopService, purchaseTimeout time.Duration, logger *zap.Logger) *Cart {
	return &Cart{
		catalog:         catalog,
		shop:            shop,
		purchaseTimeout: purchaseTimeout,
		logger:          logger,
	}
}

// AddProduct reserves one unit of the product. Unknown and out-of-stock
// products leave both the cart and the catalog untouched.
func (c *Cart) AddProduct(productID int64) error {
	p, ok := c.catalog.Find(productID)
	if !ok {
		return ErrProductNotFound
	}
	if !c.catalog.IsInStock(p) {
		return ErrOutOfStock
	}

	// inventory first: the line only changes if the unit was actually taken
	if err := c.catalog.DecrementInventory(productID); err != nil {
		return err
	}

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity++
			return nil
		}
	}
	c.lines = append(c.lines, domain.CartLine{ProductID: productID, Quantity: 1})
	return nil
}

func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Products() []domain.CartProduct {
	out := make([]domain.CartProduct, 0, len(c.lines))
	for _, line := range c.lines {
		p, ok := c.catalog.Find(line.ProductID)
		if !ok {
			c.logger.Error("cart line references unknown product",
				zap.Int64("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
			)
			continue
		}
		out = append(out, domain.CartProduct{
			Title:    p.Title,
			Price:    p.Price,
			Quantity: line.Quantity,
		})
	}
	return out
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.Products() {
		total = total.Add(p.LineTotal())
	}
	return total
}

func (c *Cart) Status() domain.CheckoutStatus {
	return c.status
}

// BeginCheckout snapshots the current lines into a purchase.
func (c *Cart) BeginCheckout() domain.Purchase {
	return domain.Purchase{
		ID:          uuid.NewString(),
		Lines:       c.Lines(),
		Total:       c.Total(),
		SubmittedAt: time.Now(),
	}
}

// Submit sends the purchase to the shop service. It does not touch state,
// so it can run without the store lock. A timeout is reported as an error.
func (c *Cart) Submit(ctx context.Context, purchase domain.Purchase) error {
	if c.purchaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.purchaseTimeout)
		defer cancel()
	}

	if err := c.shop.SubmitPurchase(ctx, purchase); err != nil {
		return fmt.Errorf("submit purchase %s: %w", purchase.ID, err)
	}
	return nil
}

// CompleteCheckout applies the purchase outcome. On success the submitted
// quantities leave the cart; on failure the cart and inventory are kept.
func (c *Cart) CompleteCheckout(purchase domain.Purchase, err error) domain.CheckoutStatus {
	if err != nil {
		c.status = domain.CheckoutStatusFailed

		fields := []zap.Field{
			zap.String("purchase_id", purchase.ID),
			zap.Int("lines", len(purchase.Lines)),
			zap.Error(err),
		}
		if errors.Is(err, port.ErrPurchaseDeclined) {
			c.logger.Info("checkout declined", fields...)
		} else {
			c.logger.Warn("checkout failed", fields...)
		}
		return c.status
	}

	c.removeSubmitted(purchase.Lines)
	c.status = domain.CheckoutStatusSuccess
	c.logger.Info("checkout succeeded",
		zap.String("purchase_id", purchase.ID),
		zap.Int("items", purchase.Quantity()),
		zap.String("total", purchase.Total.StringFixed(2)),
	)
	return c.status
}

func (c *Cart) removeSubmitted(submitted []domain.CartLine) {
	bought := make(map[int64]int, len(submitted))
	for _, l := range submitted {
		bought[l.ProductID] += l.Quantity
	}

	kept := c.lines[:0]
	for _, line := range c.lines {
		line.Quantity -= bought[line.ProductID]
		if line.Quantity > 0 {
			kept = append(kept, line)
		}
	}
	c.lines = kept
}
