package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/shopping-cart/internal/core/domain"
	"github.com/rl1809/shopping-cart/internal/port"
)

func newTestCart(t *testing.T, products []domain.Product) (*Cart, *Catalog) {
	t.Helper()
	catalog := NewCatalog(nil, 0)
	if err := catalog.Replace(products); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	return NewCart(catalog, nil, 0, zap.NewNop()), catalog
}

func TestCart_AddProduct(t *testing.T) {
	cart, catalog := newTestCart(t, demoProducts())

	if err := cart.AddProduct(2); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	lines := cart.Lines()
	if len(lines) != 1 || lines[0] != (domain.CartLine{ProductID: 2, Quantity: 1}) {
		t.Fatalf("expected new line of quantity 1, got %+v", lines)
	}

	if err := cart.AddProduct(2); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	lines = cart.Lines()
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("expected existing line incremented to 2, got %+v", lines)
	}

	p, _ := catalog.Find(2)
	if p.Inventory != 8 {
		t.Errorf("expected inventory 8, got %d", p.Inventory)
	}
}

func TestCart_AddProduct_SingleUnitScenario(t *testing.T) {
	cart, catalog := newTestCart(t, []domain.Product{product(1, "A", "10", 1)})

	if err := cart.AddProduct(1); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	err := cart.AddProduct(1)
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}

	lines := cart.Lines()
	if len(lines) != 1 || lines[0].Quantity != 1 {
		t.Errorf("expected cart [{1 1}], got %+v", lines)
	}
	p, _ := catalog.Find(1)
	if p.Inventory != 0 {
		t.Errorf("expected inventory 0, got %d", p.Inventory)
	}
}

func TestCart_AddProduct_NoOps(t *testing.T) {
	cart, catalog := newTestCart(t, []domain.Product{product(1, "A", "10", 0)})

	if err := cart.AddProduct(1); !errors.Is(err, ErrOutOfStock) {
		t.Errorf("expected ErrOutOfStock, got %v", err)
	}
	if err := cart.AddProduct(99); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}

	if len(cart.Lines()) != 0 {
		t.Errorf("expected empty cart, got %+v", cart.Lines())
	}
	p, _ := catalog.Find(1)
	if p.Inventory != 0 {
		t.Errorf("expected inventory unchanged at 0, got %d", p.Inventory)
	}
}

func TestCart_Total(t *testing.T) {
	cart, _ := newTestCart(t, []domain.Product{
		product(1, "A", "10", 5),
		product(2, "B", "5", 5),
	})

	if !cart.Total().IsZero() {
		t.Fatalf("expected zero total for empty cart, got %s", cart.Total())
	}

	_ = cart.AddProduct(1)
	_ = cart.AddProduct(1)
	_ = cart.AddProduct(2)

	if got := cart.Total(); !got.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected total 25, got %s", got)
	}
}

func TestCart_Total_NoFloatDrift(t *testing.T) {
	cart, _ := newTestCart(t, []domain.Product{product(1, "A", "0.10", 10)})
	for i := 0; i < 3; i++ {
		_ = cart.AddProduct(1)
	}

	if got := cart.Total(); got.String() != "0.3" {
		t.Errorf("expected exact 0.3, got %s", got)
	}
}

func TestCart_Products_SkipsDanglingLine(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	catalog := NewCatalog(nil, 0)
	_ = catalog.Replace(demoProducts())
	cart := NewCart(catalog, nil, 0, zap.New(core))

	_ = cart.AddProduct(1)
	_ = cart.AddProduct(3)

	// a reload that drops product 1 leaves its line dangling
	_ = catalog.Replace([]domain.Product{product(3, "The Weeknd - Starboy CD", "11.99", 4)})

	products := cart.Products()
	if len(products) != 1 || products[0].Title != "The Weeknd - Starboy CD" {
		t.Fatalf("expected only the resolvable line, got %+v", products)
	}
	if logs.FilterMessage("cart line references unknown product").Len() != 1 {
		t.Errorf("expected the inconsistency to be logged, got %d entries", logs.Len())
	}
	if got := cart.Total(); !got.Equal(decimal.RequireFromString("11.99")) {
		t.Errorf("expected total 11.99, got %s", got)
	}
}

func TestCart_CompleteCheckout(t *testing.T) {
	t.Run("success empties the cart", func(t *testing.T) {
		cart, _ := newTestCart(t, demoProducts())
		_ = cart.AddProduct(1)
		_ = cart.AddProduct(2)

		purchase := cart.BeginCheckout()
		status := cart.CompleteCheckout(purchase, nil)

		if status != domain.CheckoutStatusSuccess || cart.Status() != domain.CheckoutStatusSuccess {
			t.Errorf("expected success, got %s", status)
		}
		if len(cart.Lines()) != 0 {
			t.Errorf("expected empty cart, got %+v", cart.Lines())
		}
	})

	t.Run("failure keeps lines and inventory", func(t *testing.T) {
		cart, catalog := newTestCart(t, demoProducts())
		_ = cart.AddProduct(1)
		before := cart.Lines()

		purchase := cart.BeginCheckout()
		status := cart.CompleteCheckout(purchase, port.ErrPurchaseDeclined)

		if status != domain.CheckoutStatusFailed {
			t.Errorf("expected failed, got %s", status)
		}
		after := cart.Lines()
		if len(after) != len(before) || after[0] != before[0] {
			t.Errorf("expected lines unchanged, got %+v", after)
		}
		p, _ := catalog.Find(1)
		if p.Inventory != 1 {
			t.Errorf("expected inventory still held at 1, got %d", p.Inventory)
		}
	})
}

func TestCart_BeginCheckout(t *testing.T) {
	cart, _ := newTestCart(t, demoProducts())
	_ = cart.AddProduct(3)
	_ = cart.AddProduct(3)

	purchase := cart.BeginCheckout()

	if purchase.ID == "" {
		t.Error("expected purchase id")
	}
	if purchase.Quantity() != 2 {
		t.Errorf("expected 2 items, got %d", purchase.Quantity())
	}
	if !purchase.Total.Equal(decimal.RequireFromString("23.98")) {
		t.Errorf("expected total 23.98, got %s", purchase.Total)
	}

	// the snapshot must not alias the live lines
	_ = cart.AddProduct(3)
	if purchase.Lines[0].Quantity != 2 {
		t.Errorf("expected snapshot quantity 2, got %d", purchase.Lines[0].Quantity)
	}
}

func TestCart_StatusStartsAtNone(t *testing.T) {
	cart, _ := newTestCart(t, nil)
	if cart.Status() != domain.CheckoutStatusNone {
		t.Errorf("expected none, got %s", cart.Status())
	}
}
