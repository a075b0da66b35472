package shop

import (
	"errors"
	"fmt"

	"github.com/rl1809/shopping-cart/internal/port"
)

var (
	// ErrInsufficientStock declines a purchase the backend cannot cover.
	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", port.ErrPurchaseDeclined)
	ErrDuplicatePurchase = errors.New("duplicate purchase")
)
