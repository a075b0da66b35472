package port

import (
	"context"
	"errors"

	"github.com/rl1809/shopping-cart/internal/core/domain"
)

// ErrPurchaseDeclined is the expected, non-exceptional purchase failure.
var ErrPurchaseDeclined = errors.New("purchase declined")

type ShopService interface {
	// FetchProducts returns the full catalog
	FetchProducts(ctx context.Context) ([]domain.Product, error)

	// SubmitPurchase buys the given lines, returns ErrPurchaseDeclined on a business failure
	SubmitPurchase(ctx context.Context, purchase domain.Purchase) error
}
