package port

import (
	"context"

	"github.com/rl1809/shopping-cart/internal/core/domain"
)

type CatalogSeeder interface {
	// Seed overwrites the backend catalog and stock levels
	Seed(ctx context.Context, products []domain.Product) error
}
