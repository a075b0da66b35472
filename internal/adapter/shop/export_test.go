package shop

import (
	"context"
	"fmt"
	"strconv"
)

// Stock reads the backend's remaining units for a product.
func (r *RedisShop) Stock(ctx context.Context, productID int64) (int, error) {
	return r.client.Get(ctx, stockKeyPrefix+strconv.FormatInt(productID, 10)).Int()
}

func (m *MySQLShop) Stock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := m.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, productID).Scan(&stock)
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return stock, nil
}
