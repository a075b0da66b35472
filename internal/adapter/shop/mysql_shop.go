package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/shopping-cart/internal/core/domain"
)

const mysqlDuplicateEntry = 1062

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		stock INT NOT NULL,
		position INT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id CHAR(36) PRIMARY KEY,
		total DECIMAL(12,2) NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_lines (
		purchase_id CHAR(36) NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		PRIMARY KEY (purchase_id, product_id)
	)`,
}

type MySQLShop struct {
	db *sql.DB
}

func NewMySQLShop(db *sql.DB) *MySQLShop {
	return &MySQLShop{db: db}
}

func (m *MySQLShop) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLShop) Seed(ctx context.Context, products []domain.Product) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}

	now := time.Now()
	for i, p := range products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, title, price, stock, position, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Title, p.Price, p.Inventory, i, now,
		)
		if err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLShop) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, title, price, stock
		FROM products ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Inventory); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// SubmitPurchase records the purchase and takes the stock in one transaction.
// A line the stock cannot cover rolls the whole purchase back.
func (m *MySQLShop) SubmitPurchase(ctx context.Context, purchase domain.Purchase) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, total, created_at)
		VALUES (?, ?, ?)`,
		purchase.ID, purchase.Total, purchase.SubmittedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicatePurchase
		}
		return fmt.Errorf("insert purchase: %w", err)
	}

	for _, line := range purchase.Lines {
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - ?, updated_at = NOW()
			WHERE id = ? AND stock >= ?`,
			line.Quantity, line.ProductID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrInsufficientStock
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_lines (purchase_id, product_id, quantity)
			VALUES (?, ?, ?)`,
			purchase.ID, line.ProductID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert purchase line: %w", err)
		}
	}

	return tx.Commit()
}
