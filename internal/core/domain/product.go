package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Inventory int             `json:"inventory"`
}

func (p Product) InStock() bool {
	return p.Inventory > 0
}
