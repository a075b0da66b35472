package domain

import "github.com/shopspring/decimal"

type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CartProduct is a cart line joined with its catalog product.
type CartProduct struct {
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (p CartProduct) LineTotal() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

type CheckoutStatus string

const (
	CheckoutStatusNone    CheckoutStatus = ""
	CheckoutStatusSuccess CheckoutStatus = "success"
	CheckoutStatusFailed  CheckoutStatus = "failed"
)

func (s CheckoutStatus) String() string {
	if s == CheckoutStatusNone {
		return "none"
	}
	return string(s)
}
