package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is the payload submitted to the shop service on checkout.
type Purchase struct {
	ID          string
	Lines       []CartLine
	Total       decimal.Decimal
	SubmittedAt time.Time
}

func (p Purchase) Quantity() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}
