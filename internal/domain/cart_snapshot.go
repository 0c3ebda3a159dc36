package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartSnapshot is an immutable copy of the cart taken when checkout starts,
// so the payment amount cannot drift when the live cart changes.
type CartSnapshot struct {
	Lines      []CartLine      `json:"lines"`
	Amount     decimal.Decimal `json:"amount"`
	CapturedAt time.Time       `json:"capturedAt"`
}

func NewCartSnapshot(lines []CartLine, capturedAt time.Time) CartSnapshot {
	copied := make([]CartLine, len(lines))
	copy(copied, lines)

	amount := decimal.Zero
	for _, l := range copied {
		amount = amount.Add(l.Subtotal())
	}
	return CartSnapshot{
		Lines:      copied,
		Amount:     amount,
		CapturedAt: capturedAt,
	}
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

func (s CartSnapshot) TotalItems() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Quantity
	}
	return total
}

// OrderRequest converts the snapshot into the body of the payment-intent call.
func (s CartSnapshot) OrderRequest() OrderRequest {
	items := make([]OrderItem, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		})
	}
	return OrderRequest{Items: items, Total: s.Amount}
}
