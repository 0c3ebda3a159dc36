package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

var ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")

type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"addedAt"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ClampQuantity coerces a requested amount to at least MinQuantity.
func ClampQuantity(n int) int {
	if n < MinQuantity {
		return MinQuantity
	}
	return n
}

// ValidateQuantity rejects amounts a single request may not carry.
func ValidateQuantity(n int) error {
	if n < MinQuantity || n > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}
