package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Product is the catalog entry as returned by the API gateway.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"` // percent, 0..100
	Stock       int             `json:"stock"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// DiscountedPrice resolves the discount percentage once, at the time a line is created.
func (p Product) DiscountedPrice() decimal.Decimal {
	if !p.Discount.IsPositive() {
		return p.Price
	}
	pct := decimal.Min(p.Discount, hundred)
	return p.Price.Sub(p.Price.Mul(pct).Div(hundred))
}

// Ref builds the reference the cart stores for this product.
func (p Product) Ref() ProductRef {
	return ProductRef{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.DiscountedPrice(),
		Image:     p.Image,
	}
}

// ProductRef is what a cart line is created from: the unit price already reflects any discount.
type ProductRef struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Image     string
}
