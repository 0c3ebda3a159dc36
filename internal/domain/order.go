package domain

import "github.com/shopspring/decimal"

type OrderItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

type OrderRequest struct {
	Items []OrderItem
	Total decimal.Decimal
}

type OrderResult struct {
	TransactionID string
}
