package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
)

// IdempotencyHeader carries the checkout session id so the backend can
// recognise a repeated payment attempt for the same session.
const IdempotencyHeader = "Idempotency-Key"

type orderItemDTO struct {
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Price     json.Number `json:"price"`
}

type orderRequestDTO struct {
	Items []orderItemDTO `json:"items"`
	Total json.Number    `json:"total"`
}

type orderResponseDTO struct {
	TransactionID FlexibleID `json:"transactionId"`
	ID            FlexibleID `json:"id"`
	Order         *struct {
		ID FlexibleID `json:"id"`
	} `json:"order"`
}

func (r orderResponseDTO) transactionID() string {
	switch {
	case r.TransactionID != "":
		return string(r.TransactionID)
	case r.Order != nil && r.Order.ID != "":
		return string(r.Order.ID)
	default:
		return string(r.ID)
	}
}

// CreateOrder submits a payment intent for the given items and total.
func (c *Client) CreateOrder(ctx context.Context, idempotencyKey string, order domain.OrderRequest) (*domain.OrderResult, error) {
	body := orderRequestDTO{
		Items: make([]orderItemDTO, 0, len(order.Items)),
		Total: json.Number(order.Total.String()),
	}
	for _, it := range order.Items {
		body.Items = append(body.Items, orderItemDTO{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     json.Number(it.Price.String()),
		})
	}

	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{IdempotencyHeader: []string{idempotencyKey}}
	}

	data, err := c.do(ctx, http.MethodPost, "/api/orders", body, header)
	if err != nil {
		return nil, err
	}

	var resp orderResponseDTO
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode order response: %w", ErrUpstream, err)
	}
	txID := resp.transactionID()
	if txID == "" {
		return nil, ErrNoTransactionID
	}
	return &domain.OrderResult{TransactionID: txID}, nil
}
