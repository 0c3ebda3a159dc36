// Package events publishes checkout lifecycle events for downstream consumers
// such as the sales log.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	d "github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	Topic                  = "checkout-events"
	EventCheckoutSucceeded = "checkout.succeeded"
)

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CheckoutItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CheckoutSucceeded struct {
	CheckoutID    string          `json:"checkout_id"`
	VisitorID     string          `json:"visitor_id"`
	TransactionID string          `json:"transaction_id"`
	Items         []CheckoutItem  `json:"items"`
	Total         decimal.Decimal `json:"total"`
	CompletedAt   time.Time       `json:"completed_at"`
}

type KafkaPublisher struct {
	writer Writer
}

func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishCheckoutSucceeded(ctx context.Context, s d.CheckoutSession) error {
	event := CheckoutSucceeded{
		CheckoutID:    s.ID,
		VisitorID:     s.VisitorID,
		TransactionID: s.TransactionID,
		Items:         make([]CheckoutItem, 0, len(s.Snapshot.Lines)),
		Total:         s.Snapshot.Amount,
		CompletedAt:   s.UpdatedAt,
	}
	for _, l := range s.Snapshot.Lines {
		event.Items = append(event.Items, CheckoutItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(s.ID), // checkout_id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventCheckoutSucceeded)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish checkout event %s: %w", s.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishCheckoutSucceeded(context.Context, d.CheckoutSession) error { return nil }

func (NopPublisher) Close() error { return nil }
