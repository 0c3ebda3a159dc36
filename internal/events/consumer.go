package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartInvalidator drops a visitor's cached cart so the next access reloads it.
// Satisfied by *cart.Registry.
type CartInvalidator interface {
	Forget(visitorID string)
}

// NewKafkaReader reads checkout events. Every replica needs its own groupID
// so each one sees every event.
func NewKafkaReader(groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

const (
	minRetryDelay = 100 * time.Millisecond
	maxRetryDelay = 10 * time.Second
)

// CartInvalidationConsumer keeps replicas consistent: when a checkout succeeds
// anywhere, the local copy of that visitor's cart is discarded.
type CartInvalidationConsumer struct {
	reader  Reader
	carts   CartInvalidator
	log     logrus.FieldLogger
	backoff *backoff.ExponentialBackOff
}

func NewCartInvalidationConsumer(reader Reader, carts CartInvalidator, log logrus.FieldLogger) *CartInvalidationConsumer {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minRetryDelay
	b.MaxInterval = maxRetryDelay
	return &CartInvalidationConsumer{
		reader:  reader,
		carts:   carts,
		log:     log,
		backoff: b,
	}
}

// Run consumes until ctx is done or the reader is closed. Read errors are
// retried with exponential backoff.
func (c *CartInvalidationConsumer) Run(ctx context.Context) {
	c.backoff.Reset()
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, io.EOF) {
				c.log.Info("checkout event reader closed")
				return
			}
			delay := c.backoff.NextBackOff()
			c.log.WithError(err).WithField("retry_in", delay.String()).Warn("error reading checkout event")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		c.backoff.Reset()

		if err := c.handle(m); err != nil {
			c.log.WithError(err).WithField("offset", m.Offset).Warn("skipping checkout event")
		}
	}
}

func (c *CartInvalidationConsumer) handle(m kafka.Message) error {
	if eventType(m) != EventCheckoutSucceeded {
		return nil
	}

	var event CheckoutSucceeded
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	if event.VisitorID == "" {
		return errors.New("missing visitor_id")
	}

	c.carts.Forget(event.VisitorID)
	c.log.WithFields(logrus.Fields{
		"visitor_id":  event.VisitorID,
		"checkout_id": event.CheckoutID,
	}).Debug("cached cart invalidated")
	return nil
}

func (c *CartInvalidationConsumer) Close() error {
	return c.reader.Close()
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
