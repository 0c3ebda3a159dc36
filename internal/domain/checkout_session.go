package domain

import (
	"errors"
	"time"
)

var ErrCheckoutNotFound = errors.New("checkout session not found")

// CheckoutSession is the observable state of one checkout attempt.
type CheckoutSession struct {
	ID            string         `json:"id"`
	VisitorID     string         `json:"visitorId"`
	State         CheckoutStatus `json:"state"`
	Snapshot      CartSnapshot   `json:"snapshot"`
	TransactionID string         `json:"transactionId,omitempty"`
	Attempts      int            `json:"attempts"`
	LastError     string         `json:"lastError,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}
