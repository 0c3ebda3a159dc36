package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrUpstream        = errors.New("api gateway request failed")
	ErrProductNotFound = errors.New("product not found")
	ErrNoTransactionID = errors.New("order response carries no transaction id")
)

// StatusError is returned for any non-2xx answer from the API gateway.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUpstream
}

// IsClientError reports a 4xx answer. Those do not count against the circuit breaker.
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
