// Package gateway is the HTTP client for the backend API gateway that owns
// products, orders and payment settlement.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hellOoSaksit/PixelShop/pkg/circuitbreaker"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const maxResponseBody = 1 << 20 // 1MB

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	sfg     singleflight.Group // collapses concurrent lookups of the same product
	log     logrus.FieldLogger
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	breaker    circuitbreaker.Config
}

// WithHTTPClient replaces the default otel-instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithBreakerConfig(cfg circuitbreaker.Config) Option {
	return func(o *options) { o.breaker = cfg }
}

func NewClient(baseURL string, timeout time.Duration, log logrus.FieldLogger, opts ...Option) *Client {
	o := options{breaker: circuitbreaker.DefaultConfig("api-gateway")}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	o.breaker.IsSuccessful = countsAsSuccess

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    o.httpClient,
		timeout: timeout,
		breaker: circuitbreaker.New[[]byte](o.breaker, log),
		log:     log,
	}
}

// countsAsSuccess keeps caller mistakes and caller cancellations from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.IsClientError()
}

// do performs one round trip through the breaker and returns the 2xx body.
func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal %s %s body failed: %w", method, path, err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, payload, header)
	})
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).Debug("api gateway call failed")
		if circuitbreaker.IsOpen(err) {
			return nil, fmt.Errorf("%w: %s %s: %w", ErrUpstream, method, path, err)
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, header http.Header) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request failed: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	CredentialsFrom(ctx).apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUpstream, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s response: %w", ErrUpstream, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}
