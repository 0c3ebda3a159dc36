package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

type Config struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts are cleared. Zero never clears.
	Interval time.Duration
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// ConsecutiveFailures that trip the breaker.
	ConsecutiveFailures uint32
	// IsSuccessful decides which errors count against the breaker. nil counts every error.
	IsSuccessful func(err error) bool
}

func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxRequests:         1,
		Interval:            time.Minute,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

func New[T any](cfg Config, log logrus.FieldLogger) *gobreaker.CircuitBreaker[T] {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
		IsSuccessful: cfg.IsSuccessful,
	})
}

// IsOpen reports whether err was returned because the breaker refused the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
