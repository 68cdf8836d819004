package store

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker guarding store reads
type BreakerConfig struct {
	Enabled bool `yaml:"enabled"`
	// ConsecutiveFailures opens the breaker
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration `yaml:"open_timeout"`
	// HalfOpenRequests is the number of probes allowed while half-open
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
}

type lookup struct {
	value  string
	exists bool
}

// BreakerStore fails reads fast while the wrapped store keeps failing. An open
// breaker surfaces gobreaker.ErrOpenState, which callers treat like any other
// failed read.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps next with a circuit breaker. onStateChange may be nil.
func NewBreakerStore(next Store, config BreakerConfig, onStateChange func(from, to string)) *BreakerStore {
	threshold := config.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "routing-config-store",
		MaxRequests: config.HalfOpenRequests,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		// a caller giving up says nothing about the store
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if onStateChange != nil {
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			onStateChange(from.String(), to.String())
		}
	}

	return &BreakerStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Get reads through the breaker
func (s *BreakerStore) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		value, exists, err := s.next.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return lookup{value: value, exists: exists}, nil
	})
	if err != nil {
		return "", false, err
	}

	l := result.(lookup)
	return l.value, l.exists, nil
}

// State returns the breaker state name
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}
