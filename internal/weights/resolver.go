// Package weights resolves the live blue/green split of a routing domain from the
// key-value store, degrading to the default split on any failure.
package weights

import (
	"context"
	"fmt"
	"time"

	"github.com/mir00r/edge-router/internal/domain"
	rerrors "github.com/mir00r/edge-router/internal/errors"
	"github.com/mir00r/edge-router/internal/store"
	"github.com/mir00r/edge-router/pkg/logger"
)

// DefaultFetchTimeout bounds a single store read
const DefaultFetchTimeout = 50 * time.Millisecond

// Recorder receives fetch observations; *metrics.Metrics implements it
type Recorder interface {
	RecordFetch(domain string, d time.Duration)
	RecordFetchFailure(domain, reason string)
}

// Resolver reads RoutingConfig values from a store
type Resolver struct {
	store    store.Store
	timeout  time.Duration
	logger   *logger.Logger
	recorder Recorder
}

// NewResolver creates a resolver over s. recorder may be nil.
func NewResolver(s store.Store, timeout time.Duration, log *logger.Logger, recorder Recorder) *Resolver {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Resolver{
		store:    s,
		timeout:  timeout,
		logger:   log.ResolverLogger(),
		recorder: recorder,
	}
}

// Resolve returns the live config for d, or the default config if it cannot be
// read. It never fails and performs at most one store read.
func (r *Resolver) Resolve(ctx context.Context, d domain.RoutingDomain) domain.RoutingConfig {
	cfg, _ := r.Lookup(ctx, d)
	return cfg
}

// Lookup is Resolve that also reports why the default config was used
func (r *Resolver) Lookup(ctx context.Context, d domain.RoutingDomain) (domain.RoutingConfig, error) {
	key := d.ConfigKey()
	log := r.logger.WithField("key", key)

	start := time.Now()
	value, exists, err := r.fetch(ctx, key)
	if r.recorder != nil {
		r.recorder.RecordFetch(d.String(), time.Since(start))
	}

	if err != nil {
		fetchErr := rerrors.NewStoreError(key, err)
		log.WithError(fetchErr).Warnf("Kvs key lookup failed for %s", key)
		return r.fallback(d, fetchErr)
	}

	if !exists {
		log.Infof("No routing info found for %s", key)
		return r.fallback(d, rerrors.NewKeyNotFoundError(key))
	}

	cfg, err := ParseRoutingConfig(value)
	if err != nil {
		parseErr := rerrors.NewMalformedPayloadError(key, err)
		log.WithError(parseErr).Errorf("Error parsing routing info for %s", key)
		return r.fallback(d, parseErr)
	}

	if !cfg.InRange() {
		log.WithField("weight", cfg.Weight).Warn("Routing weight outside 0..100, using it unclamped")
	}

	return cfg, nil
}

func (r *Resolver) fallback(d domain.RoutingDomain, err *rerrors.RouterError) (domain.RoutingConfig, error) {
	if r.recorder != nil {
		r.recorder.RecordFetchFailure(d.String(), string(err.Code))
	}
	return domain.DefaultRoutingConfig(), err
}

type fetchResult struct {
	value  string
	exists bool
	err    error
}

// fetch runs the store read under the resolver timeout. The read happens on its
// own goroutine so a store that ignores its context still cannot hold the request.
func (r *Resolver) fetch(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fetchResult{err: fmt.Errorf("store panicked: %v", p)}
			}
		}()
		value, exists, err := r.store.Get(ctx, key)
		done <- fetchResult{value: value, exists: exists, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.exists, res.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}
