package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mir00r/edge-router/internal/config"
	"github.com/mir00r/edge-router/internal/edge"
	"github.com/mir00r/edge-router/internal/metrics"
	"github.com/mir00r/edge-router/internal/store"
	"github.com/mir00r/edge-router/internal/weights"
	"github.com/mir00r/edge-router/pkg/logger"
)

const seedTimeout = 5 * time.Second

// app holds the components shared by the server and the admin processes
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Metrics
	backend  store.Backend
	resolver *weights.Resolver
	pipeline *edge.Pipeline
}

// newApp wires the store, resolver and pipeline from cfg
func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	m := metrics.New()

	backend, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	var reader store.Store = backend
	if cfg.Store.Breaker.Enabled {
		storeLog := log.StoreLogger(cfg.Store.Driver)
		reader = store.NewBreakerStore(backend, cfg.Store.Breaker, func(from, to string) {
			m.RecordBreakerTransition(from, to)
			storeLog.WithFields(map[string]interface{}{
				"from": from,
				"to":   to,
			}).Warn("Store circuit breaker changed state")
		})
	}

	resolver := weights.NewResolver(reader, cfg.Store.FetchTimeout, log, m)
	pipeline := edge.NewPipeline(cfg.ToEdgeConfig(), resolver, log, m)

	return &app{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		backend:  backend,
		resolver: resolver,
		pipeline: pipeline,
	}, nil
}

// openStore opens the configured backend and writes the seed values
func openStore(cfg *config.Config, log *logger.Logger) (store.Backend, error) {
	storeLog := log.StoreLogger(cfg.Store.Driver)

	switch cfg.Store.Driver {
	case config.DriverMemory:
		storeLog.WithField("keys", len(cfg.Store.Seed)).Info("Using in-memory routing config store")
		return store.NewMemoryStore(cfg.Store.Seed), nil

	case config.DriverRedis:
		redisStore, err := store.NewRedisStore(cfg.Store.Redis)
		if err != nil {
			return nil, err
		}
		storeLog.WithFields(map[string]interface{}{
			"address":    cfg.Store.Redis.Address,
			"key_prefix": cfg.Store.Redis.KeyPrefix,
		}).Info("Connected to Redis routing config store")

		if cfg.Store.SeedRedis && len(cfg.Store.Seed) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
			defer cancel()
			for key, value := range cfg.Store.Seed {
				if err := redisStore.Put(ctx, key, value); err != nil {
					redisStore.Close()
					return nil, fmt.Errorf("failed to seed %s: %w", key, err)
				}
			}
			storeLog.WithField("keys", len(cfg.Store.Seed)).Info("Seeded Redis routing config store")
		}
		return redisStore, nil

	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// Close releases the store connection
func (a *app) Close() error {
	return a.backend.Close()
}
