// Package store provides the key-value stores the router reads live routing
// configuration from. Reads are a single attempt; callers bound them with a
// context deadline.
package store

import "context"

// Store is a read-only view of a key-value store
type Store interface {
	// Get returns the value for key and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
}

// Writer writes values into a key-value store
type Writer interface {
	Put(ctx context.Context, key, value string) error
}

// Backend is a full store implementation used by the server and admin tooling
type Backend interface {
	Store
	Writer
	Ping(ctx context.Context) error
	Close() error
}
