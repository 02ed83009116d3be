package storage

import (
	"context"
	"time"
)

// Storage defines the interface every storage backend implements
type Storage interface {
	// Get retrieves a value by key. Missing or expired keys return ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl falls back to the backend default, if any.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes all keys under the backend's prefix
	Clear(ctx context.Context) error

	// Close releases the backend's resources
	Close() error

	// Ping checks if the backend is reachable
	Ping(ctx context.Context) error
}
