package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gobeaver/beaver-auth/krypto"
)

// Encrypted wraps a Storage and encrypts every value with AES-GCM. Keys are
// stored in the clear.
type Encrypted struct {
	store Storage
	svc   krypto.Service
}

// NewEncrypted wraps store with svc
func NewEncrypted(store Storage, svc krypto.Service) *Encrypted {
	return &Encrypted{store: store, svc: svc}
}

// Get retrieves and decrypts a value
func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := krypto.Open(e.svc, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %q: %w", key, err)
	}
	return data, nil
}

// Set encrypts and stores a value
func (e *Encrypted) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	sealed, err := krypto.Seal(e.svc, value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %q: %w", key, err)
	}
	return e.store.Set(ctx, key, sealed, ttl)
}

func (e *Encrypted) Delete(ctx context.Context, key string) error {
	return e.store.Delete(ctx, key)
}

func (e *Encrypted) Exists(ctx context.Context, key string) (bool, error) {
	return e.store.Exists(ctx, key)
}

func (e *Encrypted) Clear(ctx context.Context) error {
	return e.store.Clear(ctx)
}

func (e *Encrypted) Close() error {
	return e.store.Close()
}

func (e *Encrypted) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Unwrap returns the underlying storage
func (e *Encrypted) Unwrap() Storage {
	return e.store
}
