package storage

import (
	"context"
	"fmt"
	"time"
)

// TypedStorage persists a single value of type T.
type TypedStorage[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, v T) error
	Clear(ctx context.Context) error
}

// KeyStorage stores one T under a fixed key of a Storage.
type KeyStorage[T any] struct {
	store Storage
	key   string
	codec Codec
	ttl   time.Duration
}

// NewKeyStorage returns a TypedStorage for key. A nil codec means JSONCodec.
func NewKeyStorage[T any](store Storage, key string, codec Codec, ttl time.Duration) *KeyStorage[T] {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &KeyStorage[T]{store: store, key: key, codec: codec, ttl: ttl}
}

// Load returns the stored value, or ErrKeyNotFound when nothing is stored.
func (s *KeyStorage[T]) Load(ctx context.Context) (T, error) {
	var v T
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		return v, err
	}
	if err := s.codec.Decode(data, &v); err != nil {
		return v, fmt.Errorf("failed to decode %q: %w", s.key, err)
	}
	return v, nil
}

func (s *KeyStorage[T]) Save(ctx context.Context, v T) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", s.key, err)
	}
	return s.store.Set(ctx, s.key, data, s.ttl)
}

func (s *KeyStorage[T]) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.key)
}

// Key returns the storage key
func (s *KeyStorage[T]) Key() string {
	return s.key
}
