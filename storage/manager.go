package storage

import (
	"context"
	"time"
)

// DefaultTransactionKey is the key transaction metadata is stored under.
const DefaultTransactionKey = "transaction"

// Manager is the storage manager handed to auth clients: keyed byte access
// plus typed access to the transaction record of type M.
type Manager[M any] struct {
	store          Storage
	codec          Codec
	transactionKey string
	transactionTTL time.Duration
}

// ManagerOption configures a Manager
type ManagerOption func(*managerOptions)

type managerOptions struct {
	codec          Codec
	transactionKey string
	transactionTTL time.Duration
}

// WithCodec sets the codec used for the transaction record
func WithCodec(c Codec) ManagerOption {
	return func(o *managerOptions) { o.codec = c }
}

// WithTransactionKey overrides DefaultTransactionKey
func WithTransactionKey(key string) ManagerOption {
	return func(o *managerOptions) { o.transactionKey = key }
}

// WithTransactionTTL sets how long a saved transaction record lives
func WithTransactionTTL(ttl time.Duration) ManagerOption {
	return func(o *managerOptions) { o.transactionTTL = ttl }
}

// NewManager wraps store
func NewManager[M any](store Storage, opts ...ManagerOption) *Manager[M] {
	o := managerOptions{
		codec:          JSONCodec{},
		transactionKey: DefaultTransactionKey,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[M]{
		store:          store,
		codec:          o.codec,
		transactionKey: o.transactionKey,
		transactionTTL: o.transactionTTL,
	}
}

func (m *Manager[M]) Get(ctx context.Context, key string) ([]byte, error) {
	return m.store.Get(ctx, key)
}

func (m *Manager[M]) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.store.Set(ctx, key, value, ttl)
}

func (m *Manager[M]) Remove(ctx context.Context, key string) error {
	return m.store.Delete(ctx, key)
}

// TransactionStorage returns typed access to the transaction record
func (m *Manager[M]) TransactionStorage() TypedStorage[M] {
	return NewKeyStorage[M](m.store, m.transactionKey, m.codec, m.transactionTTL)
}

// Storage returns the underlying backend
func (m *Manager[M]) Storage() Storage {
	return m.store
}

func (m *Manager[M]) Close() error {
	return m.store.Close()
}
