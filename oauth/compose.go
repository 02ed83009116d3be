package oauth

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/gobeaver/beaver-auth/storage"
)

// StorageManager is the storage capability a client is built with: keyed byte
// access plus typed access to the transaction record.
type StorageManager[M TransactionMeta] interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	TransactionStorage() storage.TypedStorage[M]
}

// TransactionManager persists transaction metadata across the redirect
type TransactionManager[M TransactionMeta] interface {
	Save(ctx context.Context, meta M) error
	Load(ctx context.Context) (M, error)
	Clear(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
}

// StorageManagerFactory builds the storage manager from resolved options
type StorageManagerFactory[M TransactionMeta, O OptionsProvider, S StorageManager[M]] func(opts O) (S, error)

// OptionsFactory resolves options from a raw configuration map
type OptionsFactory[O OptionsProvider] func(raw map[string]any) (O, error)

// TransactionManagerFactory builds the transaction manager
type TransactionManagerFactory[M TransactionMeta, O OptionsProvider, S StorageManager[M], TM TransactionManager[M]] func(opts O, storage S) (TM, error)

// Constructor creates client instances from a raw configuration map. It holds
// no state of its own.
type Constructor[C any] func(raw map[string]any) (C, error)

// Compose wires the three capability factories into a client constructor.
// All three share the transaction metadata type M; the compiler rejects
// triples that disagree. Missing factories are reported here rather than on
// first use.
func Compose[M TransactionMeta, O OptionsProvider, S StorageManager[M], TM TransactionManager[M]](
	storageFactory StorageManagerFactory[M, O, S],
	optionsFactory OptionsFactory[O],
	transactionFactory TransactionManagerFactory[M, O, S, TM],
) (Constructor[*Client[M, O, S, TM]], error) {
	switch {
	case storageFactory == nil:
		return nil, mismatch("storage manager", "factory is nil")
	case optionsFactory == nil:
		return nil, mismatch("options", "factory is nil")
	case transactionFactory == nil:
		return nil, mismatch("transaction manager", "factory is nil")
	}

	return func(raw map[string]any) (*Client[M, O, S, TM], error) {
		opts, err := optionsFactory(raw)
		if err != nil {
			return nil, fmt.Errorf("options: %w", err)
		}
		if isNil(opts) || opts.OAuthOptions() == nil {
			return nil, mismatch("options", "factory returned nil")
		}

		sm, err := storageFactory(opts)
		if err != nil {
			return nil, fmt.Errorf("storage manager: %w", err)
		}
		if isNil(sm) {
			return nil, mismatch("storage manager", "factory returned nil")
		}

		tm, err := transactionFactory(opts, sm)
		if err != nil {
			_ = closeCollaborator(sm)
			return nil, fmt.Errorf("transaction manager: %w", err)
		}
		if isNil(tm) {
			_ = closeCollaborator(sm)
			return nil, mismatch("transaction manager", "factory returned nil")
		}

		return newClient[M](opts, sm, tm), nil
	}, nil
}

func mismatch(capability, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrCompositionMismatch, capability, reason)
}

// closeCollaborator closes v when it holds resources
func closeCollaborator(v any) error {
	if isNil(v) {
		return nil
	}
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// isNil reports nil interfaces and typed nil pointers, maps, slices and funcs
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
