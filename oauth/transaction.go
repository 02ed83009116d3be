package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gobeaver/beaver-auth/storage"
)

// StorageTransactionManager keeps transaction metadata in the storage
// manager's transaction storage
type StorageTransactionManager[M TransactionMeta] struct {
	storage storage.TypedStorage[M]
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewTransactionManager is the default transaction manager factory
func NewTransactionManager[M TransactionMeta, O OptionsProvider, S StorageManager[M]](opts O, sm S) (*StorageTransactionManager[M], error) {
	ts := sm.TransactionStorage()
	if ts == nil {
		return nil, fmt.Errorf("%w: storage manager has no transaction storage", ErrCompositionMismatch)
	}
	base := opts.OAuthOptions()
	return &StorageTransactionManager[M]{
		storage: ts,
		ttl:     base.TransactionTTL,
		logger:  base.Logger,
	}, nil
}

func (tm *StorageTransactionManager[M]) Save(ctx context.Context, meta M) error {
	if isNil(meta) {
		return fmt.Errorf("cannot save nil transaction meta")
	}
	if om := meta.OAuthMeta(); om != nil && om.CreatedAt.IsZero() {
		om.CreatedAt = time.Now()
	}
	if err := tm.storage.Save(ctx, meta); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// Load returns the saved meta. Missing and expired records both yield
// ErrTransactionNotFound.
func (tm *StorageTransactionManager[M]) Load(ctx context.Context) (M, error) {
	var zero M
	meta, err := tm.storage.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return zero, ErrTransactionNotFound
		}
		return zero, fmt.Errorf("failed to load transaction: %w", err)
	}
	if isNil(meta) || meta.OAuthMeta() == nil {
		return zero, ErrTransactionNotFound
	}
	if meta.OAuthMeta().IsExpired(tm.ttl) {
		tm.logger.Debug().Msg("discarding expired transaction")
		if err := tm.storage.Clear(ctx); err != nil {
			tm.logger.Debug().Err(err).Msg("failed to clear expired transaction")
		}
		return zero, ErrTransactionNotFound
	}
	return meta, nil
}

func (tm *StorageTransactionManager[M]) Clear(ctx context.Context) error {
	return tm.storage.Clear(ctx)
}

func (tm *StorageTransactionManager[M]) Exists(ctx context.Context) (bool, error) {
	_, err := tm.Load(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrTransactionNotFound):
		return false, nil
	default:
		return false, err
	}
}
