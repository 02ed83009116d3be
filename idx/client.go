package idx

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/gobeaver/beaver-auth/oauth"
	"github.com/gobeaver/beaver-auth/storage"
)

// ErrNotEmailVerifyCallback is returned when a URL lacks otp or state
var ErrNotEmailVerifyCallback = errors.New("not an email verify callback")

// Client is a base client with the idx capability set. Base members are
// promoted from the embedded *oauth.Client.
type Client[M TransactionMeta, O OptionsProvider, S oauth.StorageManager[M], TM oauth.TransactionManager[M]] struct {
	*oauth.Client[M, O, S, TM]

	Idx *API[M, O, S, TM]
}

// Mixin layers the idx capability set on a base constructor. newMeta builds
// the client's metadata type from idx metadata.
func Mixin[M TransactionMeta, O OptionsProvider, S oauth.StorageManager[M], TM oauth.TransactionManager[M]](
	base oauth.Constructor[*oauth.Client[M, O, S, TM]],
	newMeta MetaFactory[M],
) (oauth.Constructor[*Client[M, O, S, TM]], error) {
	if base == nil {
		return nil, fmt.Errorf("%w: idx base constructor is nil", oauth.ErrCompositionMismatch)
	}
	if newMeta == nil {
		return nil, fmt.Errorf("%w: idx meta factory is nil", oauth.ErrCompositionMismatch)
	}

	return func(raw map[string]any) (*Client[M, O, S, TM], error) {
		c, err := base(raw)
		if err != nil {
			return nil, err
		}
		if c.Options().IdxOptions() == nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: options carry no idx options", oauth.ErrCompositionMismatch)
		}
		return &Client[M, O, S, TM]{Client: c, Idx: newAPI(c, newMeta)}, nil
	}, nil
}

// Compose composes the base client from the three capability factories and
// layers the idx capability set on it
func Compose[M TransactionMeta, O OptionsProvider, S oauth.StorageManager[M], TM oauth.TransactionManager[M]](
	storageFactory oauth.StorageManagerFactory[M, O, S],
	optionsFactory oauth.OptionsFactory[O],
	transactionFactory oauth.TransactionManagerFactory[M, O, S, TM],
	newMeta MetaFactory[M],
) (oauth.Constructor[*Client[M, O, S, TM]], error) {
	base, err := oauth.Compose(storageFactory, optionsFactory, transactionFactory)
	if err != nil {
		return nil, err
	}
	return Mixin(base, newMeta)
}

// DefaultClient is the client New returns
type DefaultClient = Client[
	*IdxTransactionMeta,
	*Options,
	*storage.Manager[*IdxTransactionMeta],
	*oauth.StorageTransactionManager[*IdxTransactionMeta],
]

// New builds an idx client from a raw configuration map using the default
// storage manager and transaction manager
func New(raw map[string]any) (*DefaultClient, error) {
	construct, err := Compose[*IdxTransactionMeta](
		oauth.NewStorageManager[*IdxTransactionMeta, *Options],
		NewOptions,
		oauth.NewTransactionManager[*IdxTransactionMeta, *Options, *storage.Manager[*IdxTransactionMeta]],
		NewIdxTransactionMeta,
	)
	if err != nil {
		return nil, err
	}
	return construct(raw)
}

func isNilMeta(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
