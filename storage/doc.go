// Package storage provides the key/value backends auth clients persist
// transaction state and discovery documents in.
//
// Backends are selected by Config.Driver:
//
//	memory, builtin  in-process map with TTL eviction
//	redis            github.com/redis/go-redis/v9
//	sql              gorm over sqlite, postgres, mysql or libsql
//
// Setting Config.EncryptionSecret wraps the backend in Encrypted, which seals
// every value with AES-GCM under a key derived from the secret.
//
// Manager adapts a backend to the storage manager an auth client expects:
//
//	store, err := storage.New(storage.Config{Driver: "redis", Host: "localhost"})
//	mgr := storage.NewManager[*oauth.OAuthTransactionMeta](store,
//	    storage.WithTransactionTTL(10*time.Minute),
//	    storage.WithCodec(storage.SignedCodec{Key: key}),
//	)
//	meta, err := mgr.TransactionStorage().Load(ctx)
//
// Every backend reports a missing or expired key as ErrKeyNotFound.
package storage
