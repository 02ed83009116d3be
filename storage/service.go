package storage

import (
	"errors"
	"fmt"

	"github.com/gobeaver/beaver-auth/config"
	"github.com/gobeaver/beaver-auth/krypto"
	"github.com/gobeaver/beaver-auth/storage/driver"
)

// Common errors
var (
	ErrInvalidDriver = errors.New("invalid storage driver")
	ErrKeyNotFound   = driver.ErrNotFound
)

// Builder provides a way to create storage instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// New creates a new storage instance using the builder's prefix
func (b *Builder) New() (Storage, error) {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return nil, err
	}
	return New(*cfg)
}

// New creates a storage backend from config. When EncryptionSecret is set the
// backend is wrapped so values are encrypted at rest.
func New(cfg Config) (Storage, error) {
	if cfg.Driver == "" {
		cfg.Driver = "memory"
	}

	var (
		store Storage
		err   error
	)
	switch cfg.Driver {
	case "memory", "builtin":
		store, err = memoryRegister(cfg)
	case "redis":
		store, err = redisRegister(cfg)
	case "sql":
		store, err = sqlRegister(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.EncryptionSecret == "" {
		return store, nil
	}

	svc, err := krypto.NewAESGCMServiceFromSecret([]byte(cfg.EncryptionSecret), []byte(cfg.Namespace))
	if err != nil {
		store.Close()
		return nil, err
	}
	return NewEncrypted(store, svc), nil
}

// NewFromEnv creates a storage instance from BEAVER_ prefixed environment variables
func NewFromEnv() (Storage, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(*cfg)
}
