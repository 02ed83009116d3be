// Package redis is a storage backend on go-redis. Expiry is delegated to Redis
// key TTLs.
package redis

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gobeaver/beaver-auth/storage/driver"
)

// Store implements storage on Redis
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    zerolog.Logger
}

// Config holds Redis specific configuration
type Config struct {
	// Connection
	Host     string
	Port     string
	Password string
	Database int
	URL      string

	// Pool settings
	MaxRetries      int
	PoolSize        int
	MinIdleConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// TLS
	UseTLS   bool
	CertFile string
	KeyFile  string
	CAFile   string

	// Common
	KeyPrefix string
	Namespace string

	Logger zerolog.Logger
}

// New connects to Redis and verifies the connection with a PING
func New(cfg Config) (*Store, error) {
	// Build options
	opts := &redis.UniversalOptions{
		Addrs:    []string{buildAddr(cfg)},
		Password: cfg.Password,
		DB:       cfg.Database,
	}

	// Use URL if provided
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = &redis.UniversalOptions{
			Addrs:    []string{opt.Addr},
			Password: opt.Password,
			DB:       opt.DB,
		}
		// Apply TLS from URL if present
		if opt.TLSConfig != nil {
			opts.TLSConfig = opt.TLSConfig
		}
	}

	// Apply pool settings
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.MaxIdleConns > 0 {
		opts.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		opts.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		opts.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}

	// Configure TLS if enabled
	if cfg.UseTLS && opts.TLSConfig == nil {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsConfig
	}

	// Create client
	client := redis.NewUniversalClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := driver.Prefix(cfg.Namespace, cfg.KeyPrefix)
	cfg.Logger.Debug().Strs("addrs", opts.Addrs).Str("prefix", prefix).Msg("redis storage connected")

	return &Store{
		client:    client,
		keyPrefix: prefix,
		logger:    cfg.Logger,
	}, nil
}

// NewFromClient wraps an existing client. The caller keeps ownership of the
// connection settings; Close still closes the client.
func NewFromClient(client redis.UniversalClient, namespace, keyPrefix string) *Store {
	return &Store{
		client:    client,
		keyPrefix: driver.Prefix(namespace, keyPrefix),
		logger:    zerolog.Nop(),
	}
}

// Get retrieves a value by key
func (rc *Store) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := rc.keyPrefix + key
	val, err := rc.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, driver.ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set stores a value with optional TTL
func (rc *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	fullKey := rc.keyPrefix + key
	return rc.client.Set(ctx, fullKey, value, ttl).Err()
}

// Delete removes a key
func (rc *Store) Delete(ctx context.Context, key string) error {
	fullKey := rc.keyPrefix + key
	return rc.client.Del(ctx, fullKey).Err()
}

// Exists checks if a key exists
func (rc *Store) Exists(ctx context.Context, key string) (bool, error) {
	fullKey := rc.keyPrefix + key
	n, err := rc.client.Exists(ctx, fullKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes all keys with the prefix
func (rc *Store) Clear(ctx context.Context) error {
	if rc.keyPrefix == "" {
		return driver.ErrPrefixMissing
	}

	// Use SCAN to find all keys with prefix
	iter := rc.client.Scan(ctx, 0, rc.keyPrefix+"*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())

		// Delete in batches of 1000
		if len(keys) >= 1000 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}

	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		if err := rc.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}

	rc.logger.Debug().Str("prefix", rc.keyPrefix).Msg("redis storage cleared")
	return nil
}

// Close closes the Redis connection
func (rc *Store) Close() error {
	return rc.client.Close()
}

// Ping checks if Redis is reachable
func (rc *Store) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("no certificates found in CA file")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// buildAddr builds Redis address from config
func buildAddr(cfg Config) string {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "6379"
	}
	return fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
}

// Stats returns connection pool statistics
func (rc *Store) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"key_prefix": rc.keyPrefix,
	}
	if poolStats := rc.client.PoolStats(); poolStats != nil {
		stats["pool"] = map[string]interface{}{
			"hits":        poolStats.Hits,
			"misses":      poolStats.Misses,
			"timeouts":    poolStats.Timeouts,
			"total_conns": poolStats.TotalConns,
			"idle_conns":  poolStats.IdleConns,
			"stale_conns": poolStats.StaleConns,
		}
	}
	return stats
}
