// Package memory is an in-process storage backend. Values live in a map guarded
// by a RWMutex; a background goroutine evicts expired entries until Close.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/beaver-auth/storage/driver"
)

// item represents a stored value with expiration
type item struct {
	value      []byte
	expiration int64
	size       int64
}

// Store implements storage in process memory
type Store struct {
	mu              sync.RWMutex
	items           map[string]*item
	maxSize         int64
	currentSize     int64
	maxKeys         int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	keyPrefix       string
}

// Config holds memory backend configuration
type Config struct {
	MaxSize         int64
	MaxKeys         int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	KeyPrefix       string
	Namespace       string
}

// New creates a memory store and starts its cleanup goroutine
func New(cfg Config) (*Store, error) {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 1 * time.Minute
	}

	mc := &Store{
		items:           make(map[string]*item),
		maxSize:         cfg.MaxSize,
		maxKeys:         cfg.MaxKeys,
		defaultTTL:      cfg.DefaultTTL,
		cleanupInterval: cfg.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		keyPrefix:       driver.Prefix(cfg.Namespace, cfg.KeyPrefix),
	}

	go mc.cleanupExpired()

	return mc, nil
}

// Get retrieves a value by key
func (mc *Store) Get(ctx context.Context, key string) ([]byte, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	fullKey := mc.keyPrefix + key
	item, exists := mc.items[fullKey]
	if !exists {
		return nil, driver.ErrNotFound
	}

	if item.expired(time.Now().UnixNano()) {
		return nil, driver.ErrNotFound
	}

	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores a value with optional TTL
func (mc *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	fullKey := mc.keyPrefix + key
	size := int64(len(value))

	// Check max keys limit
	if mc.maxKeys > 0 && len(mc.items) >= mc.maxKeys {
		if _, exists := mc.items[fullKey]; !exists {
			return driver.ErrMaxKeys
		}
	}

	var oldSize int64
	if old, exists := mc.items[fullKey]; exists {
		oldSize = old.size
	}
	if mc.maxSize > 0 && mc.currentSize-oldSize+size > mc.maxSize {
		return driver.ErrMaxSize
	}

	// Use default TTL if not specified
	if ttl == 0 {
		ttl = mc.defaultTTL
	}

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	mc.items[fullKey] = &item{
		value:      stored,
		expiration: expiration,
		size:       size,
	}

	mc.currentSize += size - oldSize

	return nil
}

// Delete removes a key
func (mc *Store) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	fullKey := mc.keyPrefix + key
	if item, exists := mc.items[fullKey]; exists {
		mc.currentSize -= item.size
		delete(mc.items, fullKey)
	}

	return nil
}

// Exists checks if a key exists
func (mc *Store) Exists(ctx context.Context, key string) (bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	fullKey := mc.keyPrefix + key
	item, exists := mc.items[fullKey]
	if !exists {
		return false, nil
	}

	return !item.expired(time.Now().UnixNano()), nil
}

// Clear removes all keys
func (mc *Store) Clear(ctx context.Context) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for key, item := range mc.items {
		if strings.HasPrefix(key, mc.keyPrefix) {
			mc.currentSize -= item.size
			delete(mc.items, key)
		}
	}

	return nil
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (mc *Store) Close() error {
	mc.closeOnce.Do(func() { close(mc.stopCleanup) })
	return nil
}

// Ping always succeeds
func (mc *Store) Ping(ctx context.Context) error {
	return nil
}

// cleanupExpired removes expired items periodically
func (mc *Store) cleanupExpired() {
	ticker := time.NewTicker(mc.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.removeExpired()
		case <-mc.stopCleanup:
			return
		}
	}
}

// removeExpired removes all expired items
func (mc *Store) removeExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now().UnixNano()
	for key, item := range mc.items {
		if item.expired(now) {
			mc.currentSize -= item.size
			delete(mc.items, key)
		}
	}
}

func (i *item) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

// Stats returns store statistics
func (mc *Store) Stats() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return map[string]interface{}{
		"keys":       len(mc.items),
		"size":       mc.currentSize,
		"max_size":   mc.maxSize,
		"max_keys":   mc.maxKeys,
		"key_prefix": mc.keyPrefix,
	}
}
