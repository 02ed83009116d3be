package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gobeaver/beaver-auth/storage"
)

func TestStorageService(t *testing.T) {
	t.Run("MemoryDriver", func(t *testing.T) {
		c, err := storage.New(storage.Config{
			Driver:     "memory",
			MaxKeys:    100,
			MaxSize:    1024 * 1024, // 1MB
			DefaultTTL: 5 * time.Minute,
		})
		if err != nil {
			t.Fatalf("Failed to create memory storage: %v", err)
		}
		defer c.Close()

		testStorageOperations(t, c)
	})

	t.Run("EncryptedMemoryDriver", func(t *testing.T) {
		c, err := storage.New(storage.Config{
			Driver:           "memory",
			EncryptionSecret: "correct horse battery staple",
		})
		if err != nil {
			t.Fatalf("Failed to create encrypted storage: %v", err)
		}
		defer c.Close()

		if _, ok := c.(*storage.Encrypted); !ok {
			t.Fatalf("New() returned %T, want *storage.Encrypted", c)
		}
		testStorageOperations(t, c)
	})

	t.Run("SQLDriver", func(t *testing.T) {
		c, err := storage.New(storage.Config{
			Driver:      "sql",
			SQLDriver:   "sqlite",
			SQLDatabase: filepath.Join(t.TempDir(), "auth.db"),
			SQLTable:    "auth_storage",
			AutoMigrate: true,
			KeyPrefix:   "test:",
		})
		if err != nil {
			t.Fatalf("Failed to create sql storage: %v", err)
		}
		defer c.Close()

		testStorageOperations(t, c)
	})

	// Skip if Redis not available
	t.Run("RedisDriver", func(t *testing.T) {
		c, err := storage.New(storage.Config{
			Driver:    "redis",
			Host:      "localhost",
			Port:      "6379",
			Database:  1,
			KeyPrefix: "test:",
		})
		if err != nil {
			t.Skipf("Redis not available: %v", err)
		}
		defer c.Close()

		testStorageOperations(t, c)
	})
}

func TestNewInvalidDriver(t *testing.T) {
	if _, err := storage.New(storage.Config{Driver: "etcd"}); !errors.Is(err, storage.ErrInvalidDriver) {
		t.Errorf("New() error = %v, want ErrInvalidDriver", err)
	}
}

func TestBuilderFromEnv(t *testing.T) {
	t.Setenv("AUTHTEST_STORAGE_DRIVER", "memory")
	t.Setenv("AUTHTEST_STORAGE_MAX_KEYS", "50")

	c, err := storage.WithPrefix("AUTHTEST_").New()
	if err != nil {
		t.Fatalf("Builder.New() failed: %v", err)
	}
	defer c.Close()

	testStorageOperations(t, c)
}

func testStorageOperations(t *testing.T, c storage.Storage) {
	ctx := context.Background()

	// Test Set and Get
	key := "test-key"
	value := []byte("test-value")

	err := c.Set(ctx, key, value, 1*time.Minute)
	if err != nil {
		t.Errorf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Errorf("Get failed: %v", err)
	}

	if string(got) != string(value) {
		t.Errorf("Get returned wrong value: got %s, want %s", got, value)
	}

	// Test Exists
	exists, err := c.Exists(ctx, key)
	if err != nil {
		t.Errorf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Key should exist")
	}

	// Test Delete
	err = c.Delete(ctx, key)
	if err != nil {
		t.Errorf("Delete failed: %v", err)
	}

	exists, err = c.Exists(ctx, key)
	if err != nil {
		t.Errorf("Exists after delete failed: %v", err)
	}
	if exists {
		t.Error("Key should not exist after delete")
	}

	// Test TTL expiration
	err = c.Set(ctx, "ttl-key", []byte("ttl-value"), 100*time.Millisecond)
	if err != nil {
		t.Errorf("Set with TTL failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	_, err = c.Get(ctx, "ttl-key")
	if !errors.Is(err, storage.ErrKeyNotFound) {
		t.Errorf("Get of expired key: got %v, want ErrKeyNotFound", err)
	}

	// Test Clear
	c.Set(ctx, "key1", []byte("value1"), 0)
	c.Set(ctx, "key2", []byte("value2"), 0)

	err = c.Clear(ctx)
	if err != nil {
		t.Errorf("Clear failed: %v", err)
	}

	exists, _ = c.Exists(ctx, "key1")
	if exists {
		t.Error("Key1 should not exist after clear")
	}

	exists, _ = c.Exists(ctx, "key2")
	if exists {
		t.Error("Key2 should not exist after clear")
	}

	// Test Ping
	err = c.Ping(ctx)
	if err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

