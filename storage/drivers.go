package storage

import (
	"github.com/gobeaver/beaver-auth/storage/driver/memory"
	"github.com/gobeaver/beaver-auth/storage/driver/redis"
	"github.com/gobeaver/beaver-auth/storage/driver/sql"
)

// Driver registration functions

func memoryRegister(cfg Config) (Storage, error) {
	return memory.New(memory.Config{
		MaxSize:         cfg.MaxSize,
		MaxKeys:         cfg.MaxKeys,
		DefaultTTL:      cfg.DefaultTTL,
		CleanupInterval: cfg.CleanupInterval,
		KeyPrefix:       cfg.KeyPrefix,
		Namespace:       cfg.Namespace,
	})
}

func redisRegister(cfg Config) (Storage, error) {
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: cfg.Database,
		URL:      cfg.URL,

		MaxRetries:      cfg.MaxRetries,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,

		UseTLS:   cfg.UseTLS,
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
		CAFile:   cfg.CAFile,

		KeyPrefix: cfg.KeyPrefix,
		Namespace: cfg.Namespace,
		Logger:    cfg.logger(),
	})
}

func sqlRegister(cfg Config) (Storage, error) {
	return sql.New(sql.Config{
		Driver:    cfg.SQLDriver,
		Host:      cfg.Host,
		Port:      cfg.sqlPort(),
		Database:  cfg.SQLDatabase,
		Username:  cfg.SQLUsername,
		Password:  cfg.Password,
		URL:       cfg.URL,
		AuthToken: cfg.SQLAuthToken,
		SSLMode:   cfg.SQLSSLMode,
		Params:    cfg.SQLParams,

		MaxOpenConns:    cfg.PoolSize,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,

		Table:           cfg.SQLTable,
		AutoMigrate:     cfg.AutoMigrate,
		CleanupInterval: cfg.CleanupInterval,
		KeyPrefix:       cfg.KeyPrefix,
		Namespace:       cfg.Namespace,
		Debug:           cfg.Debug,
		Logger:          cfg.logger(),
	})
}

// sqlPort drops the redis default port so the SQL driver picks its own
func (c Config) sqlPort() string {
	if c.Port == "6379" {
		return ""
	}
	return c.Port
}
