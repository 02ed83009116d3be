package storage

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gobeaver/beaver-auth/config"
)

// Config holds storage configuration
type Config struct {
	// Driver specifies the backend: "memory", "redis" or "sql"
	Driver string `env:"STORAGE_DRIVER,default:memory"`

	// Redis specific settings
	Host     string `env:"STORAGE_HOST,default:localhost"`
	Port     string `env:"STORAGE_PORT,default:6379"`
	Password string `env:"STORAGE_PASSWORD"`
	Database int    `env:"STORAGE_DATABASE,default:0"`

	// Connection URL (overrides host/port/password for redis, the DSN for sql)
	URL string `env:"STORAGE_URL"`

	// Connection pool settings
	MaxRetries      int           `env:"STORAGE_MAX_RETRIES,default:3"`
	PoolSize        int           `env:"STORAGE_POOL_SIZE,default:10"`
	MinIdleConns    int           `env:"STORAGE_MIN_IDLE_CONNS,default:2"`
	MaxIdleConns    int           `env:"STORAGE_MAX_IDLE_CONNS,default:5"`
	ConnMaxLifetime time.Duration `env:"STORAGE_CONN_MAX_LIFETIME,default:0s"`
	ConnMaxIdleTime time.Duration `env:"STORAGE_CONN_MAX_IDLE_TIME,default:0s"`

	// Memory specific
	MaxSize    int64         `env:"STORAGE_MAX_SIZE,default:0"`
	MaxKeys    int           `env:"STORAGE_MAX_KEYS,default:0"`
	DefaultTTL time.Duration `env:"STORAGE_DEFAULT_TTL,default:0s"`

	// How often expired entries are purged (memory and sql)
	CleanupInterval time.Duration `env:"STORAGE_CLEANUP_INTERVAL,default:1m"`

	// TLS settings for Redis
	UseTLS   bool   `env:"STORAGE_USE_TLS,default:false"`
	CertFile string `env:"STORAGE_CERT_FILE"`
	KeyFile  string `env:"STORAGE_KEY_FILE"`
	CAFile   string `env:"STORAGE_CA_FILE"`

	// SQL specific: sqlite, postgres, mysql, libsql, turso
	SQLDriver    string `env:"STORAGE_SQL_DRIVER,default:sqlite"`
	SQLDatabase  string `env:"STORAGE_SQL_DATABASE"`
	SQLUsername  string `env:"STORAGE_SQL_USERNAME"`
	SQLAuthToken string `env:"STORAGE_SQL_AUTH_TOKEN"`
	SQLSSLMode   string `env:"STORAGE_SQL_SSL_MODE,default:disable"`
	SQLParams    string `env:"STORAGE_SQL_PARAMS"`
	SQLTable     string `env:"STORAGE_SQL_TABLE,default:auth_storage"`
	AutoMigrate  bool   `env:"STORAGE_SQL_AUTO_MIGRATE,default:true"`

	// Common settings
	KeyPrefix string `env:"STORAGE_KEY_PREFIX"`
	Namespace string `env:"STORAGE_NAMESPACE"`

	// EncryptionSecret enables AES-GCM encryption of values at rest
	EncryptionSecret string `env:"STORAGE_ENCRYPTION_SECRET"`
	// SigningKey enables HS256-signed transaction records
	SigningKey string `env:"STORAGE_SIGNING_KEY"`

	Debug  bool            `env:"STORAGE_DEBUG,default:false"`
	Logger *zerolog.Logger `mapstructure:"-"`
}

// GetConfig loads configuration from environment variables
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, err
	}

	// Normalize driver
	cfg.Driver = strings.ToLower(cfg.Driver)
	cfg.SQLDriver = strings.ToLower(cfg.SQLDriver)

	return cfg, nil
}

func (c Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}
