// Package sql is a storage backend on a relational database through gorm.
// Pure Go drivers keep builds CGO-free: pgx for PostgreSQL, go-sql-driver for
// MySQL, modernc for SQLite and libsql-client-go for Turso.
package sql

import (
	"context"
	dbsql "database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/gobeaver/beaver-auth/storage/driver"
)

// DefaultTable is the table entries are stored in when Config.Table is empty.
const DefaultTable = "auth_storage"

// ErrInvalidDriver is returned for an unknown Config.Driver.
var ErrInvalidDriver = errors.New("invalid sql storage driver")

// Entry is one stored key. ExpiresAt is unix nanoseconds, zero for no expiry.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:255"`
	Value     []byte `gorm:"column:entry_value"`
	ExpiresAt int64  `gorm:"column:expires_at;index;not null;default:0"`
}

// Config holds SQL backend configuration
type Config struct {
	// Driver: sqlite, postgres, mysql, libsql, turso
	Driver   string
	Host     string
	Port     string
	Database string
	Username string
	Password string

	// URL overrides the individual connection settings
	URL       string
	AuthToken string // Turso/LibSQL
	SSLMode   string // PostgreSQL
	Params    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	Table       string
	AutoMigrate bool

	// CleanupInterval is how often expired rows are purged. Zero disables the
	// background purge; reads skip expired rows either way.
	CleanupInterval time.Duration

	KeyPrefix string
	Namespace string

	Debug  bool
	Logger zerolog.Logger
}

// Store implements storage on a SQL table
type Store struct {
	db        *gorm.DB
	sqlDB     *dbsql.DB
	table     string
	keyPrefix string
	logger    zerolog.Logger

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// New opens the database, verifies the connection and, when AutoMigrate is
// set, creates the entry table.
func New(cfg Config) (*Store, error) {
	sqlDB, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}

	db, err := openGORM(cfg, sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	s := newStore(db, sqlDB, cfg)
	if cfg.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	if cfg.CleanupInterval > 0 {
		go s.cleanupExpired(cfg.CleanupInterval)
	}

	s.logger.Debug().Str("driver", cfg.Driver).Str("table", s.table).Msg("sql storage opened")
	return s, nil
}

// NewFromGORM wraps an existing gorm connection. Close closes its pool.
func NewFromGORM(db *gorm.DB, cfg Config) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm.DB instance is required")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	s := newStore(db, sqlDB, cfg)
	if cfg.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			return nil, err
		}
	}
	if cfg.CleanupInterval > 0 {
		go s.cleanupExpired(cfg.CleanupInterval)
	}
	return s, nil
}

func newStore(db *gorm.DB, sqlDB *dbsql.DB, cfg Config) *Store {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	return &Store{
		db:          db,
		sqlDB:       sqlDB,
		table:       table,
		keyPrefix:   driver.Prefix(cfg.Namespace, cfg.KeyPrefix),
		logger:      cfg.Logger,
		stopCleanup: make(chan struct{}),
	}
}

// cleanupExpired purges expired rows periodically until Close
func (s *Store) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if _, err := s.PurgeExpired(ctx); err != nil {
				s.logger.Debug().Err(err).Msg("failed to purge expired sql storage entries")
			}
			cancel()
		case <-s.stopCleanup:
			return
		}
	}
}

// Migrate creates or updates the entry table
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

// Get retrieves a value by key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := s.query(ctx).Where("entry_key = ?", s.keyPrefix+key).Take(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, driver.ErrNotFound
		}
		return nil, err
	}

	if e.ExpiresAt > 0 && time.Now().UnixNano() > e.ExpiresAt {
		return nil, driver.ErrNotFound
	}
	return e.Value, nil
}

// Set stores a value with optional TTL, replacing any existing value
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := Entry{Key: s.keyPrefix + key, Value: value}
	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl).UnixNano()
	}
	return s.query(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&e).Error
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.query(ctx).Where("entry_key = ?", s.keyPrefix+key).Delete(&Entry{}).Error
}

// Exists checks if an unexpired key exists
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := s.query(ctx).
		Where("entry_key = ?", s.keyPrefix+key).
		Where("expires_at = 0 OR expires_at > ?", time.Now().UnixNano()).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes all keys under the store's prefix
func (s *Store) Clear(ctx context.Context) error {
	q := s.query(ctx)
	if s.keyPrefix == "" {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	} else {
		q = q.Where("entry_key LIKE ? ESCAPE '!'", escapeLike(s.keyPrefix)+"%")
	}
	return q.Delete(&Entry{}).Error
}

// PurgeExpired deletes expired rows and reports how many were removed
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.query(ctx).
		Where("expires_at > 0 AND expires_at < ?", time.Now().UnixNano()).
		Delete(&Entry{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.logger.Debug().Int64("rows", res.RowsAffected).Msg("purged expired sql storage entries")
	}
	return res.RowsAffected, nil
}

// Close stops the background purge and closes the connection pool
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.stopCleanup) })
	return s.sqlDB.Close()
}

// Ping verifies the database connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// GORM returns the underlying gorm handle
func (s *Store) GORM() *gorm.DB {
	return s.db
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func openSQL(cfg Config) (*dbsql.DB, error) {
	var dsn, driverName string

	switch cfg.Driver {
	case "mysql":
		driverName = "mysql"
		dsn = buildMySQLDSN(cfg)

	case "postgres", "postgresql":
		driverName = "pgx"
		dsn = buildPostgresDSN(cfg)

	case "sqlite", "sqlite3", "":
		driverName = "sqlite"
		dsn = cfg.URL
		if dsn == "" {
			dsn = cfg.Database
		}
		if dsn == "" {
			dsn = "file:beaver-auth.db?cache=shared&mode=rwc"
		}

	case "libsql", "turso":
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: turso requires URL to be set", ErrInvalidDriver)
		}
		driverName = "libsql"
		dsn = cfg.URL
		if cfg.AuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", cfg.URL, cfg.AuthToken)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDriver, cfg.Driver)
	}

	db, err := dbsql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func openGORM(cfg Config, sqlDB *dbsql.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{Conn: sqlDB})
	case "postgres", "postgresql":
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		dialector = sqlite.Dialector{Conn: sqlDB}
	}

	gormCfg := &gorm.Config{}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	return gorm.Open(dialector, gormCfg)
}

func buildMySQLDSN(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	port := cfg.Port
	if port == "" {
		port = "3306"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", cfg.Username, cfg.Password, cfg.Host, port, cfg.Database)

	params := []string{"charset=utf8mb4", "parseTime=True", "loc=Local"}
	if cfg.Params != "" {
		params = append(params, cfg.Params)
	}
	return dsn + "?" + strings.Join(params, "&")
}

func buildPostgresDSN(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	port := cfg.Port
	if port == "" {
		port = "5432"
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	parts := []string{
		fmt.Sprintf("host=%s", cfg.Host),
		fmt.Sprintf("port=%s", port),
		fmt.Sprintf("user=%s", cfg.Username),
		fmt.Sprintf("password=%s", cfg.Password),
		fmt.Sprintf("dbname=%s", cfg.Database),
		fmt.Sprintf("sslmode=%s", sslMode),
	}
	if cfg.Params != "" {
		parts = append(parts, cfg.Params)
	}
	return strings.Join(parts, " ")
}
