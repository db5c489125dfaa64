package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the "sqlite" database/sql driver

	"github.com/healthdash/backend/pkg/config"
)

// Dialect identifies the SQL flavour behind a DB handle
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps a *sql.DB together with the dialect it speaks
// ⭐ SSOT: database handles are created in this package only
type DB struct {
	SQL     *sql.DB
	Dialect Dialect
}

// New opens the metric store configured in cfg
func New(cfg *config.Config) (*DB, error) {
	return Open(cfg.Database)
}

// Open opens and pings the database described by dbCfg.URL
// ⭐ SSOT: the only caller of sql.Open()
func Open(dbCfg config.DatabaseConfig) (*DB, error) {
	driver, dsn, dialect, err := ParseURL(dbCfg.URL)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch dialect {
	case DialectSQLite:
		// SQLite serialises writers; a single connection also keeps
		// :memory: databases alive for the lifetime of the handle.
		sqlDB.SetMaxOpenConns(1)
	case DialectPostgres:
		if dbCfg.MaxConns > 0 {
			sqlDB.SetMaxOpenConns(dbCfg.MaxConns)
		}
		if dbCfg.MinConns > 0 {
			sqlDB.SetMaxIdleConns(dbCfg.MinConns)
		}
		sqlDB.SetConnMaxLifetime(dbCfg.MaxConnLifetime)
		sqlDB.SetConnMaxIdleTime(dbCfg.MaxConnIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectSQLite && dsn != ":memory:" {
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	return &DB{SQL: sqlDB, Dialect: dialect}, nil
}

// ParseURL maps a DATABASE_URL onto a driver name, a driver DSN and a dialect.
//
//	sqlite://health_data.db   -> sqlite, health_data.db
//	sqlite://:memory:         -> sqlite, :memory:
//	file:health_data.db       -> sqlite, file:health_data.db
//	health_data.db            -> sqlite, health_data.db
//	postgres://u:p@host/db    -> pgx, unchanged
func ParseURL(raw string) (driver, dsn string, dialect Dialect, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", "", fmt.Errorf("empty database URL")
	}

	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", "", fmt.Errorf("sqlite URL has no path: %q", raw)
		}
		return "sqlite", path, DialectSQLite, nil
	case strings.HasPrefix(raw, "file:"):
		return "sqlite", raw, DialectSQLite, nil
	case !strings.Contains(raw, "://"):
		return "sqlite", raw, DialectSQLite, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to parse database URL: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		return "pgx", raw, DialectPostgres, nil
	default:
		return "", "", "", fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}
}

// Rebind rewrites ? placeholders into the dialect's native form
func (db *DB) Rebind(query string) string {
	return Rebind(db.Dialect, query)
}

// Rebind rewrites ? placeholders into $1, $2, ... for PostgreSQL and
// leaves the query untouched for SQLite. Queries in this module never
// carry a literal question mark.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database handle. Safe to call more than once.
func (db *DB) Close() {
	if db.SQL != nil {
		db.SQL.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

// HealthCheck returns detailed health information about the database
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Healthy:   false,
		Dialect:   string(db.Dialect),
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := db.SQL.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)
	status.Stats = db.Stats()
	status.Healthy = true

	return status, nil
}

// HealthStatus represents the health status of the database
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Dialect      string        `json:"dialect"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
}

// PoolStats represents connection pool statistics
type PoolStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

// Stats returns the current pool statistics
func (db *DB) Stats() PoolStats {
	stats := db.SQL.Stats()
	return PoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}
}
