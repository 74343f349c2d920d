package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jonny/engagebot/internal/adapter/outbound/persistence/dbretry"
	"github.com/jonny/engagebot/internal/adapter/outbound/persistence/sqlstore/migration"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// validJournalModes defines accepted SQLite journal modes.
var validJournalModes = map[string]bool{
	"wal": true, "delete": true, "truncate": true,
	"persist": true, "memory": true, "off": true,
}

// SQLiteConfig holds SQLite connection configuration.
type SQLiteConfig struct {
	Path              string
	MaxOpenConns      int
	PragmaJournalMode string
	PragmaBusyTimeout int
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
}

// DSN builds a postgres:// connection URL for the pgx driver.
func (c PostgresConfig) DSN() string {
	host := c.Host
	if c.Port > 0 {
		host += ":" + strconv.Itoa(c.Port)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   host,
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Config selects the driver and carries per-driver settings.
type Config struct {
	Driver   string
	SQLite   SQLiteConfig
	Postgres PostgresConfig
	Retry    dbretry.Policy
}

// Store wraps a *sql.DB and exposes it for repository use.
type Store struct {
	DB      *sql.DB
	dialect string
	retry   dbretry.Policy
}

// NewStore opens the configured database and runs migrations.
func NewStore(cfg Config) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case "", DriverSQLite:
		cfg.Driver = DriverSQLite
		db, err = openSQLite(cfg.SQLite)
	case DriverPostgres:
		db, err = openPostgres(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := migration.Run(db, cfg.Driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{DB: db, dialect: cfg.Driver, retry: cfg.Retry}, nil
}

func openSQLite(cfg SQLiteConfig) (*sql.DB, error) {
	if cfg.PragmaJournalMode != "" && !validJournalModes[strings.ToLower(cfg.PragmaJournalMode)] {
		return nil, fmt.Errorf("invalid pragma journal mode: %q", cfg.PragmaJournalMode)
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", cfg.Path, cfg.PragmaBusyTimeout)
	if cfg.PragmaJournalMode != "" {
		dsn += "&_journal_mode=" + cfg.PragmaJournalMode
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

func openPostgres(cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

// Dialect returns the driver name the store was opened with.
func (s *Store) Dialect() string { return s.dialect }

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.DB.Close() }

// rebind rewrites ? placeholders into $n for postgres.
func (s *Store) rebind(q string) string {
	if s.dialect != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for _, r := range q {
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

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.DB.ExecContext(ctx, s.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.DB.QueryRowContext(ctx, s.rebind(q), args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.DB.QueryContext(ctx, s.rebind(q), args...)
}

// withRetry runs op under the store's retry policy.
func (s *Store) withRetry(ctx context.Context, op func(context.Context) error) error {
	return dbretry.NoResult(ctx, s.retry, op)
}
