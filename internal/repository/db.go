package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver          string
	Path            string // sqlite file, or ":memory:"
	DSN             string // postgres
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB bundles the database/sql handle with the pgx pool that backs it (postgres only).
type DB struct {
	SQL    *sql.DB
	Pool   *pgxpool.Pool
	Driver string
}

// Open connects to the configured store and returns a ready handle.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DriverSQLite, "":
		return openSQLite(ctx, cfg, logger)
	case DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	logger.Info("connecting to database", "driver", DriverSQLite, "path", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: each :memory: connection is its own database, and file
	// writers serialize anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	logger.Info("successfully connected to database")
	return &DB{SQL: db, Driver: DriverSQLite}, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", DriverPostgres, "dsn", redactDSN(cfg.DSN))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-drafter"

	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for the store and goose.
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{SQL: db, Pool: pool, Driver: DriverPostgres}, nil
}

// Close closes the database connections gracefully.
func (d *DB) Close(logger *slog.Logger) {
	if d == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the store to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if d.Pool != nil {
		return d.Pool.Ping(ctx)
	}
	return d.SQL.PingContext(ctx)
}

// rebind rewrites ? placeholders as $n for postgres.
func (d *DB) rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
