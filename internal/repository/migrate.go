package repository

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies pending schema migrations for the handle's driver.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	dialect := goose.DialectSQLite3
	dir := "migrations/sqlite"
	if db.Driver == DriverPostgres {
		dialect = goose.DialectPostgres
		dir = "migrations/postgres"
	}
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return common.WrapError(err, "migrations fs")
	}
	provider, err := goose.NewProvider(dialect, db.SQL, fsys)
	if err != nil {
		return common.WrapError(err, "migration provider")
	}

	logger.Info("running database migrations", "driver", db.Driver)
	results, err := provider.Up(ctx)
	if err != nil {
		return common.WrapError(err, "migration failed")
	}
	for _, r := range results {
		logger.Info("migration applied", "version", r.Source.Version, "path", r.Source.Path, "duration_ms", r.Duration.Milliseconds())
	}
	logger.Info("database migrations complete", "applied", len(results))
	return nil
}
