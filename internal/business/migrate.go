package business

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/internal/config"
	migrations "github.com/openkcm/txsession/sql"
)

// MigrateMain applies the embedded schema migrations to the configured
// database and releases the connection afterwards.
func MigrateMain(ctx context.Context, cfg *config.Config) error {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making connection string from config: %w", err)
	}

	db, closeFn, err := openSQLDB(ctx, connStr)
	if err != nil {
		return err
	}
	defer closeFn()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating migration provider")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	if len(results) == 0 {
		slogctx.Info(ctx, "Database schema is up to date")
		return nil
	}
	for _, res := range results {
		slogctx.Info(ctx, "Applied migration", "version", res.Source.Version, "path", res.Source.Path, "duration", res.Duration)
	}

	return nil
}
