package business

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// Register pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	gormpostgres "gorm.io/driver/postgres"

	"github.com/openkcm/txsession/internal/business/server"
	"github.com/openkcm/txsession/internal/config"
	"github.com/openkcm/txsession/internal/post"
	"github.com/openkcm/txsession/internal/post/postgorm"
	"github.com/openkcm/txsession/internal/post/postsql"
	"github.com/openkcm/txsession/pkg/txsession"
	"github.com/openkcm/txsession/pkg/txsession/gormsession"
	"github.com/openkcm/txsession/pkg/txsession/pgxsession"
	"github.com/openkcm/txsession/pkg/txsession/sqlsession"
)

// Main starts the posts API server.
func Main(ctx context.Context, cfg *config.Config) error {
	manager, closeFn, err := initSessionManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}
	defer closeFn()

	service := post.NewService(newPostRepository(cfg, manager))

	return server.StartHTTPServer(ctx, cfg, manager, service)
}

// initSessionManager registers a manager for the configured backend as the
// process wide one and returns it.
func initSessionManager(ctx context.Context, cfg *config.Config) (_ *txsession.Manager, closeFn func(), _ error) {
	factory, closeFn, err := NewSessionFactory(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := txsession.Init(ctx, factory); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("registering session manager: %w", err)
	}

	manager, err := txsession.GetManager()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("getting session manager: %w", err)
	}

	return manager, closeFn, nil
}

func newPostRepository(cfg *config.Config, manager *txsession.Manager) post.Repository {
	if cfg.Session.Backend == config.BackendGORM {
		return postgorm.NewRepository(manager)
	}
	return postsql.NewRepository(manager)
}

// NewSessionFactory connects to the configured database and returns a
// factory for the configured session backend. closeFn releases the
// connections.
func NewSessionFactory(ctx context.Context, cfg *config.Config) (_ *txsession.ScopedFactory, closeFn func(), _ error) {
	if err := cfg.Session.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating session config: %w", err)
	}

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("making dsn from config: %w", err)
	}

	switch cfg.Session.Backend {
	case config.BackendSQL:
		db, closeFn, err := openSQLDB(ctx, connStr)
		if err != nil {
			return nil, nil, err
		}
		return sqlsession.NewFactory(db, sqlsession.WithTxOptions(cfg.Session.SQLTxOptions())), closeFn, nil
	case config.BackendGORM:
		db, closeFn, err := openSQLDB(ctx, connStr)
		if err != nil {
			return nil, nil, err
		}

		gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db}), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			closeFn()
			return nil, nil, oops.In("main").Wrapf(err, "opening gorm DB")
		}
		return gormsession.NewFactory(gormDB, gormsession.WithTxOptions(cfg.Session.SQLTxOptions())), closeFn, nil
	default:
		pool, err := openPool(ctx, connStr)
		if err != nil {
			return nil, nil, err
		}
		return pgxsession.NewFactory(pool, pgxsession.WithTxOptions(cfg.Session.PgxTxOptions())), pool.Close, nil
	}
}

func openPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	if err := otelpgx.RecordStats(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("recording pgxpool stats: %w", err)
	}

	return pool, nil
}

func openSQLDB(ctx context.Context, connStr string) (*sql.DB, func(), error) {
	const driver = "pgx"
	dbSystemName := semconv.DBSystemNamePostgreSQL

	db, err := otelsql.Open(driver, connStr, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return nil, nil, oops.In("main").Wrapf(err, "opening DB connection")
	}

	reg, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("registering db stats metrics: %w", err)
	}

	closeFn := func() {
		if err := reg.Unregister(); err != nil {
			slogctx.Error(ctx, "failed to unregister db stats metrics", "error", err)
		}
		if err := db.Close(); err != nil {
			slogctx.Error(ctx, "failed to close DB connection", "error", err)
		}
	}

	return db, closeFn, nil
}
