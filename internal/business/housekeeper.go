package business

import (
	"context"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/internal/config"
	"github.com/openkcm/txsession/internal/post"
	"github.com/openkcm/txsession/pkg/txsession"
)

// HousekeeperMain starts the house keeping jobs
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Housekeeper.Validate(); err != nil {
		return fmt.Errorf("validating housekeeper config: %w", err)
	}

	manager, closeFn, err := initSessionManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise the session manager: %w", err)
	}
	defer closeFn()

	service := post.NewService(newPostRepository(cfg, manager))

	return runHousekeeper(ctx, manager, service, cfg.Housekeeper)
}

// runHousekeeper prunes stale posts on every tick until ctx is done. Each
// run is its own transaction.
func runHousekeeper(ctx context.Context, manager *txsession.Manager, service *post.Service, cfg config.Housekeeper) error {
	c := time.Tick(cfg.TriggerInterval)
	for {
		err := manager.RunInTransaction(ctx, func(ctx context.Context) error {
			n, err := service.Prune(ctx, cfg.PostRetention)
			if err != nil {
				return err
			}

			slogctx.Info(ctx, "Pruned stale posts", "count", n)
			return nil
		})
		if err != nil {
			slogctx.Error(ctx, "Error during post housekeeping", "error", err)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}
