package txsession

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"
)

// Manager hands out sessions of a single Factory.
type Manager struct {
	factory Factory
}

func NewManager(factory Factory) (*Manager, error) {
	if factory == nil {
		return nil, oops.In("txsession").Wrapf(ErrConfiguration, "creating session manager")
	}

	return &Manager{
		factory: factory,
	}, nil
}

func (m *Manager) Factory() Factory {
	return m.factory
}

// Session returns the scoped session of the current flow when force is set,
// otherwise a brand-new session. Factory errors are returned as is.
func (m *Manager) Session(ctx context.Context, force bool) (Session, error) {
	if force {
		return m.factory.ScopedSession(ctx)
	}
	return m.factory.NewSession(ctx)
}

// RunInTransaction runs fn as one unit of work. The scoped session is stored
// as the current session of the context handed to fn; it is committed when fn
// succeeds and rolled back otherwise. When ctx already carries a current
// session fn joins it and the outer unit of work decides the outcome.
func (m *Manager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if sess := Current(ctx); sess != nil {
		slogctx.Debug(ctx, "Joining current session", "session", sess.ID())
		return fn(ctx)
	}

	ctx, endScope := BeginScope(ctx)
	defer func() {
		if endErr := endScope(ctx); endErr != nil {
			err = errors.Join(err, fmt.Errorf("ending session scope: %w", endErr))
		}
	}()

	sess, err := m.Session(ctx, true)
	if err != nil {
		return fmt.Errorf("getting scoped session: %w", err)
	}
	ctx = WithCurrent(ctx, sess)

	defer func() {
		if r := recover(); r != nil {
			if rbErr := sess.Rollback(ctx); rbErr != nil {
				slogctx.Error(ctx, "Failed to roll back after panic", "session", sess.ID(), "error", rbErr)
			}
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := sess.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back session: %w", rbErr))
		}
		return err
	}

	if err := sess.Commit(ctx); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}

	return nil
}
