package sqlsession_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/txsession/internal/dbtest/sqlitetest"
	"github.com/openkcm/txsession/pkg/txsession"
	"github.com/openkcm/txsession/pkg/txsession/sqlsession"
)

func count(ctx context.Context, s txsession.Session) (int, error) {
	var n int
	if err := s.QueryRow(ctx, `SELECT COUNT(*) FROM posts;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting posts: %w", err)
	}
	return n, nil
}

func wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TestConcurrentFlows runs two logical flows against one store. Each flow
// gets its own scoped session and only sees the writes of the other flow once
// its own transaction has ended.
func TestConcurrentFlows(t *testing.T) {
	db := sqlitetest.Open(t)

	txsession.DefaultRegistry().SetManager(nil)
	t.Cleanup(func() { txsession.DefaultRegistry().SetManager(nil) })
	require.NoError(t, txsession.Init(t.Context(), sqlsession.NewFactory(db)))

	inserted := make(chan struct{})
	readBeforeCommit := make(chan struct{})
	committed := make(chan struct{})

	sessions := make(chan txsession.Session, 2)
	errs := make(chan error, 2)

	// flow A writes and commits
	go func() {
		errs <- func() error {
			m, err := txsession.GetManager()
			if err != nil {
				return err
			}

			ctx, end := txsession.BeginScope(t.Context())
			defer end(ctx)

			sess, err := m.Session(ctx, true)
			if err != nil {
				return err
			}
			sessions <- sess

			again, err := m.Session(ctx, true)
			if err != nil {
				return err
			}
			assert.Same(t, sess, again)

			if _, err := sess.Exec(ctx, `INSERT INTO posts (title, content) VALUES (?, ?);`, "from-a", "-"); err != nil {
				return err
			}
			close(inserted)

			if err := wait(ctx, readBeforeCommit); err != nil {
				return err
			}
			if err := sess.Commit(ctx); err != nil {
				return err
			}
			close(committed)

			return nil
		}()
	}()

	// flow B reads
	go func() {
		errs <- func() error {
			m, err := txsession.GetManager()
			if err != nil {
				return err
			}

			ctx, end := txsession.BeginScope(t.Context())
			defer end(ctx)

			sess, err := m.Session(ctx, true)
			if err != nil {
				return err
			}
			sessions <- sess

			if err := wait(ctx, inserted); err != nil {
				return err
			}
			n, err := count(ctx, sess)
			if err != nil {
				return err
			}
			assert.Equal(t, 0, n, "uncommitted writes of A are invisible")
			close(readBeforeCommit)

			if err := wait(ctx, committed); err != nil {
				return err
			}
			n, err = count(ctx, sess)
			if err != nil {
				return err
			}
			assert.Equal(t, 0, n, "B keeps its snapshot until its transaction ends")

			if err := sess.Commit(ctx); err != nil {
				return err
			}
			n, err = count(ctx, sess)
			if err != nil {
				return err
			}
			assert.Equal(t, 1, n, "B sees the commit of A in a new transaction")

			return nil
		}()
	}()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	a, b := <-sessions, <-sessions
	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.ID(), b.ID())
}
