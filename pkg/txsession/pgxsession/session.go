// Package pgxsession provides txsession sessions backed by a pgx pool.
package pgxsession

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/pkg/txsession"
)

type Option func(*Session)

// WithTxOptions sets the options used for every transaction of the session.
func WithTxOptions(opts pgx.TxOptions) Option {
	return func(s *Session) { s.txOpts = opts }
}

// Session is a txsession.Session on top of a pgx transaction.
//
// A pgx transaction runs on one connection, so Exec and QueryRow are
// serialized across goroutines sharing the session. Rows returned by Query
// keep the connection busy until closed; other statements must wait for that.
type Session struct {
	id     string
	pool   *pgxpool.Pool
	txOpts pgx.TxOptions

	mu     sync.Mutex
	tx     pgx.Tx
	closed bool
}

var _ txsession.Session = (*Session)(nil)

// NewFactory returns a factory producing sessions on pool.
func NewFactory(pool *pgxpool.Pool, opts ...Option) *txsession.ScopedFactory {
	return txsession.NewScopedFactory(func(ctx context.Context) (txsession.Session, error) {
		return New(ctx, pool, opts...), nil
	})
}

func New(ctx context.Context, pool *pgxpool.Pool, opts ...Option) *Session {
	s := &Session{
		id:   uuid.NewString(),
		pool: pool,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	slogctx.Debug(ctx, "Created pgx session", "session", s.id)

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Tx returns the open transaction, beginning one if needed.
func (s *Session) Tx(ctx context.Context) (pgx.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.begin(ctx)
}

func (s *Session) begin(ctx context.Context) (pgx.Tx, error) {
	if s.closed {
		return nil, txsession.ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}

	tx, err := s.pool.BeginTx(ctx, s.txOpts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	s.tx = tx

	slogctx.Debug(ctx, "Started transaction", "session", s.id)

	return tx, nil
}

func (s *Session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return ct.RowsAffected(), nil
}

// QueryRow runs the query when the row is scanned.
func (s *Session) QueryRow(ctx context.Context, query string, args ...any) txsession.Row {
	return rowFunc(func(dest ...any) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx, err := s.begin(ctx)
		if err != nil {
			return err
		}

		return tx.QueryRow(ctx, query, args...).Scan(dest...)
	})
}

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error {
	return f(dest...)
}

func (s *Session) Query(ctx context.Context, query string, args ...any) (txsession.Rows, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}

	return tx.Query(ctx, query, args...)
}

// Commit commits the open transaction. Without one it does nothing.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return txsession.ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}

	tx := s.tx
	s.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	slogctx.Debug(ctx, "Committed transaction", "session", s.id)

	return nil
}

// Rollback rolls back the open transaction. Without one it does nothing.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return txsession.ErrSessionClosed
	}

	return s.rollback(ctx)
}

func (s *Session) rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}

	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(ctx); err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}

	slogctx.Debug(ctx, "Rolled back transaction", "session", s.id)

	return nil
}

// Close rolls back any pending transaction and releases the session.
// Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	slogctx.Debug(ctx, "Closing session", "session", s.id)

	return s.rollback(ctx)
}
