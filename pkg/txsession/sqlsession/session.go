// Package sqlsession provides txsession sessions backed by database/sql.
package sqlsession

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/pkg/txsession"
)

type Option func(*Session)

// WithTxOptions sets the options used for every transaction of the session.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(s *Session) { s.txOpts = opts }
}

// Session is a txsession.Session on top of a *sql.Tx.
type Session struct {
	id     string
	db     *sql.DB
	txOpts *sql.TxOptions

	mu     sync.Mutex
	tx     *sql.Tx
	closed bool
}

var _ txsession.Session = (*Session)(nil)

// NewFactory returns a factory producing sessions on db.
func NewFactory(db *sql.DB, opts ...Option) *txsession.ScopedFactory {
	return txsession.NewScopedFactory(func(ctx context.Context) (txsession.Session, error) {
		return New(ctx, db, opts...), nil
	})
}

func New(ctx context.Context, db *sql.DB, opts ...Option) *Session {
	s := &Session{
		id: uuid.NewString(),
		db: db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	slogctx.Debug(ctx, "Created sql session", "session", s.id)

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Tx returns the open transaction, beginning one if needed.
func (s *Session) Tx(ctx context.Context) (*sql.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, txsession.ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}

	// The transaction outlives the context of the statement opening it.
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), s.txOpts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	s.tx = tx

	slogctx.Debug(ctx, "Started transaction", "session", s.id)

	return tx, nil
}

func (s *Session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (s *Session) QueryRow(ctx context.Context, query string, args ...any) txsession.Row {
	tx, err := s.Tx(ctx)
	if err != nil {
		return txsession.ErrRow{Err: err}
	}

	return tx.QueryRowContext(ctx, query, args...)
}

func (s *Session) Query(ctx context.Context, query string, args ...any) (txsession.Rows, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return WrapRows(rows), nil
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
	if err := tx.Commit(); err != nil {
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
	if err := tx.Rollback(); err != nil {
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
