// Package gormsession provides txsession sessions backed by gorm.
//
// Raw statements passed to Exec, QueryRow and Query use gorm placeholders
// ("?" or "@name"); the dialector rewrites them for the database.
package gormsession

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/pkg/txsession"
	"github.com/openkcm/txsession/pkg/txsession/sqlsession"
)

type Option func(*Session)

// WithTxOptions sets the options used for every transaction of the session.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(s *Session) { s.txOpts = opts }
}

// Session is a txsession.Session on top of a gorm transaction.
type Session struct {
	id     string
	db     *gorm.DB
	txOpts *sql.TxOptions

	mu     sync.Mutex
	tx     *gorm.DB
	closed bool
}

var _ txsession.Session = (*Session)(nil)

// NewFactory returns a factory producing sessions on db.
func NewFactory(db *gorm.DB, opts ...Option) *txsession.ScopedFactory {
	return txsession.NewScopedFactory(func(ctx context.Context) (txsession.Session, error) {
		return New(ctx, db, opts...), nil
	})
}

func New(ctx context.Context, db *gorm.DB, opts ...Option) *Session {
	s := &Session{
		id: uuid.NewString(),
		db: db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	slogctx.Debug(ctx, "Created gorm session", "session", s.id)

	return s
}

func (s *Session) ID() string {
	return s.id
}

// DB returns a gorm handle bound to the open transaction and ctx, beginning
// a transaction if needed.
func (s *Session) DB(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, txsession.ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx.WithContext(ctx), nil
	}

	// The transaction outlives the context of the statement opening it.
	db := s.db.WithContext(context.WithoutCancel(ctx))

	var tx *gorm.DB
	if s.txOpts != nil {
		tx = db.Begin(s.txOpts)
	} else {
		tx = db.Begin()
	}
	if tx.Error != nil {
		return nil, fmt.Errorf("starting transaction: %w", tx.Error)
	}
	s.tx = tx

	slogctx.Debug(ctx, "Started transaction", "session", s.id)

	return tx.WithContext(ctx), nil
}

func (s *Session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return 0, err
	}

	res := db.Exec(query, args...)
	if res.Error != nil {
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

func (s *Session) QueryRow(ctx context.Context, query string, args ...any) txsession.Row {
	db, err := s.DB(ctx)
	if err != nil {
		return txsession.ErrRow{Err: err}
	}

	return db.Raw(query, args...).Row()
}

func (s *Session) Query(ctx context.Context, query string, args ...any) (txsession.Rows, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}

	return sqlsession.WrapRows(rows), nil
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
	if err := tx.Commit().Error; err != nil {
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
	if err := tx.Rollback().Error; err != nil {
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
