// Package txsession provides transaction scoped database sessions.
//
// A Manager wraps a Factory supplied by the persistence layer and hands out
// sessions either fresh (NewSession) or bound to the logical flow carried by
// the context (ScopedSession). A process wide Registry keeps the active
// Manager, and the current session of a unit of work travels in the context.
package txsession

import "context"

// Session is a stateful handle on the persistence backend. A session opens
// its database transaction on the first statement; Commit and Rollback end it
// and the next statement begins a new one.
type Session interface {
	ID() string
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Factory produces sessions. NewSession always builds a new session while
// ScopedSession returns the session bound to the flow carried by ctx.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
	ScopedSession(ctx context.Context) (Session, error)
}

// SessionFunc constructs a new session.
type SessionFunc func(ctx context.Context) (Session, error)

// ErrRow is a Row that fails every Scan with Err.
type ErrRow struct {
	Err error
}

func (r ErrRow) Scan(...any) error {
	return r.Err
}
