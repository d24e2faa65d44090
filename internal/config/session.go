package config

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Backend names the library the sessions are built on.
type Backend string

const (
	BackendPGX  Backend = "pgx"
	BackendSQL  Backend = "sql"
	BackendGORM Backend = "gorm"
)

type IsolationLevel string

const (
	IsolationReadUncommitted IsolationLevel = "read uncommitted"
	IsolationReadCommitted   IsolationLevel = "read committed"
	IsolationRepeatableRead  IsolationLevel = "repeatable read"
	IsolationSerializable    IsolationLevel = "serializable"
)

func (s *Session) Validate() error {
	switch s.Backend {
	case BackendPGX, BackendSQL, BackendGORM:
	default:
		return fmt.Errorf("unknown session backend %q", s.Backend)
	}

	switch s.IsolationLevel {
	case "", IsolationReadUncommitted, IsolationReadCommitted, IsolationRepeatableRead, IsolationSerializable:
	default:
		return fmt.Errorf("unknown isolation level %q", s.IsolationLevel)
	}

	return nil
}

func (s *Session) PgxTxOptions() pgx.TxOptions {
	var isoLevel pgx.TxIsoLevel
	switch s.IsolationLevel {
	case IsolationReadUncommitted:
		isoLevel = pgx.ReadUncommitted
	case IsolationReadCommitted:
		isoLevel = pgx.ReadCommitted
	case IsolationRepeatableRead:
		isoLevel = pgx.RepeatableRead
	case IsolationSerializable:
		isoLevel = pgx.Serializable
	}

	accessMode := pgx.ReadWrite
	if s.ReadOnly {
		accessMode = pgx.ReadOnly
	}

	return pgx.TxOptions{
		IsoLevel:   isoLevel,
		AccessMode: accessMode,
	}
}

func (s *Session) SQLTxOptions() *sql.TxOptions {
	var isoLevel sql.IsolationLevel
	switch s.IsolationLevel {
	case IsolationReadUncommitted:
		isoLevel = sql.LevelReadUncommitted
	case IsolationReadCommitted:
		isoLevel = sql.LevelReadCommitted
	case IsolationRepeatableRead:
		isoLevel = sql.LevelRepeatableRead
	case IsolationSerializable:
		isoLevel = sql.LevelSerializable
	}

	return &sql.TxOptions{
		Isolation: isoLevel,
		ReadOnly:  s.ReadOnly,
	}
}
