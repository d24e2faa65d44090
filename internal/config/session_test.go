package config

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestSession_Validate(t *testing.T) {
	tests := []struct {
		name      string
		session   Session
		assertErr assert.ErrorAssertionFunc
	}{
		{
			name:      "pgx backend",
			session:   Session{Backend: BackendPGX, IsolationLevel: IsolationReadCommitted},
			assertErr: assert.NoError,
		},
		{
			name:      "sql backend without isolation level",
			session:   Session{Backend: BackendSQL},
			assertErr: assert.NoError,
		},
		{
			name:      "gorm backend",
			session:   Session{Backend: BackendGORM, IsolationLevel: IsolationSerializable},
			assertErr: assert.NoError,
		},
		{
			name:      "Error - unknown backend",
			session:   Session{Backend: "mongo"},
			assertErr: assert.Error,
		},
		{
			name:      "Error - unknown isolation level",
			session:   Session{Backend: BackendPGX, IsolationLevel: "snapshot"},
			assertErr: assert.Error,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertErr(t, tt.session.Validate())
		})
	}
}

func TestSession_TxOptions(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		wantPgx pgx.TxOptions
		wantSQL *sql.TxOptions
	}{
		{
			name:    "Defaults",
			session: Session{},
			wantPgx: pgx.TxOptions{AccessMode: pgx.ReadWrite},
			wantSQL: &sql.TxOptions{},
		},
		{
			name:    "Repeatable read",
			session: Session{IsolationLevel: IsolationRepeatableRead},
			wantPgx: pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadWrite},
			wantSQL: &sql.TxOptions{Isolation: sql.LevelRepeatableRead},
		},
		{
			name:    "Read only serializable",
			session: Session{IsolationLevel: IsolationSerializable, ReadOnly: true},
			wantPgx: pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadOnly},
			wantSQL: &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true},
		},
		{
			name:    "Read uncommitted",
			session: Session{IsolationLevel: IsolationReadUncommitted},
			wantPgx: pgx.TxOptions{IsoLevel: pgx.ReadUncommitted, AccessMode: pgx.ReadWrite},
			wantSQL: &sql.TxOptions{Isolation: sql.LevelReadUncommitted},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantPgx, tt.session.PgxTxOptions())
			assert.Equal(t, tt.wantSQL, tt.session.SQLTxOptions())
		})
	}
}
