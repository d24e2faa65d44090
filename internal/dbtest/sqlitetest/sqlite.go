package sqlitetest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"

	// Register the sqlite driver
	_ "modernc.org/sqlite"

	sqlitemigrations "github.com/openkcm/txsession/sql/sqlite"
)

// Open creates a migrated SQLite database in a temporary directory and
// closes it when the test finishes. The database runs in WAL mode so
// readers keep their snapshot while another connection writes.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "txsession.db")
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite db: %s", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.PingContext(t.Context()); err != nil {
		t.Fatalf("failed to ping sqlite db: %s", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sqlitemigrations.FS)
	if err != nil {
		t.Fatalf("failed to create goose provider: %s", err)
	}

	if _, err := provider.Up(t.Context()); err != nil {
		t.Fatalf("failed to apply migrations: %s", err)
	}

	return db
}
