package sqlsession

import (
	"database/sql"

	"github.com/openkcm/txsession/pkg/txsession"
)

type rows struct {
	*sql.Rows
	closeErr error
}

// WrapRows adapts *sql.Rows to txsession.Rows. A failing Close is reported
// by Err.
func WrapRows(r *sql.Rows) txsession.Rows {
	return &rows{Rows: r}
}

func (r *rows) Close() {
	r.closeErr = r.Rows.Close()
}

func (r *rows) Err() error {
	if err := r.Rows.Err(); err != nil {
		return err
	}
	return r.closeErr
}
