package postgorm

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/openkcm/txsession/internal/serviceerr"
)

var ErrNotGormSession = errors.New("current session is not a gorm session")

func handleError(err error) (error, bool) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return serviceerr.ErrNotFound, true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return serviceerr.ErrConflict, true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return serviceerr.ErrConflict, true
	}

	return err, false
}
