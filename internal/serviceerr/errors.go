package serviceerr

import (
	"errors"
	"net/http"
)

var ErrConflict = errors.New("already exists")
var ErrNotFound = errors.New("not found")
var ErrInvalidRequest = errors.New("invalid request")

// HTTPStatus maps an error to the status code returned to API clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
