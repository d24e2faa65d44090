package serviceerr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/txsession/internal/serviceerr"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name               string
		err                error
		expectedHTTPStatus int
	}{
		{
			name:               "No error returns OK",
			err:                nil,
			expectedHTTPStatus: http.StatusOK,
		},
		{
			name:               "ErrNotFound returns NotFound",
			err:                serviceerr.ErrNotFound,
			expectedHTTPStatus: http.StatusNotFound,
		},
		{
			name:               "Wrapped ErrNotFound returns NotFound",
			err:                fmt.Errorf("getting post: %w", serviceerr.ErrNotFound),
			expectedHTTPStatus: http.StatusNotFound,
		},
		{
			name:               "ErrConflict returns Conflict",
			err:                serviceerr.ErrConflict,
			expectedHTTPStatus: http.StatusConflict,
		},
		{
			name:               "ErrInvalidRequest returns BadRequest",
			err:                fmt.Errorf("%w: title is required", serviceerr.ErrInvalidRequest),
			expectedHTTPStatus: http.StatusBadRequest,
		},
		{
			name:               "Unknown error returns InternalServerError",
			err:                errors.New("connection reset"),
			expectedHTTPStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Helper()
			assert.Equal(t, tt.expectedHTTPStatus, serviceerr.HTTPStatus(tt.err))
		})
	}
}
