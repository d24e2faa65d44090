package responsewriter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/txsession/internal/middleware/responsewriter"
)

func TestResponseWriterMiddleware(t *testing.T) {
	var calledNextHandler bool

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calledNextHandler = true

		injected, err := responsewriter.ResponseWriterFromContext(r.Context())
		//nolint:testifylint
		require.NoError(t, err, "ResponseWriterFromContext should not return an error")
		assert.Same(t, injected, w, "Handler must write through the injected recorder")
		assert.Same(t, rec, injected.Unwrap(), "Recorder must wrap the original writer")

		w.WriteHeader(http.StatusTeapot)
	})

	handler := responsewriter.ResponseWriterMiddleware(next)
	handler.ServeHTTP(rec, req)

	assert.True(t, calledNextHandler, "The next handler was not executed")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestResponseWriterMiddleware_ReusesRecorder(t *testing.T) {
	outer := responsewriter.NewRecorder(httptest.NewRecorder())

	handler := responsewriter.ResponseWriterMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Same(t, outer, w)
	}))
	handler.ServeHTTP(outer, httptest.NewRequest(http.MethodGet, "/test", nil))
}

func TestRecorder_Status(t *testing.T) {
	tests := []struct {
		name  string
		write func(w http.ResponseWriter)
		want  int
	}{
		{
			name:  "nothing written",
			write: func(http.ResponseWriter) {},
			want:  http.StatusOK,
		},
		{
			name:  "body only",
			write: func(w http.ResponseWriter) { _, _ = w.Write([]byte("ok")) },
			want:  http.StatusOK,
		},
		{
			name:  "explicit status",
			write: func(w http.ResponseWriter) { w.WriteHeader(http.StatusCreated) },
			want:  http.StatusCreated,
		},
		{
			name: "first status wins",
			write: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusInternalServerError)
				w.WriteHeader(http.StatusOK)
			},
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := responsewriter.NewRecorder(httptest.NewRecorder())
			tt.write(rec)
			assert.Equal(t, tt.want, rec.Status())
		})
	}
}

func TestResponseWriterFromContext(t *testing.T) {
	rec := responsewriter.NewRecorder(httptest.NewRecorder())

	t.Run("Success", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), responsewriter.ResponseWriterKey, rec)

		retrieved, err := responsewriter.ResponseWriterFromContext(ctx)

		require.NoError(t, err)
		assert.Same(t, rec, retrieved)
	})

	t.Run("Failure_KeyNotFound", func(t *testing.T) {
		_, err := responsewriter.ResponseWriterFromContext(context.Background())

		assert.ErrorIs(t, err, responsewriter.ErrNotFound)
	})

	t.Run("Failure_WrongType", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), responsewriter.ResponseWriterKey, httptest.NewRecorder())

		_, err := responsewriter.ResponseWriterFromContext(ctx)

		assert.ErrorIs(t, err, responsewriter.ErrNotFound)
	})
}

func TestBufferedRecorder(t *testing.T) {
	write := func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}

	t.Run("Release", func(t *testing.T) {
		rec := httptest.NewRecorder()
		buf := responsewriter.NewBufferedRecorder(rec)

		write(buf)
		assert.Equal(t, http.StatusCreated, buf.Status())
		assert.Empty(t, rec.Header().Get("Content-Type"))
		assert.Zero(t, rec.Body.Len())

		require.NoError(t, buf.Release())
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"id":1}`, rec.Body.String())

		_, err := buf.Write([]byte("tail"))
		require.NoError(t, err)
		assert.Equal(t, `{"id":1}tail`, rec.Body.String())
	})

	t.Run("Discard", func(t *testing.T) {
		rec := httptest.NewRecorder()
		buf := responsewriter.NewBufferedRecorder(rec)

		write(buf)
		buf.Discard()
		http.Error(rec, "failed", http.StatusInternalServerError)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"id"`)
		assert.NotEqual(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("Release without writes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		buf := responsewriter.NewBufferedRecorder(rec)

		buf.Header().Set("X-Request-Id", "abc")
		require.NoError(t, buf.Release())

		assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
		assert.False(t, rec.Flushed)
		assert.Zero(t, rec.Body.Len())
	})

	t.Run("Unbuffered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		plain := responsewriter.NewRecorder(rec)

		write(plain)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, plain.Release())
	})
}
