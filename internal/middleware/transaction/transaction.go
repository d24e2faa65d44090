// Package transaction provides an http.Handler middleware making every
// request one unit of work: the handler runs with a scoped session in the
// context which is committed on success and rolled back on error responses.
package transaction

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/internal/middleware/responsewriter"
	"github.com/openkcm/txsession/pkg/txsession"
)

// Outcomes reported to the transaction counter.
const (
	OutcomeCommit       = "commit"
	OutcomeRollback     = "rollback"
	OutcomeCommitFailed = "commit_failed"
)

const outcomeAttr = "outcome"

type Option func(*middleware)

// WithCounter counts finished transactions by outcome.
func WithCounter(counter metric.Int64Counter) Option {
	return func(m *middleware) { m.counter = counter }
}

type middleware struct {
	manager *txsession.Manager
	counter metric.Int64Counter
}

// TransactionMiddleware returns a middleware opening a scope per request.
// Responses with a status below 400 commit the session; all others roll it
// back. A panicking handler rolls back before the panic continues. The
// handler's response is sent only once the transaction is settled; a failed
// commit answers 500 instead.
func TransactionMiddleware(manager *txsession.Manager, opts ...Option) func(http.Handler) http.Handler {
	m := &middleware{manager: manager}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.serve(next, w, r)
		})
	}
}

func (m *middleware) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	ctx, endScope := txsession.BeginScope(r.Context())
	defer func() {
		if err := endScope(ctx); err != nil {
			slogctx.Error(ctx, "Failed to end session scope", "error", err)
		}
	}()

	sess, err := m.manager.Session(ctx, true)
	if err != nil {
		slogctx.Error(ctx, "Failed to get a session", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx = txsession.WithCurrent(ctx, sess)

	// Nothing reaches w before the transaction is settled.
	rec := responsewriter.NewBufferedRecorder(w)

	defer func() {
		if p := recover(); p != nil {
			rec.Discard()
			m.rollback(ctx, sess)
			panic(p)
		}
	}()

	next.ServeHTTP(rec, r.WithContext(ctx))

	if rec.Status() >= http.StatusBadRequest {
		m.rollback(ctx, sess)
		m.release(ctx, rec)
		return
	}

	if err := sess.Commit(ctx); err != nil {
		slogctx.Error(ctx, "Failed to commit the request transaction", "error", err, "status", rec.Status())
		m.count(ctx, OutcomeCommitFailed)
		rec.Discard()
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	m.count(ctx, OutcomeCommit)
	m.release(ctx, rec)
}

func (m *middleware) release(ctx context.Context, rec *responsewriter.Recorder) {
	if err := rec.Release(); err != nil {
		slogctx.Warn(ctx, "Failed to write the response", "error", err)
	}
}

func (m *middleware) rollback(ctx context.Context, sess txsession.Session) {
	if err := sess.Rollback(ctx); err != nil {
		slogctx.Error(ctx, "Failed to roll back the request transaction", "error", err)
	}
	m.count(ctx, OutcomeRollback)
}

func (m *middleware) count(ctx context.Context, outcome string) {
	if m.counter == nil {
		return
	}
	m.counter.Add(ctx, 1, metric.WithAttributes(attribute.String(outcomeAttr, outcome)))
}
