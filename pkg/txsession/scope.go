package txsession

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"
)

// Using an unexported type prevents key collisions from other packages.
type scopeKey struct{}

// EndScopeFunc closes every session created within a scope.
type EndScopeFunc func(ctx context.Context) error

type scope struct {
	id string

	mu       sync.Mutex
	sessions map[*ScopedFactory]Session
	ended    bool
}

// BeginScope starts a new logical flow. Scoped sessions requested through
// the returned context are created once per factory and reused until the
// end function is called.
func BeginScope(ctx context.Context) (context.Context, EndScopeFunc) {
	sc := &scope{
		id:       uuid.NewString(),
		sessions: make(map[*ScopedFactory]Session),
	}

	ctx = context.WithValue(ctx, scopeKey{}, sc)
	ctx = slogctx.With(ctx, "sessionScope", sc.id)
	slogctx.Debug(ctx, "Session scope started")

	return ctx, sc.end
}

// ScopeID returns the identifier of the scope carried by ctx.
func ScopeID(ctx context.Context) (string, bool) {
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return "", false
	}
	return sc.id, true
}

func (s *scope) session(ctx context.Context, f *ScopedFactory) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil, oops.In("txsession").Wrapf(ErrNoScope, "scope %s has ended", s.id)
	}

	if sess, ok := s.sessions[f]; ok {
		return sess, nil
	}

	sess, err := f.newSession(ctx)
	if err != nil {
		return nil, err
	}
	s.sessions[f] = sess

	return sess, nil
}

func (s *scope) end(ctx context.Context) error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = nil
	s.ended = true
	s.mu.Unlock()

	var errs []error
	for _, sess := range sessions {
		if err := sess.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing session %s: %w", sess.ID(), err))
		}
	}

	slogctx.Debug(ctx, "Session scope ended", "sessions", len(sessions))

	return errors.Join(errs...)
}

// ScopedFactory implements Factory on top of a SessionFunc. Its scoped
// entry point caches one session per scope.
type ScopedFactory struct {
	newSession SessionFunc
}

var _ Factory = (*ScopedFactory)(nil)

func NewScopedFactory(fn SessionFunc) *ScopedFactory {
	return &ScopedFactory{
		newSession: fn,
	}
}

// NewSession always returns a new session that no scope knows about.
func (f *ScopedFactory) NewSession(ctx context.Context) (Session, error) {
	if f == nil || f.newSession == nil {
		return nil, oops.In("txsession").Wrapf(ErrConfiguration, "creating session")
	}
	return f.newSession(ctx)
}

// ScopedSession returns the session bound to the scope carried by ctx,
// creating it on first use.
func (f *ScopedFactory) ScopedSession(ctx context.Context) (Session, error) {
	if f == nil || f.newSession == nil {
		return nil, oops.In("txsession").Wrapf(ErrConfiguration, "creating scoped session")
	}

	sc, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return nil, oops.In("txsession").Wrapf(ErrNoScope, "getting scoped session")
	}

	return sc.session(ctx, f)
}
