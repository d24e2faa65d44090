package txsession_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/openkcm/txsession/pkg/txsession"
)

type fakeSession struct {
	id string

	mu        sync.Mutex
	commits   int
	rollbacks int
	closed    bool

	commitErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{id: uuid.NewString()}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Exec(context.Context, string, ...any) (int64, error) { return 0, nil }

func (s *fakeSession) QueryRow(context.Context, string, ...any) txsession.Row {
	return txsession.ErrRow{Err: errors.New("not implemented")}
}

func (s *fakeSession) Query(context.Context, string, ...any) (txsession.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeSession) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits++
	return nil
}

func (s *fakeSession) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbacks++
	return nil
}

func (s *fakeSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) stats() (commits, rollbacks int, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits, s.rollbacks, s.closed
}

// countingFactory returns a factory creating fake sessions and a pointer to
// the number of sessions created so far.
func countingFactory() (*txsession.ScopedFactory, *atomic.Int64) {
	var created atomic.Int64
	f := txsession.NewScopedFactory(func(context.Context) (txsession.Session, error) {
		created.Add(1)
		return newFakeSession(), nil
	})
	return f, &created
}
