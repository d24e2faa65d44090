package txsession

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"
)

// Registry holds the session manager of the process. DefaultRegistry is the
// only way to obtain one.
type Registry interface {
	// Manager returns the stored manager or ErrNotInitialized.
	Manager() (*Manager, error)
	// SetManager replaces the stored manager.
	SetManager(m *Manager)

	isRegistry()
}

type registry struct {
	manager atomic.Pointer[Manager]
}

var (
	defaultRegistry     *registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process wide registry. Every call returns the
// same instance.
func DefaultRegistry() Registry {
	return getDefaultRegistry()
}

func getDefaultRegistry() *registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = &registry{}
	})
	return defaultRegistry
}

func (*registry) isRegistry() {}

func (r *registry) Manager() (*Manager, error) {
	m := r.manager.Load()
	if m == nil {
		return nil, oops.In("txsession").Wrapf(ErrNotInitialized, "reading session manager")
	}
	return m, nil
}

func (r *registry) SetManager(m *Manager) {
	r.manager.Store(m)
}

// Init wraps factory in a new Manager and stores it in the default registry,
// replacing any previous manager. The last call wins.
func Init(ctx context.Context, factory Factory) error {
	m, err := NewManager(factory)
	if err != nil {
		return err
	}

	if prev := getDefaultRegistry().manager.Swap(m); prev != nil {
		slogctx.Debug(ctx, "Replaced the session manager")
	} else {
		slogctx.Debug(ctx, "Initialised the session manager")
	}

	return nil
}

// GetManager returns the manager of the default registry.
func GetManager() (*Manager, error) {
	return DefaultRegistry().Manager()
}

// RunInTransaction runs fn as one unit of work using the manager of the
// default registry.
func RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m, err := GetManager()
	if err != nil {
		return err
	}
	return m.RunInTransaction(ctx, fn)
}
