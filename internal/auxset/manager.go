package auxset

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Store persists auxiliary set membership across sessions.
type Store interface {
	LoadSets(ctx context.Context, viewer string) (Sets, error)
	SetMember(ctx context.Context, viewer string, name Name, id string, member bool) error
}

// Manager owns the auxiliary sets of one viewer. Readers get immutable
// snapshots; writers are serialized and publish a new snapshot per toggle.
type Manager struct {
	viewer string
	store  Store
	logger *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[Sets]
}

// NewManager starts from the given sets. The store may be nil for in-memory sessions.
func NewManager(viewer string, initial Sets, store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		viewer: viewer,
		store:  store,
		logger: logger.With(zap.String("viewer", viewer)),
	}
	m.current.Store(&initial)
	return m
}

// Open loads the viewer's persisted sets from store.
func Open(ctx context.Context, viewer string, store Store, logger *zap.Logger) (*Manager, error) {
	var initial Sets
	if store != nil {
		loaded, err := store.LoadSets(ctx, viewer)
		if err != nil {
			return nil, fmt.Errorf("loading sets of viewer %q: %w", viewer, err)
		}
		initial = loaded
	}
	return NewManager(viewer, initial, store, logger), nil
}

func (m *Manager) Viewer() string { return m.viewer }

// Snapshot returns the current sets without blocking writers.
func (m *Manager) Snapshot() Sets {
	return *m.current.Load()
}

// Toggle flips id in the named set. The new sets are published only after
// the store accepted the change.
func (m *Manager) Toggle(ctx context.Context, name Name, id string) (Sets, error) {
	if id == "" {
		return m.Snapshot(), fmt.Errorf("entity id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := *m.current.Load()
	next, err := prev.Toggle(name, id)
	if err != nil {
		return prev, err
	}

	set, _ := next.Get(name)
	member := set.Has(id)

	if m.store != nil {
		if err := m.store.SetMember(ctx, m.viewer, name, id, member); err != nil {
			return prev, fmt.Errorf("persisting %s membership of %q: %w", name, id, err)
		}
	}

	m.current.Store(&next)

	m.logger.Debug("toggled auxiliary set",
		zap.String("set", string(name)),
		zap.String("entity_id", id),
		zap.Bool("member", member),
		zap.Int("size", set.Len()),
	)

	return next, nil
}

// DefaultRegistrySize bounds how many viewers a Registry keeps open.
const DefaultRegistrySize = 1024

// Registry hands out one Manager per viewer, opening it from the store on
// first use. The least recently used managers are dropped past its size;
// without a store their sets are lost with them.
type Registry struct {
	store  Store
	logger *zap.Logger

	mu       sync.Mutex
	managers *lru.Cache[string, *Manager]
}

func NewRegistry(store Store, logger *zap.Logger, size int) *Registry {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	// lru.New only fails on a non-positive size.
	managers, _ := lru.New[string, *Manager](size)

	return &Registry{
		store:    store,
		logger:   logger,
		managers: managers,
	}
}

func (r *Registry) Get(ctx context.Context, viewer string) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.managers.Get(viewer); ok {
		return m, nil
	}

	m, err := Open(ctx, viewer, r.store, r.logger)
	if err != nil {
		return nil, err
	}
	r.managers.Add(viewer, m)
	return m, nil
}

// Len reports how many viewers are currently open.
func (r *Registry) Len() int { return r.managers.Len() }
