package auxset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleIsIdempotentPair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		set  Set
		id   string
	}{
		{name: "absent id", set: New("a", "b"), id: "c"},
		{name: "present id", set: New("a", "b"), id: "a"},
		{name: "empty set", set: Set{}, id: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			once := Toggle(tt.set, tt.id)
			assert.NotEqual(t, tt.set.Has(tt.id), once.Has(tt.id))
			assert.True(t, Toggle(once, tt.id).Equal(tt.set))
		})
	}
}

func TestToggleDoesNotMutateInput(t *testing.T) {
	original := New("a")
	next := Toggle(original, "b")

	assert.Equal(t, []string{"a"}, original.IDs())
	assert.Equal(t, []string{"a", "b"}, next.IDs())

	removed := Toggle(next, "a")
	assert.Equal(t, []string{"a", "b"}, next.IDs())
	assert.Equal(t, []string{"b"}, removed.IDs())
}

func TestToggleEmptyID(t *testing.T) {
	s := New("a")
	assert.True(t, Toggle(s, "").Equal(s))
}

func TestSetsAreIndependent(t *testing.T) {
	var sets Sets
	sets, err := sets.Toggle(Saved, "job-1")
	require.NoError(t, err)

	assert.True(t, sets.Saved.Has("job-1"))
	assert.False(t, sets.Contacted.Has("job-1"))

	sets, err = sets.Toggle(Contacted, "job-1")
	require.NoError(t, err)
	assert.True(t, sets.Saved.Has("job-1"))
	assert.True(t, sets.Contacted.Has("job-1"))

	sets, err = sets.Toggle(Saved, "job-1")
	require.NoError(t, err)
	assert.False(t, sets.Saved.Has("job-1"))
	assert.True(t, sets.Contacted.Has("job-1"))

	_, err = sets.Toggle("archived", "job-1")
	assert.True(t, errors.Is(err, ErrUnknownSet))
}

func TestParseName(t *testing.T) {
	n, err := ParseName(" Saved ")
	require.NoError(t, err)
	assert.Equal(t, Saved, n)

	_, err = ParseName("liked")
	assert.True(t, errors.Is(err, ErrUnknownSet))
}

type memoryStore struct {
	mu      sync.Mutex
	fail    error
	members map[string]map[Name]map[string]bool
}

func (s *memoryStore) LoadSets(_ context.Context, viewer string) (Sets, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collect := func(name Name) Set {
		var ids []string
		for id, ok := range s.members[viewer][name] {
			if ok {
				ids = append(ids, id)
			}
		}
		return New(ids...)
	}
	return Sets{Saved: collect(Saved), Contacted: collect(Contacted)}, nil
}

func (s *memoryStore) SetMember(_ context.Context, viewer string, name Name, id string, member bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail != nil {
		return s.fail
	}
	if s.members == nil {
		s.members = make(map[string]map[Name]map[string]bool)
	}
	if s.members[viewer] == nil {
		s.members[viewer] = make(map[Name]map[string]bool)
	}
	if s.members[viewer][name] == nil {
		s.members[viewer][name] = make(map[string]bool)
	}
	s.members[viewer][name][id] = member
	return nil
}

func TestManagerTogglePersistsAndPublishes(t *testing.T) {
	store := &memoryStore{}
	m := NewManager("viewer-1", Sets{}, store, nil)

	before := m.Snapshot()
	after, err := m.Toggle(context.Background(), Saved, "job-2")
	require.NoError(t, err)

	assert.False(t, before.Saved.Has("job-2"), "earlier snapshot must stay unchanged")
	assert.True(t, after.Saved.Has("job-2"))
	assert.True(t, m.Snapshot().Saved.Has("job-2"))
	assert.True(t, store.members["viewer-1"][Saved]["job-2"])

	reopened, err := Open(context.Background(), "viewer-1", store, nil)
	require.NoError(t, err)
	assert.True(t, reopened.Snapshot().Saved.Has("job-2"))
}

func TestManagerToggleKeepsStateOnStoreFailure(t *testing.T) {
	store := &memoryStore{fail: errors.New("disk full")}
	m := NewManager("viewer-1", Sets{Saved: New("a")}, store, nil)

	_, err := m.Toggle(context.Background(), Saved, "b")
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, m.Snapshot().Saved.IDs())
}

func TestManagerToggleValidation(t *testing.T) {
	m := NewManager("viewer-1", Sets{}, nil, nil)

	_, err := m.Toggle(context.Background(), Saved, "")
	assert.Error(t, err)

	_, err = m.Toggle(context.Background(), "archived", "a")
	assert.True(t, errors.Is(err, ErrUnknownSet))
}

func TestManagerConcurrentToggles(t *testing.T) {
	m := NewManager("viewer-1", Sets{}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.Toggle(context.Background(), Saved, "job")
		}()
		go func() {
			defer wg.Done()
			snap := m.Snapshot()
			_ = snap.Saved.Has("job")
		}()
	}
	wg.Wait()

	// an even number of toggles returns to the initial state
	assert.False(t, m.Snapshot().Saved.Has("job"))
}

func TestRegistryReusesManagers(t *testing.T) {
	r := NewRegistry(&memoryStore{}, nil, 0)

	a, err := r.Get(context.Background(), "v1")
	require.NoError(t, err)
	b, err := r.Get(context.Background(), "v1")
	require.NoError(t, err)
	c, err := r.Get(context.Background(), "v2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "v2", c.Viewer())
}

func TestRegistryEvictsLeastRecentViewer(t *testing.T) {
	store := &memoryStore{}
	r := NewRegistry(store, nil, 2)
	ctx := context.Background()

	first, err := r.Get(ctx, "v1")
	require.NoError(t, err)
	_, err = first.Toggle(ctx, Saved, "job")
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := r.Get(ctx, fmt.Sprintf("viewer-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, r.Len())

	reopened, err := r.Get(ctx, "v1")
	require.NoError(t, err)
	assert.NotSame(t, first, reopened)
	assert.True(t, reopened.Snapshot().Saved.Has("job"), "sets must be reloaded from the store")
}
