package engine

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/filtering"
	"github.com/spigell/matchboard/internal/logger"
	"github.com/spigell/matchboard/internal/observability"
	"github.com/spigell/matchboard/internal/viewmode"
)

// Session keeps the inputs of one interactive viewer and republishes the
// visible list whenever any of them changes. Readers never observe a list
// built from a mix of old and new inputs.
type Session struct {
	engine   *Engine
	sets     *auxset.Manager
	selector *viewmode.Selector
	onChange func(VisibleList)

	mu       sync.Mutex
	pool     []*catalog.Entity
	criteria filtering.Criteria
	viewer   []string

	visible atomic.Pointer[VisibleList]
}

type SessionOption func(*Session)

// WithOnChange registers a callback receiving every published list. It runs
// while the session is locked and must not call back into the session.
func WithOnChange(fn func(VisibleList)) SessionOption {
	return func(s *Session) {
		s.onChange = fn
	}
}

// WithPool sets the initial pool.
func WithPool(pool []*catalog.Entity) SessionOption {
	return func(s *Session) {
		s.pool = slices.Clone(pool)
	}
}

// WithViewer sets the initial viewer attributes.
func WithViewer(viewer []string) SessionOption {
	return func(s *Session) {
		s.viewer = slices.Clone(viewer)
	}
}

// NewSession computes and publishes the initial list. A nil manager keeps
// the auxiliary sets in memory only.
func NewSession(engine *Engine, sets *auxset.Manager, opts ...SessionOption) *Session {
	if sets == nil {
		sets = auxset.NewManager("", auxset.Sets{}, nil, engine.Logger())
	}

	s := &Session{
		engine:   engine,
		sets:     sets,
		selector: viewmode.NewSelector(engine.Config().Modes),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish()

	return s
}

// Visible returns the last published list.
func (s *Session) Visible() VisibleList {
	return *s.visible.Load()
}

func (s *Session) Mode() viewmode.Mode { return s.selector.Current() }

func (s *Session) Modes() []viewmode.Mode { return s.engine.Config().Modes.Modes() }

func (s *Session) Sets() auxset.Sets { return s.sets.Snapshot() }

// Criteria returns a copy of the active criteria.
func (s *Session) Criteria() filtering.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.criteria)
}

func (s *Session) SetPool(pool []*catalog.Entity) VisibleList {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool = slices.Clone(pool)
	return s.publish()
}

// SetCriteria replaces the criteria. The active mode is kept.
func (s *Session) SetCriteria(criteria filtering.Criteria) VisibleList {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.criteria = maps.Clone(criteria)
	return s.publish()
}

// Select changes one category and leaves the others as they are.
func (s *Session) Select(category string, selection filtering.Selection) VisibleList {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.criteria)
	if next == nil {
		next = filtering.Criteria{}
	}
	if selection.Empty() {
		delete(next, category)
	} else {
		next[category] = selection
	}
	s.criteria = next
	return s.publish()
}

func (s *Session) SetViewer(viewer []string) VisibleList {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewer = slices.Clone(viewer)
	return s.publish()
}

// SelectMode switches the active mode. Unknown modes fall back to the surface default.
func (s *Session) SelectMode(m viewmode.Mode) VisibleList {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selector.Select(m)
	return s.publish()
}

// Toggle flips id in the named auxiliary set. When persisting fails the
// previous list stays published.
func (s *Session) Toggle(ctx context.Context, name auxset.Name, id string) (VisibleList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets, err := s.sets.Toggle(ctx, name, id)
	if err != nil {
		s.engine.Metrics().ObserveToggle(string(name), observability.ToggleError)
		return s.Visible(), err
	}

	set, _ := sets.Get(name)
	result := observability.ToggleRemoved
	if set.Has(id) {
		result = observability.ToggleAdded
	}
	s.engine.Metrics().ObserveToggle(string(name), result)

	return s.publish(), nil
}

// publish must be called with mu held.
func (s *Session) publish() VisibleList {
	list := s.engine.Compute(Input{
		Pool:     s.pool,
		Criteria: s.criteria,
		Viewer:   s.viewer,
		Mode:     s.selector.Current(),
		Sets:     s.sets.Snapshot(),
	})

	s.visible.Store(&list)

	s.engine.Logger().Debug("published visible list",
		zap.String(logger.FieldMode, string(list.Mode)),
		zap.Int("visible", list.Len()),
	)

	if s.onChange != nil {
		s.onChange(list)
	}
	return list
}
