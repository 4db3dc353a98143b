package filtering

import (
	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/catalog"
)

// Filter represents a single filtering step applied to a list of entities.
// Apply never modifies its input and keeps the relative order of survivors.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(entities []*catalog.Entity) ([]*catalog.Entity, Step)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the enabled filters sequentially and returns the survivors
// together with the stats of every executed step.
func Run(steps []Filter, entities []*catalog.Entity, logger *zap.Logger) ([]*catalog.Entity, []Step) {
	if logger == nil {
		logger = zap.NewNop()
	}

	stats := make([]Step, 0, len(steps))
	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info := step.Apply(entities)

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		stats = append(stats, info)
		entities = next
	}

	return entities, stats
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the entities accepted by fn in their original order.
func keep(name string, entities []*catalog.Entity, fn func(*catalog.Entity) bool) ([]*catalog.Entity, Step) {
	initial := len(entities)
	kept := make([]*catalog.Entity, 0, initial)
	for _, e := range entities {
		if fn(e) {
			kept = append(kept, e)
		}
	}

	return kept, Step{Name: name, Initial: initial, Dropped: initial - len(kept), Left: len(kept)}
}
