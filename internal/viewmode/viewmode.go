package viewmode

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/filtering"
	"github.com/spigell/matchboard/internal/ranking"
)

// Mode is a named tab of a discovery surface.
type Mode string

const (
	Recommended Mode = "recommended"
	SavedMode   Mode = "saved"
	Contacted   Mode = "contacted"
	Trending    Mode = "trending"
	Recent      Mode = "recent"
	Network     Mode = "network"
	BestMatch   Mode = "best-match"
)

// Membership restricts the filtered pool before ordering.
type Membership string

const (
	MembershipNone      Membership = "none"
	MembershipSaved     Membership = "saved"
	MembershipContacted Membership = "contacted"
	MembershipNetwork   Membership = "network"
)

// Order selects how the surviving entities are arranged.
type Order string

const (
	// OrderPartition puts matching entities first, keeping original order within groups.
	OrderPartition Order = "partition"
	// OrderEngagement sorts by likes plus shares, descending.
	OrderEngagement Order = "engagement"
	// OrderTimestamp sorts by posting time, newest first.
	OrderTimestamp Order = "timestamp"
	// OrderScore sorts by match count, descending.
	OrderScore Order = "score"
)

// Rule is what a mode adds on top of criteria filtering.
type Rule struct {
	Membership Membership `mapstructure:"membership" json:"membership"`
	Order      Order      `mapstructure:"order" json:"order"`
}

var defaultRules = map[Mode]Rule{
	Recommended: {Membership: MembershipNone, Order: OrderPartition},
	SavedMode:   {Membership: MembershipSaved, Order: OrderPartition},
	Contacted:   {Membership: MembershipContacted, Order: OrderPartition},
	Trending:    {Membership: MembershipNone, Order: OrderEngagement},
	Recent:      {Membership: MembershipNone, Order: OrderTimestamp},
	Network:     {Membership: MembershipNetwork, Order: OrderPartition},
	BestMatch:   {Membership: MembershipNone, Order: OrderScore},
}

// DefaultRule returns the built-in rule of a known mode.
func DefaultRule(m Mode) (Rule, bool) {
	r, ok := defaultRules[m]
	return r, ok
}

// Table is the closed set of modes one surface offers.
type Table struct {
	Default Mode          `mapstructure:"default" json:"default"`
	Rules   map[Mode]Rule `mapstructure:"rules" json:"rules"`
}

// NewTable builds a table from built-in rules. The first mode is the default.
func NewTable(modes ...Mode) Table {
	t := Table{Rules: make(map[Mode]Rule, len(modes))}
	for _, m := range modes {
		if r, ok := defaultRules[m]; ok {
			t.Rules[m] = r
			if t.Default == "" {
				t.Default = m
			}
		}
	}
	return t
}

// Modes lists the configured modes with the default first.
func (t Table) Modes() []Mode {
	modes := make([]Mode, 0, len(t.Rules))
	for m := range t.Rules {
		if m != t.Default {
			modes = append(modes, m)
		}
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	if _, ok := t.Rules[t.Default]; ok {
		modes = append([]Mode{t.Default}, modes...)
	}
	return modes
}

// Resolve returns the mode actually applied and its rule. Unknown modes
// fall back to the table default, and a broken default falls back to
// recommended behaviour.
func (t Table) Resolve(m Mode) (Mode, Rule) {
	m = Mode(strings.ToLower(strings.TrimSpace(string(m))))
	if r, ok := t.Rules[m]; ok {
		return m, r.normalize()
	}
	if r, ok := t.Rules[t.Default]; ok {
		return t.Default, r.normalize()
	}
	return Recommended, defaultRules[Recommended]
}

// Validate reports rules with unknown membership or order values.
func (t Table) Validate() error {
	if len(t.Rules) == 0 {
		return fmt.Errorf("no modes configured")
	}
	if _, ok := t.Rules[t.Default]; !ok {
		return fmt.Errorf("default mode %q is not configured", t.Default)
	}
	for m, r := range t.Rules {
		if !r.Membership.valid() {
			return fmt.Errorf("mode %q: unknown membership %q", m, r.Membership)
		}
		if !r.Order.valid() {
			return fmt.Errorf("mode %q: unknown order %q", m, r.Order)
		}
	}
	return nil
}

func (r Rule) normalize() Rule {
	if !r.Membership.valid() || r.Membership == "" {
		r.Membership = MembershipNone
	}
	if !r.Order.valid() || r.Order == "" {
		r.Order = OrderPartition
	}
	return r
}

func (m Membership) valid() bool {
	switch m {
	case "", MembershipNone, MembershipSaved, MembershipContacted, MembershipNetwork:
		return true
	}
	return false
}

func (o Order) valid() bool {
	switch o {
	case "", OrderPartition, OrderEngagement, OrderTimestamp, OrderScore:
		return true
	}
	return false
}

// NetworkSample stands in for a connections-graph membership test: it keeps
// every other entity by position in the original pool.
func NetworkSample(index int) bool {
	return index%2 == 0
}

// Positions indexes the original pool so membership can refer to catalog order.
func Positions(pool []*catalog.Entity) map[*catalog.Entity]int {
	pos := make(map[*catalog.Entity]int, len(pool))
	for i, e := range pool {
		if _, ok := pos[e]; !ok {
			pos[e] = i
		}
	}
	return pos
}

// MembershipFilter builds the filtering step for a rule. It is disabled
// when the rule adds no membership test.
func MembershipFilter(r Rule, sets auxset.Sets, positions map[*catalog.Entity]int) filtering.Filter {
	var f filtering.Filter
	switch r.Membership {
	case MembershipSaved:
		f = setFilter("saved", sets.Saved)
	case MembershipContacted:
		f = setFilter("contacted", sets.Contacted)
	case MembershipNetwork:
		f = filtering.NewMembership("network", func(e *catalog.Entity) bool {
			idx, ok := positions[e]
			return ok && NetworkSample(idx)
		}, map[string]string{"rule": "every other entity by catalog position"})
	default:
		f = filtering.NewMembership("mode", nil, nil)
		f.Disable("mode adds no membership test")
	}
	return f
}

func setFilter(name string, set auxset.Set) filtering.Filter {
	return filtering.NewMembership(name, func(e *catalog.Entity) bool {
		return set.Has(e.ID)
	}, map[string]string{"size": fmt.Sprintf("%d", set.Len())})
}

// Arrange applies the rule's ordering to the ranked entities.
func Arrange(r Rule, ranked []ranking.Ranked) []ranking.Ranked {
	switch r.Order {
	case OrderEngagement:
		return ranking.ByEngagement(ranked)
	case OrderTimestamp:
		return ranking.ByRecency(ranked)
	case OrderScore:
		return ranking.ByScore(ranked)
	default:
		return ranking.Partition(ranked)
	}
}

// Selector holds the active mode of a surface. The mode changes only when
// Select is called.
type Selector struct {
	mu    sync.RWMutex
	table Table
	mode  Mode
}

func NewSelector(table Table) *Selector {
	mode, _ := table.Resolve(table.Default)
	return &Selector{table: table, mode: mode}
}

// Select switches to m and returns the mode actually in effect.
func (s *Selector) Select(m Mode) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode, _ = s.table.Resolve(m)
	return s.mode
}

func (s *Selector) Current() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}
