package viewmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/ranking"
	"github.com/spigell/matchboard/internal/scoring"
)

func pool(ids ...string) []*catalog.Entity {
	out := make([]*catalog.Entity, len(ids))
	for i, id := range ids {
		out[i] = &catalog.Entity{ID: id}
	}
	return out
}

func idsOf(list []*catalog.Entity) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

func TestTableResolve(t *testing.T) {
	table := NewTable(Recommended, SavedMode, Trending)

	tests := []struct {
		name       string
		mode       Mode
		expectMode Mode
		expectRule Rule
	}{
		{name: "known mode", mode: Trending, expectMode: Trending, expectRule: Rule{Membership: MembershipNone, Order: OrderEngagement}},
		{name: "case and whitespace", mode: " Saved ", expectMode: SavedMode, expectRule: Rule{Membership: MembershipSaved, Order: OrderPartition}},
		{name: "unknown mode falls back to default", mode: "archived", expectMode: Recommended, expectRule: Rule{Membership: MembershipNone, Order: OrderPartition}},
		{name: "mode not offered by surface", mode: Contacted, expectMode: Recommended, expectRule: Rule{Membership: MembershipNone, Order: OrderPartition}},
		{name: "empty mode", mode: "", expectMode: Recommended, expectRule: Rule{Membership: MembershipNone, Order: OrderPartition}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, rule := table.Resolve(tt.mode)
			assert.Equal(t, tt.expectMode, mode)
			assert.Equal(t, tt.expectRule, rule)
		})
	}
}

func TestTableResolveWithoutRules(t *testing.T) {
	mode, rule := Table{}.Resolve(Trending)
	assert.Equal(t, Recommended, mode)
	assert.Equal(t, Rule{Membership: MembershipNone, Order: OrderPartition}, rule)
}

func TestTableResolveNormalizesBrokenRule(t *testing.T) {
	table := Table{Default: "custom", Rules: map[Mode]Rule{"custom": {Membership: "friends", Order: "random"}}}
	_, rule := table.Resolve("custom")
	assert.Equal(t, Rule{Membership: MembershipNone, Order: OrderPartition}, rule)
	assert.Error(t, table.Validate())
}

func TestTableValidate(t *testing.T) {
	assert.NoError(t, NewTable(Recommended, Recent).Validate())
	assert.Error(t, Table{}.Validate())
	assert.Error(t, Table{Default: Trending, Rules: map[Mode]Rule{Recommended: {}}}.Validate())
}

func TestTableModes(t *testing.T) {
	table := NewTable(Recommended, Trending, SavedMode, Recent)
	assert.Equal(t, []Mode{Recommended, Recent, SavedMode, Trending}, table.Modes())
}

func TestNetworkSample(t *testing.T) {
	var kept []int
	for i := 0; i < 6; i++ {
		if NetworkSample(i) {
			kept = append(kept, i)
		}
	}
	assert.Equal(t, []int{0, 2, 4}, kept)
}

func TestMembershipFilter(t *testing.T) {
	all := pool("a", "b", "c", "d", "e")
	sets := auxset.Sets{Saved: auxset.New("b", "e"), Contacted: auxset.New("c")}
	positions := Positions(all)

	tests := []struct {
		name    string
		rule    Rule
		input   []*catalog.Entity
		expect  []string
		enabled bool
	}{
		{name: "no membership", rule: Rule{Membership: MembershipNone}, input: all, expect: []string{"a", "b", "c", "d", "e"}, enabled: false},
		{name: "saved", rule: Rule{Membership: MembershipSaved}, input: all, expect: []string{"b", "e"}, enabled: true},
		{name: "contacted", rule: Rule{Membership: MembershipContacted}, input: all, expect: []string{"c"}, enabled: true},
		{name: "network uses catalog positions", rule: Rule{Membership: MembershipNetwork}, input: []*catalog.Entity{all[1], all[2], all[4]}, expect: []string{"c", "e"}, enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := MembershipFilter(tt.rule, sets, positions)
			require.Equal(t, tt.enabled, f.IsEnabled())
			if !f.IsEnabled() {
				return
			}
			got, _ := f.Apply(tt.input)
			assert.Equal(t, tt.expect, idsOf(got))
		})
	}
}

func TestArrange(t *testing.T) {
	entities := []*catalog.Entity{
		{ID: "a", Likes: 1},
		{ID: "b", Likes: 5},
		{ID: "c", Likes: 3},
	}
	scores := []scoring.Score{{}, {MatchCount: 1, IsMatch: true}, {MatchCount: 4, IsMatch: true}}
	ranked := ranking.Zip(entities, scores)

	assert.Equal(t, []string{"b", "c", "a"}, idsOf(ranking.Entities(Arrange(Rule{Order: OrderPartition}, ranked))))
	assert.Equal(t, []string{"b", "c", "a"}, idsOf(ranking.Entities(Arrange(Rule{Order: OrderEngagement}, ranked))))
	assert.Equal(t, []string{"c", "b", "a"}, idsOf(ranking.Entities(Arrange(Rule{Order: OrderScore}, ranked))))
}

func TestSelector(t *testing.T) {
	s := NewSelector(NewTable(Recommended, SavedMode, Recent))
	assert.Equal(t, Recommended, s.Current())

	assert.Equal(t, Recent, s.Select(Recent))
	assert.Equal(t, Recent, s.Current())

	assert.Equal(t, Recommended, s.Select("unknown"))
	assert.Equal(t, Recommended, s.Current())
}
