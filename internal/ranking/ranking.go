package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/scoring"
)

// Ranked pairs an entity with its score so orderings can move both together.
type Ranked struct {
	Entity *catalog.Entity
	Score  scoring.Score
}

// Zip pairs entities with scores aligned by index. Missing scores are zero.
func Zip(entities []*catalog.Entity, scores []scoring.Score) []Ranked {
	ranked := make([]Ranked, len(entities))
	for i, e := range entities {
		ranked[i].Entity = e
		if i < len(scores) {
			ranked[i].Score = scores[i]
		}
	}
	return ranked
}

// Entities unwraps the ranked list.
func Entities(ranked []Ranked) []*catalog.Entity {
	out := make([]*catalog.Entity, len(ranked))
	for i, r := range ranked {
		out[i] = r.Entity
	}
	return out
}

// Partition moves matching entries ahead of non-matching ones. Each group
// keeps its original relative order; score magnitude is not considered.
func Partition(ranked []Ranked) []Ranked {
	out := make([]Ranked, 0, len(ranked))
	for _, r := range ranked {
		if r.Score.IsMatch {
			out = append(out, r)
		}
	}
	for _, r := range ranked {
		if !r.Score.IsMatch {
			out = append(out, r)
		}
	}
	return out
}

// ByScore orders by descending match count, ties in original order.
func ByScore(ranked []Ranked) []Ranked {
	return sortedStable(ranked, func(a, b Ranked) int {
		return cmp.Compare(b.Score.MatchCount, a.Score.MatchCount)
	})
}

// ByEngagement orders by descending likes plus shares, ties in original order.
func ByEngagement(ranked []Ranked) []Ranked {
	return sortedStable(ranked, func(a, b Ranked) int {
		return cmp.Compare(b.Entity.Engagement(), a.Entity.Engagement())
	})
}

// ByRecency orders by descending posting time, ties in original order.
// Entities without a timestamp sort last.
func ByRecency(ranked []Ranked) []Ranked {
	return sortedStable(ranked, func(a, b Ranked) int {
		return compareTimeDesc(a.Entity.PostedAt, b.Entity.PostedAt)
	})
}

// Rank is the default ordering: a stable partition of entities by IsMatch.
func Rank(entities []*catalog.Entity, scores []scoring.Score) []*catalog.Entity {
	return Entities(Partition(Zip(entities, scores)))
}

func sortedStable(ranked []Ranked, fn func(a, b Ranked) int) []Ranked {
	out := slices.Clone(ranked)
	slices.SortStableFunc(out, fn)
	return out
}

func compareTimeDesc(a, b time.Time) int {
	return b.Compare(a)
}
