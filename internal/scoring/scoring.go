package scoring

import (
	"fmt"
	"strings"

	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/predicate"
)

// Strategy selects where an entity's relevance comes from.
type Strategy string

const (
	// StrategyComputed counts the overlap of entity tags with the viewer's skills.
	StrategyComputed Strategy = "computed"
	// StrategyPrecomputed surfaces the match percentage stored on the entity.
	StrategyPrecomputed Strategy = "precomputed"
)

const defaultMinMatch = 1

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyComputed, "":
		return StrategyComputed, nil
	case StrategyPrecomputed:
		return StrategyPrecomputed, nil
	default:
		return "", fmt.Errorf("unknown scoring strategy %q", s)
	}
}

// Config configures a Scorer.
type Config struct {
	Strategy Strategy `mapstructure:"strategy" json:"strategy"`
	// Field holds the entity values compared with viewer attributes. Defaults to tags.
	Field string `mapstructure:"field" json:"field,omitempty"`
	// Weights gives individual attributes a weight other than 1.
	Weights map[string]int `mapstructure:"weights" json:"weights,omitempty"`
	// MinMatch is the precomputed score an entity needs to count as a match.
	MinMatch int `mapstructure:"min-match" json:"min_match,omitempty"`
}

// Score is an entity's relevance to the viewer.
type Score struct {
	MatchCount int  `json:"match_count"`
	IsMatch    bool `json:"is_match"`
}

type Scorer struct {
	strategy Strategy
	field    string
	weights  map[string]int
	minMatch int
}

// New builds a scorer. An unknown strategy falls back to computed.
func New(cfg Config) *Scorer {
	strategy, err := ParseStrategy(string(cfg.Strategy))
	if err != nil {
		strategy = StrategyComputed
	}

	field := strings.TrimSpace(cfg.Field)
	if field == "" {
		field = catalog.FieldTags
	}

	minMatch := cfg.MinMatch
	if minMatch <= 0 {
		minMatch = defaultMinMatch
	}

	weights := make(map[string]int, len(cfg.Weights))
	for k, w := range cfg.Weights {
		weights[predicate.Key(k)] = w
	}

	return &Scorer{
		strategy: strategy,
		field:    field,
		weights:  weights,
		minMatch: minMatch,
	}
}

func (s *Scorer) Strategy() Strategy { return s.strategy }

// Score rates one entity. Without viewer attributes every entity scores zero.
func (s *Scorer) Score(e *catalog.Entity, viewer []string) Score {
	if e == nil || len(viewer) == 0 {
		return Score{}
	}

	switch s.strategy {
	case StrategyPrecomputed:
		if e.MatchPercent == nil {
			return Score{}
		}
		pct := *e.MatchPercent
		return Score{MatchCount: pct, IsMatch: pct >= s.minMatch}
	default:
		count := s.overlap(e.Values(s.field), viewer)
		return Score{MatchCount: count, IsMatch: count > 0}
	}
}

// ScoreAll rates entities; the result is aligned with the input by index.
func (s *Scorer) ScoreAll(entities []*catalog.Entity, viewer []string) []Score {
	scores := make([]Score, len(entities))
	for i, e := range entities {
		scores[i] = s.Score(e, viewer)
	}
	return scores
}

// overlap sums the weights of distinct viewer attributes present on the entity.
func (s *Scorer) overlap(have, viewer []string) int {
	if len(have) == 0 {
		return 0
	}

	set := predicate.Fold(have)
	counted := make(map[string]struct{}, len(viewer))
	total := 0
	for _, v := range viewer {
		k := predicate.Key(v)
		if k == "" {
			continue
		}
		if _, dup := counted[k]; dup {
			continue
		}
		counted[k] = struct{}{}
		if _, ok := set[k]; !ok {
			continue
		}
		if w, ok := s.weights[k]; ok {
			total += w
			continue
		}
		total++
	}
	return total
}
