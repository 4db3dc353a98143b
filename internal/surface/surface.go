package surface

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/engine"
	"github.com/spigell/matchboard/internal/filtering"
	"github.com/spigell/matchboard/internal/predicate"
	"github.com/spigell/matchboard/internal/scoring"
	"github.com/spigell/matchboard/internal/viewmode"
)

var ErrUnknownSurface = errors.New("unknown surface")

const (
	NameOpportunities = "opportunities"
	NameCandidates    = "candidates"
)

var searchFields = []string{catalog.FieldTitle, catalog.FieldOrganization, catalog.FieldDescription, catalog.FieldTags}

// Opportunities is the student-facing surface: any selected skill is enough
// and relevance is the overlap with the student's own skills.
func Opportunities() *engine.Config {
	return &engine.Config{
		Surface: NameOpportunities,
		Filters: filtering.Config{Categories: []filtering.Category{
			{Name: "search", Kind: predicate.KindTextMatch, TextFields: searchFields},
			{Name: "skills", Kind: predicate.KindAnyOf, Field: catalog.FieldTags},
			{Name: "type", Kind: predicate.KindEquals},
			{Name: "location", Kind: predicate.KindEquals},
			{Name: "remote", Kind: predicate.KindEquals},
			{Name: "experience", Kind: predicate.KindEquals},
		}},
		Scoring: scoring.Config{
			Strategy: scoring.StrategyComputed,
			Field:    catalog.FieldTags,
		},
		Modes: viewmode.NewTable(
			viewmode.Recommended,
			viewmode.SavedMode,
			viewmode.Trending,
			viewmode.Recent,
			viewmode.Network,
		),
	}
}

// Candidates is the recruiter-facing surface: every selected skill is
// required and relevance comes from the stored match percentage.
func Candidates() *engine.Config {
	return &engine.Config{
		Surface: NameCandidates,
		Filters: filtering.Config{Categories: []filtering.Category{
			{Name: "search", Kind: predicate.KindTextMatch, TextFields: searchFields},
			{Name: "skills", Kind: predicate.KindAllOf, Field: catalog.FieldTags},
			{Name: "university", Kind: predicate.KindEquals},
			{Name: "graduation-year", Kind: predicate.KindEquals},
			{Name: "availability", Kind: predicate.KindEquals},
			{Name: "location", Kind: predicate.KindEquals},
		}},
		Scoring: scoring.Config{
			Strategy: scoring.StrategyPrecomputed,
		},
		Modes: viewmode.NewTable(
			viewmode.Recommended,
			viewmode.SavedMode,
			viewmode.Contacted,
			viewmode.BestMatch,
			viewmode.Recent,
		),
	}
}

// Presets returns fresh copies of the built-in surfaces.
func Presets() map[string]*engine.Config {
	return map[string]*engine.Config{
		NameOpportunities: Opportunities(),
		NameCandidates:    Candidates(),
	}
}

// Registry holds the configured surfaces by name.
type Registry struct {
	configs map[string]*engine.Config
}

// NewRegistry starts from the presets and applies overrides keyed by surface
// name. An override for an unknown name declares a new surface.
func NewRegistry(overrides map[string]any) (*Registry, error) {
	configs := Presets()

	var errs []error
	for name, raw := range overrides {
		name = strings.ToLower(strings.TrimSpace(name))
		cfg, ok := configs[name]
		if !ok {
			cfg = &engine.Config{Modes: viewmode.NewTable(viewmode.Recommended)}
		}

		if err := Decode(raw, cfg); err != nil {
			errs = append(errs, fmt.Errorf("surface %q: %w", name, err))
			continue
		}
		cfg.Surface = name
		configs[name] = cfg
	}

	for name, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("surface %q: %w", name, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Registry{configs: configs}, nil
}

// Decode applies a raw override onto cfg. Lists and maps present in the
// override replace the preset values instead of merging with them.
func Decode(raw any, cfg *engine.Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     cfg,
		ZeroFields: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func (r *Registry) Get(name string) (*engine.Config, error) {
	cfg, ok := r.configs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSurface, name)
	}
	return cfg, nil
}

// Names lists the configured surfaces in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a built-in surface.
func Get(name string) (*engine.Config, error) {
	return (&Registry{configs: Presets()}).Get(name)
}
