package filtering

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/predicate"
)

// DefaultTextFields are searched by textMatch categories that declare no fields.
var DefaultTextFields = []string{catalog.FieldTitle, catalog.FieldOrganization, catalog.FieldDescription}

// Category declares how one criteria category is tested.
type Category struct {
	Name string         `mapstructure:"name" json:"name"`
	Kind predicate.Kind `mapstructure:"kind" json:"kind"`
	// Field is the entity field tested by set predicates. Defaults to Name.
	Field string `mapstructure:"field" json:"field,omitempty"`
	// TextFields are the fields searched by textMatch.
	TextFields []string `mapstructure:"text-fields" json:"text_fields,omitempty"`
}

func (c Category) field() string {
	if f := strings.TrimSpace(c.Field); f != "" {
		return f
	}
	return c.Name
}

func (c Category) textFields() []string {
	if len(c.TextFields) > 0 {
		return c.TextFields
	}
	return DefaultTextFields
}

// Match tests one entity against a non-empty selection.
// Categories with an unknown kind accept everything.
func (c Category) Match(e *catalog.Entity, s Selection) bool {
	switch c.Kind.Normalize() {
	case predicate.KindTextMatch:
		texts := e.Texts(c.textFields())
		for _, q := range s.Queries() {
			if predicate.TextMatch(texts, q) {
				return true
			}
		}
		return false
	case predicate.KindAllOf:
		return predicate.AllOf(e.Values(c.field()), s.Set())
	case predicate.KindAnyOf:
		return predicate.AnyOf(e.Values(c.field()), s.Set())
	case predicate.KindEquals:
		return predicate.Equals(e.Value(c.field()), s.Set())
	default:
		return true
	}
}

// Config is the ordered list of categories a surface filters by.
// Order only affects how early Evaluate short-circuits.
type Config struct {
	Categories []Category `mapstructure:"categories" json:"categories"`
}

// Validate reports categories the evaluator will ignore or treat ambiguously.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}

	var errs []error
	seen := make(map[string]bool, len(c.Categories))
	for idx, cat := range c.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("category %d: name is required", idx))
			continue
		}
		if seen[strings.ToLower(name)] {
			errs = append(errs, fmt.Errorf("category %q: declared more than once", name))
		}
		seen[strings.ToLower(name)] = true
		if !cat.Kind.Valid() {
			errs = append(errs, fmt.Errorf("category %q: unknown kind %q", name, cat.Kind))
		}
	}
	return errors.Join(errs...)
}

// Find returns the category with the given name.
func (c *Config) Find(name string) (Category, bool) {
	if c == nil {
		return Category{}, false
	}
	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return Category{}, false
}

// Selection is the viewer's choice for one category: a free-text query or a set of values.
type Selection struct {
	Query  string   `mapstructure:"query" json:"query,omitempty"`
	Values []string `mapstructure:"values" json:"values,omitempty"`
}

// Empty reports whether the selection places no constraint.
func (s Selection) Empty() bool {
	if strings.TrimSpace(s.Query) != "" {
		return false
	}
	for _, v := range s.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Queries are the substrings searched by textMatch. The query wins over values;
// several values match when any one of them does.
func (s Selection) Queries() []string {
	if q := strings.TrimSpace(s.Query); q != "" {
		return []string{q}
	}
	queries := make([]string, 0, len(s.Values))
	for _, v := range s.Values {
		if v = strings.TrimSpace(v); v != "" {
			queries = append(queries, v)
		}
	}
	return queries
}

// Set is the value set used by set predicates; a lone query counts as one value.
func (s Selection) Set() []string {
	values := make([]string, 0, len(s.Values)+1)
	for _, v := range s.Values {
		if strings.TrimSpace(v) != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 && strings.TrimSpace(s.Query) != "" {
		values = append(values, s.Query)
	}
	return values
}

// Criteria maps category names to the viewer's selections.
type Criteria map[string]Selection

// Lookup finds the selection for a category, falling back to a case-insensitive
// match. When several keys differ only in case, the lexically smallest wins.
func (c Criteria) Lookup(name string) (Selection, bool) {
	if s, ok := c[name]; ok {
		return s, true
	}

	var (
		best  string
		found bool
	)
	for k := range c {
		if !strings.EqualFold(k, name) {
			continue
		}
		if !found || k < best {
			best, found = k, true
		}
	}
	if !found {
		return Selection{}, false
	}
	return c[best], true
}

// Evaluate reports whether the entity satisfies every active category.
// Criteria entries without a configured category are ignored.
func Evaluate(e *catalog.Entity, criteria Criteria, cfg *Config) bool {
	if cfg == nil {
		return true
	}

	for _, cat := range cfg.Categories {
		s, ok := criteria.Lookup(cat.Name)
		if !ok || s.Empty() {
			continue
		}
		if !cat.Match(e, s) {
			return false
		}
	}
	return true
}

// Steps builds one filter per configured category. Categories without an
// active selection or with an unknown kind are included but disabled.
func Steps(cfg *Config, criteria Criteria) []Filter {
	if cfg == nil {
		return nil
	}

	steps := make([]Filter, 0, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		s, _ := criteria.Lookup(cat.Name)
		f := NewCategory(cat, s)
		switch {
		case !cat.Kind.Valid():
			f.Disable(fmt.Sprintf("unknown kind %q", cat.Kind))
		case s.Empty():
			f.Disable("empty selection")
		}
		steps = append(steps, f)
	}
	return steps
}

type categoryFilter struct {
	category  Category
	selection Selection
	disabled  bool
	reason    string
}

// NewCategory creates a filter that keeps entities matching the selection for a category.
func NewCategory(category Category, selection Selection) Filter {
	return &categoryFilter{
		category:  category,
		selection: selection,
	}
}

func (f *categoryFilter) Name() string { return f.category.Name }

func (f *categoryFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *categoryFilter) IsEnabled() bool { return !f.disabled }

func (f *categoryFilter) Validate() error {
	if !f.category.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", f.category.Kind)
	}
	return nil
}

func (f *categoryFilter) Apply(entities []*catalog.Entity) ([]*catalog.Entity, Step) {
	if f.selection.Empty() {
		return keep(f.Name(), entities, func(*catalog.Entity) bool { return true })
	}
	return keep(f.Name(), entities, func(e *catalog.Entity) bool {
		return f.category.Match(e, f.selection)
	})
}

func (f *categoryFilter) Status() Status {
	details := map[string]string{
		"kind": string(f.category.Kind),
	}
	if f.category.Kind.Normalize() == predicate.KindTextMatch {
		details["fields"] = strings.Join(f.category.textFields(), ",")
		if queries := f.selection.Queries(); len(queries) > 0 {
			details["query"] = strings.Join(queries, ",")
		}
	} else {
		details["field"] = f.category.field()
		if values := f.selection.Set(); len(values) > 0 {
			details["values"] = strings.Join(values, ",")
		}
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
