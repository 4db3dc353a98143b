package filtering

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/predicate"
)

func testConfig() *Config {
	return &Config{Categories: []Category{
		{Name: "search", Kind: predicate.KindTextMatch},
		{Name: "skills", Kind: predicate.KindAnyOf, Field: catalog.FieldTags},
		{Name: "required", Kind: predicate.KindAllOf, Field: catalog.FieldTags},
		{Name: "location", Kind: predicate.KindEquals},
	}}
}

func testPool() []*catalog.Entity {
	return []*catalog.Entity{
		{ID: "1", Title: "Frontend Intern", Organization: "Acme", Tags: []string{"React"}, Attributes: map[string]string{"location": "Berlin"}},
		{ID: "2", Title: "Data Analyst", Organization: "Globex", Tags: []string{"Python"}, Attributes: map[string]string{"location": "Paris"}},
		{ID: "3", Title: "Fullstack Developer", Organization: "Acme", Tags: []string{"React", "Node"}, Attributes: map[string]string{"location": "Remote"}},
		{ID: "4", Title: "Backend Engineer", Organization: "Initech", Tags: []string{"Go"}, Attributes: map[string]string{"location": "Berlin"}},
		{ID: "5", Title: "ML Engineer", Organization: "Globex", Description: "React dashboards for models", Tags: []string{"React", "Python"}},
	}
}

func ids(entities []*catalog.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID)
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		criteria Criteria
		expect   []string
	}{
		{name: "no criteria", criteria: nil, expect: []string{"1", "2", "3", "4", "5"}},
		{name: "empty selections are skipped", criteria: Criteria{"skills": {}, "search": {Query: "  "}}, expect: []string{"1", "2", "3", "4", "5"}},
		{name: "any-of skills", criteria: Criteria{"skills": {Values: []string{"Python"}}}, expect: []string{"2", "5"}},
		{name: "any-of several skills", criteria: Criteria{"skills": {Values: []string{"Go", "Node"}}}, expect: []string{"3", "4"}},
		{name: "all-of skills", criteria: Criteria{"required": {Values: []string{"React", "Python"}}}, expect: []string{"5"}},
		{name: "text search over description", criteria: Criteria{"search": {Query: "dashboards"}}, expect: []string{"5"}},
		{name: "text search over organization", criteria: Criteria{"search": {Query: "acme"}}, expect: []string{"1", "3"}},
		{name: "equals on attribute", criteria: Criteria{"location": {Values: []string{"Berlin", "Remote"}}}, expect: []string{"1", "3", "4"}},
		{name: "categories combine with and", criteria: Criteria{"skills": {Values: []string{"React"}}, "location": {Values: []string{"Berlin"}}}, expect: []string{"1"}},
		{name: "unconfigured category is ignored", criteria: Criteria{"salary": {Values: []string{"100k"}}}, expect: []string{"1", "2", "3", "4", "5"}},
		{name: "criteria key case-insensitive", criteria: Criteria{"Skills": {Values: []string{"go"}}}, expect: []string{"4"}},
		{name: "text values match any one of them", criteria: Criteria{"search": {Values: []string{"dashboards", "initech"}}}, expect: []string{"4", "5"}},
		{name: "text query wins over values", criteria: Criteria{"search": {Query: "analyst", Values: []string{"acme"}}}, expect: []string{"2"}},
		{name: "single query used as set value", criteria: Criteria{"location": {Query: "paris"}}, expect: []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []string
			for _, e := range testPool() {
				if Evaluate(e, tt.criteria, testConfig()) {
					got = append(got, e.ID)
				}
			}
			if !sameIDs(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestCriteriaLookupCaseVariants(t *testing.T) {
	criteria := Criteria{
		"Skills": {Values: []string{"Go"}},
		"SKILLS": {Values: []string{"React"}},
		"sKills": {Values: []string{"Node"}},
	}

	for i := 0; i < 100; i++ {
		s, ok := criteria.Lookup("skills")
		if !ok {
			t.Fatalf("expected a case-insensitive match")
		}
		if len(s.Values) != 1 || s.Values[0] != "React" {
			t.Fatalf("lookup %d: expected the SKILLS selection, got %v", i, s.Values)
		}
	}

	if s, ok := criteria.Lookup("Skills"); !ok || s.Values[0] != "Go" {
		t.Fatalf("expected exact key to win, got %v", s.Values)
	}
	if _, ok := criteria.Lookup("location"); ok {
		t.Fatalf("expected no match for an absent category")
	}
}

func TestEvaluateIsConjunctionOfCategories(t *testing.T) {
	cfg := testConfig()
	selections := []Criteria{
		{"skills": {Values: []string{"React"}}},
		{"skills": {Values: []string{"React"}}, "search": {Query: "engineer"}},
		{"required": {Values: []string{"React"}}, "location": {Values: []string{"Remote", "Paris"}}},
		{"search": {Query: "globex"}, "required": {Values: []string{"Python"}}, "location": {Values: []string{"Paris"}}},
	}

	for i, criteria := range selections {
		for _, e := range testPool() {
			expect := true
			for _, cat := range cfg.Categories {
				s, ok := criteria.Lookup(cat.Name)
				if ok && !s.Empty() && !cat.Match(e, s) {
					expect = false
				}
			}
			if got := Evaluate(e, criteria, cfg); got != expect {
				t.Fatalf("criteria %d, entity %s: Evaluate = %v, independent check = %v", i, e.ID, got, expect)
			}
		}
	}
}

func TestEvaluateFailsOpenOnUnknownKind(t *testing.T) {
	cfg := &Config{Categories: []Category{{Name: "skills", Kind: "regex", Field: catalog.FieldTags}}}
	e := &catalog.Entity{ID: "x", Tags: []string{"Go"}}

	if !Evaluate(e, Criteria{"skills": {Values: []string{"Rust"}}}, cfg) {
		t.Fatalf("expected unknown kind to be ignored")
	}
	if !Evaluate(e, Criteria{"skills": {Values: []string{"Rust"}}}, nil) {
		t.Fatalf("expected nil config to accept everything")
	}

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for unknown kind")
	}
}

func TestRunMatchesEvaluate(t *testing.T) {
	cfg := testConfig()
	criteria := Criteria{
		"skills":   {Values: []string{"React", "Python"}},
		"location": {Values: []string{"Berlin", "Paris", "Remote"}},
	}

	pool := testPool()
	got, stats := Run(Steps(cfg, criteria), pool, nil)

	var expect []string
	for _, e := range pool {
		if Evaluate(e, criteria, cfg) {
			expect = append(expect, e.ID)
		}
	}

	if !sameIDs(ids(got), expect) {
		t.Fatalf("Run returned %v, Evaluate accepted %v", ids(got), expect)
	}

	if len(stats) != 2 {
		t.Fatalf("expected 2 executed steps, got %d: %+v", len(stats), stats)
	}
	if stats[0].Name != "skills" || stats[0].Initial != 5 || stats[0].Dropped != 1 || stats[0].Left != 4 {
		t.Fatalf("unexpected skills step: %+v", stats[0])
	}
	if stats[1].Name != "location" || stats[1].Initial != 4 || stats[1].Left != 3 {
		t.Fatalf("unexpected location step: %+v", stats[1])
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	pool := testPool()
	before := ids(pool)

	_, _ = Run(Steps(testConfig(), Criteria{"skills": {Values: []string{"Go"}}}), pool, nil)

	if !sameIDs(ids(pool), before) {
		t.Fatalf("input was modified: %v", ids(pool))
	}
}

func TestRunLogsSteps(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	steps := Steps(testConfig(), Criteria{"skills": {Values: []string{"Go"}}})
	_, _ = Run(steps, testPool(), logger)

	var executed, disabled int
	for _, entry := range observed.All() {
		switch entry.Message {
		case "filter step":
			executed++
			if entry.ContextMap()["dropped"] != int64(4) {
				t.Fatalf("expected 4 dropped, got %v", entry.ContextMap()["dropped"])
			}
		case "filter disabled":
			disabled++
		}
	}

	if executed != 1 || disabled != 3 {
		t.Fatalf("expected 1 executed and 3 disabled steps, got %d and %d", executed, disabled)
	}
}

func TestDescribe(t *testing.T) {
	steps := Steps(testConfig(), Criteria{"skills": {Values: []string{"Go", "Rust"}}, "search": {Values: []string{"dev", "ops"}}})
	steps = append(steps, NewMembership("saved", nil, map[string]string{"size": "0"}))
	DisableByName(steps, "saved", "not requested")

	statuses := Describe(steps)
	if len(statuses) != 5 {
		t.Fatalf("expected 5 statuses, got %d", len(statuses))
	}

	byName := make(map[string]Status, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s
	}

	if s := byName["skills"]; !s.Enabled || s.Details["values"] != "Go,Rust" || s.Details["field"] != catalog.FieldTags {
		t.Fatalf("unexpected skills status: %+v", s)
	}
	if s := byName["search"]; !s.Enabled || s.Details["query"] != "dev,ops" {
		t.Fatalf("unexpected search status: %+v", s)
	}
	if s := byName["location"]; s.Enabled || s.Reason != "empty selection" {
		t.Fatalf("unexpected location status: %+v", s)
	}
	if s := byName["saved"]; s.Enabled || s.Reason != "not requested" {
		t.Fatalf("unexpected saved status: %+v", s)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Categories: []Category{
		{Name: "skills", Kind: predicate.KindAnyOf},
		{Name: "Skills", Kind: predicate.KindAllOf},
		{Name: "", Kind: predicate.KindEquals},
	}}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"declared more than once", "name is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}

	if err := testConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMembershipFilter(t *testing.T) {
	f := NewMembership("even", func(e *catalog.Entity) bool {
		var n int
		_, _ = fmt.Sscanf(e.ID, "%d", &n)
		return n%2 == 0
	}, nil)

	got, step := f.Apply(testPool())
	if !sameIDs(ids(got), []string{"2", "4"}) {
		t.Fatalf("unexpected survivors: %v", ids(got))
	}
	if step.Dropped != 3 || step.Left != 2 {
		t.Fatalf("unexpected step: %+v", step)
	}
}
