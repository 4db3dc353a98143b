package predicate

import (
	"fmt"
	"strings"
)

// Kind selects how a category's selection is tested against an entity.
type Kind string

const (
	KindTextMatch Kind = "textMatch"
	KindAllOf     Kind = "allOf"
	KindAnyOf     Kind = "anyOf"
	KindEquals    Kind = "equals"
)

var kinds = map[string]Kind{
	"textmatch": KindTextMatch,
	"allof":     KindAllOf,
	"anyof":     KindAnyOf,
	"equals":    KindEquals,
}

// ParseKind accepts any casing of the kind names, e.g. "anyOf" or "ANYOF".
func ParseKind(s string) (Kind, error) {
	k, ok := kinds[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown predicate kind %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// Normalize returns the canonical spelling of k, or k itself when it is unknown.
func (k Kind) Normalize() Kind {
	if parsed, err := ParseKind(string(k)); err == nil {
		return parsed
	}
	return k
}

// TextMatch reports whether any of texts contains query, ignoring case.
// A blank query matches everything.
func TextMatch(texts []string, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}

	for _, text := range texts {
		if strings.Contains(strings.ToLower(text), query) {
			return true
		}
	}
	return false
}

// AllOf reports whether every selected value is present in have.
func AllOf(have, selected []string) bool {
	if len(selected) == 0 {
		return true
	}

	set := Fold(have)
	for _, value := range selected {
		if _, ok := set[key(value)]; !ok {
			return false
		}
	}
	return true
}

// AnyOf reports whether at least one selected value is present in have.
func AnyOf(have, selected []string) bool {
	if len(selected) == 0 {
		return true
	}

	set := Fold(have)
	for _, value := range selected {
		if _, ok := set[key(value)]; ok {
			return true
		}
	}
	return false
}

// Equals reports whether a single-valued field is one of the selected values.
func Equals(value string, selected []string) bool {
	if len(selected) == 0 {
		return true
	}

	k := key(value)
	for _, s := range selected {
		if key(s) == k {
			return true
		}
	}
	return false
}

// Fold builds a lookup set of values compared the same way the set predicates compare them.
func Fold(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[key(v)] = struct{}{}
	}
	return set
}

// Key is the comparison key used for set membership.
func Key(value string) string {
	return key(value)
}

func key(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
