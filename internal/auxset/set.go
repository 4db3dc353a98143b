package auxset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownSet is returned when a set name is neither saved nor contacted.
var ErrUnknownSet = errors.New("unknown auxiliary set")

// Name identifies one of the viewer's auxiliary sets.
type Name string

const (
	Saved     Name = "saved"
	Contacted Name = "contacted"
)

func ParseName(s string) (Name, error) {
	switch n := Name(strings.ToLower(strings.TrimSpace(s))); n {
	case Saved, Contacted:
		return n, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSet, s)
	}
}

// Set is an immutable set of entity ids. The zero value is an empty set.
type Set struct {
	ids map[string]struct{}
}

func New(ids ...string) Set {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.ids[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Set) Len() int { return len(s.ids) }

// IDs returns the members in sorted order.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.ids {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Toggle returns a new set with id added when absent or removed when present.
// The input set is never modified.
func Toggle(s Set, id string) Set {
	next := Set{ids: make(map[string]struct{}, len(s.ids)+1)}
	for k := range s.ids {
		next.ids[k] = struct{}{}
	}

	if id == "" {
		return next
	}

	if _, ok := next.ids[id]; ok {
		delete(next.ids, id)
	} else {
		next.ids[id] = struct{}{}
	}
	return next
}

// Sets is the pair of auxiliary sets owned by one viewer.
type Sets struct {
	Saved     Set
	Contacted Set
}

func (s Sets) Get(name Name) (Set, error) {
	switch name {
	case Saved:
		return s.Saved, nil
	case Contacted:
		return s.Contacted, nil
	default:
		return Set{}, fmt.Errorf("%w: %q", ErrUnknownSet, name)
	}
}

// Toggle returns a copy of s with id toggled in the named set only.
func (s Sets) Toggle(name Name, id string) (Sets, error) {
	switch name {
	case Saved:
		s.Saved = Toggle(s.Saved, id)
	case Contacted:
		s.Contacted = Toggle(s.Contacted, id)
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownSet, name)
	}
	return s, nil
}
