package filtering

import (
	"github.com/spigell/matchboard/internal/catalog"
)

type membershipFilter struct {
	name     string
	member   func(*catalog.Entity) bool
	details  map[string]string
	disabled bool
	reason   string
}

// NewMembership creates a filter that keeps only entities for which member returns true.
// A nil member keeps everything.
func NewMembership(name string, member func(*catalog.Entity) bool, details map[string]string) Filter {
	return &membershipFilter{
		name:    name,
		member:  member,
		details: details,
	}
}

func (f *membershipFilter) Name() string { return f.name }

func (f *membershipFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *membershipFilter) IsEnabled() bool { return !f.disabled }

func (f *membershipFilter) Validate() error { return nil }

func (f *membershipFilter) Apply(entities []*catalog.Entity) ([]*catalog.Entity, Step) {
	if f.member == nil {
		return keep(f.name, entities, func(*catalog.Entity) bool { return true })
	}
	return keep(f.name, entities, f.member)
}

func (f *membershipFilter) Status() Status {
	return Status{Name: f.name, Enabled: f.IsEnabled(), Reason: f.reason, Details: f.details}
}
