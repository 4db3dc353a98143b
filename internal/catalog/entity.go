package catalog

import (
	"strings"
	"time"
)

const (
	KindOpportunity = "opportunity"
	KindCandidate   = "candidate"
)

// Field names understood by Entity.Values. Any other name is looked up in Attributes.
const (
	FieldID           = "id"
	FieldKind         = "kind"
	FieldTitle        = "title"
	FieldOrganization = "organization"
	FieldDescription  = "description"
	FieldTags         = "tags"
)

// Entity is an opportunity or a candidate profile. The engine treats it as read-only.
type Entity struct {
	ID           string            `json:"id" yaml:"id" toml:"id" validate:"required"`
	Kind         string            `json:"kind,omitempty" yaml:"kind" toml:"kind" validate:"omitempty,oneof=opportunity candidate"`
	Title        string            `json:"title,omitempty" yaml:"title" toml:"title"`
	Organization string            `json:"organization,omitempty" yaml:"organization" toml:"organization"`
	Description  string            `json:"description,omitempty" yaml:"description" toml:"description"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags" toml:"tags"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes" toml:"attributes"`
	PostedAt     time.Time         `json:"posted_at,omitempty" yaml:"posted_at" toml:"posted_at"`
	Likes        int               `json:"likes,omitempty" yaml:"likes" toml:"likes" validate:"gte=0"`
	Shares       int               `json:"shares,omitempty" yaml:"shares" toml:"shares" validate:"gte=0"`
	MatchPercent *int              `json:"match_percent,omitempty" yaml:"match_percent" toml:"match_percent" validate:"omitempty,gte=0,lte=100"`
}

// Values returns the values of the named field. Single-valued fields yield
// at most one element; missing fields yield nil.
func (e *Entity) Values(name string) []string {
	if e == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case FieldTags:
		return e.Tags
	case FieldID:
		return nonEmpty(e.ID)
	case FieldKind:
		return nonEmpty(e.Kind)
	case FieldTitle:
		return nonEmpty(e.Title)
	case FieldOrganization:
		return nonEmpty(e.Organization)
	case FieldDescription:
		return nonEmpty(e.Description)
	}

	if v, ok := e.Attributes[name]; ok {
		return nonEmpty(v)
	}
	// attribute keys are matched case-insensitively as a fallback
	for k, v := range e.Attributes {
		if strings.EqualFold(k, name) {
			return nonEmpty(v)
		}
	}
	return nil
}

// Value returns the first value of the named field or an empty string.
func (e *Entity) Value(name string) string {
	values := e.Values(name)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Texts collects the values of the given fields for free-text matching.
func (e *Entity) Texts(fields []string) []string {
	texts := make([]string, 0, len(fields))
	for _, f := range fields {
		texts = append(texts, e.Values(f)...)
	}
	return texts
}

// Engagement is the trending signal: likes plus shares.
func (e *Entity) Engagement() int {
	return e.Likes + e.Shares
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
