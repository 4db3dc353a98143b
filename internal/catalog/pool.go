package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for catalog files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

var validate = validator.New()

// Pool is the set of entities offered to the engine, in catalog order.
type Pool struct {
	Items []*Entity `json:"items" yaml:"items" toml:"items"`
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

func (p *Pool) FindByID(id string) *Entity {
	for _, e := range p.Items {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (p *Pool) IDs() []string {
	ids := make([]string, 0, p.Len())
	for _, e := range p.Items {
		ids = append(ids, e.ID)
	}
	return ids
}

// LoadFile reads a pool from a JSON, YAML or TOML file chosen by extension.
func LoadFile(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}

	var pool Pool
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &pool)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pool)
	case ".toml":
		err = toml.Unmarshal(data, &pool)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %q: %w", path, err)
	}

	if err := pool.Prepare(); err != nil {
		return nil, fmt.Errorf("catalog %q: %w", path, err)
	}
	return &pool, nil
}

// derivedID names an entry without an id by its title, organization and
// position, so loading the same catalog again yields the same ids.
func derivedID(e *Entity, idx int) string {
	name := fmt.Sprintf("%s|%s|%d", e.Title, e.Organization, idx)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Prepare assigns ids to entries lacking one, then validates every entry and
// rejects duplicate ids. Entries are otherwise left untouched.
func (p *Pool) Prepare() error {
	var errs []error
	seen := make(map[string]int, p.Len())

	for idx, e := range p.Items {
		if e == nil {
			errs = append(errs, fmt.Errorf("entry %d is empty", idx))
			continue
		}
		if strings.TrimSpace(e.ID) == "" {
			e.ID = derivedID(e, idx)
		}
		if err := validate.Struct(e); err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", idx, e.ID, err))
		}
		if prev, ok := seen[e.ID]; ok {
			errs = append(errs, fmt.Errorf("entry %d duplicates id %q of entry %d", idx, e.ID, prev))
			continue
		}
		seen[e.ID] = idx
	}

	return errors.Join(errs...)
}

func (p *Pool) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "visible_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportBy groups entries by the value of field. Entries without a value
// are grouped under "(none)"; multi-valued fields put an entry in every group.
func (p *Pool) ReportBy(field string) map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, e := range p.Items {
		keys := e.Values(field)
		if len(keys) == 0 {
			keys = []string{"(none)"}
		}

		row := map[string]string{
			"id":           e.ID,
			"title":        e.Title,
			"organization": e.Organization,
			"tags":         strings.Join(e.Tags, ", "),
		}
		if e.MatchPercent != nil {
			row["match_percent"] = fmt.Sprintf("%d", *e.MatchPercent)
		}
		if !e.PostedAt.IsZero() {
			row["posted_at"] = e.PostedAt.Format("2006-01-02")
		}

		for _, k := range keys {
			report[k] = append(report[k], row)
		}
	}
	return report
}

// ReportKeys returns the report groups in a stable order.
func ReportKeys(report map[string][]map[string]string) []string {
	keys := make([]string, 0, len(report))
	for k := range report {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
