package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/filtering"
	"github.com/spigell/matchboard/internal/logger"
	"github.com/spigell/matchboard/internal/observability"
	"github.com/spigell/matchboard/internal/ranking"
	"github.com/spigell/matchboard/internal/scoring"
	"github.com/spigell/matchboard/internal/utils"
	"github.com/spigell/matchboard/internal/viewmode"
)

const queryLogLimit = 120

// Config is everything that differs between discovery surfaces.
type Config struct {
	Surface string           `mapstructure:"surface" json:"surface"`
	Filters filtering.Config `mapstructure:"filters" json:"filters"`
	Scoring scoring.Config   `mapstructure:"scoring" json:"scoring"`
	Modes   viewmode.Table   `mapstructure:"modes" json:"modes"`
}

// Validate reports configuration the engine will work around at compute time.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("engine config is nil")
	}

	var errs []error
	if err := c.Filters.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("filters: %w", err))
	}
	if _, err := scoring.ParseStrategy(string(c.Scoring.Strategy)); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}
	if err := c.Modes.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("modes: %w", err))
	}
	return errors.Join(errs...)
}

// Input is the full set of values a visible list depends on.
type Input struct {
	Pool     []*catalog.Entity
	Criteria filtering.Criteria
	Viewer   []string
	Mode     viewmode.Mode
	Sets     auxset.Sets
}

// VisibleList is the ordered result shown to the viewer. Scores are aligned
// with Items by index.
type VisibleList struct {
	Surface string             `json:"surface,omitempty"`
	Mode    viewmode.Mode      `json:"mode"`
	Items   []*catalog.Entity  `json:"items"`
	Scores  []scoring.Score    `json:"scores"`
	Steps   []filtering.Step   `json:"steps"`
	Filters []filtering.Status `json:"filters"`
}

func (v VisibleList) Len() int { return len(v.Items) }

func (v VisibleList) IDs() []string {
	ids := make([]string, len(v.Items))
	for i, e := range v.Items {
		if e != nil {
			ids[i] = e.ID
		}
	}
	return ids
}

// Compute derives the visible list from its inputs. It never mutates the
// pool or its entities and returns the same list for the same inputs.
func Compute(in Input, cfg *Config) VisibleList {
	if cfg == nil {
		cfg = &Config{}
	}
	return compute(in, cfg, scoring.New(cfg.Scoring), nil)
}

// compute runs criteria filtering, mode membership, scoring and ordering in that order.
func compute(in Input, cfg *Config, scorer *scoring.Scorer, log *zap.Logger) VisibleList {
	mode, rule := cfg.Modes.Resolve(in.Mode)

	var positions map[*catalog.Entity]int
	if rule.Membership == viewmode.MembershipNetwork {
		positions = viewmode.Positions(in.Pool)
	}

	steps := filtering.Steps(&cfg.Filters, in.Criteria)
	steps = append(steps, viewmode.MembershipFilter(rule, in.Sets, positions))

	survivors, stats := filtering.Run(steps, present(in.Pool), log)
	ranked := viewmode.Arrange(rule, ranking.Zip(survivors, scorer.ScoreAll(survivors, in.Viewer)))

	scores := make([]scoring.Score, len(ranked))
	for i, r := range ranked {
		scores[i] = r.Score
	}

	return VisibleList{
		Surface: cfg.Surface,
		Mode:    mode,
		Items:   ranking.Entities(ranked),
		Scores:  scores,
		Steps:   stats,
		Filters: filtering.Describe(steps),
	}
}

// present returns the pool without nil entries. The input slice is left untouched.
func present(pool []*catalog.Entity) []*catalog.Entity {
	out := make([]*catalog.Entity, 0, len(pool))
	for _, e := range pool {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Engine computes visible lists for one surface with logging and metrics.
// It holds no per-viewer state and is safe for concurrent use.
type Engine struct {
	cfg     *Config
	scorer  *scoring.Scorer
	logger  *zap.Logger
	metrics *observability.Metrics
}

func New(cfg *Config, log *zap.Logger, metrics *observability.Metrics) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}

	return &Engine{
		cfg:     cfg,
		scorer:  scoring.New(cfg.Scoring),
		logger:  logger.WithFields(log, logger.StringFields(logger.StringField{Key: logger.FieldSurface, Value: cfg.Surface})...),
		metrics: metrics,
	}
}

func (e *Engine) Config() *Config { return e.cfg }

func (e *Engine) Logger() *zap.Logger { return e.logger }

func (e *Engine) Metrics() *observability.Metrics { return e.metrics }

func (e *Engine) Compute(in Input) VisibleList {
	start := time.Now()
	list := compute(in, e.cfg, e.scorer, e.logger)
	took := time.Since(start)

	e.metrics.ObserveCompute(e.cfg.Surface, string(list.Mode), list.Len(), took)
	for _, step := range list.Steps {
		e.metrics.ObserveDropped(e.cfg.Surface, step.Name, step.Dropped)
	}

	fields := []zap.Field{
		zap.String(logger.FieldMode, string(list.Mode)),
		zap.Int("pool", len(in.Pool)),
		zap.Int("visible", list.Len()),
		zap.Int("viewer_attributes", len(in.Viewer)),
		zap.Duration("took", took),
	}
	if q := describeCriteria(in.Criteria); q != "" {
		fields = append(fields, zap.String("criteria", utils.TruncateForLog(q, queryLogLimit)))
	}
	if requested := strings.TrimSpace(string(in.Mode)); requested != "" && !strings.EqualFold(requested, string(list.Mode)) {
		fields = append(fields, zap.String("requested_mode", requested))
	}
	e.logger.Debug("computed visible list", fields...)

	return list
}

// describeCriteria renders the active selections in a stable order for logs.
func describeCriteria(criteria filtering.Criteria) string {
	keys := make([]string, 0, len(criteria))
	for k, s := range criteria {
		if !s.Empty() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := criteria[k]
		if q := strings.TrimSpace(s.Query); q != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", k, q))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=[%s]", k, strings.Join(s.Set(), ",")))
	}
	return strings.Join(parts, " ")
}
