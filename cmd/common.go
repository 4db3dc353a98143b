package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/engine"
	"github.com/spigell/matchboard/internal/filtering"
	"github.com/spigell/matchboard/internal/logger"
	"github.com/spigell/matchboard/internal/predicate"
	"github.com/spigell/matchboard/internal/scoring"
	"github.com/spigell/matchboard/internal/secrets"
	"github.com/spigell/matchboard/internal/store"
	"github.com/spigell/matchboard/internal/surface"
)

// setup builds the logger and reads the config. Failures are fatal.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}

func loadSurfaces(config *Config) (*surface.Registry, error) {
	registry, err := surface.NewRegistry(config.Surfaces)
	if err != nil {
		return nil, fmt.Errorf("configuring surfaces: %w", err)
	}
	return registry, nil
}

func loadPool(ctx context.Context, config *Config, logger *zap.Logger) (*catalog.Pool, error) {
	token, err := secrets.Load(secrets.Source{
		Name:     "catalog token",
		File:     config.CatalogTokenFile,
		Optional: true,
	})
	if err != nil {
		return nil, err
	}

	client := catalog.NewClient(logger, token)
	client.PageDelay = config.PageDelay
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	pool, err := catalog.Load(ctx, config.Catalog, client)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	logger.Info("loaded catalog", zap.String("source", config.Catalog), zap.Int("count", pool.Len()))
	return pool, nil
}

// openStore opens the sqlite store when one is configured. The returned
// store is nil for in-memory sets.
func openStore(config *Config, logger *zap.Logger) (*store.DB, auxset.Store, error) {
	if strings.TrimSpace(config.DB) == "" {
		logger.Debug("keeping auxiliary sets in memory", zap.String("hint", "set --db or MATCHBOARD_DB to persist them"))
		return nil, nil, nil
	}

	db, err := store.Open(config.DB)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("opened set store", zap.String("path", config.DB))
	return db, db, nil
}

// parseCriteria turns key=value flags into criteria. Values of set
// categories are comma separated; text categories take the whole value.
func parseCriteria(cfg *engine.Config, args []string) (filtering.Criteria, error) {
	criteria := filtering.Criteria{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("criteria %q: expected key=value", arg)
		}

		cat, found := cfg.Filters.Find(key)
		if found && cat.Kind.Normalize() == predicate.KindTextMatch {
			criteria[cat.Name] = filtering.Selection{Query: strings.TrimSpace(value)}
			continue
		}
		if found {
			key = cat.Name
		}

		var values []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		criteria[key] = filtering.Selection{Values: values}
	}
	return criteria, nil
}

// mergeCriteria overlays flag criteria on top of configured ones.
func mergeCriteria(base, override filtering.Criteria) filtering.Criteria {
	out := make(filtering.Criteria, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// entityLabel renders one visible entity on a single line.
func entityLabel(e *catalog.Entity, score scoring.Score) string {
	parts := []string{e.ID}
	if e.Title != "" {
		parts = append(parts, e.Title)
	}
	if e.Organization != "" {
		parts = append(parts, e.Organization)
	}
	if len(e.Tags) > 0 {
		parts = append(parts, "["+strings.Join(e.Tags, ", ")+"]")
	}

	label := strings.Join(parts, " / ")
	if score.IsMatch {
		label += fmt.Sprintf(" (match %d)", score.MatchCount)
	}
	return label
}

// renderTable writes the visible list as a table, one row per entity in display order.
func renderTable(w io.Writer, list engine.VisibleList) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "ID", "Title", "Organization", "Tags", "Score", "Match")

	for i, e := range list.Items {
		score := list.Scores[i]
		match := ""
		if score.IsMatch {
			match = "yes"
		}
		row := []string{
			fmt.Sprintf("%d", i+1),
			e.ID,
			e.Title,
			e.Organization,
			strings.Join(e.Tags, ", "),
			fmt.Sprintf("%d", score.MatchCount),
			match,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}
