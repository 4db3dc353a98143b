package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/engine"
	"github.com/spigell/matchboard/internal/logger"
	"github.com/spigell/matchboard/internal/viewmode"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Compute the visible list once and print it",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringArrayP("criteria", "f", nil, "filter as category=value[,value]; repeatable")
	rankCmd.Flags().StringSlice("saved", nil, "saved entity ids; overrides stored sets")
	rankCmd.Flags().StringSlice("contacted", nil, "contacted entity ids; overrides stored sets")
	rankCmd.Flags().String("report", "", "group the visible list by this field")
	rankCmd.Flags().Bool("dump", false, "dump the visible list to a temporary json file")
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	registry, err := loadSurfaces(config)
	if err != nil {
		logger.Fatal("loading surfaces", zap.Error(err))
	}

	cfg, err := registry.Get(config.Surface)
	if err != nil {
		logger.Fatal("selecting surface", zap.Error(err), zap.Strings("available", registry.Names()))
	}

	flagCriteria, _ := cmd.Flags().GetStringArray("criteria")
	override, err := parseCriteria(cfg, flagCriteria)
	if err != nil {
		logger.Fatal("parsing criteria", zap.Error(err))
	}

	pool, err := loadPool(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading pool", zap.Error(err))
	}

	sets, err := rankSets(ctx, cmd, config, logger)
	if err != nil {
		logger.Fatal("loading auxiliary sets", zap.Error(err))
	}

	list := engine.New(cfg, logger, nil).Compute(engine.Input{
		Pool:     pool.Items,
		Criteria: mergeCriteria(config.Criteria, override),
		Viewer:   config.Viewer.Skills,
		Mode:     viewmode.Mode(config.Mode),
		Sets:     sets,
	})

	printList(list, logger)

	if field, _ := cmd.Flags().GetString("report"); field != "" {
		visible := &catalog.Pool{Items: list.Items}
		pretty, _ := json.MarshalIndent(visible.ReportBy(field), "", "  ")
		logger.Info(string(pretty), zap.String("field", field), zap.Int("count", list.Len()))
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := (&catalog.Pool{Items: list.Items}).DumpToTmpFile()
		if err != nil {
			logger.Fatal("dumping visible list", zap.Error(err))
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
	}
}

// rankSets prefers explicit ids from flags and falls back to the viewer's stored sets.
func rankSets(ctx context.Context, cmd *cobra.Command, config *Config, log *zap.Logger) (auxset.Sets, error) {
	saved, _ := cmd.Flags().GetStringSlice("saved")
	contacted, _ := cmd.Flags().GetStringSlice("contacted")
	if len(saved) > 0 || len(contacted) > 0 || config.Viewer.ID == "" {
		return auxset.Sets{Saved: auxset.New(saved...), Contacted: auxset.New(contacted...)}, nil
	}

	db, st, err := openStore(config, log)
	if err != nil {
		return auxset.Sets{}, err
	}
	if db == nil {
		return auxset.Sets{}, nil
	}
	defer db.Close()

	m, err := auxset.Open(ctx, config.Viewer.ID, st, log)
	if err != nil {
		return auxset.Sets{}, err
	}
	return m.Snapshot(), nil
}

func printList(list engine.VisibleList, log *zap.Logger) {
	log = logger.WithCommonFields(log, list.Surface, string(list.Mode))
	log.Info("visible list", zap.Int("count", list.Len()))

	for _, step := range list.Steps {
		log.Info("filter step",
			zap.String("name", step.Name),
			zap.Int("initial", step.Initial),
			zap.Int("dropped", step.Dropped),
			zap.Int("left", step.Left),
		)
	}

	if list.Len() == 0 {
		return
	}
	if err := renderTable(os.Stdout, list); err != nil {
		log.Error("rendering visible list", zap.Error(err))
	}
}
