package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/engine"
	"github.com/spigell/matchboard/internal/viewmode"
)

const (
	PromptShow          = "Show visible list"
	PromptMode          = "Change mode"
	PromptFilter        = "Set a filter"
	PromptClearFilters  = "Clear filters"
	PromptToggleSaved   = "Toggle saved"
	PromptToggleContact = "Toggle contacted"
	PromptReport        = "Report by field"
	PromptDescribe      = "Describe filters"
	PromptDumpToFile    = "Dump visible list to file"
	PromptExit          = "Exit"
	PromptBack          = "back"
	defaultReportField  = catalog.FieldTags
)

var errExit = errors.New("exit requested")

var browsePrompt = promptui.Select{
	Label: "What next?",
	Items: []string{
		PromptShow, PromptMode, PromptFilter, PromptClearFilters, PromptToggleSaved,
		PromptToggleContact, PromptReport, PromptDescribe, PromptDumpToFile, PromptExit,
	},
	Size: 10,
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse a surface interactively",
	Run: func(_ *cobra.Command, _ []string) {
		browse()
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func browse() {
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

	pool, err := loadPool(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading pool", zap.Error(err))
	}

	db, st, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening set store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	manager, err := auxset.Open(ctx, config.Viewer.ID, st, logger)
	if err != nil {
		logger.Fatal("loading auxiliary sets", zap.Error(err))
	}

	session := engine.NewSession(engine.New(cfg, logger, nil), manager,
		engine.WithPool(pool.Items),
		engine.WithViewer(config.Viewer.Skills),
		engine.WithOnChange(func(l engine.VisibleList) {
			logger.Debug("visible list changed", zap.String("mode", string(l.Mode)), zap.Int("count", l.Len()))
		}),
	)
	session.SetCriteria(config.Criteria)
	if config.Mode != "" {
		session.SelectMode(viewmode.Mode(config.Mode))
	}

	logger.Info("browsing", zap.String("surface", cfg.Surface), zap.Int("pool", pool.Len()), zap.String("mode", string(session.Mode())))

	for {
		_, action, err := browsePrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleBrowseAction(ctx, action, session, cfg, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Error("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

func handleBrowseAction(ctx context.Context, action string, session *engine.Session, cfg *engine.Config, logger *zap.Logger) error {
	switch action {
	case PromptShow:
		printList(session.Visible(), logger)
		return nil
	case PromptMode:
		return chooseMode(session, logger)
	case PromptFilter:
		return chooseFilter(session, cfg)
	case PromptClearFilters:
		list := session.SetCriteria(nil)
		logger.Info("filters cleared", zap.Int("count", list.Len()))
		return nil
	case PromptToggleSaved:
		return chooseToggle(ctx, session, auxset.Saved, logger)
	case PromptToggleContact:
		return chooseToggle(ctx, session, auxset.Contacted, logger)
	case PromptReport:
		field, err := (&promptui.Prompt{Label: "Field", Default: defaultReportField}).Run()
		if err != nil {
			return err
		}
		list := session.Visible()
		pretty, _ := json.MarshalIndent((&catalog.Pool{Items: list.Items}).ReportBy(field), "", "  ")
		logger.Info(string(pretty), zap.String("field", field), zap.Int("count", list.Len()))
		return nil
	case PromptDescribe:
		pretty, _ := json.MarshalIndent(session.Visible().Filters, "", "  ")
		logger.Info(string(pretty), zap.Any("criteria", session.Criteria()))
		return nil
	case PromptDumpToFile:
		filename, err := (&catalog.Pool{Items: session.Visible().Items}).DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func chooseMode(session *engine.Session, logger *zap.Logger) error {
	modes := session.Modes()
	items := make([]string, 0, len(modes)+1)
	for _, m := range modes {
		items = append(items, string(m))
	}

	_, selected, err := (&promptui.Select{Label: fmt.Sprintf("Mode (current: %s)", session.Mode()), Items: append(items, PromptBack)}).Run()
	if err != nil || selected == PromptBack {
		return err
	}

	list := session.SelectMode(viewmode.Mode(selected))
	logger.Info("mode selected", zap.String("mode", string(list.Mode)), zap.Int("count", list.Len()))
	return nil
}

func chooseFilter(session *engine.Session, cfg *engine.Config) error {
	items := make([]string, 0, len(cfg.Filters.Categories)+1)
	for _, c := range cfg.Filters.Categories {
		items = append(items, c.Name)
	}

	_, category, err := (&promptui.Select{Label: "Category", Items: append(items, PromptBack)}).Run()
	if err != nil || category == PromptBack {
		return err
	}

	value, err := (&promptui.Prompt{Label: "Value (comma separated; empty clears)"}).Run()
	if err != nil {
		return err
	}

	criteria, err := parseCriteria(cfg, []string{category + "=" + value})
	if err != nil {
		return err
	}
	session.Select(category, criteria[category])
	return nil
}

func chooseToggle(ctx context.Context, session *engine.Session, name auxset.Name, logger *zap.Logger) error {
	list := session.Visible()
	set, err := session.Sets().Get(name)
	if err != nil {
		return err
	}

	items := make([]string, 0, list.Len()+1)
	for i, e := range list.Items {
		marker := " "
		if set.Has(e.ID) {
			marker = "*"
		}
		items = append(items, marker+" "+entityLabel(e, list.Scores[i]))
	}

	idx, selected, err := (&promptui.Select{Label: "Choose an entity and press ENTER", Items: append(items, PromptBack)}).Run()
	if err != nil || selected == PromptBack {
		return err
	}

	id := list.Items[idx].ID
	next, err := session.Toggle(ctx, name, id)
	if err != nil {
		return err
	}

	updated, _ := session.Sets().Get(name)
	logger.Info("toggled",
		zap.String("set", string(name)),
		zap.String("entity_id", id),
		zap.Bool("member", updated.Has(id)),
		zap.Int("visible", next.Len()),
	)
	return nil
}
