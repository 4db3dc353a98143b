package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/matchboard/internal/engine"
)

var surfacesCmd = &cobra.Command{
	Use:   "surfaces [name...]",
	Short: "Print the effective surface configuration",
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		surfaces(args, format)
	},
}

func init() {
	rootCmd.AddCommand(surfacesCmd)

	surfacesCmd.Flags().String("format", "yaml", "output format: yaml, json or toml")
}

func surfaces(names []string, format string) {
	logger, config := setup()

	registry, err := loadSurfaces(config)
	if err != nil {
		logger.Fatal("loading surfaces", zap.Error(err))
	}

	if len(names) == 0 {
		names = registry.Names()
	}

	out := make(map[string]*engine.Config, len(names))
	for _, name := range names {
		cfg, err := registry.Get(name)
		if err != nil {
			logger.Fatal("selecting surface", zap.Error(err), zap.Strings("available", registry.Names()))
		}
		out[cfg.Surface] = cfg
	}

	data, err := encodeSurfaces(out, format)
	if err != nil {
		logger.Fatal("encoding surfaces", zap.Error(err))
	}
	os.Stdout.Write(data)
}

// encodeSurfaces renders configs with their json field names in every format.
func encodeSurfaces(configs map[string]*engine.Config, format string) ([]byte, error) {
	raw, err := json.Marshal(configs)
	if err != nil {
		return nil, err
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	generic = dropNulls(generic).(map[string]any)

	switch format {
	case "json":
		data, err := json.MarshalIndent(generic, "", "  ")
		return append(data, '\n'), err
	case "yaml", "":
		return yaml.Marshal(generic)
	case "toml":
		return toml.Marshal(generic)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// dropNulls removes null values, which toml cannot represent.
func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			if item == nil {
				delete(t, k)
				continue
			}
			t[k] = dropNulls(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = dropNulls(item)
		}
		return t
	default:
		return v
	}
}
