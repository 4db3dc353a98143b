package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/matchboard/internal/filtering"
)

const (
	app = "matchboard"
)

type Config struct {
	// Catalog is a pool file (json, yaml, toml) or an http(s) catalog listing.
	Catalog          string        `mapstructure:"catalog"`
	CatalogTokenFile string        `mapstructure:"catalog-token-file"`
	PageDelay        time.Duration `mapstructure:"page-delay"`
	UserAgent        string        `mapstructure:"user-agent"`
	// DB is the sqlite file holding saved and contacted sets. Empty keeps them in memory.
	DB       string             `mapstructure:"db"`
	Surface  string             `mapstructure:"surface"`
	Mode     string             `mapstructure:"mode"`
	Viewer   *ViewerConfig      `mapstructure:"viewer"`
	Criteria filtering.Criteria `mapstructure:"criteria"`
	Server   *ServerConfig      `mapstructure:"server"`
	Surfaces map[string]any     `mapstructure:"surfaces"`
}

type ViewerConfig struct {
	ID     string   `mapstructure:"id"`
	Skills []string `mapstructure:"skills"`
}

type ServerConfig struct {
	Listen    string `mapstructure:"listen"`
	TokenFile string `mapstructure:"token-file"`
}

var (
	// Used for flags.
	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "matchboard filters and ranks opportunities and candidates for a discovery marketplace",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"server.token-file":  "MATCHBOARD_TOKEN_FILE",
		"db":                 "MATCHBOARD_DB",
		"catalog":            "MATCHBOARD_CATALOG",
		"catalog-token-file": "MATCHBOARD_CATALOG_TOKEN_FILE",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("surface", "opportunities")
	viper.SetDefault("server.listen", ":8080")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is matchboard.yaml in current directory)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("catalog", "c", "", "catalog file or http(s) listing")
	rootCmd.PersistentFlags().StringP("surface", "s", "", "discovery surface (opportunities, candidates)")
	rootCmd.PersistentFlags().String("db", "", "sqlite file for saved and contacted sets")
	rootCmd.PersistentFlags().StringP("mode", "m", "", "view mode (recommended, saved, contacted, trending, recent, network, best-match)")
	rootCmd.PersistentFlags().StringSlice("viewer", nil, "viewer skills used for relevance")
	rootCmd.PersistentFlags().String("viewer-id", "", "viewer whose saved and contacted sets are used")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("surface", rootCmd.PersistentFlags().Lookup("surface"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	viper.BindPFlag("viewer.skills", rootCmd.PersistentFlags().Lookup("viewer"))
	viper.BindPFlag("viewer.id", rootCmd.PersistentFlags().Lookup("viewer-id"))
}

func initConfig() {
	// Environment from a dotenv file never overrides variables already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading %s: %v", envFile, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config a missing file is fine: flags and env are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Viewer == nil {
		config.Viewer = &ViewerConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
