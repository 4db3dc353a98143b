package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/observability"
	"github.com/spigell/matchboard/internal/secrets"
	"github.com/spigell/matchboard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking engine over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	logger.Info("starting the matchboard server", zap.String("version", version))

	registry, err := loadSurfaces(config)
	if err != nil {
		logger.Fatal("loading surfaces", zap.Error(err))
	}

	token, err := secrets.Load(secrets.Source{
		Name:     "api token",
		File:     config.Server.TokenFile,
		Optional: true,
	})
	if err != nil {
		logger.Fatal(
			"loading api token",
			zap.Error(err),
			zap.String("hint", "set MATCHBOARD_TOKEN_FILE environment variable or the 'server.token-file' key in the configuration file"),
		)
	}
	if token == "" {
		logger.Warn("serving /v1 without authentication")
	}

	db, st, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening set store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		if err := db.Health(ctx); err != nil {
			logger.Fatal("checking set store", zap.Error(err))
		}
	}

	var pool *catalog.Pool
	if config.Catalog != "" {
		pool, err = loadPool(ctx, config, logger)
		if err != nil {
			logger.Fatal("loading pool", zap.Error(err))
		}
	}

	srv := server.New(server.Options{
		Surfaces: registry,
		Sets:     auxset.NewRegistry(st, logger, 0),
		Pool:     pool,
		Token:    token,
		Logger:   logger,
		Metrics:  observability.New(nil),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, config.Server.Listen)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown requested")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("exiting", zap.String("reason", "server stopped"))
}
