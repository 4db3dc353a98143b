package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/engine"
	"github.com/spigell/matchboard/internal/observability"
	"github.com/spigell/matchboard/internal/surface"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Surfaces *surface.Registry
	// Sets serves persisted auxiliary sets. Defaults to an in-memory registry.
	Sets *auxset.Registry
	// Pool is used by compute requests that carry no pool of their own.
	Pool *catalog.Pool
	// Token enables bearer authentication on /v1 when set.
	Token    string
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
}

// Server exposes the ranking engine over HTTP.
type Server struct {
	surfaces *surface.Registry
	engines  map[string]*engine.Engine
	sets     *auxset.Registry
	pool     *catalog.Pool
	token    string
	logger   *zap.Logger
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	surfaces := opts.Surfaces
	if surfaces == nil {
		// Presets are always valid.
		surfaces, _ = surface.NewRegistry(nil)
	}

	sets := opts.Sets
	if sets == nil {
		sets = auxset.NewRegistry(nil, log, 0)
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	engines := make(map[string]*engine.Engine)
	for _, name := range surfaces.Names() {
		cfg, _ := surfaces.Get(name)
		engines[name] = engine.New(cfg, log, opts.Metrics)
	}

	return &Server{
		surfaces: surfaces,
		engines:  engines,
		sets:     sets,
		pool:     opts.Pool,
		token:    opts.Token,
		logger:   log,
		metrics:  opts.Metrics,
		gatherer: gatherer,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.observe())
	s.SetupRoutes(router)
	return router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
