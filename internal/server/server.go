package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/spektr-org/noshow/appointment"
	"github.com/spektr-org/noshow/engine"
	"github.com/spektr-org/noshow/internal/platform/metrics"
	"github.com/spektr-org/noshow/schema"
)

// Loader reads and derives the dataset from the configured source.
type Loader func(ctx context.Context) (*appointment.Dataset, error)

// snapshot pairs an engine with the schema of the same dataset so a request
// never mixes two versions.
type snapshot struct {
	engine *engine.Engine
	schema schema.Config
}

// Server serves dashboard queries over the current dataset. Reload swaps
// the dataset without blocking in-flight queries.
type Server struct {
	current atomic.Pointer[snapshot]
	load    Loader
	opts    []engine.Option
	metrics *metrics.Metrics
	logger  zerolog.Logger

	reloadMu sync.Mutex
}

// New serves ds and uses load for later reloads. opts are applied to every
// engine the server builds, after the server's own observer.
func New(ds *appointment.Dataset, load Loader, m *metrics.Metrics, logger zerolog.Logger, opts ...engine.Option) *Server {
	s := &Server{
		load:    load,
		metrics: m,
		logger:  logger,
		opts: append([]engine.Option{
			engine.WithLogger(logger),
			engine.WithObserver(m.Observe),
		}, opts...),
	}
	s.swap(ds)
	return s
}

func (s *Server) swap(ds *appointment.Dataset) {
	s.current.Store(&snapshot{
		engine: engine.New(ds, s.opts...),
		schema: schema.FromDataset(ds),
	})
	s.metrics.SetDatasetRecords(ds.Len())
}

func (s *Server) snapshot() *snapshot { return s.current.Load() }

// Reload re-derives the dataset. Concurrent reloads are serialized.
func (s *Server) Reload(ctx context.Context) (*appointment.Dataset, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ds, err := s.load(ctx)
	s.metrics.Reloaded(err)
	if err != nil {
		return nil, fmt.Errorf("reload dataset: %w", err)
	}
	s.swap(ds)

	s.logger.Info().
		Str("version", ds.Version().String()).
		Int("records", ds.Len()).
		Msg("dataset reloaded")
	return ds, nil
}

// Register mounts all routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.Health)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	v1 := e.Group("/api/v1")
	v1.GET("/filters", s.Filters)
	v1.GET("/dashboard", s.Dashboard)
	v1.POST("/dashboard", s.DashboardPost)
	v1.GET("/dashboard/view", s.DashboardView)
	v1.POST("/dataset/reload", s.ReloadDataset)
}
