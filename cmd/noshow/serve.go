package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/spektr-org/noshow/internal/platform/db"
	"github.com/spektr-org/noshow/internal/platform/metrics"
	"github.com/spektr-org/noshow/internal/platform/middleware"
	"github.com/spektr-org/noshow/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port, _ = cmd.Flags().GetString("port")
			}
			return a.runServer()
		},
	}
	cmd.Flags().String("port", "", "Listen port (env PORT)")
	return cmd
}

func (a *app) runServer() error {
	logger := a.logger
	if err := a.cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := a.openPool(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if pool != nil {
		defer pool.Close()
	}

	load := a.loader(pool)
	ds, err := load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load dataset")
	}

	m := metrics.New()
	srv := server.New(ds, load, m, logger, a.engineOptions()...)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{
			middleware.RequestIDHeader, server.NoSelectionHeader,
		},
	}))

	srv.Register(e)
	if pool != nil {
		e.GET("/healthz/db", db.HealthHandler(pool))
	}

	go func() {
		addr := ":" + a.cfg.Port
		logger.Info().Str("addr", addr).Str("version", ds.Version().String()).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
