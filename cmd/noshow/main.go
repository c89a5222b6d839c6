package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spektr-org/noshow/appointment"
	"github.com/spektr-org/noshow/engine"
	"github.com/spektr-org/noshow/helpers"
	"github.com/spektr-org/noshow/internal/config"
	"github.com/spektr-org/noshow/internal/platform/db"
	"github.com/spektr-org/noshow/internal/server"
	"github.com/spektr-org/noshow/internal/store"
)

// ============================================================================
// NOSHOW CLI — appointment no-show analytics
// ============================================================================

const version = "0.3.0"

// app carries what every subcommand needs once flags and env are resolved.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "noshow",
		Short:         "Appointment no-show analytics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("data-source", "", "Data source: csv or postgres (env DATA_SOURCE)")
	pf.String("data-file", "", "CSV file to load (env DATA_FILE)")
	pf.String("database-url", "", "Postgres connection string (env DATABASE_URL)")
	pf.String("log-level", "", "Log level (env LOG_LEVEL)")
	pf.Int("bins", 0, "Age histogram bins (env HISTOGRAM_BINS)")
	pf.Int("sample-size", -1, "Sampled records per query (env SAMPLE_SIZE)")
	pf.String("time-layouts", "", "Extra timestamp layouts, ;-separated (env TIME_LAYOUTS)")

	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(queryCmd(a))
	rootCmd.AddCommand(filtersCmd(a))
	rootCmd.AddCommand(importCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data-source") {
		v, _ := flags.GetString("data-source")
		cfg.DataSource = strings.ToLower(strings.TrimSpace(v))
	}
	if flags.Changed("data-file") {
		cfg.DataFile, _ = flags.GetString("data-file")
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL, _ = flags.GetString("database-url")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("bins") {
		cfg.HistogramBins, _ = flags.GetInt("bins")
	}
	if flags.Changed("sample-size") {
		cfg.SampleSize, _ = flags.GetInt("sample-size")
	}
	if flags.Changed("time-layouts") {
		cfg.TimeLayouts, _ = flags.GetString("time-layouts")
	}

	a.cfg = cfg
	a.logger = newLogger(cfg)
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// engineOptions maps config onto engine options.
func (a *app) engineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithHistogramBins(a.cfg.HistogramBins),
		engine.WithSampleSize(a.cfg.SampleSize),
		engine.WithLogger(a.logger),
	}
	if a.cfg.CacheEntries > 0 {
		opts = append(opts, engine.WithResultCache(a.cfg.CacheEntries))
	}
	return opts
}

// openPool connects when the data source is postgres; otherwise it returns nil.
func (a *app) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if a.cfg.DataSource != config.SourcePostgres {
		return nil, nil
	}
	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	a.logger.Info().Msg("connected to database")
	return pool, nil
}

// loader reads raw rows from the configured source and derives a dataset.
func (a *app) loader(pool *pgxpool.Pool) server.Loader {
	return func(ctx context.Context) (*appointment.Dataset, error) {
		var raw []appointment.RawRecord

		switch a.cfg.DataSource {
		case config.SourcePostgres:
			records, err := store.NewRepoPG(pool).LoadAll(ctx)
			if err != nil {
				return nil, err
			}
			raw = records
		default:
			records, stats, err := helpers.LoadFile(a.cfg.DataFile)
			if err != nil {
				return nil, err
			}
			evt := a.logger.Info()
			if stats.SkippedRows > 0 || len(stats.MissingColumns) > 0 {
				evt = a.logger.Warn()
			}
			evt.
				Str("file", a.cfg.DataFile).
				Int("rows", stats.Rows).
				Int("skipped", stats.SkippedRows).
				Strs("missing_columns", stats.MissingColumns).
				Msg("csv loaded")
			raw = records
		}

		ds := appointment.Derive(raw, appointment.WithTimeLayouts(a.cfg.Layouts()...))
		st := ds.Stats()
		a.logger.Info().
			Str("version", ds.Version().String()).
			Int("records", ds.Len()).
			Int("bad_appointment_day", st.BadAppointmentDay).
			Int("bad_scheduled_day", st.BadScheduledDay).
			Int("undefined_age_group", st.UndefinedAgeGroup).
			Int("unknown_outcome", st.UnknownOutcome).
			Msg("dataset derived")
		return ds, nil
	}
}

// loadDataset opens the source, derives once and releases the pool.
func (a *app) loadDataset(ctx context.Context) (*appointment.Dataset, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := a.openPool(ctx)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		defer pool.Close()
	}
	return a.loader(pool)(ctx)
}
