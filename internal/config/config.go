package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Data sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	Env           string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	DataSource    string `mapstructure:"DATA_SOURCE"`
	DataFile      string `mapstructure:"DATA_FILE"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	HistogramBins int    `mapstructure:"HISTOGRAM_BINS"`
	SampleSize    int    `mapstructure:"SAMPLE_SIZE"`
	CacheEntries  int    `mapstructure:"CACHE_ENTRIES"`
	TimeLayouts   string `mapstructure:"TIME_LAYOUTS"` // extra Go time layouts, ";"-separated
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8030")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_SOURCE", SourceCSV)
	v.SetDefault("DATA_FILE", "medical_appointment.csv")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("HISTOGRAM_BINS", 40)
	v.SetDefault("SAMPLE_SIZE", 10)
	v.SetDefault("CACHE_ENTRIES", 0)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "DATA_SOURCE", "DATA_FILE", "DATABASE_URL",
		"DB_MAX_CONNS", "DB_MIN_CONNS", "HISTOGRAM_BINS", "SAMPLE_SIZE", "CACHE_ENTRIES",
		"TIME_LAYOUTS",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.DataSource = strings.ToLower(strings.TrimSpace(cfg.DataSource))

	return cfg, nil
}

// Layouts splits TIME_LAYOUTS into individual layouts.
func (c *Config) Layouts() []string {
	var out []string
	for _, l := range strings.Split(c.TimeLayouts, ";") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the settings the chosen data source depends on.
func (c *Config) Validate() error {
	switch c.DataSource {
	case SourceCSV:
		if c.DataFile == "" {
			return fmt.Errorf("DATA_FILE is required when DATA_SOURCE is %q", SourceCSV)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATA_SOURCE is %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", SourceCSV, SourcePostgres, c.DataSource)
	}

	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool size: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.HistogramBins < 1 {
		return fmt.Errorf("HISTOGRAM_BINS must be positive, got %d", c.HistogramBins)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("SAMPLE_SIZE must not be negative, got %d", c.SampleSize)
	}
	if c.CacheEntries < 0 {
		return fmt.Errorf("CACHE_ENTRIES must not be negative, got %d", c.CacheEntries)
	}
	return nil
}
