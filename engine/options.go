package engine

import (
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for New() / Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	HistogramBins  int
	HistogramRange *[2]float64 // nil = min..max of the filtered ages
	SampleSize     int
	WeekdayOrder   []time.Weekday
	Rand           *rand.Rand
	Logger         zerolog.Logger
	CacheEntries   int // 0 disables the result cache
	Palette        Palette
	Observer       func(QueryEvent)
}

// DefaultHistogramBins is the age histogram bin count when none is configured.
const DefaultHistogramBins = 40

// DefaultSampleSize bounds the sample of raw records in every bundle.
const DefaultSampleSize = 10

// CalendarWeek is Monday→Sunday.
var CalendarWeek = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// WithHistogramBins sets the number of equal-width age bins. Values < 1 are ignored.
func WithHistogramBins(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.HistogramBins = n
		}
	}
}

// WithHistogramRange fixes the histogram range instead of using the
// filtered min..max. Ignored unless max > min.
func WithHistogramRange(min, max float64) Option {
	return func(c *config) {
		if max > min {
			c.HistogramRange = &[2]float64{min, max}
		}
	}
}

// WithSampleSize sets the maximum number of sampled records. 0 disables sampling.
func WithSampleSize(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.SampleSize = n
		}
	}
}

// WithWeekdayOrder sets the row order of the weekday grid.
// The order must name each of the seven weekdays exactly once; anything else is ignored.
func WithWeekdayOrder(order ...time.Weekday) Option {
	return func(c *config) {
		if isWeekPermutation(order) {
			c.WeekdayOrder = append([]time.Weekday(nil), order...)
		}
	}
}

// WithRand sets the random source used for sampling.
func WithRand(r *rand.Rand) Option {
	return func(c *config) {
		if r != nil {
			c.Rand = r
		}
	}
}

// WithSeed makes sampling reproducible.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.Rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithLogger sets the logger for per-query debug traces.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.Logger = l
	}
}

// WithResultCache enables an LRU cache of up to n computed bundles,
// keyed by dataset version and filter selection.
func WithResultCache(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.CacheEntries = n
		}
	}
}

// WithPalette sets the colours used by the chart and card builders.
func WithPalette(p Palette) Option {
	return func(c *config) {
		c.Palette = p
	}
}

// WithObserver registers a callback invoked after every query.
func WithObserver(fn func(QueryEvent)) Option {
	return func(c *config) {
		c.Observer = fn
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		HistogramBins: DefaultHistogramBins,
		SampleSize:    DefaultSampleSize,
		WeekdayOrder:  CalendarWeek,
		Logger:        zerolog.Nop(),
		Palette:       DefaultPalette,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return cfg
}

func isWeekPermutation(order []time.Weekday) bool {
	if len(order) != 7 {
		return false
	}
	var seen [7]bool
	for _, d := range order {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

// ============================================================================
// PALETTE
// ============================================================================

// Palette holds the dashboard colours.
type Palette struct {
	Background string `json:"background"`
	Text       string `json:"text"`
	Card       string `json:"card"`
	Primary    string `json:"primary"`
	Success    string `json:"success"`
	Danger     string `json:"danger"`
	Warning    string `json:"warning"`
	Info       string `json:"info"`
}

// DefaultPalette is the dashboard's light theme.
var DefaultPalette = Palette{
	Background: "#f8f9fa",
	Text:       "#343a40",
	Card:       "#ffffff",
	Primary:    "#4e73df",
	Success:    "#1cc88a",
	Danger:     "#e74a3b",
	Warning:    "#f6c23e",
	Info:       "#36b9cc",
}

// OutcomeColor is success for attended and danger for no-show.
func (p Palette) OutcomeColor(noShow bool) string {
	if noShow {
		return p.Danger
	}
	return p.Success
}
