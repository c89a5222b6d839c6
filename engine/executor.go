package engine

import (
	"sync"
	"time"

	"github.com/spektr-org/noshow/appointment"
)

// ============================================================================
// EXECUTOR — Query stage
// ============================================================================
// Entry point: Engine.Query(state) (or the one-shot Execute)
//
// Pipeline:
//   1. Guard: any empty selection → ErrNoSelection, nothing else happens
//   2. Apply the three membership filters → SubView
//   3. Metrics + six aggregates over the filtered view
//   4. Random sample of filtered records
//   5. Return ResultBundle
//
// The dataset is read-only. The only mutable state is the sampling RNG and
// the optional result cache, both guarded.
// ============================================================================

// Engine answers filter queries against one immutable dataset.
// Safe for concurrent use.
type Engine struct {
	ds    *appointment.Dataset
	view  RecordView
	cfg   *config
	cache *resultCache

	mu sync.Mutex // guards cfg.Rand
}

// New binds an engine to a derived dataset.
//
// Options:
//   - WithHistogramBins(n), WithHistogramRange(min, max) — age histogram shape
//   - WithSampleSize(n), WithRand(r), WithSeed(s) — sampling
//   - WithWeekdayOrder(days...) — weekday grid row order
//   - WithResultCache(n) — LRU of computed bundles
//   - WithLogger(l), WithObserver(fn) — tracing
//   - WithPalette(p) — builder colours
func New(ds *appointment.Dataset, opts ...Option) *Engine {
	cfg := applyOptions(opts)
	return &Engine{
		ds:    ds,
		view:  BindDataset(ds),
		cfg:   cfg,
		cache: newResultCache(cfg.CacheEntries),
	}
}

// Execute is the one-shot form of New(ds, opts...).Query(state).
func Execute(ds *appointment.Dataset, state FilterState, opts ...Option) (*ResultBundle, error) {
	return New(ds, opts...).Query(state)
}

// Dataset returns the dataset the engine was built on.
func (e *Engine) Dataset() *appointment.Dataset { return e.ds }

// Palette returns the configured colours.
func (e *Engine) Palette() Palette { return e.cfg.Palette }

// OnFilterChange is invoked by the host whenever a selection changes.
// It behaves exactly like Query.
func (e *Engine) OnFilterChange(state FilterState) (*ResultBundle, error) {
	return e.Query(state)
}

// Query computes the result bundle for a filter selection.
// It returns ErrNoSelection, and no bundle, when any selection is empty.
func (e *Engine) Query(state FilterState) (*ResultBundle, error) {
	start := time.Now()
	log := e.cfg.Logger

	if state.Incomplete() {
		log.Debug().Str("filters", state.Key()).Msg("noshow: empty selection, no update")
		e.observe(QueryNoSelection, 0, start)
		return nil, ErrNoSelection
	}

	key := e.ds.Version().String() + "|" + state.Key()
	if e.cache != nil {
		if hit, ok := e.cache.Get(key); ok {
			bundle := hit.bundle
			bundle.Sample = e.sample(hit.filtered)
			log.Debug().Str("filters", state.Key()).Int("matched", hit.filtered.Len()).Msg("noshow: cache hit")
			e.observe(QueryCacheHit, hit.filtered.Len(), start)
			return &bundle, nil
		}
	}

	filtered := ApplyFilters(e.view, state.Filters())
	log.Debug().
		Int("records", e.view.Len()).
		Int("matched", filtered.Len()).
		Str("filters", state.Key()).
		Msg("noshow: processing query")

	bundle := e.compute(state, filtered)
	if e.cache != nil {
		e.cache.Set(key, cachedResult{bundle: bundle, filtered: filtered})
	}
	bundle.Sample = e.sample(filtered)

	e.observe(QueryComputed, filtered.Len(), start)
	return &bundle, nil
}

func (e *Engine) compute(state FilterState, filtered RecordView) ResultBundle {
	hist := Histogram(filtered, MeasureAge, e.cfg.HistogramBins, e.cfg.HistogramRange)
	hist.Marginal = BoxByOutcome(filtered, MeasureAge)

	return ResultBundle{
		DatasetVersion: e.ds.Version(),
		Filters:        state,
		Metrics:        ComputeMetrics(filtered),
		ByMonth:        MonthOutcomeCounts(filtered),
		AgeHistogram:   hist,
		Outcomes:       Proportions(filtered),
		ByWeekday:      WeekdayOutcomeCounts(filtered, e.cfg.WeekdayOrder),
		WaitingDays:    BoxByOutcome(filtered, MeasureWaitingDays),
		ByScholarship:  ScholarshipOutcomeCounts(filtered),
	}
}

// sample draws up to SampleSize records uniformly without replacement
// using a partial Fisher–Yates shuffle over view positions.
func (e *Engine) sample(view RecordView) []appointment.Appointment {
	n := view.Len()
	k := e.cfg.SampleSize
	if n < k {
		k = n
	}
	out := make([]appointment.Appointment, 0, k)
	if k == 0 {
		return out
	}

	swapped := make(map[int]int, k)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < k; i++ {
		j := i + e.cfg.Rand.IntN(n-i)
		picked := at(j)
		swapped[j] = at(i)
		out = append(out, *e.ds.At(view.Row(picked)))
	}
	return out
}

func (e *Engine) observe(outcome QueryOutcome, matched int, start time.Time) {
	if e.cfg.Observer == nil {
		return
	}
	e.cfg.Observer(QueryEvent{Outcome: outcome, Matched: matched, Duration: time.Since(start)})
}

// View renders a bundle into cards, charts and the sample table.
func (e *Engine) View(bundle *ResultBundle) DashboardView {
	return BuildDashboardView(bundle, e.cfg.Palette)
}
