package engine

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spektr-org/noshow/appointment"
)

// ============================================================================
// NOSHOW ENGINE TYPES
// ============================================================================
// FilterState  — the three selections driving a query (immutable value)
// ResultBundle — everything one query produces: metrics, six aggregates, sample
// Group        — intermediate grouping result (zero-copy sub-views)
// ChartConfig / TableData / MetricCard — render-ready output of the builders
// ============================================================================

// ErrNoSelection is returned by Query when any selection is empty.
// The caller must leave previously displayed results untouched.
var ErrNoSelection = errors.New("engine: no valid filter selection")

// Dimension and measure keys exposed by the appointment view.
const (
	DimPatient     = "patient_id"
	DimGender      = "gender"
	DimAgeGroup    = "age_group"
	DimMonth       = "appointment_month"
	DimWeekday     = "day_of_week"
	DimOutcome     = "no_show"
	DimScholarship = "scholarship"

	MeasureAge         = "age"
	MeasureWaitingDays = "waiting_days"
	MeasureNoShow      = "no_show_numeric"
)

// ============================================================================
// FILTERS
// ============================================================================

// Filters restrict a view by dimension values.
// OR within a dimension, AND across dimensions. A dimension that is absent
// does not restrict; a dimension present with no values matches nothing.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions"`
}

// FilterState is the tuple of selected genders, age groups and months.
// Build it with NewFilterState; the zero value selects nothing.
type FilterState struct {
	genders   []string
	ageGroups []string
	months    []string
}

// NewFilterState normalizes the three selections: values are trimmed,
// blanks and unknown genders dropped, duplicates removed, sets sorted.
func NewFilterState(genders []appointment.Gender, ageGroups, months []string) FilterState {
	g := make([]string, 0, len(genders))
	for _, v := range genders {
		if parsed := appointment.ParseGender(string(v)); parsed.Valid() {
			g = append(g, string(parsed))
		}
	}
	return FilterState{
		genders:   normalizeSet(g),
		ageGroups: normalizeSet(ageGroups),
		months:    normalizeSet(months),
	}
}

func normalizeSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Genders returns the selected genders, sorted.
func (f FilterState) Genders() []appointment.Gender {
	out := make([]appointment.Gender, len(f.genders))
	for i, g := range f.genders {
		out[i] = appointment.Gender(g)
	}
	return out
}

// AgeGroups returns the selected age group labels, sorted.
func (f FilterState) AgeGroups() []string { return append([]string(nil), f.ageGroups...) }

// Months returns the selected month buckets, sorted.
func (f FilterState) Months() []string { return append([]string(nil), f.months...) }

// Incomplete reports whether any of the three selections is empty.
func (f FilterState) Incomplete() bool {
	return len(f.genders) == 0 || len(f.ageGroups) == 0 || len(f.months) == 0
}

// Key is a canonical string form; equal selections produce equal keys.
func (f FilterState) Key() string {
	return "g=" + strings.Join(f.genders, ",") +
		"|a=" + strings.Join(f.ageGroups, ",") +
		"|m=" + strings.Join(f.months, ",")
}

// Filters converts the state into dimension filters for ApplyFilters.
func (f FilterState) Filters() Filters {
	return Filters{Dimensions: map[string][]string{
		DimGender:   f.genders,
		DimAgeGroup: f.ageGroups,
		DimMonth:    f.months,
	}}
}

type filterStateJSON struct {
	Genders   []string `json:"genders"`
	AgeGroups []string `json:"age_groups"`
	Months    []string `json:"months"`
}

// MarshalJSON encodes the three selections.
func (f FilterState) MarshalJSON() ([]byte, error) {
	return json.Marshal(filterStateJSON{
		Genders:   nonNil(f.genders),
		AgeGroups: nonNil(f.ageGroups),
		Months:    nonNil(f.months),
	})
}

// UnmarshalJSON decodes and normalizes the three selections.
func (f *FilterState) UnmarshalJSON(data []byte) error {
	var raw filterStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	genders := make([]appointment.Gender, len(raw.Genders))
	for i, g := range raw.Genders {
		genders[i] = appointment.Gender(g)
	}
	*f = NewFilterState(genders, raw.AgeGroups, raw.Months)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ============================================================================
// RESULT BUNDLE
// ============================================================================

// ResultBundle is the full output of one query. Slices may be shared with
// the engine's result cache; treat them as read-only.
type ResultBundle struct {
	DatasetVersion uuid.UUID   `json:"dataset_version"`
	Filters        FilterState `json:"filters"`
	Metrics        Metrics     `json:"metrics"`

	ByMonth       []MonthRow         `json:"by_month"`
	AgeHistogram  AgeHistogram       `json:"age_histogram"`
	Outcomes      OutcomeProportions `json:"outcomes"`
	ByWeekday     []WeekdayRow       `json:"by_weekday"`
	WaitingDays   []BoxSummary       `json:"waiting_days"`
	ByScholarship []ScholarshipRow   `json:"by_scholarship"`

	Sample []appointment.Appointment `json:"sample"`
}

// Metrics are the four headline numbers.
type Metrics struct {
	UniquePatients    int     `json:"unique_patients"`
	TotalAppointments int     `json:"total_appointments"`
	TotalNoShows      int     `json:"total_no_shows"`
	NoShowRate        float64 `json:"no_show_rate"` // fraction in [0,1]
}

// OutcomeCounts holds one count per outcome. Both are always present.
type OutcomeCounts struct {
	Attended int `json:"attended"`
	NoShow   int `json:"no_show"`
}

// Total is attended + no-show.
func (c OutcomeCounts) Total() int { return c.Attended + c.NoShow }

func (c *OutcomeCounts) set(outcome string, n int) {
	if outcome == appointment.OutcomeNoShow.Label() {
		c.NoShow = n
	} else {
		c.Attended = n
	}
}

// MonthRow is one row of the month × outcome table.
type MonthRow struct {
	Month string `json:"month"`
	OutcomeCounts
}

// WeekdayRow is one row of the weekday × outcome grid.
type WeekdayRow struct {
	Day string `json:"day"`
	OutcomeCounts
}

// ScholarshipRow is one row of the scholarship × outcome table.
type ScholarshipRow struct {
	Scholarship bool `json:"scholarship"`
	OutcomeCounts
}

// HistogramBin covers [Lower, Upper); the last bin also includes Upper.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	OutcomeCounts
}

// AgeHistogram is the binned age distribution with outcome overlay,
// plus the per-outcome box summary drawn in the margin.
type AgeHistogram struct {
	Min      float64        `json:"min"`
	Max      float64        `json:"max"`
	BinWidth float64        `json:"bin_width"`
	Bins     []HistogramBin `json:"bins"`
	Marginal []BoxSummary   `json:"marginal"`
}

// OutcomeShare is one slice of the outcome split.
type OutcomeShare struct {
	Outcome  appointment.Outcome `json:"outcome"`
	Label    string              `json:"label"`
	Count    int                 `json:"count"`
	Fraction float64             `json:"fraction"`
}

// OutcomeProportions is the two-way split. Fractions sum to 1, or are both 0.
type OutcomeProportions struct {
	NoShow   OutcomeShare `json:"no_show"`
	Attended OutcomeShare `json:"attended"`
}

// BoxSummary is enough to redraw a box plot of one outcome's values.
// With Count == 0 every statistic is 0.
type BoxSummary struct {
	Outcome      appointment.Outcome `json:"outcome"`
	Count        int                 `json:"count"`
	Min          float64             `json:"min"`
	Q1           float64             `json:"q1"`
	Median       float64             `json:"median"`
	Q3           float64             `json:"q3"`
	Max          float64             `json:"max"`
	Mean         float64             `json:"mean"`
	LowerWhisker float64             `json:"lower_whisker"`
	UpperWhisker float64             `json:"upper_whisker"`
	Outliers     int                 `json:"outliers"`
}

// ============================================================================
// QUERY EVENTS
// ============================================================================

// QueryOutcome classifies how a query was answered.
type QueryOutcome string

const (
	QueryComputed    QueryOutcome = "computed"
	QueryNoSelection QueryOutcome = "no_selection"
	QueryCacheHit    QueryOutcome = "cache_hit"
)

// QueryEvent is reported to the observer after every query.
type QueryEvent struct {
	Outcome  QueryOutcome
	Matched  int // filtered record count; 0 for no_selection
	Duration time.Duration
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"` // Sub-view for records in this group (zero-copy)
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ID         string        `json:"id"`
	ChartType  string        `json:"chartType"` // "bar", "histogram", "pie", "heatmap", "box"
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	BarMode    string        `json:"barMode,omitempty"`
	Hole       float64       `json:"hole,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	Boxes      []BoxSummary  `json:"boxes,omitempty"` // box plots and marginal boxes
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "date", "bool"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// TEXT TYPES
// ============================================================================

// MetricCard is one headline number ready for display.
type MetricCard struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Value    string  `json:"value"`
	RawValue float64 `json:"rawValue"`
	Color    string  `json:"color,omitempty"`
}

// DashboardView is the render-ready form of a ResultBundle.
type DashboardView struct {
	Period string        `json:"period"`
	Cards  []MetricCard  `json:"cards"`
	Charts []ChartConfig `json:"charts"`
	Table  *TableData    `json:"table"`
}
