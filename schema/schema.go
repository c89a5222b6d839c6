package schema

import (
	"strings"
	"time"

	"github.com/spektr-org/noshow/appointment"
	"github.com/spektr-org/noshow/engine"
)

// ============================================================================
// SCHEMA — Describes the shape of a derived appointment dataset
// ============================================================================
// Built from a Dataset once per load. Front-ends use it to populate the three
// filter controls (gender, age group, month) and to label axes and columns.
// ============================================================================

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions"`
	Measures   []MeasureMeta   `json:"measures"`

	Records      int                     `json:"records"`
	Anomalies    appointment.DeriveStats `json:"anomalies"`
	DiscoveredAt string                  `json:"discoveredAt,omitempty"`
}

// DimensionMeta describes a string field used for grouping/filtering.
type DimensionMeta struct {
	Key             string   `json:"key"`
	DisplayName     string   `json:"displayName"`
	Description     string   `json:"description,omitempty"`
	Values          []string `json:"values"` // observed values in display order
	Groupable       bool     `json:"groupable"`
	Filterable      bool     `json:"filterable"`
	IsTemporal      bool     `json:"isTemporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty"`
	TemporalOrder   string   `json:"temporalOrder,omitempty"` // "chronological" or "reverse"
	CardinalityHint string   `json:"cardinalityHint,omitempty"`
	DerivedFrom     string   `json:"derivedFrom,omitempty"` // source column of a derived dimension

	Buckets appointment.AgeBuckets `json:"buckets,omitempty"` // ranges behind a bucketed dimension
}

// MeasureMeta describes a numeric field.
type MeasureMeta struct {
	Key          string   `json:"key"`
	DisplayName  string   `json:"displayName"`
	Description  string   `json:"description,omitempty"`
	Unit         string   `json:"unit,omitempty"` // "years", "days", "percent"
	IsSynthetic  bool     `json:"isSynthetic,omitempty"`
	Aggregations []string `json:"aggregations,omitempty"`
	Format       string   `json:"format,omitempty"`
}

// DefaultDimension creates a DimensionMeta with sensible defaults.
func DefaultDimension(key, displayName string, values []string) DimensionMeta {
	if values == nil {
		values = []string{}
	}
	return DimensionMeta{
		Key:             key,
		DisplayName:     displayName,
		Values:          values,
		Groupable:       true,
		Filterable:      false,
		CardinalityHint: cardinalityHint(len(values)),
	}
}

// DefaultMeasure creates a MeasureMeta with sensible defaults.
func DefaultMeasure(key, displayName, unit string) MeasureMeta {
	return MeasureMeta{
		Key:          key,
		DisplayName:  displayName,
		Unit:         unit,
		Aggregations: []string{"min", "q1", "median", "q3", "max", "mean"},
	}
}

// FromDataset describes ds. Filterable dimensions list the values observed
// in the data: genders sorted, age groups in partition order, months ascending.
func FromDataset(ds *appointment.Dataset) Config {
	genders := make([]string, 0, 2)
	for _, g := range ds.Genders() {
		genders = append(genders, string(g))
	}
	weekdays := make([]string, len(engine.CalendarWeek))
	for i, d := range engine.CalendarWeek {
		weekdays[i] = d.String()
	}

	gender := DefaultDimension(engine.DimGender, "Gender", genders)
	gender.Filterable = true

	ageGroup := DefaultDimension(engine.DimAgeGroup, "Age Group", ds.ObservedAgeGroups())
	ageGroup.Filterable = true
	ageGroup.DerivedFrom = "age"
	ageGroup.Buckets = ds.AgeBuckets()
	ageGroup.Description = "Age bucket: " + strings.Join(ds.AgeGroups(), ", ")

	month := DefaultDimension(engine.DimMonth, "Appointment Month", ds.Months())
	month.Filterable = true
	month.IsTemporal = true
	month.TemporalFormat = "2006-01"
	month.TemporalOrder = "chronological"
	month.DerivedFrom = "appointment_day"

	weekday := DefaultDimension(engine.DimWeekday, "Day of Week", weekdays)
	weekday.DerivedFrom = "appointment_day"

	noShow := DefaultDimension(engine.DimOutcome, "No-Show", []string{
		appointment.OutcomeAttended.Label(), appointment.OutcomeNoShow.Label(),
	})
	scholarship := DefaultDimension(engine.DimScholarship, "Has Scholarship", []string{"false", "true"})

	waiting := DefaultMeasure(engine.MeasureWaitingDays, "Waiting Days", "days")
	waiting.Description = "Days between scheduling and appointment; negative when the appointment precedes scheduling"
	rate := DefaultMeasure(engine.MeasureNoShow, "No-Show", "percent")
	rate.Aggregations = []string{"sum", "avg"}
	rate.Format = "0.0%"
	count := DefaultMeasure("record_count", "Appointments", "")
	count.IsSynthetic = true
	count.Aggregations = []string{"count"}

	return Config{
		Name:        "appointments",
		Version:     ds.Version().String(),
		Description: "Medical appointments with derived age group, waiting time, weekday and month",
		Dimensions:  []DimensionMeta{gender, ageGroup, month, weekday, noShow, scholarship},
		Measures: []MeasureMeta{
			DefaultMeasure(engine.MeasureAge, "Age", "years"),
			waiting,
			rate,
			count,
		},
		Records:      ds.Len(),
		Anomalies:    ds.Stats(),
		DiscoveredAt: ds.DerivedAt().Format(time.RFC3339),
	}
}

// DefaultSelection selects every observed value of the three filterable
// dimensions. It is Incomplete only when the dataset has no usable rows.
func (c Config) DefaultSelection() engine.FilterState {
	var genders []appointment.Gender
	for _, g := range c.Values(engine.DimGender) {
		genders = append(genders, appointment.Gender(g))
	}
	return engine.NewFilterState(genders, c.Values(engine.DimAgeGroup), c.Values(engine.DimMonth))
}

// Dimension looks up a dimension by key.
func (c Config) Dimension(key string) (DimensionMeta, bool) {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return DimensionMeta{}, false
}

// Values returns the observed values of a dimension, or nil if unknown.
func (c Config) Values(key string) []string {
	d, ok := c.Dimension(key)
	if !ok {
		return nil
	}
	return append([]string(nil), d.Values...)
}

// FilterableKeys returns the keys of the filter controls, in display order.
func (c Config) FilterableKeys() []string {
	var keys []string
	for _, d := range c.Dimensions {
		if d.Filterable {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

func cardinalityHint(n int) string {
	switch {
	case n <= 10:
		return "low"
	case n <= 50:
		return "medium"
	default:
		return "high"
	}
}
