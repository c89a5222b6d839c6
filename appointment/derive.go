package appointment

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// DERIVATION — Raw rows → enriched appointments (runs once per load)
// ============================================================================
// Total: a malformed cell never aborts the batch. It produces nil derived
// fields for that row and is counted in DeriveStats.
//
// Derived columns:
//   age_group          fixed half-open partition over integer ages
//   waiting_days       appointment date − scheduled date (calendar days, signed)
//   day_of_week        weekday of the appointment date
//   appointment_month  "2006-01" bucket of the appointment date
// ============================================================================

// AgeBucket is a half-open integer range [Lower, Upper) with a display label.
type AgeBucket struct {
	Label string `json:"label"`
	Lower int    `json:"lower"`
	Upper int    `json:"upper"`
}

// AgeBuckets is an ordered partition of ages.
type AgeBuckets []AgeBucket

// DefaultAgeBuckets covers ages 0–100. Anything outside is undefined.
var DefaultAgeBuckets = AgeBuckets{
	{Label: "0-18", Lower: 0, Upper: 19},
	{Label: "19-30", Lower: 19, Upper: 31},
	{Label: "31-45", Lower: 31, Upper: 46},
	{Label: "46-60", Lower: 46, Upper: 61},
	{Label: "60+", Lower: 61, Upper: 101},
}

// Label returns the bucket label for age, or false when no bucket contains it.
func (b AgeBuckets) Label(age int) (string, bool) {
	for _, bucket := range b {
		if age >= bucket.Lower && age < bucket.Upper {
			return bucket.Label, true
		}
	}
	return "", false
}

// Labels returns the bucket labels in partition order.
func (b AgeBuckets) Labels() []string {
	labels := make([]string, len(b))
	for i, bucket := range b {
		labels[i] = bucket.Label
	}
	return labels
}

// defaultTimeLayouts are tried in order for both timestamp columns.
var defaultTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// DeriveOption configures Derive.
type DeriveOption func(*deriveConfig)

type deriveConfig struct {
	buckets AgeBuckets
	layouts []string
}

// WithAgeBuckets replaces the default age partition.
func WithAgeBuckets(buckets AgeBuckets) DeriveOption {
	return func(c *deriveConfig) {
		if len(buckets) > 0 {
			c.buckets = buckets
		}
	}
}

// WithTimeLayouts accepts additional timestamp layouts, tried after the
// built-in ones. Blank layouts are ignored.
func WithTimeLayouts(layouts ...string) DeriveOption {
	return func(c *deriveConfig) {
		extra := make([]string, 0, len(layouts))
		for _, l := range layouts {
			if strings.TrimSpace(l) != "" {
				extra = append(extra, l)
			}
		}
		if len(extra) > 0 {
			c.layouts = append(append([]string(nil), c.layouts...), extra...)
		}
	}
}

// DeriveStats counts the anomalies absorbed during derivation.
type DeriveStats struct {
	Rows              int `json:"rows"`
	BadScheduledDay   int `json:"bad_scheduled_day"`
	BadAppointmentDay int `json:"bad_appointment_day"`
	UndefinedAgeGroup int `json:"undefined_age_group"`
	UnknownGender     int `json:"unknown_gender"`
	UnknownOutcome    int `json:"unknown_outcome"`
}

// Derive enriches raw rows and returns the immutable dataset.
func Derive(raw []RawRecord, opts ...DeriveOption) *Dataset {
	cfg := &deriveConfig{
		buckets: DefaultAgeBuckets,
		layouts: defaultTimeLayouts,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	records := make([]Appointment, len(raw))
	var stats DeriveStats
	stats.Rows = len(raw)

	for i, r := range raw {
		a, flags := deriveOne(r, cfg)
		records[i] = a

		if flags&flagBadScheduled != 0 {
			stats.BadScheduledDay++
		}
		if flags&flagBadAppointment != 0 {
			stats.BadAppointmentDay++
		}
		if a.AgeGroup == nil {
			stats.UndefinedAgeGroup++
		}
		if !a.Gender.Valid() {
			stats.UnknownGender++
		}
		if flags&flagUnknownOutcome != 0 {
			stats.UnknownOutcome++
		}
	}

	return newDataset(records, cfg.buckets, stats)
}

type deriveFlags uint8

const (
	flagBadScheduled deriveFlags = 1 << iota
	flagBadAppointment
	flagUnknownOutcome
)

func deriveOne(r RawRecord, cfg *deriveConfig) (Appointment, deriveFlags) {
	var flags deriveFlags

	a := Appointment{
		PatientID:     normalizeID(r.PatientID),
		AppointmentID: normalizeID(r.AppointmentID),
		Gender:        ParseGender(r.Gender),
		Neighbourhood: strings.TrimSpace(r.Neighbourhood),
		Scholarship:   parseFlag(r.Scholarship),
		Hypertension:  parseFlag(r.Hypertension),
		Diabetes:      parseFlag(r.Diabetes),
		Alcoholism:    parseFlag(r.Alcoholism),
		Handicap:      parseCount(r.Handicap),
		SMSReceived:   parseFlag(r.SMSReceived),
	}

	outcome, ok := parseOutcome(r.NoShow)
	a.Outcome = outcome
	if !ok {
		flags |= flagUnknownOutcome
	}

	if age, ok := parseAge(r.Age); ok {
		a.Age = &age
		if label, ok := cfg.buckets.Label(age); ok {
			a.AgeGroup = &label
		}
	}

	scheduled, okS := parseTimestamp(r.ScheduledDay, cfg.layouts)
	if okS {
		a.ScheduledAt = &scheduled
	} else {
		flags |= flagBadScheduled
	}

	appointment, okA := parseTimestamp(r.AppointmentDay, cfg.layouts)
	if okA {
		a.AppointmentAt = &appointment

		weekday := appointment.Weekday()
		a.DayOfWeek = &weekday

		month := appointment.Format("2006-01")
		a.AppointmentMonth = &month
	} else {
		flags |= flagBadAppointment
	}

	if okS && okA {
		days := WaitingDays(scheduled, appointment)
		a.WaitingDays = &days
	}

	return a, flags
}

// WaitingDays is the signed calendar-day difference between two timestamps.
// Times of day are ignored: a same-day appointment waits 0 days.
func WaitingDays(scheduled, appointment time.Time) int {
	from := dateOnly(scheduled)
	to := dateOnly(appointment)
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseTimestamp(value string, layouts []string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// parseAge accepts integers and integral floats ("56", "56.0").
func parseAge(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "t":
		return true
	default:
		return false
	}
}

func parseCount(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// normalizeID turns float-exported ids ("29872499824296.0") into their integer
// text so one patient exported both ways is counted once.
func normalizeID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return value
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1<<53 {
		return value
	}
	return strconv.FormatInt(int64(f), 10)
}
