package appointment

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Dataset is the enriched, read-only base every query runs against.
// It is safe for concurrent readers; nothing mutates it after Derive.
type Dataset struct {
	version   uuid.UUID
	derivedAt time.Time
	records   []Appointment
	buckets   AgeBuckets
	stats     DeriveStats
	months    []string
	genders   []Gender
}

func newDataset(records []Appointment, buckets AgeBuckets, stats DeriveStats) *Dataset {
	d := &Dataset{
		version:   uuid.New(),
		derivedAt: time.Now().UTC(),
		records:   records,
		buckets:   buckets,
		stats:     stats,
	}
	d.cacheOptions()
	return d
}

func (d *Dataset) cacheOptions() {
	monthSeen := make(map[string]bool)
	genderSeen := make(map[Gender]bool)
	for i := range d.records {
		r := &d.records[i]
		if r.AppointmentMonth != nil && !monthSeen[*r.AppointmentMonth] {
			monthSeen[*r.AppointmentMonth] = true
			d.months = append(d.months, *r.AppointmentMonth)
		}
		if r.Gender.Valid() && !genderSeen[r.Gender] {
			genderSeen[r.Gender] = true
			d.genders = append(d.genders, r.Gender)
		}
	}
	sort.Strings(d.months)
	sort.Slice(d.genders, func(i, j int) bool { return d.genders[i] < d.genders[j] })
}

// Len returns the number of appointments, including rows with undefined attributes.
func (d *Dataset) Len() int { return len(d.records) }

// At returns the appointment at index i. Callers must treat it as read-only.
func (d *Dataset) At(i int) *Appointment { return &d.records[i] }

// Version identifies this derivation. A reload always produces a new version.
func (d *Dataset) Version() uuid.UUID { return d.version }

// DerivedAt is when the derivation ran.
func (d *Dataset) DerivedAt() time.Time { return d.derivedAt }

// Stats returns the anomaly counters gathered by Derive.
func (d *Dataset) Stats() DeriveStats { return d.stats }

// AgeBuckets returns the partition used to derive age groups.
func (d *Dataset) AgeBuckets() AgeBuckets { return d.buckets }

// AgeGroups returns the bucket labels in partition order.
func (d *Dataset) AgeGroups() []string { return d.buckets.Labels() }

// ObservedAgeGroups returns bucket labels that occur in the data, in partition order.
func (d *Dataset) ObservedAgeGroups() []string {
	seen := make(map[string]bool)
	for i := range d.records {
		if g := d.records[i].AgeGroup; g != nil {
			seen[*g] = true
		}
	}
	var out []string
	for _, label := range d.buckets.Labels() {
		if seen[label] {
			out = append(out, label)
		}
	}
	return out
}

// Months returns the observed month buckets, ascending.
func (d *Dataset) Months() []string {
	return append([]string(nil), d.months...)
}

// Genders returns the observed selectable genders, sorted.
func (d *Dataset) Genders() []Gender {
	return append([]Gender(nil), d.genders...)
}
