package engine

import (
	"strconv"

	"github.com/spektr-org/noshow/appointment"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns the dataset. It reads through this interface.
//
// Implementations:
//   DomainView[T]  — reads typed structs via accessor functions (zero-copy)
//   SubView        — filtered subset (indices into parent, zero-copy)
//
// Accessors report ok=false for undefined values. Undefined values never
// match a filter, never form a group, and are skipped by measure statistics.
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls Dimension/Measure in tight loops; keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, key string) (string, bool)
	Measure(index int, key string) (float64, bool)
	Row(index int) int // position in the underlying dataset
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent, no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) (string, bool) {
	if i < 0 || i >= len(v.indices) {
		return "", false
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.indices) {
		return 0, false
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) Row(i int) int { return v.parent.Row(v.indices[i]) }

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[*appointment.Appointment]().
//	    Dimension("gender", func(a *appointment.Appointment) (string, bool) { ... }).
//	    Measure("age", func(a *appointment.Appointment) (float64, bool) { ... })
//
//	view := adapter.BindIndexed(ds.Len(), ds.At)
//
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	dims map[string]func(T) (string, bool)
	meas map[string]func(T) (float64, bool)
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims: make(map[string]func(T) (string, bool)),
		meas: make(map[string]func(T) (float64, bool)),
	}
}

// Dimension registers a dimension accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) (string, bool)) *DomainAdapter[T] {
	a.dims[key] = fn
	return a
}

// Measure registers a measure accessor.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) (float64, bool)) *DomainAdapter[T] {
	a.meas[key] = fn
	return a
}

// BindIndexed creates a RecordView over n items fetched by position.
func (a *DomainAdapter[T]) BindIndexed(n int, at func(int) T) RecordView {
	return &DomainView[T]{
		n:    n,
		at:   at,
		dims: a.dims,
		meas: a.meas,
	}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	n    int
	at   func(int) T
	dims map[string]func(T) (string, bool)
	meas map[string]func(T) (float64, bool)
}

func (v *DomainView[T]) Len() int { return v.n }

func (v *DomainView[T]) Dimension(i int, key string) (string, bool) {
	if i < 0 || i >= v.n {
		return "", false
	}
	if fn, ok := v.dims[key]; ok {
		return fn(v.at(i))
	}
	return "", false
}

func (v *DomainView[T]) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= v.n {
		return 0, false
	}
	if fn, ok := v.meas[key]; ok {
		return fn(v.at(i))
	}
	return 0, false
}

func (v *DomainView[T]) Row(i int) int { return i }

// ============================================================================
// APPOINTMENT BINDING
// ============================================================================

var appointmentAdapter = NewDomainAdapter[*appointment.Appointment]().
	Dimension(DimPatient, func(a *appointment.Appointment) (string, bool) {
		return a.PatientID, a.PatientID != ""
	}).
	Dimension(DimGender, func(a *appointment.Appointment) (string, bool) {
		return string(a.Gender), a.Gender.Valid()
	}).
	Dimension(DimAgeGroup, func(a *appointment.Appointment) (string, bool) {
		return deref(a.AgeGroup)
	}).
	Dimension(DimMonth, func(a *appointment.Appointment) (string, bool) {
		return deref(a.AppointmentMonth)
	}).
	Dimension(DimWeekday, func(a *appointment.Appointment) (string, bool) {
		return a.DayName(), a.DayOfWeek != nil
	}).
	Dimension(DimOutcome, func(a *appointment.Appointment) (string, bool) {
		return a.Outcome.Label(), true
	}).
	Dimension(DimScholarship, func(a *appointment.Appointment) (string, bool) {
		return strconv.FormatBool(a.Scholarship), true
	}).
	Measure(MeasureAge, func(a *appointment.Appointment) (float64, bool) {
		if a.Age == nil {
			return 0, false
		}
		return float64(*a.Age), true
	}).
	Measure(MeasureWaitingDays, func(a *appointment.Appointment) (float64, bool) {
		if a.WaitingDays == nil {
			return 0, false
		}
		return float64(*a.WaitingDays), true
	}).
	Measure(MeasureNoShow, func(a *appointment.Appointment) (float64, bool) {
		return float64(a.OutcomeNumeric()), true
	})

// BindDataset exposes a dataset as a RecordView.
func BindDataset(ds *appointment.Dataset) RecordView {
	return appointmentAdapter.BindIndexed(ds.Len(), ds.At)
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
