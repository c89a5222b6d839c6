package appointment

import (
	"encoding/json"
	"strings"
	"time"
)

// ============================================================================
// APPOINTMENT MODEL — Raw rows and enriched appointments
// ============================================================================
// RawRecord is what a loader hands over: every column as text, untouched.
// Appointment is the enriched, immutable form produced by Derive().
//
// Derived attributes are pointers. nil means "undefined" (unparsable date,
// missing or out-of-range age) and never matches a concrete filter value.
// ============================================================================

// Gender of the patient. Only M and F are selectable.
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderUnknown Gender = ""
)

// ParseGender normalizes a raw gender cell. Unrecognized values map to GenderUnknown.
func ParseGender(raw string) Gender {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M", "MALE":
		return GenderMale
	case "F", "FEMALE":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Valid reports whether g is one of the selectable genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Outcome of an appointment.
type Outcome string

const (
	OutcomeAttended Outcome = "attended"
	OutcomeNoShow   Outcome = "no-show"
)

// Outcomes lists both outcomes in display order (attended first).
var Outcomes = []Outcome{OutcomeAttended, OutcomeNoShow}

// parseOutcome maps the no_show column. The second return is false when the
// cell was not a recognizable yes/no value; such rows count as attended.
func parseOutcome(raw string) (Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "1", "true":
		return OutcomeNoShow, true
	case "no", "n", "0", "false":
		return OutcomeAttended, true
	default:
		return OutcomeAttended, false
	}
}

// Label returns the Yes/No label used by the no_show column.
func (o Outcome) Label() string {
	if o == OutcomeNoShow {
		return "Yes"
	}
	return "No"
}

// RawRecord is one appointment row as read from a tabular source.
type RawRecord struct {
	PatientID      string `json:"patient_id"`
	AppointmentID  string `json:"appointment_id"`
	Gender         string `json:"gender"`
	ScheduledDay   string `json:"scheduled_day"`
	AppointmentDay string `json:"appointment_day"`
	Age            string `json:"age"`
	Neighbourhood  string `json:"neighbourhood"`
	Scholarship    string `json:"scholarship"`
	Hypertension   string `json:"hypertension"`
	Diabetes       string `json:"diabetes"`
	Alcoholism     string `json:"alcoholism"`
	Handicap       string `json:"handicap"`
	SMSReceived    string `json:"sms_received"`
	NoShow         string `json:"no_show"`
}

// Appointment is an enriched appointment record. Never mutated after Derive.
type Appointment struct {
	PatientID     string     `json:"patient_id"`
	AppointmentID string     `json:"appointment_id"`
	Gender        Gender     `json:"gender"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
	Age           *int       `json:"age,omitempty"`
	Neighbourhood string     `json:"neighbourhood"`
	Scholarship   bool       `json:"scholarship"`
	Hypertension  bool       `json:"hypertension"`
	Diabetes      bool       `json:"diabetes"`
	Alcoholism    bool       `json:"alcoholism"`
	Handicap      int        `json:"handicap"`
	SMSReceived   bool       `json:"sms_received"`
	Outcome       Outcome    `json:"outcome"`

	// Derived
	AgeGroup         *string       `json:"age_group,omitempty"`
	WaitingDays      *int          `json:"waiting_days,omitempty"`
	DayOfWeek        *time.Weekday `json:"-"`
	AppointmentMonth *string       `json:"appointment_month,omitempty"`
}

// NoShow reports whether the patient missed the appointment.
func (a *Appointment) NoShow() bool { return a.Outcome == OutcomeNoShow }

// OutcomeNumeric is 1 for a no-show and 0 otherwise.
func (a *Appointment) OutcomeNumeric() int {
	if a.NoShow() {
		return 1
	}
	return 0
}

// DayName returns the weekday name, or "" when the appointment date is undefined.
func (a *Appointment) DayName() string {
	if a.DayOfWeek == nil {
		return ""
	}
	return a.DayOfWeek.String()
}

// MarshalJSON adds the weekday name and numeric outcome to the encoded form.
func (a Appointment) MarshalJSON() ([]byte, error) {
	type plain Appointment
	out := struct {
		plain
		DayOfWeek      string `json:"day_of_week,omitempty"`
		OutcomeNumeric int    `json:"no_show_numeric"`
	}{
		plain:          plain(a),
		DayOfWeek:      a.DayName(),
		OutcomeNumeric: a.OutcomeNumeric(),
	}
	return json.Marshal(out)
}
