package engine

import (
	"fmt"
	"strconv"

	"github.com/spektr-org/noshow/appointment"
)

// ============================================================================
// TABLE BUILDER — Produces the sample table from a ResultBundle
// ============================================================================
// One row per sampled appointment, one column per appointment attribute.
// Undefined derived values render as empty cells.
// ============================================================================

// sampleColumns lists the table columns in display order.
var sampleColumns = []Column{
	{Key: "patient_id", Label: "Patient ID", Type: "text", Align: "left"},
	{Key: "appointment_id", Label: "Appointment ID", Type: "text", Align: "left"},
	{Key: "gender", Label: "Gender", Type: "text", Align: "center"},
	{Key: "scheduled_day", Label: "Scheduled day", Type: "date", Align: "left"},
	{Key: "appointment_day", Label: "Appointment day", Type: "date", Align: "left"},
	{Key: "age", Label: "Age", Type: "number", Align: "right"},
	{Key: "age_group", Label: "Age group", Type: "text", Align: "center"},
	{Key: "neighbourhood", Label: "Neighbourhood", Type: "text", Align: "left"},
	{Key: "scholarship", Label: "Scholarship", Type: "bool", Align: "center"},
	{Key: "hypertension", Label: "Hypertension", Type: "bool", Align: "center"},
	{Key: "diabetes", Label: "Diabetes", Type: "bool", Align: "center"},
	{Key: "alcoholism", Label: "Alcoholism", Type: "bool", Align: "center"},
	{Key: "handicap", Label: "Handicap", Type: "number", Align: "right"},
	{Key: "sms_received", Label: "SMS received", Type: "bool", Align: "center"},
	{Key: "no_show", Label: "No-show", Type: "text", Align: "center"},
	{Key: "waiting_days", Label: "Waiting days", Type: "number", Align: "right"},
	{Key: "day_of_week", Label: "Day of week", Type: "text", Align: "left"},
	{Key: "appointment_month", Label: "Month", Type: "text", Align: "left"},
}

// SampleColumns returns the column definitions of the sample table.
func SampleColumns() []Column {
	return append([]Column(nil), sampleColumns...)
}

// BuildSampleTable renders the bundle's sample as a table.
func BuildSampleTable(b *ResultBundle) *TableData {
	t := &TableData{
		Title:   "Sample Appointments",
		Columns: SampleColumns(),
		Rows:    [][]string{},
	}
	if b == nil {
		return t
	}

	noShows := 0
	for i := range b.Sample {
		a := &b.Sample[i]
		t.Rows = append(t.Rows, SampleRow(a))
		noShows += a.OutcomeNumeric()
	}

	t.Summary = &Summary{
		Label: fmt.Sprintf("Sample (%d of %s records)", len(b.Sample), FormatInt(b.Metrics.TotalAppointments)),
		Values: map[string]string{
			"no_show": fmt.Sprintf("%d", noShows),
		},
	}
	return t
}

// SampleRow formats one appointment in SampleColumns order.
func SampleRow(a *appointment.Appointment) []string {
	return []string{
		a.PatientID,
		a.AppointmentID,
		string(a.Gender),
		formatTime(a.ScheduledAt, "2006-01-02 15:04:05"),
		formatTime(a.AppointmentAt, "2006-01-02"),
		formatIntPtr(a.Age),
		derefOrEmpty(a.AgeGroup),
		a.Neighbourhood,
		strconv.FormatBool(a.Scholarship),
		strconv.FormatBool(a.Hypertension),
		strconv.FormatBool(a.Diabetes),
		strconv.FormatBool(a.Alcoholism),
		strconv.Itoa(a.Handicap),
		strconv.FormatBool(a.SMSReceived),
		a.Outcome.Label(),
		formatIntPtr(a.WaitingDays),
		a.DayName(),
		derefOrEmpty(a.AppointmentMonth),
	}
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func derefOrEmpty(s *string) string {
	v, _ := deref(s)
	return v
}
