package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spektr-org/noshow/appointment"
)

// ============================================================================
// CSV HELPER — Parses an appointment export into []appointment.RawRecord
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, upload, object store).
// Headers are matched case- and separator-insensitively against known
// aliases, so "PatientId", "patient_id" and "Patient-ID" all resolve.
// Cell values are passed through untouched; interpretation is Derive's job.
// ============================================================================

// LoadStats describes what the loader skipped.
type LoadStats struct {
	Rows           int      `json:"rows"`            // rows returned
	SkippedRows    int      `json:"skipped_rows"`    // malformed rows (wrong field count, bad quoting)
	MissingColumns []string `json:"missing_columns"` // optional columns absent from the header
}

// ErrMissingColumn is wrapped by ParseCSV when a required column is absent.
var ErrMissingColumn = errors.New("missing required column")

type column struct {
	field    string
	aliases  []string
	required bool
	set      func(*appointment.RawRecord, string)
}

var columns = []column{
	{"patient_id", []string{"patientid", "patient_id", "patient"}, true,
		func(r *appointment.RawRecord, v string) { r.PatientID = v }},
	{"appointment_id", []string{"appointmentid", "appointment_id"}, false,
		func(r *appointment.RawRecord, v string) { r.AppointmentID = v }},
	{"gender", []string{"gender", "sex"}, true,
		func(r *appointment.RawRecord, v string) { r.Gender = v }},
	{"scheduled_day", []string{"scheduledday", "scheduled_day", "scheduled_at"}, true,
		func(r *appointment.RawRecord, v string) { r.ScheduledDay = v }},
	{"appointment_day", []string{"appointmentday", "appointment_day", "appointment_at"}, true,
		func(r *appointment.RawRecord, v string) { r.AppointmentDay = v }},
	{"age", []string{"age"}, true,
		func(r *appointment.RawRecord, v string) { r.Age = v }},
	{"neighbourhood", []string{"neighbourhood", "neighborhood"}, false,
		func(r *appointment.RawRecord, v string) { r.Neighbourhood = v }},
	{"scholarship", []string{"scholarship"}, true,
		func(r *appointment.RawRecord, v string) { r.Scholarship = v }},
	{"hypertension", []string{"hypertension", "hipertension"}, false,
		func(r *appointment.RawRecord, v string) { r.Hypertension = v }},
	{"diabetes", []string{"diabetes"}, false,
		func(r *appointment.RawRecord, v string) { r.Diabetes = v }},
	{"alcoholism", []string{"alcoholism"}, false,
		func(r *appointment.RawRecord, v string) { r.Alcoholism = v }},
	{"handicap", []string{"handicap", "handcap"}, false,
		func(r *appointment.RawRecord, v string) { r.Handicap = v }},
	{"sms_received", []string{"sms_received", "smsreceived"}, false,
		func(r *appointment.RawRecord, v string) { r.SMSReceived = v }},
	{"no_show", []string{"no_show", "noshow", "no-show"}, true,
		func(r *appointment.RawRecord, v string) { r.NoShow = v }},
}

// ParseCSV reads an appointment export. It fails only when the header is
// unreadable or a required column is missing; malformed rows are skipped
// and counted.
func ParseCSV(r io.Reader) ([]appointment.RawRecord, LoadStats, error) {
	var stats LoadStats
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	index := indexHeaders(headers)

	// column position per known field, -1 when absent
	positions := make([]int, len(columns))
	for i, c := range columns {
		pos, ok := findColumn(index, c.aliases)
		positions[i] = pos
		if ok {
			continue
		}
		if c.required {
			return nil, stats, fmt.Errorf("%w: %s", ErrMissingColumn, c.field)
		}
		stats.MissingColumns = append(stats.MissingColumns, c.field)
	}

	var records []appointment.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.SkippedRows++
			continue
		}

		var rec appointment.RawRecord
		for i, c := range columns {
			if pos := positions[i]; pos >= 0 && pos < len(row) {
				c.set(&rec, strings.TrimSpace(row[pos]))
			}
		}
		records = append(records, rec)
	}

	stats.Rows = len(records)
	return records, stats, nil
}

// ParseCSVBytes parses an in-memory export.
func ParseCSVBytes(data []byte) ([]appointment.RawRecord, LoadStats, error) {
	return ParseCSV(bytes.NewReader(data))
}

// LoadFile parses the export at path.
func LoadFile(path string) ([]appointment.RawRecord, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, stats, err := ParseCSV(f)
	if err != nil {
		return nil, stats, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, stats, nil
}

// ============================================================================
// HEADER MATCHING
// ============================================================================

func indexHeaders(headers []string) map[string]int {
	result := make(map[string]int, len(headers))
	for i, h := range headers {
		key := headerKey(h)
		if _, exists := result[key]; !exists {
			result[key] = i
		}
	}
	return result
}

func findColumn(index map[string]int, aliases []string) (int, bool) {
	for _, alias := range aliases {
		if i, ok := index[headerKey(alias)]; ok {
			return i, true
		}
	}
	return -1, false
}

// headerKey reduces a header to letters and digits: "No-show" → "noshow".
func headerKey(h string) string {
	return strings.ReplaceAll(toSnakeCase(strings.TrimSpace(h)), "_", "")
}

// toSnakeCase converts "Column Name" → "column_name".
func toSnakeCase(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
