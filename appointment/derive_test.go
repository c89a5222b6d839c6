package appointment

import (
	"encoding/json"
	"strings"
	"testing"
)

// ============================================================================
// DERIVATION TESTS
// ============================================================================

func TestAgeBuckets(t *testing.T) {
	tests := []struct {
		age  string
		want string // "" = undefined
	}{
		{"0", "0-18"},
		{"18", "0-18"},
		{"19", "19-30"},
		{"30", "19-30"},
		{"31", "31-45"},
		{"45", "31-45"},
		{"46", "46-60"},
		{"60", "46-60"},
		{"61", "60+"},
		{"100", "60+"},
		{"56.0", "46-60"},
		{"101", ""},
		{"-1", ""},
		{"", ""},
		{"abc", ""},
		{"12.5", ""},
	}

	for _, tt := range tests {
		ds := Derive([]RawRecord{{Age: tt.age, AppointmentDay: "2016-05-02"}})
		got := ds.At(0).AgeGroup
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("age %q: group = %s, want undefined", tt.age, *got)
		case tt.want != "" && (got == nil || *got != tt.want):
			t.Errorf("age %q: group = %v, want %s", tt.age, got, tt.want)
		}
	}
}

func TestWaitingDays(t *testing.T) {
	tests := []struct {
		name        string
		scheduled   string
		appointment string
		want        int
	}{
		{"same day, later time of day", "2016-04-29T18:38:08Z", "2016-04-29T00:00:00Z", 0},
		{"next day", "2016-04-29T23:59:59Z", "2016-04-30T00:00:00Z", 1},
		{"across month", "2016-04-25T10:00:00Z", "2016-05-10T00:00:00Z", 15},
		{"appointment before scheduling", "2016-05-10T08:00:00Z", "2016-05-08T00:00:00Z", -2},
		{"date-only layouts", "2016-05-01", "05/03/2016", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Derive([]RawRecord{{ScheduledDay: tt.scheduled, AppointmentDay: tt.appointment}})
			got := ds.At(0).WaitingDays
			if got == nil || *got != tt.want {
				t.Errorf("waiting days = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestUnparsableDatesPropagateUndefined(t *testing.T) {
	ds := Derive([]RawRecord{
		{PatientID: "1", ScheduledDay: "garbage", AppointmentDay: "2016-05-02T00:00:00Z", Age: "20", Gender: "F", NoShow: "No"},
		{PatientID: "2", ScheduledDay: "2016-05-01T00:00:00Z", AppointmentDay: "", Age: "20", Gender: "M", NoShow: "maybe"},
	})

	first := ds.At(0)
	if first.WaitingDays != nil {
		t.Error("bad scheduled day should leave waiting_days undefined")
	}
	if first.AppointmentMonth == nil || *first.AppointmentMonth != "2016-05" || first.DayName() != "Monday" {
		t.Errorf("appointment attributes should survive a bad scheduled day: %+v", first)
	}

	second := ds.At(1)
	if second.WaitingDays != nil || second.DayOfWeek != nil || second.AppointmentMonth != nil {
		t.Error("bad appointment day should leave every dependent attribute undefined")
	}
	if second.Outcome != OutcomeAttended {
		t.Errorf("unrecognized outcome = %s, want attended", second.Outcome)
	}

	stats := ds.Stats()
	if stats.Rows != 2 || stats.BadScheduledDay != 1 || stats.BadAppointmentDay != 1 || stats.UnknownOutcome != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := ds.Months(); len(got) != 1 || got[0] != "2016-05" {
		t.Errorf("months = %v", got)
	}
}

func TestDatasetOptions(t *testing.T) {
	ds := Derive([]RawRecord{
		{Gender: "F", Age: "70", AppointmentDay: "2016-06-01"},
		{Gender: "m", Age: "10", AppointmentDay: "2016-04-29"},
		{Gender: "?", Age: "10", AppointmentDay: "2016-05-02"},
	})

	if got := ds.Months(); strings.Join(got, ",") != "2016-04,2016-05,2016-06" {
		t.Errorf("months = %v, want ascending", got)
	}
	if got := ds.Genders(); len(got) != 2 || got[0] != GenderFemale || got[1] != GenderMale {
		t.Errorf("genders = %v", got)
	}
	if got := ds.ObservedAgeGroups(); strings.Join(got, ",") != "0-18,60+" {
		t.Errorf("observed age groups = %v", got)
	}
	if ds.Stats().UnknownGender != 1 {
		t.Errorf("unknown genders = %d, want 1", ds.Stats().UnknownGender)
	}

	again := Derive(nil)
	if again.Version() == ds.Version() {
		t.Error("every derivation should get a new version")
	}
	if again.Len() != 0 || len(again.Months()) != 0 {
		t.Error("empty input should produce an empty dataset")
	}
}

func TestCustomAgeBuckets(t *testing.T) {
	buckets := AgeBuckets{{Label: "child", Lower: 0, Upper: 18}, {Label: "adult", Lower: 18, Upper: 130}}
	ds := Derive([]RawRecord{{Age: "120"}}, WithAgeBuckets(buckets))

	if g := ds.At(0).AgeGroup; g == nil || *g != "adult" {
		t.Errorf("age group = %v, want adult", g)
	}
	if got := ds.AgeGroups(); strings.Join(got, ",") != "child,adult" {
		t.Errorf("labels = %v", got)
	}
	if b := ds.AgeBuckets(); len(b) != 2 || b[1].Upper != 130 {
		t.Errorf("buckets = %+v", b)
	}
}

func TestWithTimeLayouts(t *testing.T) {
	raw := []RawRecord{{
		ScheduledDay:   "2016-04-29T08:00:00Z",
		AppointmentDay: "29.04.2016",
	}}

	if ds := Derive(raw); ds.At(0).AppointmentAt != nil || ds.Stats().BadAppointmentDay != 1 {
		t.Fatal("day-first dotted dates are not a built-in layout")
	}

	ds := Derive(raw, WithTimeLayouts("", "02.01.2006"))
	a := ds.At(0)
	if a.AppointmentAt == nil || a.AppointmentMonth == nil || *a.AppointmentMonth != "2016-04" {
		t.Fatalf("appointment = %+v", a)
	}
	if a.ScheduledAt == nil {
		t.Error("built-in layouts must still apply")
	}
	if a.WaitingDays == nil || *a.WaitingDays != 0 {
		t.Errorf("waiting days = %v, want 0", a.WaitingDays)
	}
	if ds.Stats().BadAppointmentDay != 0 {
		t.Errorf("stats = %+v", ds.Stats())
	}

	// a blank-only option leaves the defaults untouched
	if ds := Derive(raw, WithTimeLayouts(" ")); ds.Stats().BadAppointmentDay != 1 {
		t.Error("blank layouts should be ignored")
	}
}

func TestNormalizeID(t *testing.T) {
	tests := map[string]string{
		"29872499824296.0": "29872499824296",
		"5642903":          "5642903",
		" 42 ":             "42",
		"ABC-1":            "ABC-1",
		"1.5":              "1.5",
		"":                 "",
	}
	for in, want := range tests {
		if got := normalizeID(in); got != want {
			t.Errorf("normalizeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAppointmentJSON(t *testing.T) {
	ds := Derive([]RawRecord{{
		PatientID:      "7",
		Gender:         "F",
		ScheduledDay:   "2016-04-29T18:38:08Z",
		AppointmentDay: "2016-04-29T00:00:00Z",
		Age:            "62",
		NoShow:         "Yes",
	}})

	data, err := json.Marshal(ds.At(0))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["day_of_week"] != "Friday" {
		t.Errorf("day_of_week = %v", decoded["day_of_week"])
	}
	if decoded["no_show_numeric"] != float64(1) {
		t.Errorf("no_show_numeric = %v", decoded["no_show_numeric"])
	}
	if decoded["age_group"] != "60+" || decoded["waiting_days"] != float64(0) {
		t.Errorf("derived fields = %v / %v", decoded["age_group"], decoded["waiting_days"])
	}
}

func TestParseGender(t *testing.T) {
	if ParseGender(" f ") != GenderFemale || ParseGender("Male") != GenderMale {
		t.Error("gender variants should normalize")
	}
	if ParseGender("X").Valid() {
		t.Error("unknown gender must not be selectable")
	}
}
