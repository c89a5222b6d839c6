package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spektr-org/noshow/appointment"
	"github.com/spektr-org/noshow/engine"
)

// ============================================================================
// SCHEMA TESTS
// ============================================================================

func testDataset() *appointment.Dataset {
	return appointment.Derive([]appointment.RawRecord{
		{PatientID: "1", Gender: "M", AppointmentDay: "2016-06-01", Age: "72", NoShow: "No"},
		{PatientID: "2", Gender: "F", AppointmentDay: "2016-05-02", Age: "25", NoShow: "Yes"},
		{PatientID: "3", Gender: "F", AppointmentDay: "bad", Age: "130", NoShow: "No"},
	})
}

func TestFromDataset(t *testing.T) {
	ds := testDataset()
	cfg := FromDataset(ds)

	if cfg.Records != 3 || cfg.Version != ds.Version().String() {
		t.Errorf("records/version = %d/%s", cfg.Records, cfg.Version)
	}
	if cfg.Anomalies.BadAppointmentDay != 1 || cfg.Anomalies.UndefinedAgeGroup != 1 {
		t.Errorf("anomalies = %+v", cfg.Anomalies)
	}

	if got := strings.Join(cfg.FilterableKeys(), ","); got != "gender,age_group,appointment_month" {
		t.Errorf("filterable = %s", got)
	}
	assertValues(t, cfg, engine.DimGender, "F,M")
	assertValues(t, cfg, engine.DimAgeGroup, "19-30,60+")
	assertValues(t, cfg, engine.DimMonth, "2016-05,2016-06")
	assertValues(t, cfg, engine.DimWeekday, "Monday,Tuesday,Wednesday,Thursday,Friday,Saturday,Sunday")

	month, ok := cfg.Dimension(engine.DimMonth)
	if !ok || !month.IsTemporal || month.TemporalOrder != "chronological" {
		t.Errorf("month dimension = %+v", month)
	}
	ageGroup, _ := cfg.Dimension(engine.DimAgeGroup)
	if len(ageGroup.Buckets) != len(appointment.DefaultAgeBuckets) || ageGroup.Buckets[4].Lower != 61 {
		t.Errorf("age group buckets = %+v", ageGroup.Buckets)
	}
	if _, ok := cfg.Dimension("neighbourhood"); ok {
		t.Error("unknown dimension should not be found")
	}

	measures := strings.Join(cfg.MeasureKeys(), ",")
	if measures != "age,waiting_days,no_show_numeric,record_count" {
		t.Errorf("measures = %s", measures)
	}

	if _, err := json.Marshal(cfg); err != nil {
		t.Errorf("config should encode: %v", err)
	}
}

func TestDefaultSelectionQueriesEverythingUsable(t *testing.T) {
	ds := testDataset()
	state := FromDataset(ds).DefaultSelection()

	if state.Incomplete() {
		t.Fatal("default selection should be complete")
	}
	b, err := engine.Execute(ds, state)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// the row with a bad date and out-of-range age can never match
	if b.Metrics.TotalAppointments != 2 {
		t.Errorf("total = %d, want 2", b.Metrics.TotalAppointments)
	}

	empty := FromDataset(appointment.Derive(nil)).DefaultSelection()
	if !empty.Incomplete() {
		t.Error("an empty dataset has nothing to select")
	}
}

func assertValues(t *testing.T, cfg Config, key, want string) {
	t.Helper()
	if got := strings.Join(cfg.Values(key), ","); got != want {
		t.Errorf("%s values = %s, want %s", key, got, want)
	}
}
