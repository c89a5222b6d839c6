package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/spektr-org/noshow/appointment"
	"github.com/spektr-org/noshow/engine"
	"github.com/spektr-org/noshow/internal/platform/metrics"
)

// ============================================================================
// FIXTURES
// ============================================================================

func raw(id, gender, day, age, noShow string) appointment.RawRecord {
	return appointment.RawRecord{
		PatientID:      id,
		AppointmentID:  "A" + id,
		Gender:         gender,
		ScheduledDay:   "2016-04-29T08:00:00Z",
		AppointmentDay: day,
		Age:            age,
		Scholarship:    "0",
		NoShow:         noShow,
	}
}

func testDataset() *appointment.Dataset {
	return appointment.Derive([]appointment.RawRecord{
		raw("1", "M", "2016-05-02T00:00:00Z", "25", "No"),
		raw("2", "F", "2016-05-03T00:00:00Z", "27", "Yes"),
		raw("3", "M", "2016-06-01T00:00:00Z", "40", "Yes"),
	})
}

func newTestServer(t *testing.T, load Loader) (*Server, *echo.Echo) {
	t.Helper()
	if load == nil {
		load = func(context.Context) (*appointment.Dataset, error) { return testDataset(), nil }
	}
	s := New(testDataset(), load, metrics.New(), zerolog.Nop(), engine.WithSeed(7))
	e := echo.New()
	s.Register(e)
	return s, e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBundle(t *testing.T, rec *httptest.ResponseRecorder) engine.ResultBundle {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var b engine.ResultBundle
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	return b
}

// ============================================================================
// DASHBOARD
// ============================================================================

func TestDashboard_DefaultsToEverything(t *testing.T) {
	_, e := newTestServer(t, nil)
	b := decodeBundle(t, do(e, http.MethodGet, "/api/v1/dashboard", ""))

	if b.Metrics.TotalAppointments != 3 || b.Metrics.TotalNoShows != 2 || b.Metrics.UniquePatients != 3 {
		t.Errorf("unexpected metrics: %+v", b.Metrics)
	}
	if len(b.ByWeekday) != 7 {
		t.Errorf("expected 7 weekday rows, got %d", len(b.ByWeekday))
	}
}

func TestDashboard_QueryParams(t *testing.T) {
	_, e := newTestServer(t, nil)

	tests := []struct {
		name  string
		query string
		total int
	}{
		{"single gender", "?gender=M", 2},
		{"comma separated", "?gender=M,F&month=2016-05", 2},
		{"repeated params", "?month=2016-05&month=2016-06&gender=f", 1},
		{"age group", "?age_group=19-30", 2},
		{"no match", "?age_group=60%2B", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := decodeBundle(t, do(e, http.MethodGet, "/api/v1/dashboard"+tt.query, ""))
			if b.Metrics.TotalAppointments != tt.total {
				t.Errorf("total = %d, want %d", b.Metrics.TotalAppointments, tt.total)
			}
		})
	}
}

func TestDashboard_EmptySelectionIsNoContent(t *testing.T) {
	_, e := newTestServer(t, nil)

	for _, target := range []string{
		"/api/v1/dashboard?gender=",
		"/api/v1/dashboard?month=,",
		"/api/v1/dashboard/view?age_group=",
	} {
		rec := do(e, http.MethodGet, target, "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204, got %d", target, rec.Code)
		}
		if rec.Header().Get(NoSelectionHeader) == "" {
			t.Errorf("%s: expected the no-selection message header", target)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%s: expected empty body", target)
		}
	}
}

func TestDashboardPost(t *testing.T) {
	_, e := newTestServer(t, nil)

	body := `{"genders":["F","M"],"age_groups":["19-30","31-45"],"months":["2016-06"]}`
	b := decodeBundle(t, do(e, http.MethodPost, "/api/v1/dashboard", body))
	if b.Metrics.TotalAppointments != 1 || b.Metrics.TotalNoShows != 1 {
		t.Errorf("unexpected metrics: %+v", b.Metrics)
	}
	if got := b.Filters.Months(); len(got) != 1 || got[0] != "2016-06" {
		t.Errorf("echoed filters = %v", got)
	}

	// a missing key is an empty selection
	rec := do(e, http.MethodPost, "/api/v1/dashboard", `{"genders":["F"],"age_groups":["19-30"]}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/api/v1/dashboard", `{"genders":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestDashboardView(t *testing.T) {
	_, e := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/api/v1/dashboard/view", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view engine.DashboardView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Cards) != 4 || len(view.Charts) != 6 {
		t.Errorf("cards=%d charts=%d", len(view.Cards), len(view.Charts))
	}
	if view.Table == nil || len(view.Table.Rows) != 3 {
		t.Error("expected a three-row sample table")
	}
}

// ============================================================================
// FILTERS, HEALTH, METRICS
// ============================================================================

func TestFilters(t *testing.T) {
	_, e := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/api/v1/filters", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp filtersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := strings.Join(resp.Schema.Values(engine.DimMonth), ","); got != "2016-05,2016-06" {
		t.Errorf("months = %s", got)
	}
	if resp.DefaultSelection.Incomplete() {
		t.Error("default selection should be complete")
	}
}

func TestHealth(t *testing.T) {
	s, e := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), s.snapshot().schema.Version) {
		t.Error("health should report the dataset version")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, e := newTestServer(t, nil)
	do(e, http.MethodGet, "/api/v1/dashboard", "")
	do(e, http.MethodGet, "/api/v1/dashboard?gender=", "")

	body := do(e, http.MethodGet, "/metrics", "").Body.String()
	for _, want := range []string{
		`noshow_queries_total{outcome="computed"} 1`,
		`noshow_queries_total{outcome="no_selection"} 1`,
		`noshow_dataset_records 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

// ============================================================================
// RELOAD
// ============================================================================

func TestReloadSwapsDataset(t *testing.T) {
	next := appointment.Derive([]appointment.RawRecord{
		raw("9", "F", "2016-05-10T00:00:00Z", "70", "No"),
	})
	s, e := newTestServer(t, func(context.Context) (*appointment.Dataset, error) { return next, nil })
	before := s.snapshot().schema.Version

	rec := do(e, http.MethodPost, "/api/v1/dataset/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp reloadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version == before || resp.Version != next.Version().String() || resp.Records != 1 {
		t.Errorf("unexpected reload response: %+v", resp)
	}

	b := decodeBundle(t, do(e, http.MethodGet, "/api/v1/dashboard", ""))
	if b.Metrics.TotalAppointments != 1 || b.DatasetVersion != next.Version() {
		t.Errorf("queries should use the new dataset: %+v", b.Metrics)
	}
}

func TestReloadFailureKeepsDataset(t *testing.T) {
	s, e := newTestServer(t, func(context.Context) (*appointment.Dataset, error) {
		return nil, errors.New("source unavailable")
	})
	before := s.snapshot()

	rec := do(e, http.MethodPost, "/api/v1/dataset/reload", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if s.snapshot() != before {
		t.Error("a failed reload must keep the current dataset")
	}
	if !strings.Contains(do(e, http.MethodGet, "/metrics", "").Body.String(), `noshow_dataset_reloads_total{result="error"} 1`) {
		t.Error("failed reload should be counted")
	}
}
