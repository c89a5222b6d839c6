package store

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/spektr-org/noshow/appointment"
)

func TestCopyRows(t *testing.T) {
	id := uuid.New()
	records := []appointment.RawRecord{
		{PatientID: "1", Gender: "F", Age: "62", NoShow: "No"},
		{PatientID: "2", Gender: "M", SMSReceived: "1", NoShow: "Yes"},
	}

	rows := copyRows(id, records)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(rawCols)+2 {
			t.Fatalf("row %d has %d values, want %d", i, len(row), len(rawCols)+2)
		}
		if row[0] != id {
			t.Errorf("row %d import id = %v", i, row[0])
		}
		if row[1] != int32(i+1) {
			t.Errorf("row %d row_num = %v, want %d", i, row[1], i+1)
		}
	}

	// columns follow rawCols order
	if rows[0][2] != "1" || rows[0][4] != "F" || rows[0][7] != "62" || rows[0][15] != "No" {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[1][14] != "1" || rows[1][15] != "Yes" {
		t.Errorf("second row = %v", rows[1])
	}
}

func TestScanTargetsMatchColumns(t *testing.T) {
	var rec appointment.RawRecord
	if got := len(scanTargets(&rec)); got != len(rawCols) {
		t.Fatalf("scan targets = %d, columns = %d", got, len(rawCols))
	}

	*scanTargets(&rec)[len(rawCols)-1].(*string) = "Yes"
	if rec.NoShow != "Yes" {
		t.Error("last scan target should be no_show")
	}
}

func TestSchemaCoversColumns(t *testing.T) {
	for _, c := range rawCols {
		if !strings.Contains(schemaSQL, c+" ") {
			t.Errorf("schema is missing column %s", c)
		}
	}
	if !strings.HasPrefix(selectList(), "patient_id, appointment_id") {
		t.Errorf("select list = %s", selectList())
	}
}

func TestLatestImportQuery(t *testing.T) {
	q := latestImportSQL
	if !strings.Contains(q, "WHERE import_id = (") || !strings.Contains(q, "LIMIT 1") {
		t.Errorf("load should be restricted to a single import batch: %s", q)
	}
	if !strings.Contains(q, "ORDER BY imported_at DESC") {
		t.Errorf("the newest batch should win: %s", q)
	}
	if !strings.HasSuffix(strings.TrimSpace(q), "ORDER BY row_num") {
		t.Errorf("rows should come back in file order: %s", q)
	}
}
