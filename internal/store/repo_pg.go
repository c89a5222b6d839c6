package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spektr-org/noshow/appointment"
)

const tableName = "appointments_raw"

// queryable is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type txKey struct{}

// WithTx makes repository calls on ctx run inside tx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok && tx != nil {
		return tx
	}
	return r.pool
}

// rawCols are the text columns in RawRecord field order.
var rawCols = []string{
	"patient_id", "appointment_id", "gender", "scheduled_day", "appointment_day",
	"age", "neighbourhood", "scholarship", "hypertension", "diabetes",
	"alcoholism", "handicap", "sms_received", "no_show",
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
	import_id       UUID        NOT NULL,
	row_num         INTEGER     NOT NULL,
	patient_id      TEXT        NOT NULL DEFAULT '',
	appointment_id  TEXT        NOT NULL DEFAULT '',
	gender          TEXT        NOT NULL DEFAULT '',
	scheduled_day   TEXT        NOT NULL DEFAULT '',
	appointment_day TEXT        NOT NULL DEFAULT '',
	age             TEXT        NOT NULL DEFAULT '',
	neighbourhood   TEXT        NOT NULL DEFAULT '',
	scholarship     TEXT        NOT NULL DEFAULT '',
	hypertension    TEXT        NOT NULL DEFAULT '',
	diabetes        TEXT        NOT NULL DEFAULT '',
	alcoholism      TEXT        NOT NULL DEFAULT '',
	handicap        TEXT        NOT NULL DEFAULT '',
	sms_received    TEXT        NOT NULL DEFAULT '',
	no_show         TEXT        NOT NULL DEFAULT '',
	imported_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (import_id, row_num)
)`

func (r *repoPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.conn(ctx).Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create %s: %w", tableName, err)
	}
	return nil
}

// Import bulk-copies records under a fresh import id.
func (r *repoPG) Import(ctx context.Context, records []appointment.RawRecord) (uuid.UUID, int64, error) {
	importID := uuid.New()
	cols := append([]string{"import_id", "row_num"}, rawCols...)

	n, err := r.conn(ctx).CopyFrom(ctx, pgx.Identifier{tableName}, cols, pgx.CopyFromRows(copyRows(importID, records)))
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("copy into %s: %w", tableName, err)
	}
	return importID, n, nil
}

// latestImportSQL selects the rows of the most recent import in file order.
// Earlier imports stay in the table but are never read.
var latestImportSQL = `SELECT ` + selectList() + ` FROM ` + tableName + `
	WHERE import_id = (
		SELECT import_id FROM ` + tableName + `
		ORDER BY imported_at DESC, import_id DESC
		LIMIT 1
	)
	ORDER BY row_num`

// LoadAll returns the rows of the latest import, in file order.
func (r *repoPG) LoadAll(ctx context.Context) ([]appointment.RawRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, latestImportSQL)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	var out []appointment.RawRecord
	for rows.Next() {
		var rec appointment.RawRecord
		if err := rows.Scan(scanTargets(&rec)...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tableName, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func selectList() string {
	return strings.Join(rawCols, ", ")
}

func copyRows(importID uuid.UUID, records []appointment.RawRecord) [][]interface{} {
	out := make([][]interface{}, len(records))
	for i := range records {
		row := make([]interface{}, 0, len(rawCols)+2)
		row = append(row, importID, int32(i+1))
		for _, p := range scanTargets(&records[i]) {
			row = append(row, *p.(*string))
		}
		out[i] = row
	}
	return out
}

// scanTargets lists the RawRecord fields in rawCols order.
func scanTargets(rec *appointment.RawRecord) []interface{} {
	return []interface{}{
		&rec.PatientID, &rec.AppointmentID, &rec.Gender, &rec.ScheduledDay, &rec.AppointmentDay,
		&rec.Age, &rec.Neighbourhood, &rec.Scholarship, &rec.Hypertension, &rec.Diabetes,
		&rec.Alcoholism, &rec.Handicap, &rec.SMSReceived, &rec.NoShow,
	}
}
