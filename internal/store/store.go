package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/spektr-org/noshow/appointment"
)

// Repository persists raw appointment rows as text, exactly as they were
// read from the source file. Each Import is a batch; LoadAll reads only the
// latest batch, so importing the same file twice does not double it.
// Derivation always happens in memory.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	Import(ctx context.Context, records []appointment.RawRecord) (uuid.UUID, int64, error)
	LoadAll(ctx context.Context) ([]appointment.RawRecord, error)
}
