package consent

import (
	"context"
	"time"
)

// Store persists consent records. FindActive returns the usable record for
// the pair at the given instant, or sentinel.ErrNotFound.
type Store interface {
	Save(ctx context.Context, record Record) error
	FindActive(ctx context.Context, patientID, organizationID string, now time.Time) (Record, error)
	ListByPatient(ctx context.Context, patientID string) ([]Record, error)
	Revoke(ctx context.Context, patientID, organizationID string, revokedAt time.Time) error
}
