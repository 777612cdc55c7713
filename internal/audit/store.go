package audit

import (
	"context"
	"time"
)

// Store persists audit events. Append must be safe under concurrent
// writers; List always returns newest first. Purge removes events older
// than the cutoff and reports how many were removed.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, query Query) ([]Event, error)
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
