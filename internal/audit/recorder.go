package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hl7bridge/internal/platform/metrics"
	dErrors "hl7bridge/pkg/domain-errors"
	"hl7bridge/pkg/requestcontext"
)

// Publisher fans a recorded event out to an external sink. Optional.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder appends events to the store and optionally publishes them. An
// append failure never propagates to the caller as a pipeline failure; it
// raises the operational alert counter and is logged instead.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewRecorder(store Store, publisher Publisher, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{store: store, publisher: publisher, logger: logger, metrics: m}
}

// Record appends one event. The id and timestamp are assigned here so no
// caller can forge either.
func (r *Recorder) Record(ctx context.Context, actorID, action, resourceType, resourceID string, outcome Outcome, details map[string]string) {
	event := Event{
		ID:           uuid.New().String(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      outcome,
		Timestamp:    requestcontext.Now(ctx),
		RequestID:    requestcontext.RequestID(ctx),
		Details:      details,
	}

	if err := r.store.Append(ctx, event); err != nil {
		if r.metrics != nil {
			r.metrics.AuditAppendFailures.Inc()
		}
		r.logger.ErrorContext(ctx, "audit append failed",
			slog.String("action", action),
			slog.String("actor_id", actorID),
			slog.String("outcome", string(outcome)),
			slog.String("error", err.Error()),
		)
		return
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.WarnContext(ctx, "audit publish failed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Query returns matching events, newest first.
func (r *Recorder) Query(ctx context.Context, query Query) ([]Event, error) {
	events, err := r.store.List(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeDependency, "query audit events", err)
	}
	return events, nil
}

// Purge removes events older than the cutoff. Reserved for the retention
// policy caller; there is no way to remove anything newer.
func (r *Recorder) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "purge cutoff is required")
	}
	purged, err := r.store.Purge(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeDependency, "purge audit events", err)
	}
	r.logger.InfoContext(ctx, "audit events purged",
		slog.Int64("count", purged),
		slog.Time("cutoff", cutoff),
	)
	return purged, nil
}
