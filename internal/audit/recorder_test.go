package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/audit"
	"hl7bridge/internal/platform/metrics"
	"hl7bridge/pkg/requestcontext"
)

// One registration per test binary; promauto registers globally.
var testMetrics = metrics.New()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recordAt(recorder *audit.Recorder, at time.Time, actorID, action string, outcome audit.Outcome) {
	ctx := requestcontext.WithTime(context.Background(), at)
	recorder.Record(ctx, actorID, action, "IncomingMessage", "corr", outcome, nil)
}

func TestRecorder_QueryNewestFirst(t *testing.T) {
	store := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(store, nil, discardLogger(), nil)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	recordAt(recorder, base, "a1", audit.ActionMessageSubmit, audit.OutcomeSuccess)
	recordAt(recorder, base.Add(time.Minute), "a2", audit.ActionMessageSubmit, audit.OutcomeError)
	recordAt(recorder, base.Add(2*time.Minute), "a1", audit.ActionConsentVerify, audit.OutcomeDenied)

	events, err := recorder.Query(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, audit.ActionConsentVerify, events[0].Action)
	assert.Equal(t, audit.ActionMessageSubmit, events[2].Action)
	assert.True(t, events[0].Timestamp.After(events[1].Timestamp))
}

func TestRecorder_QueryAxes(t *testing.T) {
	store := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(store, nil, discardLogger(), nil)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	recordAt(recorder, base, "a1", audit.ActionMessageSubmit, audit.OutcomeSuccess)
	recordAt(recorder, base.Add(time.Minute), "a2", audit.ActionMessageSubmit, audit.OutcomeError)
	recordAt(recorder, base.Add(2*time.Minute), "a1", audit.ActionConsentVerify, audit.OutcomeDenied)

	ctx := context.Background()

	byActor, err := recorder.Query(ctx, audit.Query{ActorID: "a1"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byOutcome, err := recorder.Query(ctx, audit.Query{Outcome: audit.OutcomeError})
	require.NoError(t, err)
	require.Len(t, byOutcome, 1)
	assert.Equal(t, "a2", byOutcome[0].ActorID)

	byRange, err := recorder.Query(ctx, audit.Query{From: base.Add(30 * time.Second), To: base.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, byRange, 1)

	since, err := recorder.Query(ctx, audit.Query{Since: base.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, since, 1, "since is exclusive of the watermark itself")
	assert.Equal(t, audit.ActionConsentVerify, since[0].Action)

	limited, err := recorder.Query(ctx, audit.Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRecorder_AssignsIDAndTimestamp(t *testing.T) {
	store := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(store, nil, discardLogger(), nil)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	recordAt(recorder, at, "a1", audit.ActionMessageSubmit, audit.OutcomeSuccess)

	events, err := store.List(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, at, events[0].Timestamp)
}

func TestRecorder_Purge(t *testing.T) {
	store := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(store, nil, discardLogger(), nil)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	recordAt(recorder, base.Add(-48*time.Hour), "a1", audit.ActionMessageSubmit, audit.OutcomeSuccess)
	recordAt(recorder, base, "a1", audit.ActionMessageSubmit, audit.OutcomeSuccess)

	purged, err := recorder.Purge(context.Background(), base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining, err := store.List(context.Background(), audit.Query{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, base, remaining[0].Timestamp)
}

func TestRecorder_PurgeRequiresCutoff(t *testing.T) {
	recorder := audit.NewRecorder(audit.NewInMemoryStore(), nil, discardLogger(), nil)
	_, err := recorder.Purge(context.Background(), time.Time{})
	assert.Error(t, err)
}

func TestRecorder_AppendFailureRaisesAlertNotError(t *testing.T) {
	recorder := audit.NewRecorder(failingStore{}, nil, discardLogger(), testMetrics)
	before := testutil.ToFloat64(testMetrics.AuditAppendFailures)

	// Record has no error return by design; the alert counter is the signal.
	recorder.Record(context.Background(), "a1", audit.ActionMessageSubmit, "", "", audit.OutcomeSuccess, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(testMetrics.AuditAppendFailures))
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("down") }
func (failingStore) List(context.Context, audit.Query) ([]audit.Event, error) {
	return nil, errors.New("down")
}
func (failingStore) Purge(context.Context, time.Time) (int64, error) { return 0, errors.New("down") }
