package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/audit"
	"hl7bridge/internal/authz"
	"hl7bridge/internal/consent"
	"hl7bridge/internal/fhir"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/pipeline"
	"hl7bridge/pkg/domain"
	dErrors "hl7bridge/pkg/domain-errors"
	"hl7bridge/pkg/requestcontext"
)

var clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	orchestrator *pipeline.Orchestrator
	consents     consent.Store
	auditStore   *audit.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditStore := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(auditStore, nil, logger, nil)
	consentStore := consent.NewInMemoryStore()

	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		Validator:         hl7.NewValidator(),
		Parser:            hl7.NewParser(),
		Transformer:       fhir.NewTransformer(),
		SchemaValidator:   fhir.NewValidator(),
		Consents:          consent.NewService(consentStore, logger, nil),
		Authorizer:        authz.NewService(authz.NewMatrix(), recorder, logger, nil),
		Recorder:          recorder,
		Logger:            logger,
		Metrics:           nil,
		DependencyTimeout: time.Second,
	})
	return &fixture{orchestrator: orchestrator, consents: consentStore, auditStore: auditStore}
}

func (f *fixture) grantConsent(t *testing.T, categories ...domain.DataCategory) {
	t.Helper()
	err := f.consents.Save(context.Background(), consent.Record{
		ID:             "c-1",
		PatientID:      "12345",
		OrganizationID: "org-1",
		Status:         consent.StatusActive,
		Categories:     categories,
		EffectiveAt:    clock.Add(-time.Hour),
		ExpiresAt:      clock.Add(time.Hour),
		CreatedAt:      clock.Add(-time.Hour),
	})
	require.NoError(t, err)
}

// submitEvents returns the run-outcome events only, excluding the
// per-decision authorization events.
func (f *fixture) submitEvents(t *testing.T) []audit.Event {
	t.Helper()
	events, err := f.auditStore.List(context.Background(), audit.Query{Action: audit.ActionMessageSubmit})
	require.NoError(t, err)
	return events
}

func physician() domain.Actor {
	return domain.Actor{
		ID:             "dr-1",
		Name:           "Dr. Example",
		OrganizationID: "org-1",
		Roles:          []domain.Role{domain.RolePhysician},
		Enabled:        true,
	}
}

func testCtx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), clock)
	return requestcontext.WithRequestID(ctx, "req-1")
}

func admissionMessage() string {
	return strings.Join([]string{
		"MSH|^~\\&|HIS|GeneralHospital|LAB|LabFacility|20240115103000||ADT^A01|MSG00001|P|2.5",
		"EVN|A01|20240115103000",
		"PID|1||12345^^^HOSP^MR||DOE^JOHN||19800101|M",
		"PV1|1|I|ICU^101^A|E|||1001^SMITH^JANE" + strings.Repeat("|", 12) + "V1001",
	}, "\r")
}

func observationMessage() string {
	return strings.Join([]string{
		"MSH|^~\\&|LIS|GeneralHospital|EMR|LabFacility|20240115103000||ORU^R01|MSG00002|P|2.5",
		"PID|1||12345^^^HOSP^MR||DOE^JOHN||19800101|M",
		"OBR|1|ORD001|FIL001|CBC^Complete Blood Count",
		"OBX|1|NM|GLU^Glucose|1|105|mg/dL|70-110|N|||F|||20240115100000",
	}, "\r")
}

func TestSubmit_AdmissionWithDemographicsAndEncountersConsent(t *testing.T) {
	f := newFixture(t)
	f.grantConsent(t, domain.CategoryDemographics, domain.CategoryEncounters)

	result, err := f.orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   admissionMessage(),
		Actor: physician(),
	})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusSuccess, result.Status)
	assert.NotEmpty(t, result.CorrelationID)
	require.Len(t, result.Resources, 2)
	assert.Equal(t, fhir.TypePatient, result.Resources[0].Type)
	assert.Equal(t, fhir.TypeEncounter, result.Resources[1].Type)
	for _, r := range result.Resources {
		assert.Equal(t, result.CorrelationID, r.CorrelationID)
	}

	events := f.submitEvents(t)
	require.Len(t, events, 1, "exactly one run-outcome event per request")
	assert.Equal(t, audit.OutcomeSuccess, events[0].Outcome)
	assert.Equal(t, "dr-1", events[0].ActorID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestSubmit_ConsentFiltersObservations(t *testing.T) {
	f := newFixture(t)
	f.grantConsent(t, domain.CategoryDemographics)

	result, err := f.orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   observationMessage(),
		Actor: physician(),
	})
	require.NoError(t, err)

	require.Equal(t, pipeline.StatusSuccess, result.Status)
	require.Len(t, result.Resources, 1)
	assert.Equal(t, fhir.TypePatient, result.Resources[0].Type)
	assert.Equal(t, 1, result.Suppressed, "the observation must be withheld, not mutated")
}

func TestSubmit_NoConsentRecordYieldsConsentError(t *testing.T) {
	f := newFixture(t)

	result, err := f.orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   admissionMessage(),
		Actor: physician(),
	})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusConsentError, result.Status)
	assert.Empty(t, result.Resources, "no partial transformation may probe what would have been allowed")

	events := f.submitEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.OutcomeDenied, events[0].Outcome)
}

func TestSubmit_ExpiredConsentYieldsConsentError(t *testing.T) {
	f := newFixture(t)
	err := f.consents.Save(context.Background(), consent.Record{
		ID:             "c-old",
		PatientID:      "12345",
		OrganizationID: "org-1",
		Status:         consent.StatusActive,
		Categories:     []domain.DataCategory{domain.CategoryAll},
		EffectiveAt:    clock.Add(-48 * time.Hour),
		ExpiresAt:      clock.Add(-time.Hour),
		CreatedAt:      clock.Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	result, err := f.orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   admissionMessage(),
		Actor: physician(),
	})
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusConsentError, result.Status)
}

func TestSubmit_MissingPatientIDYieldsValidationError(t *testing.T) {
	f := newFixture(t)
	raw := strings.Join([]string{
		"MSH|^~\\&|HIS|GeneralHospital|LAB|LabFacility|20240115103000||ADT^A01|MSG00001|P|2.5",
		"PID|1||||DOE^JOHN||19800101|M",
	}, "\r")

	result, err := f.orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   raw,
		Actor: physician(),
	})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusValidationError, result.Status)
	assert.Empty(t, result.Resources)

	found := false
	for _, issue := range result.Issues {
		if issue.Field == "Patient ID" {
			found = true
		}
	}
	assert.True(t, found, "the missing identifier field must be listed: %v", result.Issues)

	events := f.submitEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.OutcomeError, events[0].Outcome)
}

func TestSubmit_ReadOnlyActorYieldsAuthorizationError(t *testing.T) {
	f := newFixture(t)
	f.grantConsent(t, domain.CategoryAll)
	nurse := domain.Actor{
		ID:             "rn-1",
		OrganizationID: "org-1",
		Roles:          []domain.Role{domain.RoleNurse},
		Enabled:        true,
	}

	_, err := f.orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   admissionMessage(),
		Actor: nurse,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))

	events := f.submitEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.OutcomeDenied, events[0].Outcome)

	decisions, err := f.auditStore.List(context.Background(), audit.Query{Action: audit.ActionAuthorize, Outcome: audit.OutcomeDenied})
	require.NoError(t, err)
	assert.Len(t, decisions, 1, "the denied gate decision itself must be audited")
}

func TestSubmit_DisabledActorDenied(t *testing.T) {
	f := newFixture(t)
	f.grantConsent(t, domain.CategoryAll)
	actor := physician()
	actor.Enabled = false

	_, err := f.orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   admissionMessage(),
		Actor: actor,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))
}

func TestSubmit_MalformedMessageYieldsValidationIssues(t *testing.T) {
	f := newFixture(t)

	result, err := f.orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   "not an hl7 message",
		Actor: physician(),
	})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusValidationError, result.Status)
	assert.NotEmpty(t, result.Issues)
}

func TestSubmit_ConsentTimeoutIsDependencyError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditStore := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(auditStore, nil, logger, nil)

	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		Validator:         hl7.NewValidator(),
		Parser:            hl7.NewParser(),
		Transformer:       fhir.NewTransformer(),
		SchemaValidator:   fhir.NewValidator(),
		Consents:          hangingVerifier{},
		Authorizer:        authz.NewService(authz.NewMatrix(), recorder, logger, nil),
		Recorder:          recorder,
		Logger:            logger,
		DependencyTimeout: 20 * time.Millisecond,
	})

	_, err := orchestrator.Submit(testCtx(), pipeline.SubmitRequest{
		Raw:   admissionMessage(),
		Actor: physician(),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDependency),
		"a timeout is a dependency failure, never an implicit allow or deny")
}

type hangingVerifier struct{}

func (hangingVerifier) Verify(ctx context.Context, _, _ string) (consent.VerificationResult, error) {
	<-ctx.Done()
	return consent.VerificationResult{}, ctx.Err()
}
