package consent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hl7bridge/internal/platform/metrics"
	"hl7bridge/pkg/domain"
	dErrors "hl7bridge/pkg/domain-errors"
	"hl7bridge/pkg/platform/sentinel"
	"hl7bridge/pkg/requestcontext"
)

// Service answers consent questions for the pipeline and manages the
// record lifecycle. Verification fails closed: no record, an unusable
// record, or a store failure all deny sharing.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: m}
}

// Verify resolves whether the organization may receive the patient's data
// right now and which categories the grant covers.
func (s *Service) Verify(ctx context.Context, patientID, organizationID string) (VerificationResult, error) {
	if patientID == "" {
		return VerificationResult{}, dErrors.New(dErrors.CodeBadRequest, "patient id is required")
	}
	if organizationID == "" {
		return VerificationResult{}, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}

	now := requestcontext.Now(ctx)
	denied := VerificationResult{
		Allowed:        false,
		PatientID:      patientID,
		OrganizationID: organizationID,
	}

	record, err := s.store.FindActive(ctx, patientID, organizationID, now)
	if errors.Is(err, sentinel.ErrNotFound) {
		denied.Reason = "no active consent on record"
		// Report the precise state of a lapsed, suspended or revoked grant
		// so the caller's audit trail distinguishes it from a never-granted
		// patient.
		if latest, ok := s.latestForPair(ctx, patientID, organizationID); ok {
			denied.ConsentID = latest.ID
			denied.Status = latest.EffectiveStatus(now)
			denied.Reason = "consent is " + string(denied.Status)
		}
		s.recordDenial(ctx, patientID, organizationID, denied.Reason)
		return denied, nil
	}
	if err != nil {
		return VerificationResult{}, dErrors.Wrap(dErrors.CodeDependency, "consent store lookup failed", err)
	}

	if !record.Usable(now) {
		denied.ConsentID = record.ID
		denied.Status = record.EffectiveStatus(now)
		denied.Reason = "consent is " + string(denied.Status)
		s.recordDenial(ctx, patientID, organizationID, denied.Reason)
		return denied, nil
	}

	return VerificationResult{
		Allowed:           true,
		Status:            StatusActive,
		PatientID:         patientID,
		OrganizationID:    organizationID,
		ConsentID:         record.ID,
		AllowedCategories: record.AllowedSet(),
		DeniedCategories:  record.DeniedCategories,
	}, nil
}

// GrantInput describes a new consent to record.
type GrantInput struct {
	PatientID        string
	OrganizationID   string
	GrantedBy        string
	Categories       []domain.DataCategory
	DeniedCategories []domain.DataCategory
	PolicyReference  string
	EffectiveAt      time.Time
	ExpiresAt        time.Time
}

// Grant records a new consent. The record starts ACTIVE when its effective
// time has already passed, PENDING otherwise.
func (s *Service) Grant(ctx context.Context, input GrantInput) (Record, error) {
	if input.PatientID == "" || input.OrganizationID == "" {
		return Record{}, dErrors.New(dErrors.CodeBadRequest, "patient id and organization id are required")
	}
	if len(input.Categories) == 0 {
		return Record{}, dErrors.New(dErrors.CodeBadRequest, "at least one data category is required")
	}
	now := requestcontext.Now(ctx)
	effectiveAt := input.EffectiveAt
	if effectiveAt.IsZero() {
		effectiveAt = now
	}
	if !input.ExpiresAt.IsZero() && !input.ExpiresAt.After(effectiveAt) {
		return Record{}, dErrors.New(dErrors.CodeBadRequest, "expiry must fall after the effective time")
	}

	status := StatusPending
	if !effectiveAt.After(now) {
		status = StatusActive
	}
	record := Record{
		ID:               uuid.New().String(),
		PatientID:        input.PatientID,
		OrganizationID:   input.OrganizationID,
		Status:           status,
		Categories:       input.Categories,
		DeniedCategories: input.DeniedCategories,
		PolicyReference:  input.PolicyReference,
		EffectiveAt:      effectiveAt,
		ExpiresAt:        input.ExpiresAt,
		GrantedBy:        input.GrantedBy,
		CreatedAt:        now,
	}
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, dErrors.Wrap(dErrors.CodeDependency, "save consent record", err)
	}
	s.logger.InfoContext(ctx, "consent granted",
		slog.String("consent_id", record.ID),
		slog.String("patient_id", input.PatientID),
		slog.String("organization_id", input.OrganizationID),
		slog.String("status", string(status)),
	)
	return record, nil
}

// Revoke permanently withdraws every non-revoked grant for the pair.
func (s *Service) Revoke(ctx context.Context, patientID, organizationID string) error {
	if patientID == "" || organizationID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "patient id and organization id are required")
	}
	now := requestcontext.Now(ctx)
	err := s.store.Revoke(ctx, patientID, organizationID, now)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "no consent on record for this pair")
	}
	if err != nil {
		return dErrors.Wrap(dErrors.CodeDependency, "revoke consent", err)
	}
	s.logger.InfoContext(ctx, "consent revoked",
		slog.String("patient_id", patientID),
		slog.String("organization_id", organizationID),
	)
	return nil
}

// ListByPatient returns the patient's consent history, newest first, with
// each record's status resolved against the request clock.
func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Record, error) {
	if patientID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "patient id is required")
	}
	records, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeDependency, "list consent records", err)
	}
	now := requestcontext.Now(ctx)
	for i := range records {
		records[i].Status = records[i].EffectiveStatus(now)
	}
	return records, nil
}

// latestForPair returns the newest record for the pair regardless of
// usability. Lookup failures fall back to the generic denial reason.
func (s *Service) latestForPair(ctx context.Context, patientID, organizationID string) (Record, bool) {
	records, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return Record{}, false
	}
	var found *Record
	for i := range records {
		r := records[i]
		if r.OrganizationID != organizationID {
			continue
		}
		if found == nil || r.CreatedAt.After(found.CreatedAt) {
			found = &r
		}
	}
	if found == nil {
		return Record{}, false
	}
	return *found, true
}

func (s *Service) recordDenial(ctx context.Context, patientID, organizationID, reason string) {
	if s.metrics != nil {
		s.metrics.ConsentDenials.Inc()
	}
	s.logger.InfoContext(ctx, "consent denied",
		slog.String("patient_id", patientID),
		slog.String("organization_id", organizationID),
		slog.String("reason", reason),
	)
}
