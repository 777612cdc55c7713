// Package pipeline composes validation, authorization, consent, parsing,
// transformation, filtering and auditing into the end-to-end message flow.
package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hl7bridge/internal/audit"
	"hl7bridge/internal/authz"
	"hl7bridge/internal/consent"
	"hl7bridge/internal/fhir"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/platform/metrics"
	"hl7bridge/pkg/domain"
	dErrors "hl7bridge/pkg/domain-errors"
	"hl7bridge/pkg/requestcontext"
)

// OutcomeStatus is the caller-visible result classification of one run.
type OutcomeStatus string

const (
	StatusSuccess         OutcomeStatus = "SUCCESS"
	StatusValidationError OutcomeStatus = "VALIDATION_ERROR"
	StatusConsentError    OutcomeStatus = "CONSENT_ERROR"
	StatusTransformError  OutcomeStatus = "TRANSFORM_ERROR"
)

// SubmitRequest is one inbound transformation request.
type SubmitRequest struct {
	Raw         string
	SenderApp   string
	ReceiverApp string
	Actor       domain.Actor
}

// SubmitResult is the outcome of one pipeline run. Issues is populated on
// VALIDATION_ERROR; Warnings carries non-fatal target-schema findings;
// Suppressed counts resources withheld by consent filtering.
type SubmitResult struct {
	Status        OutcomeStatus     `json:"status"`
	CorrelationID string            `json:"correlationId"`
	Timestamp     time.Time         `json:"timestamp"`
	Resources     []fhir.Resource   `json:"resources,omitempty"`
	Issues        []hl7.Issue       `json:"issues,omitempty"`
	Warnings      []fhir.CheckIssue `json:"warnings,omitempty"`
	Suppressed    int               `json:"suppressedResources,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// ConsentVerifier is the slice of the consent service the pipeline needs.
type ConsentVerifier interface {
	Verify(ctx context.Context, patientID, organizationID string) (consent.VerificationResult, error)
}

// Orchestrator owns the per-request state machine and runs the stages
// strictly in order. Stages never run concurrently within one request;
// independent requests share nothing but the immutable matrix and caches.
type Orchestrator struct {
	validator   *hl7.Validator
	parser      *hl7.Parser
	transformer *fhir.Transformer
	schema      *fhir.Validator
	consents    ConsentVerifier
	authorizer  *authz.Service
	recorder    *audit.Recorder
	logger      *slog.Logger
	metrics     *metrics.Metrics
	depTimeout  time.Duration
}

type Config struct {
	Validator         *hl7.Validator
	Parser            *hl7.Parser
	Transformer       *fhir.Transformer
	SchemaValidator   *fhir.Validator
	Consents          ConsentVerifier
	Authorizer        *authz.Service
	Recorder          *audit.Recorder
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	DependencyTimeout time.Duration
}

func NewOrchestrator(cfg Config) *Orchestrator {
	timeout := cfg.DependencyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Orchestrator{
		validator:   cfg.Validator,
		parser:      cfg.Parser,
		transformer: cfg.Transformer,
		schema:      cfg.SchemaValidator,
		consents:    cfg.Consents,
		authorizer:  cfg.Authorizer,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		depTimeout:  timeout,
	}
}

var tracer = otel.Tracer("hl7bridge/pipeline")

// Submit runs the full pipeline for one message. Validation, consent and
// transform failures are reported in the result status; authorization and
// dependency failures are returned as errors for the transport to map.
// Exactly one outcome audit event is recorded per run.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	start := time.Now()
	msg := hl7.NewMessage(req.Raw, req.SenderApp, req.ReceiverApp, requestcontext.Now(ctx))

	result, err := o.run(ctx, msg, req)
	result.CorrelationID = msg.CorrelationID
	result.Timestamp = requestcontext.Now(ctx)

	outcome := string(result.Status)
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	if o.metrics != nil {
		o.metrics.MessagesProcessed.WithLabelValues(outcome).Inc()
		o.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}
	o.logger.InfoContext(ctx, "message processed",
		slog.String("correlation_id", msg.CorrelationID),
		slog.String("outcome", outcome),
		slog.Int("resources", len(result.Resources)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, msg *hl7.Message, req SubmitRequest) (SubmitResult, error) {
	// Stage 1: structural validation.
	if err := msg.TransitionTo(hl7.StatusValidating); err != nil {
		return SubmitResult{}, err
	}
	validation := o.validateStage(ctx, msg.Raw)
	if !validation.Valid {
		_ = msg.TransitionTo(hl7.StatusInvalid)
		o.auditOutcome(ctx, req.Actor, msg, audit.OutcomeError, map[string]string{
			"status": string(StatusValidationError),
			"issues": strconv.Itoa(len(validation.Errors())),
		})
		return SubmitResult{
			Status: StatusValidationError,
			Issues: validation.Issues,
		}, nil
	}
	if err := msg.TransitionTo(hl7.StatusValid); err != nil {
		return SubmitResult{}, err
	}

	// Stage 2: authorization. A denial is audited by the gate itself; the
	// run-level outcome event is recorded here on top, once.
	decision := o.authorizeStage(ctx, req.Actor)
	if !decision.Allowed {
		o.auditOutcome(ctx, req.Actor, msg, audit.OutcomeDenied, map[string]string{
			"reason": decision.Reason,
		})
		return SubmitResult{}, dErrors.New(dErrors.CodeAuthorization, "actor is not permitted to transform messages")
	}

	// Stage 3: consent, keyed on a pre-parse peek at the patient id so no
	// clinical content is materialized before the gate passes.
	patientID := hl7.ExtractPatientID(msg.Raw)
	if patientID == "" {
		o.auditOutcome(ctx, req.Actor, msg, audit.OutcomeError, map[string]string{
			"status": string(StatusValidationError),
			"reason": "message carries no patient identifier",
		})
		return SubmitResult{
			Status:  StatusValidationError,
			Message: "message carries no patient identifier",
		}, nil
	}
	verification, err := o.verifyConsentStage(ctx, patientID, req.Actor.OrganizationID)
	if err != nil {
		o.auditOutcome(ctx, req.Actor, msg, audit.OutcomeError, map[string]string{
			"status": string(dErrors.CodeOf(err)),
		})
		return SubmitResult{}, err
	}
	if !verification.Allowed {
		o.auditOutcome(ctx, req.Actor, msg, audit.OutcomeDenied, map[string]string{
			"status":     string(StatusConsentError),
			"patient_id": patientID,
			"reason":     verification.Reason,
		})
		return SubmitResult{
			Status:  StatusConsentError,
			Message: "consent not found or expired",
		}, nil
	}

	// Stage 4: parse.
	if err := msg.TransitionTo(hl7.StatusTransforming); err != nil {
		return SubmitResult{}, err
	}
	parsed, err := o.parseStage(ctx, msg.Raw)
	if err != nil {
		return o.transformFailure(ctx, req.Actor, msg, err)
	}

	// Stage 5: transform.
	resources, err := o.transformStage(ctx, parsed, msg.CorrelationID)
	if err != nil {
		return o.transformFailure(ctx, req.Actor, msg, err)
	}

	// Stage 6: target-schema checks. Only a defective person record fails
	// the run; everything else is downgraded to warnings.
	warnings, err := o.schemaStage(ctx, resources)
	if err != nil {
		return o.transformFailure(ctx, req.Actor, msg, err)
	}

	// Stage 7: consent filtering.
	kept, suppressed := o.filterStage(ctx, resources, verification.AllowedCategories)

	if err := msg.TransitionTo(hl7.StatusTransformed); err != nil {
		return SubmitResult{}, err
	}

	// Stage 8: the single run-outcome audit event.
	o.auditOutcome(ctx, req.Actor, msg, audit.OutcomeSuccess, map[string]string{
		"status":     string(StatusSuccess),
		"patient_id": patientID,
		"emitted":    strconv.Itoa(len(kept)),
		"suppressed": strconv.Itoa(len(suppressed)),
	})

	return SubmitResult{
		Status:     StatusSuccess,
		Resources:  kept,
		Warnings:   onlyWarnings(warnings),
		Suppressed: len(suppressed),
	}, nil
}

func (o *Orchestrator) validateStage(ctx context.Context, raw string) hl7.ValidationResult {
	_, span := tracer.Start(ctx, "pipeline.validate")
	defer span.End()
	result := o.validator.Validate(raw)
	span.SetAttributes(
		attribute.Bool("valid", result.Valid),
		attribute.Int("issues", len(result.Issues)),
	)
	return result
}

func (o *Orchestrator) authorizeStage(ctx context.Context, actor domain.Actor) authz.Decision {
	ctx, span := tracer.Start(ctx, "pipeline.authorize")
	defer span.End()
	decision := o.authorizer.Authorize(ctx, actor, authz.PermissionTransformMessages, authz.Scope{
		OrganizationID: actor.OrganizationID,
	})
	span.SetAttributes(attribute.Bool("allowed", decision.Allowed))
	return decision
}

func (o *Orchestrator) verifyConsentStage(ctx context.Context, patientID, organizationID string) (consent.VerificationResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.verify_consent")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.depTimeout)
	defer cancel()

	verification, err := o.consents.Verify(ctx, patientID, organizationID)
	if err != nil {
		if ctx.Err() != nil {
			return consent.VerificationResult{}, dErrors.Wrap(dErrors.CodeDependency, "consent lookup timed out", err)
		}
		return consent.VerificationResult{}, err
	}
	span.SetAttributes(attribute.Bool("allowed", verification.Allowed))
	return verification, nil
}

func (o *Orchestrator) parseStage(ctx context.Context, raw string) (*hl7.ParsedMessage, error) {
	_, span := tracer.Start(ctx, "pipeline.parse")
	defer span.End()
	return o.parser.Parse(raw)
}

func (o *Orchestrator) transformStage(ctx context.Context, parsed *hl7.ParsedMessage, correlationID string) ([]fhir.Resource, error) {
	_, span := tracer.Start(ctx, "pipeline.transform")
	defer span.End()
	resources, err := o.transformer.Transform(parsed, correlationID, requestcontext.Now(ctx))
	if err == nil {
		span.SetAttributes(attribute.Int("resources", len(resources)))
	}
	return resources, err
}

func (o *Orchestrator) schemaStage(ctx context.Context, resources []fhir.Resource) ([]fhir.CheckIssue, error) {
	_, span := tracer.Start(ctx, "pipeline.schema_check")
	defer span.End()
	issues, err := o.schema.ValidateAll(resources)
	span.SetAttributes(attribute.Int("findings", len(issues)))
	return issues, err
}

func (o *Orchestrator) filterStage(ctx context.Context, resources []fhir.Resource, allowed domain.CategorySet) (kept, suppressed []fhir.Resource) {
	_, span := tracer.Start(ctx, "pipeline.filter", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	kept, suppressed = consent.FilterResources(resources, allowed)
	span.SetAttributes(
		attribute.Int("kept", len(kept)),
		attribute.Int("suppressed", len(suppressed)),
	)
	return kept, suppressed
}

func (o *Orchestrator) transformFailure(ctx context.Context, actor domain.Actor, msg *hl7.Message, cause error) (SubmitResult, error) {
	_ = msg.TransitionTo(hl7.StatusTransformError)
	o.auditOutcome(ctx, actor, msg, audit.OutcomeError, map[string]string{
		"status": string(StatusTransformError),
		"error":  dErrors.MessageOf(cause),
	})
	o.logger.ErrorContext(ctx, "transformation failed",
		slog.String("correlation_id", msg.CorrelationID),
		slog.String("error", cause.Error()),
	)
	// Internal mapping failures surface generically; the detail stays in
	// logs and the audit trail.
	return SubmitResult{
		Status:  StatusTransformError,
		Message: "message could not be transformed",
	}, nil
}

func (o *Orchestrator) auditOutcome(ctx context.Context, actor domain.Actor, msg *hl7.Message, outcome audit.Outcome, details map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, o.depTimeout)
	defer cancel()
	o.recorder.Record(ctx, actor.ID, audit.ActionMessageSubmit, "IncomingMessage", msg.CorrelationID, outcome, details)
}

func onlyWarnings(issues []fhir.CheckIssue) []fhir.CheckIssue {
	var warnings []fhir.CheckIssue
	for _, issue := range issues {
		if issue.Severity == fhir.CheckWarning {
			warnings = append(warnings, issue)
		}
	}
	return warnings
}

