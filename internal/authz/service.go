package authz

import (
	"context"
	"log/slog"

	"hl7bridge/internal/audit"
	"hl7bridge/internal/platform/metrics"
	"hl7bridge/pkg/domain"
)

// Scope carries the organization context of an operation. A zero Scope
// means the operation is not organization-bound.
type Scope struct {
	OrganizationID string
}

// Decision is the result of one authorization check.
type Decision struct {
	Allowed    bool
	Permission Permission
	Reason     string
}

// Service evaluates permissions against the matrix. Every decision, allow
// or deny, is audited before the caller observes it.
type Service struct {
	matrix   *Matrix
	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(matrix *Matrix, recorder *audit.Recorder, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{matrix: matrix, recorder: recorder, logger: logger, metrics: m}
}

// Authorize decides whether the actor may perform the operation guarded by
// the permission within the given scope.
func (s *Service) Authorize(ctx context.Context, actor domain.Actor, permission Permission, scope Scope) Decision {
	decision := s.decide(actor, permission, scope)

	outcome := audit.OutcomeSuccess
	if !decision.Allowed {
		outcome = audit.OutcomeDenied
		if s.metrics != nil {
			s.metrics.AuthorizationDenials.Inc()
		}
		s.logger.InfoContext(ctx, "authorization denied",
			slog.String("actor_id", actor.ID),
			slog.String("permission", string(permission)),
			slog.String("reason", decision.Reason),
		)
	}
	details := map[string]string{
		"permission": string(permission),
	}
	if scope.OrganizationID != "" {
		details["organization_id"] = scope.OrganizationID
	}
	if decision.Reason != "" {
		details["reason"] = decision.Reason
	}
	s.recorder.Record(ctx, actor.ID, audit.ActionAuthorize, "", "", outcome, details)

	return decision
}

func (s *Service) decide(actor domain.Actor, permission Permission, scope Scope) Decision {
	if !actor.Enabled {
		return Decision{Permission: permission, Reason: "actor is disabled"}
	}

	granted := s.matrix.PermissionsFor(actor)
	if !granted.Contains(permission) {
		return Decision{Permission: permission, Reason: "permission not held by any assigned role"}
	}

	// Organization scope is checked only when the operation names one.
	// Matching organization or the cross-organization capability passes.
	if scope.OrganizationID != "" && actor.OrganizationID != scope.OrganizationID {
		if !actor.HasRole(domain.RoleNetworkParticipant) {
			return Decision{Permission: permission, Reason: "organization scope mismatch"}
		}
	}

	return Decision{Allowed: true, Permission: permission}
}
