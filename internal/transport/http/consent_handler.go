package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"hl7bridge/internal/authz"
	"hl7bridge/internal/consent"
	dErrors "hl7bridge/pkg/domain-errors"
	"hl7bridge/pkg/platform/httputil"
	"hl7bridge/pkg/requestcontext"
)

// ConsentHandler serves consent lifecycle endpoints. Management operations
// are gated on the manage-consent permission scoped to the grant's
// organization.
type ConsentHandler struct {
	consents   *consent.Service
	authorizer *authz.Service
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewConsentHandler(consents *consent.Service, authorizer *authz.Service, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{
		consents:   consents,
		authorizer: authorizer,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (h *ConsentHandler) Grant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthentication, "no actor on request"))
		return
	}

	var req grantConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "patientId, organizationId and categories are required"))
		return
	}

	decision := h.authorizer.Authorize(ctx, actor, authz.PermissionManageConsent, authz.Scope{
		OrganizationID: req.OrganizationID,
	})
	if !decision.Allowed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthorization, "actor may not manage consent for this organization"))
		return
	}

	record, err := h.consents.Grant(ctx, consent.GrantInput{
		PatientID:        req.PatientID,
		OrganizationID:   req.OrganizationID,
		GrantedBy:        actor.ID,
		Categories:       toCategories(req.Categories),
		DeniedCategories: toCategories(req.DeniedCategories),
		PolicyReference:  req.PolicyReference,
		EffectiveAt:      timeOrZero(req.EffectiveAt),
		ExpiresAt:        timeOrZero(req.ExpiresAt),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *ConsentHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthentication, "no actor on request"))
		return
	}

	var req revokeConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "patientId and organizationId are required"))
		return
	}

	decision := h.authorizer.Authorize(ctx, actor, authz.PermissionManageConsent, authz.Scope{
		OrganizationID: req.OrganizationID,
	})
	if !decision.Allowed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthorization, "actor may not manage consent for this organization"))
		return
	}

	if err := h.consents.Revoke(ctx, req.PatientID, req.OrganizationID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsentHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthentication, "no actor on request"))
		return
	}

	decision := h.authorizer.Authorize(ctx, actor, authz.PermissionReadConsent, authz.Scope{})
	if !decision.Allowed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthorization, "actor may not read consent records"))
		return
	}

	patientID := chi.URLParam(r, "patientID")
	records, err := h.consents.ListByPatient(ctx, patientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"patientId": patientID,
		"consents":  records,
	})
}
