package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"hl7bridge/internal/audit"
	"hl7bridge/internal/authz"
	dErrors "hl7bridge/pkg/domain-errors"
	"hl7bridge/pkg/platform/httputil"
	"hl7bridge/pkg/requestcontext"
)

// AuditHandler serves audit trail queries and the retention purge.
type AuditHandler struct {
	recorder   *audit.Recorder
	authorizer *authz.Service
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewAuditHandler(recorder *audit.Recorder, authorizer *authz.Service, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		recorder:   recorder,
		authorizer: authorizer,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Query filters audit events by actor, action, outcome, time range and a
// "since" watermark, newest first.
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthentication, "no actor on request"))
		return
	}

	decision := h.authorizer.Authorize(ctx, actor, authz.PermissionReadAudit, authz.Scope{})
	if !decision.Allowed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthorization, "actor may not read the audit trail"))
		return
	}

	query, err := parseAuditQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.recorder.Query(ctx, query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// Purge removes events older than the cutoff. Reserved for retention
// policy callers holding the dedicated permission.
func (h *AuditHandler) Purge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthentication, "no actor on request"))
		return
	}

	decision := h.authorizer.Authorize(ctx, actor, authz.PermissionPurgeAudit, authz.Scope{})
	if !decision.Allowed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthorization, "actor may not purge the audit trail"))
		return
	}

	var req purgeAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "cutoff is required"))
		return
	}

	purged, err := h.recorder.Purge(ctx, req.Cutoff)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"purged": purged,
		"cutoff": req.Cutoff,
	})
}

func parseAuditQuery(r *http.Request) (audit.Query, error) {
	q := r.URL.Query()
	query := audit.Query{
		ActorID: q.Get("actorId"),
		Action:  q.Get("action"),
		Outcome: audit.Outcome(q.Get("outcome")),
	}

	parse := func(name string) (time.Time, error) {
		value := q.Get(name)
		if value == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, dErrors.New(dErrors.CodeBadRequest, name+" must be RFC 3339")
		}
		return t, nil
	}

	var err error
	if query.From, err = parse("from"); err != nil {
		return audit.Query{}, err
	}
	if query.To, err = parse("to"); err != nil {
		return audit.Query{}, err
	}
	if query.Since, err = parse("since"); err != nil {
		return audit.Query{}, err
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return audit.Query{}, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		query.Limit = n
	}
	return query, nil
}
