package http

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"hl7bridge/internal/pipeline"
	dErrors "hl7bridge/pkg/domain-errors"
	"hl7bridge/pkg/platform/httputil"
	"hl7bridge/pkg/requestcontext"
)

// MessagesHandler serves the transformation endpoint.
type MessagesHandler struct {
	orchestrator *pipeline.Orchestrator
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewMessagesHandler(orchestrator *pipeline.Orchestrator, logger *slog.Logger) *MessagesHandler {
	return &MessagesHandler{
		orchestrator: orchestrator,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Submit runs one message through the pipeline. Pipeline-level failures
// arrive in the result body with a 200; only transport and gate errors map
// to error statuses.
func (h *MessagesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthentication, "no actor on request"))
		return
	}

	var req submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "message is required"))
		return
	}

	result, err := h.orchestrator.Submit(ctx, pipeline.SubmitRequest{
		Raw:         req.Message,
		SenderApp:   req.SenderApp,
		ReceiverApp: req.ReceiverApp,
		Actor:       actor,
	})
	if err != nil {
		httputil.WriteErrorDetails(w, err, nil, result.CorrelationID)
		return
	}

	status := http.StatusOK
	switch result.Status {
	case pipeline.StatusValidationError:
		status = http.StatusBadRequest
	case pipeline.StatusConsentError:
		status = http.StatusUnprocessableEntity
	case pipeline.StatusTransformError:
		status = http.StatusInternalServerError
	}
	httputil.WriteJSON(w, status, result)
}
