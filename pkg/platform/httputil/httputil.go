// Package httputil contains shared HTTP response helpers for the transport
// layer. Error responses expose taxonomy codes only; internal causes stay in
// the logs.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"

	dErrors "hl7bridge/pkg/domain-errors"
)

// ErrorBody is the wire shape for every error response. Details is optional
// structured context (e.g. field-level validation issues).
type ErrorBody struct {
	Error         string    `json:"error"`
	Description   string    `json:"error_description,omitempty"`
	Details       any       `json:"details,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeValidation:     http.StatusBadRequest,
	dErrors.CodeBadRequest:     http.StatusBadRequest,
	dErrors.CodeAuthentication: http.StatusUnauthorized,
	dErrors.CodeAuthorization:  http.StatusForbidden,
	dErrors.CodeConsent:        http.StatusUnprocessableEntity,
	dErrors.CodeNotFound:       http.StatusNotFound,
	dErrors.CodeTransform:      http.StatusInternalServerError,
	dErrors.CodeDependency:     http.StatusServiceUnavailable,
	dErrors.CodeInternal:       http.StatusInternalServerError,
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and body. Internal and
// transform errors omit the description so no implementation detail leaks.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorDetails(w, err, nil, "")
}

// WriteErrorDetails is WriteError with optional structured details and a
// correlation id.
func WriteErrorDetails(w http.ResponseWriter, err error, details any, correlationID string) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := ErrorBody{
		Error:         string(code),
		Details:       details,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}
	if code != dErrors.CodeInternal && code != dErrors.CodeTransform {
		body.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, body)
}
