// Package audit provides the append-only event trail for every pipeline
// run and access decision.
package audit

import (
	"time"
)

// Outcome classifies what an audited action resulted in.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeDenied  Outcome = "DENIED"
	OutcomeError   Outcome = "ERROR"
)

// Action names. One constant per auditable operation; free-form action
// strings are not accepted.
const (
	ActionMessageSubmit  = "message.submit"
	ActionAuthorize      = "authorization.decide"
	ActionConsentVerify  = "consent.verify"
	ActionConsentGrant   = "consent.grant"
	ActionConsentRevoke  = "consent.revoke"
	ActionAuditQuery     = "audit.query"
	ActionAuditPurge     = "audit.purge"
)

// Event is one immutable audit record. Events are never updated; the only
// destructive operation is a time-bounded purge.
type Event struct {
	ID           string            `json:"id"`
	ActorID      string            `json:"actorId"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resourceType,omitempty"`
	ResourceID   string            `json:"resourceId,omitempty"`
	Outcome      Outcome           `json:"outcome"`
	Timestamp    time.Time         `json:"timestamp"`
	RequestID    string            `json:"requestId,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

// Query selects events. Zero values mean "no constraint on this axis".
// Results are always returned newest first.
type Query struct {
	ActorID string
	Action  string
	Outcome Outcome
	From    time.Time
	To      time.Time
	Since   time.Time
	Limit   int
}
