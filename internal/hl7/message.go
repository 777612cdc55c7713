package hl7

import (
	"time"

	"github.com/google/uuid"

	dErrors "hl7bridge/pkg/domain-errors"
)

// Status tracks a message through the pipeline. Transitions are strictly
// forward; no state is revisited.
type Status string

const (
	StatusReceived       Status = "RECEIVED"
	StatusValidating     Status = "VALIDATING"
	StatusValid          Status = "VALID"
	StatusInvalid        Status = "INVALID"
	StatusTransforming   Status = "TRANSFORMING"
	StatusTransformed    Status = "TRANSFORMED"
	StatusTransformError Status = "TRANSFORM_ERROR"
)

var allowedTransitions = map[Status][]Status{
	StatusReceived:     {StatusValidating},
	StatusValidating:   {StatusValid, StatusInvalid},
	StatusValid:        {StatusTransforming},
	StatusTransforming: {StatusTransformed, StatusTransformError},
}

// Terminal reports whether no further transition exists from s.
func (s Status) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Message is one inbound HL7 v2 message. It is owned by the orchestrator for
// the lifetime of a single request and never persisted past it except
// through the audit trail.
type Message struct {
	CorrelationID string
	Raw           string
	SenderApp     string
	ReceiverApp   string
	ReceivedAt    time.Time

	status Status
}

// NewMessage wraps a raw message with a fresh correlation id in RECEIVED
// state.
func NewMessage(raw, senderApp, receiverApp string, receivedAt time.Time) *Message {
	return &Message{
		CorrelationID: uuid.New().String(),
		Raw:           raw,
		SenderApp:     senderApp,
		ReceiverApp:   receiverApp,
		ReceivedAt:    receivedAt,
		status:        StatusReceived,
	}
}

// Status returns the current pipeline state.
func (m *Message) Status() Status { return m.status }

// TransitionTo advances the message state. Only forward transitions defined
// by the pipeline state machine are permitted.
func (m *Message) TransitionTo(next Status) error {
	for _, allowed := range allowedTransitions[m.status] {
		if allowed == next {
			m.status = next
			return nil
		}
	}
	return dErrors.New(dErrors.CodeInternal,
		"illegal message transition "+string(m.status)+" -> "+string(next))
}
