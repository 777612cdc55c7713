package hl7_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/hl7"
)

func TestMessage_ForwardTransitions(t *testing.T) {
	msg := hl7.NewMessage(sampleADT(), "HIS", "LAB", time.Now())
	assert.NotEmpty(t, msg.CorrelationID)
	assert.Equal(t, hl7.StatusReceived, msg.Status())

	for _, next := range []hl7.Status{
		hl7.StatusValidating,
		hl7.StatusValid,
		hl7.StatusTransforming,
		hl7.StatusTransformed,
	} {
		require.NoError(t, msg.TransitionTo(next))
		assert.Equal(t, next, msg.Status())
	}
	assert.True(t, msg.Status().Terminal())
}

func TestMessage_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []hl7.Status
		next hl7.Status
	}{
		{name: "skip validating", path: nil, next: hl7.StatusValid},
		{name: "received to transformed", path: nil, next: hl7.StatusTransformed},
		{
			name: "invalid is terminal",
			path: []hl7.Status{hl7.StatusValidating, hl7.StatusInvalid},
			next: hl7.StatusTransforming,
		},
		{
			name: "no revisiting validating",
			path: []hl7.Status{hl7.StatusValidating, hl7.StatusValid},
			next: hl7.StatusValidating,
		},
		{
			name: "transform error is terminal",
			path: []hl7.Status{hl7.StatusValidating, hl7.StatusValid, hl7.StatusTransforming, hl7.StatusTransformError},
			next: hl7.StatusTransformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := hl7.NewMessage("x", "a", "b", time.Now())
			for _, s := range tt.path {
				require.NoError(t, msg.TransitionTo(s))
			}
			before := msg.Status()
			assert.Error(t, msg.TransitionTo(tt.next))
			assert.Equal(t, before, msg.Status(), "state must not change on a rejected transition")
		})
	}
}

func TestMessage_UniqueCorrelationIDs(t *testing.T) {
	a := hl7.NewMessage("x", "a", "b", time.Now())
	b := hl7.NewMessage("x", "a", "b", time.Now())
	assert.NotEqual(t, a.CorrelationID, b.CorrelationID)
}
