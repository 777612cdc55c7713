package hl7_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/hl7"
)

func TestValidate_ValidAdmission(t *testing.T) {
	v := hl7.NewValidator()

	result := v.Validate(sampleADT())

	assert.True(t, result.Valid)
	assert.Equal(t, "ADT^A01", result.MessageType)
	assert.Equal(t, "2.5", result.MessageVersion)
	assert.Empty(t, result.Errors())
}

func TestValidate_StructuralFailures(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{
			name:     "empty message",
			raw:      "   ",
			wantCode: "EMPTY_MESSAGE",
		},
		{
			name:     "missing MSH segment",
			raw:      samplePID(),
			wantCode: "MISSING_SEGMENT",
		},
		{
			name:     "unsupported message type",
			raw:      strings.Join([]string{sampleMSH("XXX^Y01", "MSG1"), samplePID()}, "\r"),
			wantCode: "UNSUPPORTED_TYPE",
		},
		{
			name:     "ADT without patient segment",
			raw:      sampleMSH("ADT^A01", "MSG1"),
			wantCode: "MISSING_SEGMENT",
		},
	}

	v := hl7.NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.raw)
			assert.False(t, result.Valid)
			assert.True(t, hasIssue(result.Errors(), tt.wantCode), "expected %s in %v", tt.wantCode, result.Issues)
		})
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	v := hl7.NewValidator()
	// Control id and version both missing.
	raw := "MSH|^~\\&|HIS|GeneralHospital|LAB|LabFacility|20240115103000||ADT^A01|||" + "\r" + samplePID()

	result := v.Validate(raw)

	require.False(t, result.Valid)
	assert.GreaterOrEqual(t, len(result.Errors()), 2, "all missing fields must be reported, not just the first")
}

func TestValidate_EmptyPatientID(t *testing.T) {
	v := hl7.NewValidator()
	raw := strings.Join([]string{
		sampleMSH("ADT^A01", "MSG1"),
		"PID|1||^^^||DOE^JOHN||19800101|M",
	}, "\r")

	result := v.Validate(raw)

	require.False(t, result.Valid)
	require.True(t, hasIssue(result.Errors(), "EMPTY_PATIENT_ID"))
	for _, issue := range result.Errors() {
		if issue.Code == "EMPTY_PATIENT_ID" {
			assert.Equal(t, "Patient ID", issue.Field)
		}
	}
}

func TestValidate_InvalidBirthDate(t *testing.T) {
	v := hl7.NewValidator()
	raw := strings.Join([]string{
		sampleMSH("ADT^A01", "MSG1"),
		"PID|1||12345||DOE^JOHN||1980-01-01|M",
	}, "\r")

	result := v.Validate(raw)

	assert.False(t, result.Valid)
	assert.True(t, hasIssue(result.Errors(), "INVALID_DATE"))
}

func TestValidate_InvalidGenderIsWarningOnly(t *testing.T) {
	v := hl7.NewValidator()
	raw := strings.Join([]string{
		sampleMSH("ADT^A01", "MSG1"),
		"PID|1||12345||DOE^JOHN||19800101|X",
	}, "\r")

	result := v.Validate(raw)

	assert.True(t, result.Valid)
	assert.True(t, hasIssue(result.Warnings(), "INVALID_GENDER"))
}

func TestExtractPatientID(t *testing.T) {
	assert.Equal(t, "12345", hl7.ExtractPatientID(sampleADT()))
	assert.Equal(t, "", hl7.ExtractPatientID(sampleMSH("ADT^A01", "MSG1")))
}

func TestExtractMessageType(t *testing.T) {
	assert.Equal(t, "ADT", hl7.ExtractMessageType(sampleADT()))
	assert.Equal(t, "ORU", hl7.ExtractMessageType(sampleORU()))
	assert.Equal(t, "", hl7.ExtractMessageType("PID|1||12345"))
}

func hasIssue(issues []hl7.Issue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}
