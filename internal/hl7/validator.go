package hl7

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator checks structural well-formedness and business rules of raw
// HL7 v2 messages. Validation is pure: it never mutates the message and
// always reports every issue it finds.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// SupportedMessageTypes lists the base message types this bridge transforms.
var SupportedMessageTypes = map[string]bool{
	"ADT": true,
	"ORM": true,
	"ORU": true,
	"MDM": true,
	"SIU": true,
}

var (
	datePattern     = regexp.MustCompile(`^\d{4}$|^\d{6}$|^\d{8}$`)
	dateTimePattern = regexp.MustCompile(`^\d{8}(\d{4}(\d{2})?(\.\d{1,4})?([+-]\d{4})?)?$`)
	versionPattern  = regexp.MustCompile(`^2\.[0-9]+(\.[0-9]+)?$`)
	processingIDRe  = regexp.MustCompile(`^[PDT]$`)
	genderPattern   = regexp.MustCompile(`^[MFOU]$`)
	emptyRepeatsRe  = regexp.MustCompile(`^\^*$`)
)

// requiredMSHFields are the header fields every message must populate.
var requiredMSHFields = []struct {
	index int
	name  string
}{
	{3, "Sending Application"},
	{4, "Sending Facility"},
	{5, "Receiving Application"},
	{6, "Receiving Facility"},
	{7, "Date/Time of Message"},
	{9, "Message Type"},
	{10, "Message Control ID"},
	{12, "Version ID"},
}

// Validate runs structural checks, then business rules when the structure
// holds. The result carries every issue found, not just the first.
func (v *Validator) Validate(raw string) ValidationResult {
	result := ValidationResult{Valid: true}

	if strings.TrimSpace(raw) == "" {
		result.addError("", "", "EMPTY_MESSAGE", "HL7 message cannot be empty")
		return result
	}

	msg := splitSegments(raw)
	msh, ok := msg.first("MSH")
	if !ok {
		result.addError("MSH", "", "MISSING_SEGMENT", "MSH segment is required in all HL7 messages")
		return result
	}
	if msg.segments[0].name != "MSH" {
		result.addWarning(msg.segments[0].name, "", "SEGMENT_ORDER",
			"MSH segment should be the first segment in the message")
	}
	if len(msh.fields) < 2 || msh.fields[1] == "" {
		result.addError("MSH", "Encoding Characters", "MISSING_FIELD",
			"MSH-2 encoding characters are missing")
	}

	for _, f := range requiredMSHFields {
		if msh.Field(f.index) == "" {
			result.addError("MSH", f.name, "MISSING_FIELD",
				fmt.Sprintf("Required field %s (MSH-%d) is missing or empty", f.name, f.index))
		}
	}

	messageType := msh.Component(9, 1)
	trigger := msh.Component(9, 2)
	if trigger != "" {
		result.MessageType = messageType + "^" + trigger
	} else {
		result.MessageType = messageType
	}
	result.MessageVersion = msh.Field(12)

	if messageType != "" && !SupportedMessageTypes[strings.ToUpper(messageType)] {
		result.addError("MSH", "Message Type", "UNSUPPORTED_TYPE",
			"Unsupported message type: "+messageType)
	}

	v.validateBusinessRules(msg, msh, messageType, &result)
	return result
}

func (v *Validator) validateBusinessRules(msg rawMessage, msh segment, messageType string, result *ValidationResult) {
	if ts := msh.Field(7); ts != "" && !dateTimePattern.MatchString(ts) {
		result.addError("MSH", "Date/Time of Message", "INVALID_DATETIME",
			"Invalid datetime format in MSH-7: "+ts)
	}
	if version := msh.Field(12); version != "" && !versionPattern.MatchString(version) {
		result.addWarning("MSH", "Version ID", "UNSUPPORTED_VERSION",
			"Unsupported HL7 version: "+version+". Supported versions are 2.x")
	}
	if pid := msh.Field(11); pid != "" && !processingIDRe.MatchString(pid) {
		result.addWarning("MSH", "Processing ID", "INVALID_PROCESSING_ID",
			"Processing ID should be P (Production), D (Debug), or T (Training). Found: "+pid)
	}
	if sending, receiving := msh.Field(3), msh.Field(5); sending != "" && sending == receiving {
		result.addWarning("MSH", "Application", "SAME_APPLICATIONS",
			"Sending and receiving applications are the same: "+sending)
	}
	if controlID := msh.Field(10); len(controlID) > 20 {
		result.addWarning("MSH", "Message Control ID", "LONG_CONTROL_ID",
			fmt.Sprintf("Message Control ID is longer than recommended 20 characters: %d", len(controlID)))
	}

	pid, hasPID := msg.first("PID")
	if strings.EqualFold(messageType, "ADT") && !hasPID {
		result.addError("PID", "", "MISSING_SEGMENT", "PID segment is required for ADT messages")
	}
	if hasPID {
		v.validatePatientSegment(pid, result)
	}
}

func (v *Validator) validatePatientSegment(pid segment, result *ValidationResult) {
	patientID := pid.Field(3)
	if patientID == "" || emptyRepeatsRe.MatchString(patientID) {
		result.addError("PID", "Patient ID", "EMPTY_PATIENT_ID",
			"Patient ID cannot be empty when PID segment is present")
		return
	}
	if dob := pid.Field(7); dob != "" && !datePattern.MatchString(dob) {
		result.addError("PID", "Date of Birth", "INVALID_DATE",
			"Invalid date format in PID-7: "+dob)
	}
	if gender := pid.Field(8); gender != "" && !genderPattern.MatchString(gender) {
		result.addWarning("PID", "Administrative Sex", "INVALID_GENDER",
			"Gender should be M, F, O, or U. Found: "+gender)
	}
}

// ExtractPatientID returns the patient identifier (PID-3, first component)
// without a full parse. The consent gate needs it before parsing runs.
func ExtractPatientID(raw string) string {
	msg := splitSegments(raw)
	pid, ok := msg.first("PID")
	if !ok {
		return ""
	}
	if id := pid.Component(3, 1); id != "" {
		return id
	}
	return pid.Field(3)
}

// ExtractMessageType returns the base message type (e.g. "ADT") from MSH-9.
func ExtractMessageType(raw string) string {
	msg := splitSegments(raw)
	msh, ok := msg.first("MSH")
	if !ok {
		return ""
	}
	return strings.ToUpper(msh.Component(9, 1))
}
