package hl7

// Severity grades a validation issue. Errors make the message INVALID;
// warnings are reported but do not block the pipeline.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Issue is one field-level validation finding.
type Issue struct {
	Segment  string   `json:"segment,omitempty"`
	Field    string   `json:"field,omitempty"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult collects every issue found in a message, not just the
// first. Valid is false when at least one error-severity issue exists.
type ValidationResult struct {
	Valid          bool
	MessageType    string
	MessageVersion string
	Issues         []Issue
}

func (r *ValidationResult) addError(segment, field, code, message string) {
	r.Valid = false
	r.Issues = append(r.Issues, Issue{
		Segment: segment, Field: field, Code: code, Message: message,
		Severity: SeverityError,
	})
}

func (r *ValidationResult) addWarning(segment, field, code, message string) {
	r.Issues = append(r.Issues, Issue{
		Segment: segment, Field: field, Code: code, Message: message,
		Severity: SeverityWarning,
	})
}

// Errors returns only error-severity issues.
func (r *ValidationResult) Errors() []Issue {
	var out []Issue
	for _, iss := range r.Issues {
		if iss.Severity == SeverityError {
			out = append(out, iss)
		}
	}
	return out
}

// Warnings returns only warning-severity issues.
func (r *ValidationResult) Warnings() []Issue {
	var out []Issue
	for _, iss := range r.Issues {
		if iss.Severity == SeverityWarning {
			out = append(out, iss)
		}
	}
	return out
}
