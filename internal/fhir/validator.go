package fhir

import (
	"fmt"

	"github.com/goccy/go-json"

	"hl7bridge/internal/fhir/model"
	dErrors "hl7bridge/pkg/domain-errors"
)

// CheckSeverity grades a target-schema finding.
type CheckSeverity string

const (
	CheckError   CheckSeverity = "ERROR"
	CheckWarning CheckSeverity = "WARNING"
)

// CheckIssue is one target-schema finding against an emitted resource.
type CheckIssue struct {
	ResourceType ResourceType  `json:"resourceType"`
	ResourceID   string        `json:"resourceId,omitempty"`
	Field        string        `json:"field"`
	Message      string        `json:"message"`
	Severity     CheckSeverity `json:"severity"`
}

// Validator checks emitted resources against the minimal target schema.
// Findings on optional resources are reported as warnings; a defective
// person record is the only hard failure since every downstream consumer
// keys off it.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAll checks every resource in output order. It returns the full
// issue list and an error only when the person record itself is defective.
func (v *Validator) ValidateAll(resources []Resource) ([]CheckIssue, error) {
	var issues []CheckIssue
	for _, r := range resources {
		found := v.validate(r)
		issues = append(issues, found...)
		if r.Type == TypePatient {
			for _, issue := range found {
				if issue.Severity == CheckError {
					return issues, dErrors.New(dErrors.CodeTransform,
						fmt.Sprintf("patient resource failed schema checks: %s", issue.Message))
				}
			}
		}
	}
	return issues, nil
}

func (v *Validator) validate(r Resource) []CheckIssue {
	switch r.Type {
	case TypePatient:
		return v.checkPatient(r)
	case TypeEncounter:
		return v.checkEncounter(r)
	case TypeServiceRequest:
		return v.checkServiceRequest(r)
	case TypeObservation:
		return v.checkObservation(r)
	default:
		return []CheckIssue{issue(r, "resourceType", "unknown resource kind", CheckError)}
	}
}

func (v *Validator) checkPatient(r Resource) []CheckIssue {
	var patient model.Patient
	if err := json.Unmarshal(r.Content, &patient); err != nil {
		return []CheckIssue{issue(r, "content", "patient content is not valid JSON", CheckError)}
	}
	var issues []CheckIssue
	if patient.ID == "" {
		issues = append(issues, issue(r, "id", "patient must carry an identifier", CheckError))
	}
	if len(patient.Name) == 0 {
		issues = append(issues, issue(r, "name", "patient has no name", CheckWarning))
	}
	if patient.Gender != "" && !validGender(patient.Gender) {
		issues = append(issues, issue(r, "gender", "gender outside administrative-gender value set", CheckError))
	}
	return issues
}

func (v *Validator) checkEncounter(r Resource) []CheckIssue {
	var encounter model.Encounter
	if err := json.Unmarshal(r.Content, &encounter); err != nil {
		return []CheckIssue{issue(r, "content", "encounter content is not valid JSON", CheckWarning)}
	}
	var issues []CheckIssue
	if encounter.Status == "" {
		issues = append(issues, issue(r, "status", "encounter has no status", CheckWarning))
	}
	if encounter.Subject == nil {
		issues = append(issues, issue(r, "subject", "encounter has no subject reference", CheckWarning))
	}
	return issues
}

func (v *Validator) checkServiceRequest(r Resource) []CheckIssue {
	var request model.ServiceRequest
	if err := json.Unmarshal(r.Content, &request); err != nil {
		return []CheckIssue{issue(r, "content", "service request content is not valid JSON", CheckWarning)}
	}
	var issues []CheckIssue
	if request.Status == "" {
		issues = append(issues, issue(r, "status", "service request has no status", CheckWarning))
	}
	if request.Intent == "" {
		issues = append(issues, issue(r, "intent", "service request has no intent", CheckWarning))
	}
	if request.Subject == nil {
		issues = append(issues, issue(r, "subject", "service request has no subject reference", CheckWarning))
	}
	return issues
}

func (v *Validator) checkObservation(r Resource) []CheckIssue {
	var observation model.Observation
	if err := json.Unmarshal(r.Content, &observation); err != nil {
		return []CheckIssue{issue(r, "content", "observation content is not valid JSON", CheckWarning)}
	}
	var issues []CheckIssue
	if observation.Status == "" {
		issues = append(issues, issue(r, "status", "observation has no status", CheckWarning))
	}
	if observation.Code == nil {
		issues = append(issues, issue(r, "code", "observation has no code", CheckWarning))
	}
	if observation.ValueQuantity == nil && observation.ValueString == "" {
		issues = append(issues, issue(r, "value", "observation carries no value", CheckWarning))
	}
	return issues
}

func validGender(gender string) bool {
	switch gender {
	case "male", "female", "other", "unknown":
		return true
	}
	return false
}

func issue(r Resource, field, message string, severity CheckSeverity) CheckIssue {
	return CheckIssue{
		ResourceType: r.Type,
		ResourceID:   r.ID,
		Field:        field,
		Message:      message,
		Severity:     severity,
	}
}
