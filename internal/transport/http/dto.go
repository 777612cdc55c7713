package http

import (
	"time"

	"hl7bridge/pkg/domain"
)

// submitMessageRequest is the transformation request body. The raw message
// travels as a JSON string field; segment delimiters survive encoding.
type submitMessageRequest struct {
	Message     string `json:"message" validate:"required"`
	SenderApp   string `json:"senderApp" validate:"omitempty,max=180"`
	ReceiverApp string `json:"receiverApp" validate:"omitempty,max=180"`
}

type grantConsentRequest struct {
	PatientID        string     `json:"patientId" validate:"required,max=64"`
	OrganizationID   string     `json:"organizationId" validate:"required,max=64"`
	Categories       []string   `json:"categories" validate:"required,min=1,dive,required"`
	DeniedCategories []string   `json:"deniedCategories" validate:"omitempty,dive,required"`
	PolicyReference  string     `json:"policyReference" validate:"omitempty,max=256"`
	EffectiveAt      *time.Time `json:"effectiveAt"`
	ExpiresAt        *time.Time `json:"expiresAt"`
}

type revokeConsentRequest struct {
	PatientID      string `json:"patientId" validate:"required,max=64"`
	OrganizationID string `json:"organizationId" validate:"required,max=64"`
}

type purgeAuditRequest struct {
	Cutoff time.Time `json:"cutoff" validate:"required"`
}

func toCategories(values []string) []domain.DataCategory {
	out := make([]domain.DataCategory, 0, len(values))
	for _, v := range values {
		out = append(out, domain.DataCategory(v))
	}
	return out
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
