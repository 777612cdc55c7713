// Package consent manages patient data-sharing consent records and the
// verification and filtering decisions derived from them.
package consent

import (
	"time"

	"hl7bridge/pkg/domain"
)

// Status is the lifecycle state of a consent record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusExpired   Status = "EXPIRED"
	StatusRevoked   Status = "REVOKED"
)

// Record is one patient-organization consent grant. EffectiveAt and
// ExpiresAt bound the window in which the grant is usable; the wall clock
// is authoritative over the stored Status field.
type Record struct {
	ID               string                `json:"id"`
	PatientID        string                `json:"patientId"`
	OrganizationID   string                `json:"organizationId"`
	Status           Status                `json:"status"`
	Categories       []domain.DataCategory `json:"categories"`
	DeniedCategories []domain.DataCategory `json:"deniedCategories,omitempty"`
	PolicyReference  string                `json:"policyReference,omitempty"`
	EffectiveAt      time.Time             `json:"effectiveAt"`
	ExpiresAt        time.Time             `json:"expiresAt"`
	GrantedBy        string                `json:"grantedBy"`
	CreatedAt        time.Time             `json:"createdAt"`
	RevokedAt        *time.Time            `json:"revokedAt,omitempty"`
}

// EffectiveStatus resolves the record state at the given instant. A stored
// ACTIVE whose window has lapsed reads as EXPIRED; revocation is permanent.
func (r Record) EffectiveStatus(now time.Time) Status {
	if r.Status == StatusRevoked {
		return StatusRevoked
	}
	if !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt) {
		return StatusExpired
	}
	if r.Status == StatusPending && !r.EffectiveAt.IsZero() && !now.Before(r.EffectiveAt) {
		return StatusActive
	}
	return r.Status
}

// Usable reports whether the record authorizes sharing at the given instant.
func (r Record) Usable(now time.Time) bool {
	return r.EffectiveStatus(now) == StatusActive
}

// AllowedSet resolves the grant into an allow-list. An explicit denied
// entry always wins, including over an ALL wildcard, which is expanded
// into the concrete categories before subtraction.
func (r Record) AllowedSet() domain.CategorySet {
	allowed := domain.NewCategorySet(r.Categories...)
	if len(r.DeniedCategories) == 0 {
		return allowed
	}
	if allowed.Contains(domain.CategoryAll) {
		allowed = domain.NewCategorySet(
			domain.CategoryDemographics,
			domain.CategoryEncounters,
			domain.CategoryOrders,
			domain.CategoryObservations,
			domain.CategoryLaboratoryResults,
			domain.CategoryMedications,
			domain.CategoryAllergies,
			domain.CategoryDiagnoses,
		)
	}
	for _, denied := range r.DeniedCategories {
		delete(allowed, denied)
	}
	return allowed
}

// VerificationResult is the outcome of a consent check for one
// patient-organization pair.
type VerificationResult struct {
	Allowed           bool                  `json:"allowed"`
	Status            Status                `json:"status,omitempty"`
	PatientID         string                `json:"patientId"`
	OrganizationID    string                `json:"organizationId"`
	ConsentID         string                `json:"consentId,omitempty"`
	AllowedCategories domain.CategorySet    `json:"-"`
	DeniedCategories  []domain.DataCategory `json:"deniedCategories,omitempty"`
	Reason            string                `json:"reason,omitempty"`
}
