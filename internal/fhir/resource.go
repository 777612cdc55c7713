package fhir

import (
	"time"

	"hl7bridge/pkg/domain"
)

// ResourceType tags an output unit. The tagged-variant set is closed: one
// mapping function exists per kind.
type ResourceType string

const (
	TypePatient        ResourceType = "Patient"
	TypeEncounter      ResourceType = "Encounter"
	TypeServiceRequest ResourceType = "ServiceRequest"
	TypeObservation    ResourceType = "Observation"
)

// categoryByType maps each resource kind to the data category consent
// filtering operates on.
var categoryByType = map[ResourceType]domain.DataCategory{
	TypePatient:        domain.CategoryDemographics,
	TypeEncounter:      domain.CategoryEncounters,
	TypeServiceRequest: domain.CategoryOrders,
	TypeObservation:    domain.CategoryObservations,
}

// Category returns the consent data category for a resource kind.
func (t ResourceType) Category() domain.DataCategory {
	return categoryByType[t]
}

// Resource is one immutable output unit: serialized FHIR R4 content plus
// the correlation id of the message that produced it.
type Resource struct {
	Type          ResourceType        `json:"resourceType"`
	ID            string              `json:"resourceId"`
	Content       []byte              `json:"content"`
	Category      domain.DataCategory `json:"category"`
	CorrelationID string              `json:"correlationId"`
	CreatedAt     time.Time           `json:"createdAt"`
}
