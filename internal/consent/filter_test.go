package consent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/consent"
	"hl7bridge/internal/fhir"
	"hl7bridge/pkg/domain"
)

func sampleResources() []fhir.Resource {
	return []fhir.Resource{
		{Type: fhir.TypePatient, ID: "p1", Category: domain.CategoryDemographics},
		{Type: fhir.TypeEncounter, ID: "e1", Category: domain.CategoryEncounters},
		{Type: fhir.TypeObservation, ID: "o1", Category: domain.CategoryObservations},
	}
}

func TestFilterResources_AllowListSemantics(t *testing.T) {
	allowed := domain.NewCategorySet(domain.CategoryDemographics)

	kept, suppressed := consent.FilterResources(sampleResources(), allowed)

	require.Len(t, kept, 1)
	assert.Equal(t, "p1", kept[0].ID)
	assert.Len(t, suppressed, 2, "categories without an explicit allow are denied even absent an explicit denial")
}

func TestFilterResources_AllWildcard(t *testing.T) {
	kept, suppressed := consent.FilterResources(sampleResources(), domain.NewCategorySet(domain.CategoryAll))

	assert.Len(t, kept, 3)
	assert.Empty(t, suppressed)
}

func TestFilterResources_EmptySetSuppressesEverything(t *testing.T) {
	kept, suppressed := consent.FilterResources(sampleResources(), domain.NewCategorySet())

	assert.Empty(t, kept)
	assert.Len(t, suppressed, 3)
}

func TestFilterResources_PreservesOrder(t *testing.T) {
	allowed := domain.NewCategorySet(domain.CategoryDemographics, domain.CategoryObservations)

	kept, _ := consent.FilterResources(sampleResources(), allowed)

	require.Len(t, kept, 2)
	assert.Equal(t, "p1", kept[0].ID)
	assert.Equal(t, "o1", kept[1].ID)
}
