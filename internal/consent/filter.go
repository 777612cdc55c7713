package consent

import (
	"hl7bridge/internal/fhir"
	"hl7bridge/pkg/domain"
)

// FilterResources applies the allow-list to transformed output. A resource
// survives only when its data category is covered by the grant; everything
// else is suppressed, never mutated. The suppressed slice is returned so
// callers can account for what was withheld.
func FilterResources(resources []fhir.Resource, allowed domain.CategorySet) (kept, suppressed []fhir.Resource) {
	for _, r := range resources {
		if allowed.Allows(r.Category) {
			kept = append(kept, r)
		} else {
			suppressed = append(suppressed, r)
		}
	}
	return kept, suppressed
}
