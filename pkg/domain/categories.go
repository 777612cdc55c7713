package domain

import "sort"

// DataCategory is a named class of clinical information used for
// consent-based filtering.
type DataCategory string

const (
	CategoryAll               DataCategory = "ALL"
	CategoryDemographics      DataCategory = "DEMOGRAPHICS"
	CategoryEncounters        DataCategory = "ENCOUNTERS"
	CategoryOrders            DataCategory = "ORDERS"
	CategoryObservations      DataCategory = "OBSERVATIONS"
	CategoryLaboratoryResults DataCategory = "LABORATORY_RESULTS"
	CategoryMedications       DataCategory = "MEDICATIONS"
	CategoryAllergies         DataCategory = "ALLERGIES"
	CategoryDiagnoses         DataCategory = "DIAGNOSES"
)

// CategorySet is an unordered set of data categories.
type CategorySet map[DataCategory]struct{}

// NewCategorySet builds a set from the given categories.
func NewCategorySet(categories ...DataCategory) CategorySet {
	s := make(CategorySet, len(categories))
	for _, c := range categories {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports exact membership, without ALL expansion.
func (s CategorySet) Contains(c DataCategory) bool {
	_, ok := s[c]
	return ok
}

// Allows reports whether the set permits the category. ALL permits every
// category. Membership is an allow-list: anything absent is denied.
func (s CategorySet) Allows(c DataCategory) bool {
	if s.Contains(CategoryAll) {
		return true
	}
	return s.Contains(c)
}

// Slice returns the categories in stable sorted order, for serialization
// and logging.
func (s CategorySet) Slice() []DataCategory {
	out := make([]DataCategory, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
