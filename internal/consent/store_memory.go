package consent

import (
	"context"
	"sort"
	"sync"
	"time"

	"hl7bridge/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record // keyed by patient id
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.PatientID] = append(s.records[record.PatientID], record)
	return nil
}

func (s *InMemoryStore) FindActive(_ context.Context, patientID, organizationID string, now time.Time) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest usable grant wins when a pair holds several.
	var found *Record
	for i := range s.records[patientID] {
		r := s.records[patientID][i]
		if r.OrganizationID != organizationID || !r.Usable(now) {
			continue
		}
		if found == nil || r.CreatedAt.After(found.CreatedAt) {
			found = &r
		}
	}
	if found == nil {
		return Record{}, sentinel.ErrNotFound
	}
	return *found, nil
}

func (s *InMemoryStore) ListByPatient(_ context.Context, patientID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Record{}, s.records[patientID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Revoke(_ context.Context, patientID, organizationID string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.records[patientID]
	revoked := false
	for i := range records {
		if records[i].OrganizationID == organizationID && records[i].Status != StatusRevoked {
			records[i].Status = StatusRevoked
			at := revokedAt
			records[i].RevokedAt = &at
			revoked = true
		}
	}
	if !revoked {
		return sentinel.ErrNotFound
	}
	s.records[patientID] = records
	return nil
}
