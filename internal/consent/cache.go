package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"hl7bridge/pkg/platform/sentinel"
)

const activeConsentKeyPrefix = "consent:active:"

// cachedLookup is the serialized cache entry. Misses are cached too so a
// patient without consent does not hammer the store on every message.
type cachedLookup struct {
	Found  bool   `json:"found"`
	Record Record `json:"record,omitempty"`
}

// CachedStore wraps a Store with a Redis read-through cache. Concurrent
// lookups for the same pair collapse into a single store query. Grant and
// Revoke invalidate the pair's entry so decisions never outlive a
// revocation by more than the in-flight requests.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl}
}

func (s *CachedStore) Save(ctx context.Context, record Record) error {
	if err := s.inner.Save(ctx, record); err != nil {
		return err
	}
	s.invalidate(ctx, record.PatientID, record.OrganizationID)
	return nil
}

func (s *CachedStore) FindActive(ctx context.Context, patientID, organizationID string, now time.Time) (Record, error) {
	key := activeConsentKeyPrefix + patientID + ":" + organizationID

	if cached, ok := s.get(ctx, key); ok {
		if !cached.Found {
			return Record{}, sentinel.ErrNotFound
		}
		// Expiry is rechecked against the request clock so a cached
		// grant cannot be honored past its window.
		if !cached.Record.Usable(now) {
			return Record{}, sentinel.ErrNotFound
		}
		return cached.Record, nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		record, err := s.inner.FindActive(ctx, patientID, organizationID, now)
		if errors.Is(err, sentinel.ErrNotFound) {
			s.put(ctx, key, cachedLookup{Found: false})
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		s.put(ctx, key, cachedLookup{Found: true, Record: record})
		return record, nil
	})
	if err != nil {
		return Record{}, err
	}
	record, ok := value.(Record)
	if !ok {
		return Record{}, fmt.Errorf("unexpected cache value type %T", value)
	}
	return record, nil
}

func (s *CachedStore) ListByPatient(ctx context.Context, patientID string) ([]Record, error) {
	return s.inner.ListByPatient(ctx, patientID)
}

func (s *CachedStore) Revoke(ctx context.Context, patientID, organizationID string, revokedAt time.Time) error {
	if err := s.inner.Revoke(ctx, patientID, organizationID, revokedAt); err != nil {
		return err
	}
	s.invalidate(ctx, patientID, organizationID)
	return nil
}

func (s *CachedStore) get(ctx context.Context, key string) (cachedLookup, bool) {
	if s.client == nil {
		return cachedLookup{}, false
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return cachedLookup{}, false
	}
	var cached cachedLookup
	if err := json.Unmarshal(payload, &cached); err != nil {
		return cachedLookup{}, false
	}
	return cached, true
}

func (s *CachedStore) put(ctx context.Context, key string, value cachedLookup) {
	if s.client == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.client.Set(ctx, key, payload, s.ttl)
}

func (s *CachedStore) invalidate(ctx context.Context, patientID, organizationID string) {
	if s.client == nil {
		return
	}
	s.client.Del(ctx, activeConsentKeyPrefix+patientID+":"+organizationID)
}
