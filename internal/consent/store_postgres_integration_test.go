//go:build integration

package consent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hl7bridge/internal/consent"
	"hl7bridge/pkg/domain"
	"hl7bridge/pkg/platform/sentinel"
	"hl7bridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *consent.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = consent.NewPostgresStore(s.postgres.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "consent_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) record(id string) consent.Record {
	return consent.Record{
		ID:               id,
		PatientID:        "12345",
		OrganizationID:   "org-1",
		Status:           consent.StatusActive,
		Categories:       []domain.DataCategory{domain.CategoryDemographics, domain.CategoryEncounters},
		DeniedCategories: []domain.DataCategory{domain.CategoryObservations},
		PolicyReference:  "policy/v2",
		EffectiveAt:      s.now.Add(-time.Hour),
		ExpiresAt:        s.now.Add(time.Hour),
		GrantedBy:        "actor-1",
		CreatedAt:        s.now.Add(-time.Hour),
	}
}

func (s *PostgresStoreSuite) TestSaveAndFindActive() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.record("c-1")))

	found, err := s.store.FindActive(ctx, "12345", "org-1", s.now)
	s.Require().NoError(err)

	s.Equal("c-1", found.ID)
	s.Equal(consent.StatusActive, found.Status)
	s.ElementsMatch([]domain.DataCategory{domain.CategoryDemographics, domain.CategoryEncounters}, found.Categories)
	s.Equal([]domain.DataCategory{domain.CategoryObservations}, found.DeniedCategories)
	s.Equal("policy/v2", found.PolicyReference)
	s.Nil(found.RevokedAt)
}

func (s *PostgresStoreSuite) TestFindActiveMissesOutsideWindow() {
	ctx := context.Background()
	expired := s.record("c-expired")
	expired.ExpiresAt = s.now.Add(-time.Minute)
	s.Require().NoError(s.store.Save(ctx, expired))

	_, err := s.store.FindActive(ctx, "12345", "org-1", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindActivePicksNewest() {
	ctx := context.Background()
	old := s.record("c-old")
	old.CreatedAt = s.now.Add(-48 * time.Hour)
	s.Require().NoError(s.store.Save(ctx, old))
	s.Require().NoError(s.store.Save(ctx, s.record("c-new")))

	found, err := s.store.FindActive(ctx, "12345", "org-1", s.now)
	s.Require().NoError(err)
	s.Equal("c-new", found.ID)
}

func (s *PostgresStoreSuite) TestFindActiveIgnoresForeignOrganization() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.record("c-1")))

	_, err := s.store.FindActive(ctx, "12345", "org-other", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRevoke() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.record("c-1")))

	s.Require().NoError(s.store.Revoke(ctx, "12345", "org-1", s.now))

	_, err := s.store.FindActive(ctx, "12345", "org-1", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)

	records, err := s.store.ListByPatient(ctx, "12345")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(consent.StatusRevoked, records[0].Status)
	s.Require().NotNil(records[0].RevokedAt)
	s.WithinDuration(s.now, *records[0].RevokedAt, time.Second)
}

func (s *PostgresStoreSuite) TestRevokeUnknownPairIsNotFound() {
	err := s.store.Revoke(context.Background(), "nobody", "org-1", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByPatientNewestFirst() {
	ctx := context.Background()
	old := s.record("c-old")
	old.CreatedAt = s.now.Add(-48 * time.Hour)
	s.Require().NoError(s.store.Save(ctx, old))
	s.Require().NoError(s.store.Save(ctx, s.record("c-new")))

	records, err := s.store.ListByPatient(ctx, "12345")
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("c-new", records[0].ID)
	s.Equal("c-old", records[1].ID)
}
