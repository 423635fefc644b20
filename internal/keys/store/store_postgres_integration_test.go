//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"credstore/internal/keys/models"
	"credstore/internal/keys/store"
	"credstore/pkg/platform/sentinel"
	"credstore/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) TestLifecycle() {
	pk := "MCowBQYDK2VwAyEA"
	id, err := s.store.Create(s.ctx, models.CryptographicKey{PublicKey: &pk})
	s.Require().NoError(err)

	got, err := s.store.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(got.PublicKey)
	s.Equal(pk, *got.PublicKey)

	s.Require().NoError(s.store.Update(s.ctx, models.CryptographicKey{ID: &id}))
	got, err = s.store.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.Nil(got.PublicKey)

	s.Require().NoError(s.store.DeleteByID(s.ctx, id))
	_, err = s.store.GetByID(s.ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestIDsAreMonotonic() {
	first, err := s.store.Create(s.ctx, models.CryptographicKey{})
	s.Require().NoError(err)
	s.Require().NoError(s.store.DeleteByID(s.ctx, first))

	second, err := s.store.Create(s.ctx, models.CryptographicKey{})
	s.Require().NoError(err)
	s.Greater(second, first)
}
