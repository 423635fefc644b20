//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"credstore/internal/schema/models"
	"credstore/internal/schema/store"
	"credstore/pkg/platform/crud"
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

func (s *PostgresStoreSuite) TestNestedSchemaRoundTrip() {
	body := models.BaseType{
		"name": models.StringType(),
		"tags": models.ListOf(models.StringType(), models.IntType()),
		"address": models.MapOf(map[string]models.ValueType{
			"zip":   models.IntType(),
			"extra": models.NullType(),
		}),
	}

	id, err := s.store.Create(s.ctx, models.Schema{Schema: body})
	s.Require().NoError(err)

	got, err := s.store.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(id, *got.ID)
	s.True(body.Equal(got.Schema))
}

func (s *PostgresStoreSuite) TestAbsentSchemaIsNull() {
	id, err := s.store.Create(s.ctx, models.Schema{})
	s.Require().NoError(err)

	got, err := s.store.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.Nil(got.Schema)
}

func (s *PostgresStoreSuite) TestUpdateReplacesSchema() {
	id, err := s.store.Create(s.ctx, models.Schema{Schema: models.BaseType{"a": models.BoolType()}})
	s.Require().NoError(err)

	replacement := models.BaseType{"b": models.FloatType()}
	s.Require().NoError(s.store.Update(s.ctx, models.Schema{ID: &id, Schema: replacement}))

	got, err := s.store.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.True(replacement.Equal(got.Schema))
}

func (s *PostgresStoreSuite) TestGetAllPages() {
	for range 4 {
		_, err := s.store.Create(s.ctx, models.Schema{Schema: models.BaseType{"a": models.BoolType()}})
		s.Require().NoError(err)
	}
	limit, offset := uint64(2), uint64(1)

	page, err := s.store.GetAll(s.ctx, crud.Page{Limit: &limit, Offset: &offset})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Less(*page[0].ID, *page[1].ID)

	all, err := s.store.GetAll(s.ctx, crud.Page{})
	s.Require().NoError(err)
	s.Len(all, 4)
	s.Equal(*all[1].ID, *page[0].ID)
}

func (s *PostgresStoreSuite) TestMissingRows() {
	_, err := s.store.GetByID(s.ctx, 999)
	s.ErrorIs(err, sentinel.ErrNotFound)

	missing := int64(999)
	s.ErrorIs(s.store.Update(s.ctx, models.Schema{ID: &missing}), sentinel.ErrNotFound)
	s.ErrorIs(s.store.DeleteByID(s.ctx, 999), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Update(s.ctx, models.Schema{}), sentinel.ErrInvalidInput)
}
