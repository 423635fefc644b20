package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"credstore/internal/audit"
	"credstore/internal/platform/metrics"
	"credstore/internal/schema/models"
	"credstore/internal/schema/store"
	dErrors "credstore/pkg/domain-errors"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
)

type stubReferences struct {
	counts map[int64]int
	err    error
}

func (r *stubReferences) RetireSchema(_ context.Context, id int64) error {
	if r.err != nil {
		return r.err
	}
	if r.counts[id] > 0 {
		return sentinel.ErrInUse
	}
	return nil
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) GetAll(context.Context, crud.Page) ([]models.Schema, error) {
	return nil, f.err
}

func (f failingStore) Create(context.Context, models.Schema) (int64, error) {
	return 0, f.err
}

func (f failingStore) DeleteByID(context.Context, int64) error {
	return f.err
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   Store
	refs    *stubReferences
	audit   *audit.InMemoryStore
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.refs = &stubReferences{counts: map[int64]int{}}
	s.audit = audit.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store, s.refs,
		WithAuditPublisher(audit.NewPublisher(s.audit)),
		WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) sample() models.BaseType {
	return models.BaseType{"a": models.BoolType(), "b": models.ListOf(models.IntType())}
}

func (s *ServiceSuite) TestCreate() {
	s.Run("assigns id and ignores client id", func() {
		clientID := int64(77)
		created, err := s.service.Create(s.ctx, models.Schema{ID: &clientID, Schema: s.sample()})
		s.Require().NoError(err)
		s.Require().NotNil(created.ID)
		s.NotEqual(clientID, *created.ID)

		stored, err := s.service.Get(s.ctx, *created.ID)
		s.Require().NoError(err)
		s.True(stored.Schema.Equal(s.sample()))

		events, err := s.audit.ListByResource(s.ctx, "schemas", *created.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionCreated, events[0].Action)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ResourcesCreated.WithLabelValues("schemas")))
	})

	s.Run("requires schema field", func() {
		_, err := s.service.Create(s.ctx, models.Schema{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(MsgInvalidSchema, err.Error())
	})

	s.Run("empty schema is allowed", func() {
		created, err := s.service.Create(s.ctx, models.Schema{Schema: models.BaseType{}})
		s.Require().NoError(err)
		s.NotNil(created.ID)
	})

	s.Run("store failure", func() {
		svc := New(failingStore{Store: s.store, err: errors.New("connection reset")}, nil)
		_, err := svc.Create(s.ctx, models.Schema{Schema: s.sample()})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Equal(crud.MsgCreateFailed, err.Error())
	})
}

func (s *ServiceSuite) TestGet() {
	_, err := s.service.Get(s.ctx, 123)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(crud.MsgNotFound, err.Error())
}

func (s *ServiceSuite) TestList() {
	for range 3 {
		_, err := s.service.Create(s.ctx, models.Schema{Schema: s.sample()})
		s.Require().NoError(err)
	}
	limit := uint64(2)
	schemas, err := s.service.List(s.ctx, crud.Page{Limit: &limit})
	s.Require().NoError(err)
	s.Len(schemas, 2)

	svc := New(failingStore{Store: s.store, err: errors.New("timeout")}, nil)
	_, err = svc.List(s.ctx, crud.Page{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(crud.MsgInternal, err.Error())
}

func (s *ServiceSuite) TestUpdate() {
	created, err := s.service.Create(s.ctx, models.Schema{Schema: s.sample()})
	s.Require().NoError(err)

	s.Run("replaces schema", func() {
		next := models.BaseType{"z": models.NullType()}
		updated, err := s.service.Update(s.ctx, models.Schema{ID: created.ID, Schema: next})
		s.Require().NoError(err)
		s.Equal(*created.ID, *updated.ID)

		stored, err := s.service.Get(s.ctx, *created.ID)
		s.Require().NoError(err)
		s.True(stored.Schema.Equal(next))
	})

	s.Run("requires id", func() {
		_, err := s.service.Update(s.ctx, models.Schema{Schema: s.sample()})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal(crud.MsgInvalidBody, err.Error())
	})

	s.Run("requires schema field", func() {
		_, err := s.service.Update(s.ctx, models.Schema{ID: created.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown id", func() {
		missing := int64(999)
		_, err := s.service.Update(s.ctx, models.Schema{ID: &missing, Schema: s.sample()})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDelete() {
	created, err := s.service.Create(s.ctx, models.Schema{Schema: s.sample()})
	s.Require().NoError(err)
	id := *created.ID

	s.Run("rejects referenced schema", func() {
		s.refs.counts[id] = 2
		err := s.service.Delete(s.ctx, id)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(MsgSchemaInUse, err.Error())

		_, err = s.service.Get(s.ctx, id)
		s.NoError(err)
	})

	s.Run("reference lookup failure", func() {
		s.refs.err = errors.New("boom")
		defer func() { s.refs.err = nil }()
		s.True(dErrors.HasCode(s.service.Delete(s.ctx, id), dErrors.CodeInternal))
	})

	s.Run("deletes unreferenced schema", func() {
		s.refs.counts[id] = 0
		s.Require().NoError(s.service.Delete(s.ctx, id))

		_, err := s.service.Get(s.ctx, id)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ResourcesDeleted.WithLabelValues("schemas")))
	})

	s.Run("unknown id", func() {
		s.True(dErrors.HasCode(s.service.Delete(s.ctx, id), dErrors.CodeNotFound))
	})

	s.Run("store reports reference violation", func() {
		svc := New(failingStore{Store: s.store, err: sentinel.ErrInUse}, nil)
		err := svc.Delete(s.ctx, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(MsgSchemaInUse, err.Error())
	})
}

func TestNewWithoutOptions(t *testing.T) {
	svc := New(store.NewInMemory(), nil)
	created, err := svc.Create(context.Background(), models.Schema{Schema: models.BaseType{}})
	assert.NoError(t, err)
	assert.NoError(t, svc.Delete(context.Background(), *created.ID))
}
