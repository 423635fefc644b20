//go:build integration

package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"credstore/internal/audit"
	"credstore/pkg/requestcontext"
	"credstore/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresStoreSuite) TestPublishedEventsAreListedInOrder() {
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	publisher := audit.NewPublisher(s.store, audit.WithAsyncBuffer(8))

	for _, action := range []audit.Action{audit.ActionCreated, audit.ActionRejected, audit.ActionDeleted} {
		s.Require().NoError(publisher.Emit(ctx, audit.Event{Resource: "credentials", ResourceID: 7, Action: action}))
	}
	s.Require().NoError(publisher.Emit(ctx, audit.Event{Resource: "schemas", ResourceID: 7, Action: audit.ActionCreated}))
	publisher.Close()

	events, err := publisher.List(ctx, "credentials", 7)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(audit.ActionCreated, events[0].Action)
	s.Equal(audit.ActionRejected, events[1].Action)
	s.Equal(audit.ActionDeleted, events[2].Action)
	s.Equal("req-42", events[2].RequestID)
	s.False(events[0].Timestamp.IsZero())
}
