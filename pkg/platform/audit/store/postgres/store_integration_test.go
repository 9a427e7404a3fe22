//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	platformpg "custody/internal/platform/postgres"
	id "custody/pkg/domain"
	audit "custody/pkg/platform/audit"
	"custody/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
	now   time.Time
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(platformpg.Migrate(context.Background(), s.pg.DB))
	s.store = New(s.pg.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "compliance_events"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *AuditStoreSuite) event(eventType audit.EventType, account string, offset time.Duration) audit.Event {
	return audit.Event{
		ID:        uuid.New(),
		Type:      eventType,
		Account:   id.AccountID(account),
		Detail:    string(eventType),
		Timestamp: s.now.Add(offset),
	}
}

func (s *AuditStoreSuite) TestAppendIsIdempotentOnID() {
	ctx := context.Background()
	e := s.event(audit.EventCustomerRegistered, "alice", 0)
	s.Require().NoError(s.store.Append(ctx, e))
	s.Require().NoError(s.store.Append(ctx, e))

	events, err := s.store.ListByAccount(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(e.ID, events[0].ID)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.True(e.Timestamp.Equal(events[0].Timestamp))
}

func (s *AuditStoreSuite) TestListByTypesReturnsMostRecentOldestFirst() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.event(audit.EventSystemPaused, "", time.Second)))
	s.Require().NoError(s.store.Append(ctx, s.event(audit.EventLimitWarning, "bob", 2*time.Second)))
	s.Require().NoError(s.store.Append(ctx, s.event(audit.EventSystemResumed, "", 3*time.Second)))
	s.Require().NoError(s.store.Append(ctx, s.event(audit.EventSystemPaused, "", 4*time.Second)))

	events, err := s.store.ListByTypes(ctx, []audit.EventType{audit.EventSystemPaused, audit.EventSystemResumed}, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.EventSystemResumed, events[0].Type)
	s.Equal(audit.EventSystemPaused, events[1].Type)

	recent, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Len(recent, 4)
}
