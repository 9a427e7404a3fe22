package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custody/internal/kyc/models"
	kycStore "custody/internal/kyc/store"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/audit/publishers/compliance"
	auditmemory "custody/pkg/platform/audit/store/memory"
	"custody/pkg/requestcontext"
)

// =============================================================================
// KYC Registry Test Suite
// =============================================================================
// The registry is the approval oracle for every other module, so the cap table,
// admin gating and audit emission are exercised here directly.

type KYCServiceSuite struct {
	suite.Suite
	store   *kycStore.InMemoryAccountStore
	events  *auditmemory.InMemoryStore
	service *Service
	now     time.Time
}

func TestKYCServiceSuite(t *testing.T) {
	suite.Run(t, new(KYCServiceSuite))
}

func (s *KYCServiceSuite) SetupTest() {
	s.store = kycStore.NewInMemory()
	s.events = auditmemory.NewInMemoryStore()
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store, compliance.New(s.events), WithEventReader(s.events))
	s.Require().NoError(err)
}

func (s *KYCServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *KYCServiceSuite) adminCtx() context.Context {
	return requestcontext.WithAdmin(s.ctx(), "ops-1")
}

func (s *KYCServiceSuite) register(account id.AccountID, tier int) {
	data := models.KYCData{FullName: "Test Customer", Country: "DE", Tier: &tier}
	s.Require().NoError(s.service.RegisterCustomer(s.ctx(), account, data))
}

func (s *KYCServiceSuite) eventTypes(account id.AccountID) []audit.EventType {
	events, err := s.service.ListComplianceEvents(s.ctx(), account)
	s.Require().NoError(err)
	var types []audit.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *KYCServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, compliance.New(s.events))
		s.ErrorContains(err, "account store is required")
	})

	s.Run("nil auditor returns error", func() {
		_, err := New(s.store, nil)
		s.ErrorContains(err, "audit emitter is required")
	})
}

// =============================================================================
// Registration
// =============================================================================

func (s *KYCServiceSuite) TestRegisterCustomer() {
	s.Run("defaults to tier 0 and unapproved", func() {
		err := s.service.RegisterCustomer(s.ctx(), "alice", models.KYCData{FullName: "Alice", Country: "FR"})
		s.Require().NoError(err)

		a, err := s.service.GetAccount(s.ctx(), "alice")
		s.Require().NoError(err)
		s.Equal(id.TierNone, a.Tier)
		s.False(a.Approved)
		s.Equal(s.now, a.CreatedAt)
		s.Equal([]audit.EventType{audit.EventCustomerRegistered}, s.eventTypes("alice"))
	})

	s.Run("supplied tier is approved", func() {
		s.register("bob", 2)
		tier, err := s.service.GetTier(s.ctx(), "bob")
		s.Require().NoError(err)
		s.Equal(id.Tier(2), tier)
	})

	s.Run("duplicate registration conflicts", func() {
		err := s.service.RegisterCustomer(s.ctx(), "bob", models.KYCData{FullName: "Bob", Country: "FR"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("malformed data is a validation error", func() {
		err := s.service.RegisterCustomer(s.ctx(), "carol", models.KYCData{FullName: "", Country: "FR"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.GetAccount(s.ctx(), "carol")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Admin mutations
// =============================================================================

func (s *KYCServiceSuite) TestUpdateTier() {
	s.register("alice", 0)

	s.Run("non-admin is unauthorized", func() {
		err := s.service.UpdateTier(s.ctx(), "alice", 2)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("admin update approves and audits", func() {
		s.Require().NoError(s.service.UpdateTier(s.adminCtx(), "alice", 2))

		a, err := s.service.GetAccount(s.ctx(), "alice")
		s.Require().NoError(err)
		s.Equal(id.Tier(2), a.Tier)
		s.True(a.Approved)

		events, err := s.service.ListComplianceEvents(s.ctx(), "alice")
		s.Require().NoError(err)
		last := events[len(events)-1]
		s.Equal(audit.EventTierUpdated, last.Type)
		s.Equal("ops-1", last.ActorID)
		s.Equal("tier 0 -> 2", last.Detail)
	})

	s.Run("downgrade to tier 0 removes approval", func() {
		s.Require().NoError(s.service.UpdateTier(s.adminCtx(), "alice", 0))
		s.False(s.service.IsApprovedForOperation(s.ctx(), "alice", id.OperationDeposit, 1))
	})

	s.Run("invalid tier rejected", func() {
		err := s.service.UpdateTier(s.adminCtx(), "alice", 9)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown account not found", func() {
		err := s.service.UpdateTier(s.adminCtx(), "ghost", 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *KYCServiceSuite) TestSetApproval() {
	s.register("alice", 3)
	s.register("zero", 0)

	s.Require().NoError(s.service.SetApproval(s.adminCtx(), "alice", false))
	s.False(s.service.IsApprovedForOperation(s.ctx(), "alice", id.OperationDeposit, 1))

	s.Require().NoError(s.service.SetApproval(s.adminCtx(), "alice", true))
	s.True(s.service.IsApprovedForOperation(s.ctx(), "alice", id.OperationDeposit, 1))

	err := s.service.SetApproval(s.adminCtx(), "zero", true)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("increase KYC tier to proceed", dErrors.HintOf(err))
}

func (s *KYCServiceSuite) TestEnhancedVerification() {
	s.register("alice", 1)
	s.False(s.service.IsEnhancedVerified(s.ctx(), "alice"))

	err := s.service.GrantEnhancedVerification(s.ctx(), "alice")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.service.GrantEnhancedVerification(s.adminCtx(), "alice"))
	s.True(s.service.IsEnhancedVerified(s.ctx(), "alice"))

	s.Require().NoError(s.service.RevokeEnhancedVerification(s.adminCtx(), "alice"))
	s.False(s.service.IsEnhancedVerified(s.ctx(), "alice"))

	s.Equal([]audit.EventType{
		audit.EventCustomerRegistered,
		audit.EventEnhancedVerificationGranted,
		audit.EventEnhancedVerificationRevoked,
	}, s.eventTypes("alice"))
}

// =============================================================================
// Approval oracle
// =============================================================================

func (s *KYCServiceSuite) TestIsApprovedForOperation() {
	s.register("t0", 0)
	s.register("t1", 1)

	s.False(s.service.IsApprovedForOperation(s.ctx(), "t0", id.OperationDeposit, 1), "tier 0 never approved")
	s.False(s.service.IsApprovedForOperation(s.ctx(), "ghost", id.OperationDeposit, 1), "unknown never approved")
	s.True(s.service.IsApprovedForOperation(s.ctx(), "t1", id.OperationDeposit, 10_000_000))
	s.False(s.service.IsApprovedForOperation(s.ctx(), "t1", id.OperationDeposit, 10_000_001))
}

type brokenStore struct{ *kycStore.InMemoryAccountStore }

func (brokenStore) FindByID(context.Context, id.AccountID) (*models.Account, error) {
	return nil, errors.New("connection reset")
}

func (s *KYCServiceSuite) TestIsApprovedForOperation_StoreFailureDenies() {
	svc, err := New(brokenStore{kycStore.NewInMemory()}, compliance.New(s.events))
	s.Require().NoError(err)
	s.False(svc.IsApprovedForOperation(s.ctx(), "alice", id.OperationDeposit, 1))
}

func (s *KYCServiceSuite) TestLogComplianceEvent() {
	err := s.service.LogComplianceEvent(s.ctx(), audit.Event{Account: "alice", Type: audit.EventComplianceViolation, Detail: "tier too low"})
	s.Require().NoError(err)
	s.Equal([]audit.EventType{audit.EventComplianceViolation}, s.eventTypes("alice"))

	err = s.service.LogComplianceEvent(s.ctx(), audit.Event{Account: "alice"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
