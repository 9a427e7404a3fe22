// Package service implements the KYC registry: customer registration, admin tier
// management, per-operation approval and the shared compliance audit sink.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"custody/internal/kyc/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/sentinel"
	"custody/pkg/requestcontext"
)

// Store persists accounts. Create returns sentinel.ErrConflict for duplicates; Find
// and Save return sentinel.ErrNotFound for unknown accounts.
type Store interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, account id.AccountID) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
}

// EventReader is the read side of the audit trail.
type EventReader interface {
	ListByAccount(ctx context.Context, account id.AccountID) ([]audit.Event, error)
}

type Service struct {
	store   Store
	auditor audit.Emitter
	events  EventReader
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEventReader enables ListComplianceEvents.
func WithEventReader(r EventReader) Option {
	return func(s *Service) {
		s.events = r
	}
}

// New creates the registry. The auditor receives every compliance event.
func New(store Store, auditor audit.Emitter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit emitter is required")
	}
	svc := &Service{
		store:   store,
		auditor: auditor,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterCustomer creates an account at tier 0, or at data.Tier when supplied.
func (s *Service) RegisterCustomer(ctx context.Context, account id.AccountID, data models.KYCData) error {
	if account.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	tier := id.TierNone
	if data.Tier != nil {
		tier = id.Tier(*data.Tier)
	}
	now := requestcontext.Now(ctx)
	a := &models.Account{
		ID:        account,
		Tier:      tier,
		Approved:  tier > id.TierNone,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "account already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register customer")
	}

	return s.record(ctx, audit.Event{
		Account: account,
		Type:    audit.EventCustomerRegistered,
		Detail:  "tier=" + strconv.Itoa(int(tier)),
	})
}

// UpdateTier sets the account's tier. Admin only. Approval follows tier > 0.
func (s *Service) UpdateTier(ctx context.Context, account id.AccountID, tier id.Tier) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := id.ParseTier(int(tier)); err != nil {
		return err
	}

	a, err := s.find(ctx, account)
	if err != nil {
		return err
	}
	previous := a.Tier
	a.Tier = tier
	a.Approved = tier > id.TierNone
	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Save(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update tier")
	}

	return s.record(ctx, audit.Event{
		Account: account,
		Type:    audit.EventTierUpdated,
		Detail:  fmt.Sprintf("tier %d -> %d", previous, tier),
	})
}

// SetApproval suspends or reinstates an account. Admin only; a tier 0 account
// cannot be approved.
func (s *Service) SetApproval(ctx context.Context, account id.AccountID, approved bool) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	a, err := s.find(ctx, account)
	if err != nil {
		return err
	}
	if approved && a.Tier == id.TierNone {
		return dErrors.New(dErrors.CodeValidation, "tier 0 accounts cannot be approved").
			WithHint("increase KYC tier to proceed")
	}
	a.Approved = approved
	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Save(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update approval")
	}

	return s.record(ctx, audit.Event{
		Account: account,
		Type:    audit.EventApprovalChanged,
		Detail:  "approved=" + strconv.FormatBool(approved),
	})
}

// GrantEnhancedVerification records the additional approval signal required for
// amounts above a tier's enhanced verification threshold. Admin only.
func (s *Service) GrantEnhancedVerification(ctx context.Context, account id.AccountID) error {
	return s.setEnhanced(ctx, account, true, audit.EventEnhancedVerificationGranted)
}

// RevokeEnhancedVerification withdraws the enhanced verification signal. Admin only.
func (s *Service) RevokeEnhancedVerification(ctx context.Context, account id.AccountID) error {
	return s.setEnhanced(ctx, account, false, audit.EventEnhancedVerificationRevoked)
}

func (s *Service) setEnhanced(ctx context.Context, account id.AccountID, verified bool, eventType audit.EventType) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	a, err := s.find(ctx, account)
	if err != nil {
		return err
	}
	a.EnhancedVerified = verified
	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Save(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update enhanced verification")
	}
	return s.record(ctx, audit.Event{Account: account, Type: eventType})
}

// GetTier returns the account's tier.
func (s *Service) GetTier(ctx context.Context, account id.AccountID) (id.Tier, error) {
	a, err := s.find(ctx, account)
	if err != nil {
		return id.TierNone, err
	}
	return a.Tier, nil
}

// GetAccount returns the account record.
func (s *Service) GetAccount(ctx context.Context, account id.AccountID) (*models.Account, error) {
	return s.find(ctx, account)
}

// IsApprovedForOperation applies the per-kind, per-tier cap table. Unknown,
// suspended and tier 0 accounts are never approved; lookup failures deny.
func (s *Service) IsApprovedForOperation(ctx context.Context, account id.AccountID, kind id.OperationKind, amount int64) bool {
	a, err := s.store.FindByID(ctx, account)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "approval lookup failed, denying",
				"account", account,
				"error", err,
			)
		}
		return false
	}
	return a.ApprovesAmount(kind, amount)
}

// IsEnhancedVerified reports whether the account holds the enhanced verification signal.
func (s *Service) IsEnhancedVerified(ctx context.Context, account id.AccountID) bool {
	a, err := s.store.FindByID(ctx, account)
	if err != nil {
		return false
	}
	return a.Approved && a.EnhancedVerified
}

// LogComplianceEvent appends to the audit trail on behalf of other modules.
func (s *Service) LogComplianceEvent(ctx context.Context, event audit.Event) error {
	if event.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "event type is required")
	}
	return s.record(ctx, event)
}

// ListComplianceEvents returns an account's audit trail, oldest first.
func (s *Service) ListComplianceEvents(ctx context.Context, account id.AccountID) ([]audit.Event, error) {
	if s.events == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit trail is not readable")
	}
	events, err := s.events.ListByAccount(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list compliance events")
	}
	return events, nil
}

func (s *Service) find(ctx context.Context, account id.AccountID) (*models.Account, error) {
	a, err := s.store.FindByID(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return a, nil
}

func (s *Service) record(ctx context.Context, event audit.Event) error {
	if err := audit.Record(ctx, s.logger, s.auditor, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record compliance event")
	}
	return nil
}

func requireAdmin(ctx context.Context) error {
	if !requestcontext.IsAdmin(ctx) {
		return dErrors.New(dErrors.CodeUnauthorized, "admin privileges required")
	}
	return nil
}
