// Package service enforces tiered exchange limits on top of KYC tiers: daily and
// monthly windows with lazy reset, the enhanced verification threshold, and usage
// accounting after successful operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"custody/internal/compliance/metrics"
	"custody/internal/compliance/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/sentinel"
	"custody/pkg/requestcontext"
)

// warningPercent is the share of a limit above which a LimitWarning is emitted.
const warningPercent = 80

// UsageStore persists per-account usage. Update runs fn as an atomic
// read-modify-write; current is nil for an account without usage.
type UsageStore interface {
	Get(ctx context.Context, account id.AccountID) (*models.Usage, error)
	Update(ctx context.Context, account id.AccountID, fn func(current *models.Usage) (*models.Usage, error)) (*models.Usage, error)
}

// Registry is the KYC registry as seen by the enforcer.
type Registry interface {
	GetTier(ctx context.Context, account id.AccountID) (id.Tier, error)
	IsEnhancedVerified(ctx context.Context, account id.AccountID) bool
}

type Service struct {
	usage    UsageStore
	registry Registry
	auditor  audit.Emitter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(usage UsageStore, registry Registry, auditor audit.Emitter, opts ...Option) (*Service, error) {
	if usage == nil {
		return nil, fmt.Errorf("usage store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("kyc registry is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit emitter is required")
	}
	svc := &Service{
		usage:    usage,
		registry: registry,
		auditor:  auditor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// VerifyExchangeLimits checks amount against the account's remaining daily and
// monthly quota, resetting elapsed windows first. The remaining quota is returned
// whether or not the amount fits. Usage itself is not incremented.
func (s *Service) VerifyExchangeLimits(ctx context.Context, account id.AccountID, amount int64) (*models.Quota, error) {
	if err := id.ValidateAmount(amount); err != nil {
		return nil, err
	}
	limits, err := s.limitsOf(ctx, account, amount)
	if err != nil {
		return nil, err
	}

	usage, err := s.usage.Update(ctx, account, s.roller(ctx, account))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load exchange usage")
	}

	quota := models.QuotaOf(usage, limits)
	if amount <= quota.DailyRemaining && amount <= quota.MonthlyRemaining {
		s.metrics.IncLimitCheck("allowed")
		return &quota, nil
	}

	window, remaining, resetAt := "daily", quota.DailyRemaining, quota.DailyResetAt
	if amount > quota.MonthlyRemaining {
		window, remaining, resetAt = "monthly", quota.MonthlyRemaining, quota.MonthlyResetAt
	}
	s.violation(ctx, account, fmt.Sprintf("amount=%d %s_remaining=%d", amount, window, remaining))
	return &quota, dErrors.New(dErrors.CodeComplianceViolation,
		fmt.Sprintf("amount %d exceeds remaining %s quota of %d", amount, window, remaining)).
		WithHint(fmt.Sprintf("reduce the amount to %d, wait until %s, or increase KYC tier to proceed",
			remaining, resetAt.UTC().Format(time.RFC3339)))
}

// CheckEnhancedVerificationRequirement reports whether amount is strictly above the
// tier's enhanced verification threshold.
func (s *Service) CheckEnhancedVerificationRequirement(ctx context.Context, account id.AccountID, amount int64) (bool, error) {
	tier, err := s.tier(ctx, account)
	if err != nil {
		return false, err
	}
	limits, ok := models.LimitsFor(tier)
	if !ok {
		return false, tierViolation()
	}
	return amount > limits.EnhancedVerificationThreshold, nil
}

// UpdateUsage adds amount to both windows after a successful operation and emits a
// LimitWarning when either window ends above 80% of its limit.
func (s *Service) UpdateUsage(ctx context.Context, account id.AccountID, amount int64) (*models.Usage, error) {
	if err := id.ValidateAmount(amount); err != nil {
		return nil, err
	}
	tier, err := s.tier(ctx, account)
	if err != nil {
		return nil, err
	}
	limits, ok := models.LimitsFor(tier)
	if !ok {
		return nil, tierViolation()
	}

	roll := s.roller(ctx, account)
	usage, err := s.usage.Update(ctx, account, func(current *models.Usage) (*models.Usage, error) {
		next, err := roll(current)
		if err != nil {
			return nil, err
		}
		next.DailyUsed += amount
		next.MonthlyUsed += amount
		return next, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update exchange usage")
	}

	var crossed []string
	if aboveWarning(usage.DailyUsed, limits.DailyLimit) {
		crossed = append(crossed, fmt.Sprintf("daily %d/%d", usage.DailyUsed, limits.DailyLimit))
	}
	if aboveWarning(usage.MonthlyUsed, limits.MonthlyLimit) {
		crossed = append(crossed, fmt.Sprintf("monthly %d/%d", usage.MonthlyUsed, limits.MonthlyLimit))
	}
	if len(crossed) > 0 {
		s.metrics.IncLimitWarning()
		audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
			Account: account,
			Type:    audit.EventLimitWarning,
			Detail:  strings.Join(crossed, ", "),
		})
	}
	return usage, nil
}

// GetComplianceStatus returns a read-only snapshot. Elapsed windows are shown reset
// but nothing is persisted.
func (s *Service) GetComplianceStatus(ctx context.Context, account id.AccountID) (*models.Status, error) {
	tier, err := s.tier(ctx, account)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	usage, err := s.usage.Get(ctx, account)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		usage = models.NewUsage(account, now)
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load exchange usage")
	default:
		usage.Roll(now)
	}

	limits, permitted := models.LimitsFor(tier)
	return &models.Status{
		Account:            account,
		Tier:               tier,
		Limits:             limits,
		DailyUsed:          usage.DailyUsed,
		MonthlyUsed:        usage.MonthlyUsed,
		Quota:              models.QuotaOf(usage, limits),
		EnhancedVerified:   s.registry.IsEnhancedVerified(ctx, account),
		ExchangesPermitted: permitted,
	}, nil
}

// roller returns the Update function that creates or lazily resets usage at the
// request time.
func (s *Service) roller(ctx context.Context, account id.AccountID) func(*models.Usage) (*models.Usage, error) {
	now := requestcontext.Now(ctx)
	return func(current *models.Usage) (*models.Usage, error) {
		if current == nil {
			return models.NewUsage(account, now), nil
		}
		daily, monthly := current.Roll(now)
		if daily {
			s.metrics.IncWindowReset("daily")
		}
		if monthly {
			s.metrics.IncWindowReset("monthly")
		}
		return current, nil
	}
}

func (s *Service) limitsOf(ctx context.Context, account id.AccountID, amount int64) (models.LimitConfig, error) {
	tier, err := s.tier(ctx, account)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeComplianceViolation) {
			s.violation(ctx, account, fmt.Sprintf("amount=%d account not registered", amount))
		}
		return models.LimitConfig{}, err
	}
	limits, ok := models.LimitsFor(tier)
	if !ok {
		s.violation(ctx, account, fmt.Sprintf("amount=%d tier=%d has no exchange limits", amount, tier))
		return models.LimitConfig{}, tierViolation()
	}
	return limits, nil
}

func (s *Service) tier(ctx context.Context, account id.AccountID) (id.Tier, error) {
	tier, err := s.registry.GetTier(ctx, account)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return id.TierNone, dErrors.New(dErrors.CodeComplianceViolation, "account is not registered").
				WithHint("complete KYC registration to proceed")
		}
		return id.TierNone, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load KYC tier")
	}
	return tier, nil
}

func (s *Service) violation(ctx context.Context, account id.AccountID, detail string) {
	s.metrics.IncLimitCheck("rejected")
	audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
		Account: account,
		Type:    audit.EventLimitViolation,
		Detail:  detail,
	})
}

func tierViolation() error {
	return dErrors.New(dErrors.CodeComplianceViolation, "KYC tier does not permit exchanges").
		WithHint("increase KYC tier to proceed")
}

func aboveWarning(used, limit int64) bool {
	return limit > 0 && used*100 > limit*warningPercent
}
