// Package service is the integration router: it sequences deposits, withdrawals and
// cross-token exchanges across the KYC, reserve, token and compliance modules.
//
// The modules share no transaction. Each workflow records its progress on an
// Operation, and a step that fails after an earlier step committed leaves the
// operation failed with a PendingStep for an administrator to retry. Nothing is
// reversed automatically.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custody/internal/router/metrics"
	"custody/internal/router/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/circuit"
	"custody/pkg/platform/retry"
	"custody/pkg/platform/sentinel"
	"custody/pkg/requestcontext"
)

const tracerName = "custody/internal/router"

// Config bounds cross-module calls.
type Config struct {
	Retry           retry.Policy
	BreakerFailures int
	BreakerCooldown time.Duration
	RouterPrincipal string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Retry:           retry.DefaultPolicy,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
		RouterPrincipal: "integration-router",
	}
}

type Service struct {
	store    Store
	registry Registry
	reserve  Reserve
	limits   Limits
	tokens   map[id.TokenSymbol]TokenLedger
	primary  TokenLedger
	auditor  audit.Emitter

	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	config   *Config
	breakers map[string]*circuit.Breaker
	locks    accountLocks
	paused   atomic.Bool
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

func WithConfig(cfg *Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New builds the router. The first token ledger is the BTC-backed token minted
// for deposits and burned for withdrawals; all of them are exchangeable.
func New(
	store Store,
	registry Registry,
	reserve Reserve,
	limits Limits,
	tokens []TokenLedger,
	auditor audit.Emitter,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("operation store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("kyc registry is required")
	}
	if reserve == nil {
		return nil, fmt.Errorf("reserve manager is required")
	}
	if limits == nil {
		return nil, fmt.Errorf("compliance enforcer is required")
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("at least one token ledger is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit emitter is required")
	}

	svc := &Service{
		store:    store,
		registry: registry,
		reserve:  reserve,
		limits:   limits,
		tokens:   make(map[id.TokenSymbol]TokenLedger, len(tokens)),
		primary:  tokens[0],
		auditor:  auditor,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		config:   DefaultConfig(),
	}
	for _, ledger := range tokens {
		if _, dup := svc.tokens[ledger.Symbol()]; dup {
			return nil, fmt.Errorf("duplicate token ledger %s", ledger.Symbol())
		}
		svc.tokens[ledger.Symbol()] = ledger
	}
	for _, opt := range opts {
		opt(svc)
	}

	svc.breakers = make(map[string]*circuit.Breaker, 3)
	for _, module := range []string{moduleReserve, moduleToken, moduleCompliance} {
		svc.breakers[module] = circuit.New(module,
			circuit.WithFailureThreshold(svc.config.BreakerFailures),
			circuit.WithCooldown(svc.config.BreakerCooldown),
		)
	}
	return svc, nil
}

// -----------------------------------------------------------------------------
// Pause gate
// -----------------------------------------------------------------------------

// EmergencyPause stops every workflow entry point until ResumeOperations. Admin only;
// pausing an already paused router is a no-op.
func (s *Service) EmergencyPause(ctx context.Context) error {
	return s.setPaused(ctx, true, audit.EventSystemPaused)
}

// ResumeOperations lifts the emergency pause. Admin only.
func (s *Service) ResumeOperations(ctx context.Context) error {
	return s.setPaused(ctx, false, audit.EventSystemResumed)
}

// IsPaused reports the gate state.
func (s *Service) IsPaused() bool {
	return s.paused.Load()
}

func (s *Service) setPaused(ctx context.Context, paused bool, eventType audit.EventType) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if !s.paused.CompareAndSwap(!paused, paused) {
		return nil
	}
	s.metrics.SetPaused(paused)
	audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
		Type:   eventType,
		Detail: "by " + requestcontext.ActorID(ctx),
	})
	return nil
}

func (s *Service) checkPaused() error {
	if s.paused.Load() {
		return dErrors.New(dErrors.CodeSystemPaused, "operations are paused").
			WithHint("retry after operations resume")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// GetOperationStatus returns the operation.
func (s *Service) GetOperationStatus(ctx context.Context, opID id.OperationID) (*models.Operation, error) {
	op, err := s.store.FindByID(ctx, opID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "operation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load operation")
	}
	return op, nil
}

// ListOperations returns the account's operations, oldest first.
func (s *Service) ListOperations(ctx context.Context, account id.AccountID) ([]models.Operation, error) {
	ops, err := s.store.ListByAccount(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list operations")
	}
	return ops, nil
}

// -----------------------------------------------------------------------------
// Operation bookkeeping
// -----------------------------------------------------------------------------

// open records a new operation under the account lock's protection. A reused
// idempotency key returns the original operation with AlreadyProcessed.
func (s *Service) open(ctx context.Context, op *models.Operation) (*models.Operation, error) {
	err := s.store.Create(ctx, op)
	if err == nil {
		return op, nil
	}
	if !errors.Is(err, sentinel.ErrConflict) || op.IdempotencyKey == "" {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record operation")
	}
	original, ferr := s.store.FindByIdempotencyKey(ctx, op.Account, op.IdempotencyKey)
	if ferr != nil {
		return nil, dErrors.Wrap(ferr, dErrors.CodeInternal, "failed to load operation for idempotency key")
	}
	return original, dErrors.New(dErrors.CodeAlreadyProcessed,
		fmt.Sprintf("idempotency key already used by operation %s", original.ID))
}

func (s *Service) save(ctx context.Context, op *models.Operation) error {
	if err := s.store.Save(ctx, op); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save operation")
	}
	return nil
}

func (s *Service) begin(ctx context.Context, op *models.Operation) error {
	if err := op.Transition(models.StatusProcessing, requestcontext.Now(ctx)); err != nil {
		return err
	}
	return s.save(ctx, op)
}

func (s *Service) complete(ctx context.Context, op *models.Operation, started time.Time, eventType audit.EventType, detail string) error {
	if err := op.Transition(models.StatusCompleted, requestcontext.Now(ctx)); err != nil {
		return err
	}
	if err := s.save(ctx, op); err != nil {
		return err
	}
	s.metrics.ObserveOperation(string(op.Kind), string(op.Status), time.Since(started))
	audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
		Account:     op.Account,
		Type:        eventType,
		Detail:      detail,
		OperationID: op.ID.String(),
	})
	s.checkReserves(ctx, op)
	return nil
}

// checkReserves re-evaluates the reserve ratio once an operation has changed token
// supply. Exchanges burn and mint the same amount and are skipped.
func (s *Service) checkReserves(ctx context.Context, op *models.Operation) {
	if op.Kind == id.OperationExchange {
		return
	}
	if _, err := s.reserve.CheckReserveRatio(ctx); err != nil {
		s.logger.WarnContext(ctx, "reserve ratio check failed",
			"operation_id", op.ID.String(),
			"error", err,
		)
	}
}

// fail records cause on the operation and returns it for the caller to surface.
// step names the step left unfinished after an earlier one committed.
func (s *Service) fail(ctx context.Context, op *models.Operation, started time.Time, cause error, step models.PendingStep) error {
	if err := op.Fail(cause, step, requestcontext.Now(ctx)); err != nil {
		s.logger.ErrorContext(ctx, "operation state violation",
			"operation_id", op.ID.String(),
			"error", err,
		)
		return cause
	}
	if err := s.save(ctx, op); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist operation failure",
			"operation_id", op.ID.String(),
			"cause", cause,
			"error", err,
		)
	}

	s.metrics.ObserveOperation(string(op.Kind), string(op.Status), time.Since(started))
	detail := fmt.Sprintf("kind=%s code=%s reason=%q", op.Kind, op.FailureCode, op.FailureReason)
	if step != models.PendingNone {
		s.metrics.IncPendingStep(string(step))
		detail += " pending_step=" + string(step)
	}
	audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
		Account:     op.Account,
		Type:        audit.EventOperationFailed,
		Detail:      detail,
		OperationID: op.ID.String(),
	}, "failure_code", string(op.FailureCode))
	return cause
}

// reject fails an operation refused on compliance grounds and records the
// violation that caused it.
func (s *Service) reject(ctx context.Context, op *models.Operation, started time.Time, cause error) error {
	audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
		Account:     op.Account,
		Type:        audit.EventComplianceViolation,
		Detail:      fmt.Sprintf("%s of %d rejected: %s", op.Kind, op.Amount, dErrors.MessageOf(cause)),
		OperationID: op.ID.String(),
	})
	return s.fail(ctx, op, started, cause, models.PendingNone)
}

func (s *Service) ledger(symbol id.TokenSymbol) (TokenLedger, error) {
	ledger, ok := s.tokens[symbol]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown token "+symbol.String())
	}
	return ledger, nil
}

func (s *Service) mint(ctx context.Context, ledger TokenLedger, op *models.Operation, to id.AccountID, amount int64) error {
	return s.call(ctx, moduleToken, "mint", s.config.Retry, func(ctx context.Context) error {
		return ledger.Mint(ctx, s.config.RouterPrincipal, to, amount, op.MintRef())
	})
}

func (s *Service) burn(ctx context.Context, ledger TokenLedger, op *models.Operation) error {
	return s.call(ctx, moduleToken, "burn", s.config.Retry, func(ctx context.Context) error {
		return ledger.Burn(ctx, s.config.RouterPrincipal, op.Account, op.Amount, op.BurnRef())
	})
}

// updateUsage runs once: the increment is not idempotent, so an ambiguous failure
// is logged rather than retried.
func (s *Service) updateUsage(ctx context.Context, op *models.Operation) {
	policy := s.config.Retry
	policy.Attempts = 1
	err := s.call(ctx, moduleCompliance, "update_usage", policy, func(ctx context.Context) error {
		_, err := s.limits.UpdateUsage(ctx, op.Account, op.Amount)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "exchange usage not updated",
			"operation_id", op.ID.String(),
			"account", op.Account,
			"amount", op.Amount,
			"error", err,
		)
	}
}

func requireAdmin(ctx context.Context) error {
	if !requestcontext.IsAdmin(ctx) {
		return dErrors.New(dErrors.CodeUnauthorized, "admin role required")
	}
	return nil
}

func validateAccount(account id.AccountID) error {
	if account.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	return nil
}
