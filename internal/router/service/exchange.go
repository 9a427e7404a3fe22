package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"custody/internal/router/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/requestcontext"
)

// ExecuteCrossTokenExchange burns FromToken and mints the same amount of ToToken,
// both being 1:1 BTC-equivalent. Usage is counted as soon as the burn commits; a
// failed mint then leaves PendingStep mint.
func (s *Service) ExecuteCrossTokenExchange(ctx context.Context, req models.ExchangeRequest) (*models.Operation, error) {
	if err := s.checkPaused(); err != nil {
		return nil, err
	}
	if err := validateAccount(req.Account); err != nil {
		return nil, err
	}
	if err := id.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.FromToken == req.ToToken {
		return nil, dErrors.New(dErrors.CodeValidation, "from and to tokens must differ")
	}
	from, err := s.ledger(req.FromToken)
	if err != nil {
		return nil, err
	}
	to, err := s.ledger(req.ToToken)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "router.ExecuteCrossTokenExchange", trace.WithAttributes(
		attribute.String("custody.account", req.Account.String()),
		attribute.Int64("custody.amount", req.Amount),
		attribute.String("custody.from_token", req.FromToken.String()),
		attribute.String("custody.to_token", req.ToToken.String()),
	))
	defer span.End()

	unlock, err := s.locks.lock(ctx, req.Account)
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := time.Now()
	op := models.NewOperation(id.OperationExchange, req.Account, req.Amount, requestcontext.Now(ctx))
	op.FromToken = req.FromToken
	op.ToToken = req.ToToken
	op.IdempotencyKey = req.IdempotencyKey
	if op, err = s.open(ctx, op); err != nil {
		return op, err
	}
	span.SetAttributes(attribute.String("custody.operation_id", op.ID.String()))
	if err := s.begin(ctx, op); err != nil {
		return op, err
	}

	op, err = s.exchange(ctx, op, started, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
	}
	return op, err
}

func (s *Service) exchange(ctx context.Context, op *models.Operation, started time.Time, from, to TokenLedger) (*models.Operation, error) {
	if err := s.checkLimits(ctx, op); err != nil {
		if isRejection(err) {
			return op, s.reject(ctx, op, started, err)
		}
		return op, s.fail(ctx, op, started, err, models.PendingNone)
	}

	// The registry's caps are per operation kind; one approval covers both legs.
	if !s.registry.IsApprovedForOperation(ctx, op.Account, id.OperationExchange, op.Amount) {
		return op, s.reject(ctx, op, started, dErrors.New(dErrors.CodeComplianceViolation,
			fmt.Sprintf("account is not approved to exchange %s for %s", op.FromToken, op.ToToken)).
			WithHint("increase KYC tier to proceed"))
	}

	if err := s.burn(ctx, from, op); err != nil {
		return op, s.fail(ctx, op, started, err, models.PendingNone)
	}
	s.updateUsage(ctx, op)
	if err := s.mint(ctx, to, op, op.Account, op.Amount); err != nil {
		return op, s.fail(ctx, op, started, err, models.PendingMint)
	}

	return op, s.complete(ctx, op, started, audit.EventCrossTokenExchangeExecuted,
		fmt.Sprintf("from=%s to=%s amount=%d enhanced=%t", op.FromToken, op.ToToken, op.Amount, op.EnhancedVerification))
}
