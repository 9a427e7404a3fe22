package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	reservemodels "custody/internal/reserve/models"
	"custody/internal/router/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/requestcontext"
)

// ExecuteTokenWithdrawal burns tokens and registers the matching reserve
// withdrawal. The burn comes first so a retried request cannot pay out twice; if
// the registration then fails the operation is left with PendingStep
// reserve_withdrawal. Broadcasting the Bitcoin transaction happens elsewhere.
func (s *Service) ExecuteTokenWithdrawal(ctx context.Context, req models.WithdrawalRequest) (*models.Operation, error) {
	if err := s.checkPaused(); err != nil {
		return nil, err
	}
	if err := validateAccount(req.Account); err != nil {
		return nil, err
	}
	if err := id.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	address, err := s.reserve.ParseAddress(req.BTCAddress)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "router.ExecuteTokenWithdrawal", trace.WithAttributes(
		attribute.String("custody.account", req.Account.String()),
		attribute.Int64("custody.amount", req.Amount),
	))
	defer span.End()

	unlock, err := s.locks.lock(ctx, req.Account)
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := time.Now()
	op := models.NewOperation(id.OperationWithdrawal, req.Account, req.Amount, requestcontext.Now(ctx))
	op.ExternalRef = address.String()
	op.FromToken = s.primary.Symbol()
	op.IdempotencyKey = req.IdempotencyKey
	if op, err = s.open(ctx, op); err != nil {
		return op, err
	}
	span.SetAttributes(attribute.String("custody.operation_id", op.ID.String()))
	if err := s.begin(ctx, op); err != nil {
		return op, err
	}

	op, err = s.withdraw(ctx, op, started, address)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
	}
	return op, err
}

func (s *Service) withdraw(ctx context.Context, op *models.Operation, started time.Time, address id.BitcoinAddress) (*models.Operation, error) {
	if err := s.checkLimits(ctx, op); err != nil {
		if isRejection(err) {
			return op, s.reject(ctx, op, started, err)
		}
		return op, s.fail(ctx, op, started, err, models.PendingNone)
	}

	var available int64
	err := s.call(ctx, moduleReserve, "available_reserves", s.config.Retry, func(ctx context.Context) error {
		var err error
		available, err = s.reserve.AvailableReserves(ctx)
		return err
	})
	if err != nil {
		return op, s.fail(ctx, op, started, err, models.PendingNone)
	}
	if op.Amount > available {
		return op, s.fail(ctx, op, started, dErrors.New(dErrors.CodeInsufficientReserve,
			fmt.Sprintf("withdrawal of %s exceeds available reserves", id.FormatBTC(op.Amount))), models.PendingNone)
	}

	if err := s.burn(ctx, s.primary, op); err != nil {
		return op, s.fail(ctx, op, started, err, models.PendingNone)
	}
	// The burned amount counts against the limits even if registration fails.
	s.updateUsage(ctx, op)
	if err := s.registerWithdrawal(ctx, op, address); err != nil {
		return op, s.fail(ctx, op, started, err, models.PendingReserveWithdrawal)
	}

	return op, s.complete(ctx, op, started, audit.EventTokenWithdrawalExecuted,
		fmt.Sprintf("tx=%s amount=%d address=%s", op.WithdrawalTxID(), op.Amount, address))
}

func (s *Service) registerWithdrawal(ctx context.Context, op *models.Operation, address id.BitcoinAddress) error {
	return s.call(ctx, moduleReserve, "register_withdrawal", s.config.Retry, func(ctx context.Context) error {
		entry, err := s.reserve.RegisterBitcoinWithdrawal(ctx, reservemodels.WithdrawalRegistration{
			TxID:         op.WithdrawalTxID().String(),
			Amount:       op.Amount,
			Address:      address.String(),
			OperationRef: op.ID.String(),
		})
		if ownWrite(err, entry, op) {
			return nil
		}
		return err
	})
}
