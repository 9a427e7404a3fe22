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

// ExecuteBitcoinDeposit credits a confirmed Bitcoin deposit: KYC approval, reserve
// registration (the tx id is the idempotency gate), then the mint. If the mint
// fails after registration the reserve entry is flagged PendingMint and the
// operation fails with PendingStep mint.
func (s *Service) ExecuteBitcoinDeposit(ctx context.Context, req models.DepositRequest) (*models.Operation, error) {
	if err := s.checkPaused(); err != nil {
		return nil, err
	}
	if err := validateAccount(req.Account); err != nil {
		return nil, err
	}
	if err := id.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	txID, err := id.ParseBitcoinTxID(req.TxID)
	if err != nil {
		return nil, err
	}
	if req.Confirmations < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "confirmations must not be negative")
	}

	ctx, span := s.tracer.Start(ctx, "router.ExecuteBitcoinDeposit", trace.WithAttributes(
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
	op := models.NewOperation(id.OperationDeposit, req.Account, req.Amount, requestcontext.Now(ctx))
	op.ExternalRef = txID.String()
	op.ToToken = s.primary.Symbol()
	if op, err = s.open(ctx, op); err != nil {
		return op, err
	}
	span.SetAttributes(attribute.String("custody.operation_id", op.ID.String()))
	if err := s.begin(ctx, op); err != nil {
		return op, err
	}

	op, err = s.deposit(ctx, op, started, txID, req.Confirmations)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
	}
	return op, err
}

func (s *Service) deposit(ctx context.Context, op *models.Operation, started time.Time, txID id.BitcoinTxID, confirmations int64) (*models.Operation, error) {
	if !s.registry.IsApprovedForOperation(ctx, op.Account, id.OperationDeposit, op.Amount) {
		return op, s.reject(ctx, op, started, dErrors.New(dErrors.CodeComplianceViolation,
			"account is not approved for this deposit").WithHint("increase KYC tier to proceed"))
	}

	err := s.call(ctx, moduleReserve, "register_deposit", s.config.Retry, func(ctx context.Context) error {
		entry, err := s.reserve.RegisterBitcoinDeposit(ctx, reservemodels.DepositRegistration{
			TxID:          txID.String(),
			Amount:        op.Amount,
			Confirmations: confirmations,
			OperationRef:  op.ID.String(),
		})
		if ownWrite(err, entry, op) {
			return nil
		}
		return err
	})
	if err != nil {
		return op, s.fail(ctx, op, started, err, models.PendingNone)
	}

	if err := s.mint(ctx, s.primary, op, op.Account, op.Amount); err != nil {
		if merr := s.reserve.MarkPendingMint(ctx, txID, op.ID.String()); merr != nil {
			s.logger.ErrorContext(ctx, "failed to flag reserve entry pending mint",
				"operation_id", op.ID.String(),
				"tx_id", txID,
				"error", merr,
			)
		}
		return op, s.fail(ctx, op, started, err, models.PendingMint)
	}

	return op, s.complete(ctx, op, started, audit.EventBitcoinDepositExecuted,
		fmt.Sprintf("tx=%s amount=%d token=%s", txID, op.Amount, s.primary.Symbol()))
}

// ownWrite reports whether an AlreadyProcessed registration was written by this
// operation, on an earlier attempt whose response was lost.
func ownWrite(err error, entry *reservemodels.Entry, op *models.Operation) bool {
	return dErrors.HasCode(err, dErrors.CodeAlreadyProcessed) &&
		entry != nil && entry.OperationRef == op.ID.String()
}
