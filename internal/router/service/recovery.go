package service

import (
	"context"
	"fmt"
	"time"

	reservemodels "custody/internal/reserve/models"
	"custody/internal/router/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/requestcontext"
)

// reasonExpired is the failure reason recorded by the stale-operation watchdog.
const reasonExpired = "expired"

// RetryPendingStep re-runs only the step a failed operation left pending, with the
// same idempotent reference as the original attempt. Admin only. On success the
// resolution is recorded; the status stays failed. Usage was counted when the burn
// committed and is not counted again.
func (s *Service) RetryPendingStep(ctx context.Context, opID id.OperationID) (*models.Operation, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.checkPaused(); err != nil {
		return nil, err
	}
	op, err := s.GetOperationStatus(ctx, opID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.lock(ctx, op.Account)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Reload under the lock; a concurrent retry may have resolved it.
	if op, err = s.GetOperationStatus(ctx, opID); err != nil {
		return nil, err
	}
	if op.Status != models.StatusFailed || op.PendingStep == models.PendingNone {
		return op, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("operation %s has no pending step", op.ID))
	}

	step := op.PendingStep
	switch step {
	case models.PendingMint:
		err = s.retryMint(ctx, op)
	case models.PendingReserveWithdrawal:
		err = s.registerWithdrawal(ctx, op, id.BitcoinAddress(op.ExternalRef))
	default:
		err = dErrors.New(dErrors.CodeInvariantViolation, "unknown pending step "+string(step))
	}
	if err != nil {
		s.logger.WarnContext(ctx, "pending step retry failed",
			"operation_id", op.ID.String(),
			"pending_step", string(step),
			"error", err,
		)
		return op, err
	}

	resolution := fmt.Sprintf("%s completed by %s", step, requestcontext.ActorID(ctx))
	op.Resolve(resolution, requestcontext.Now(ctx))
	if err := s.save(ctx, op); err != nil {
		return op, err
	}
	audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
		Account:     op.Account,
		Type:        audit.EventPendingStepResolved,
		Detail:      resolution,
		OperationID: op.ID.String(),
	})
	s.checkReserves(ctx, op)
	return op, nil
}

func (s *Service) retryMint(ctx context.Context, op *models.Operation) error {
	ledger, err := s.ledger(op.ToToken)
	if err != nil {
		return err
	}
	if err := s.mint(ctx, ledger, op, op.Account, op.Amount); err != nil {
		return err
	}
	if op.Kind == id.OperationDeposit {
		if err := s.reserve.ClearPendingMint(ctx, id.BitcoinTxID(op.ExternalRef)); err != nil {
			s.logger.ErrorContext(ctx, "failed to clear reserve pending mint flag",
				"operation_id", op.ID.String(),
				"tx_id", op.ExternalRef,
				"error", err,
			)
		}
	}
	return nil
}

// ExpireStaleOperations fails operations that have been processing for longer than
// olderThan, with code timeout and reason "expired". A step that had already
// committed is recorded as the pending step so the operation stays retryable.
// Operations whose progress cannot be read are left for the next sweep. Returns how
// many operations were expired.
func (s *Service) ExpireStaleOperations(ctx context.Context, olderThan time.Duration) (int, error) {
	now := requestcontext.Now(ctx)
	stale, err := s.store.ListByStatus(ctx, models.StatusProcessing, now.Add(-olderThan))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stale operations")
	}

	expired := 0
	for _, candidate := range stale {
		ok, err := s.expire(ctx, candidate.ID, candidate.Account, now.Add(-olderThan))
		if err != nil {
			s.logger.WarnContext(ctx, "stale operation not expired",
				"operation_id", candidate.ID.String(),
				"error", err,
			)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *Service) expire(ctx context.Context, opID id.OperationID, account id.AccountID, cutoff time.Time) (bool, error) {
	unlock, err := s.locks.lock(ctx, account)
	if err != nil {
		return false, err
	}
	defer unlock()

	op, err := s.GetOperationStatus(ctx, opID)
	if err != nil {
		return false, err
	}
	// It may have finished while the workflow held the lock.
	if op.Status != models.StatusProcessing || !op.UpdatedAt.Before(cutoff) {
		return false, nil
	}

	step, err := s.committedStep(ctx, op)
	if err != nil {
		return false, err
	}
	if step == models.PendingMint && op.Kind == id.OperationDeposit {
		if err := s.reserve.MarkPendingMint(ctx, id.BitcoinTxID(op.ExternalRef), op.ID.String()); err != nil {
			return false, err
		}
	}

	since := op.UpdatedAt
	if err := op.Fail(dErrors.New(dErrors.CodeTimeout, reasonExpired), step, requestcontext.Now(ctx)); err != nil {
		return false, err
	}
	if err := s.save(ctx, op); err != nil {
		return false, err
	}
	s.metrics.IncExpired()
	detail := fmt.Sprintf("kind=%s processing since %s", op.Kind, since.UTC().Format(time.RFC3339))
	if step != models.PendingNone {
		s.metrics.IncPendingStep(string(step))
		detail += " pending_step=" + string(step)
	}
	audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
		Account:     op.Account,
		Type:        audit.EventOperationExpired,
		Detail:      detail,
		OperationID: op.ID.String(),
	})
	return true, nil
}

// committedStep works out how far a stalled operation got. A deposit whose reserve
// entry belongs to it still needs its mint; a withdrawal or exchange whose burn is
// in the journal still needs its second leg. Steps that already ran are replayed
// idempotently by RetryPendingStep.
func (s *Service) committedStep(ctx context.Context, op *models.Operation) (models.PendingStep, error) {
	switch op.Kind {
	case id.OperationDeposit:
		if op.ExternalRef == "" {
			return models.PendingNone, nil
		}
		var entry *reservemodels.Entry
		err := s.call(ctx, moduleReserve, "get_entry", s.config.Retry, func(ctx context.Context) error {
			var err error
			entry, err = s.reserve.GetEntry(ctx, op.ExternalRef)
			return err
		})
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.PendingNone, nil
		}
		if err != nil {
			return models.PendingNone, err
		}
		if entry.OperationRef == op.ID.String() {
			return models.PendingMint, nil
		}
		return models.PendingNone, nil

	case id.OperationWithdrawal, id.OperationExchange:
		ledger, err := s.ledger(op.FromToken)
		if err != nil {
			return models.PendingNone, err
		}
		var burned bool
		err = s.call(ctx, moduleToken, "journal_lookup", s.config.Retry, func(ctx context.Context) error {
			var err error
			burned, err = ledger.Applied(ctx, op.BurnRef())
			return err
		})
		if err != nil || !burned {
			return models.PendingNone, err
		}
		if op.Kind == id.OperationWithdrawal {
			return models.PendingReserveWithdrawal, nil
		}
		return models.PendingMint, nil
	}
	return models.PendingNone, nil
}

// RunWatchdog expires stale operations every interval until ctx is cancelled.
func (s *Service) RunWatchdog(ctx context.Context, interval, olderThan time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.ExpireStaleOperations(ctx, olderThan)
			if err != nil {
				s.logger.ErrorContext(ctx, "stale operation sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.WarnContext(ctx, "expired stale operations", "count", n)
			}
		}
	}
}
