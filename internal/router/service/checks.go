package service

import (
	"context"
	"fmt"

	"custody/internal/router/models"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
)

// checkLimits runs the exchange limit check and the enhanced verification gate.
// Above the tier threshold the account must hold the registry's enhanced
// verification signal; the operation is then flagged and the application recorded
// before any side effect.
func (s *Service) checkLimits(ctx context.Context, op *models.Operation) error {
	err := s.call(ctx, moduleCompliance, "verify_limits", s.config.Retry, func(ctx context.Context) error {
		_, err := s.limits.VerifyExchangeLimits(ctx, op.Account, op.Amount)
		return err
	})
	if err != nil {
		return err
	}

	var required bool
	err = s.call(ctx, moduleCompliance, "enhanced_requirement", s.config.Retry, func(ctx context.Context) error {
		var err error
		required, err = s.limits.CheckEnhancedVerificationRequirement(ctx, op.Account, op.Amount)
		return err
	})
	if err != nil || !required {
		return err
	}

	if !s.registry.IsEnhancedVerified(ctx, op.Account) {
		return dErrors.New(dErrors.CodeComplianceViolation,
			fmt.Sprintf("amount %d requires enhanced verification", op.Amount)).
			WithHint("complete enhanced verification to proceed")
	}
	op.EnhancedVerification = true
	if err := audit.Record(ctx, s.logger, s.auditor, audit.Event{
		Account:     op.Account,
		Type:        audit.EventEnhancedVerificationApplied,
		Detail:      fmt.Sprintf("%s of %d above enhanced verification threshold", op.Kind, op.Amount),
		OperationID: op.ID.String(),
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record enhanced verification")
	}
	return nil
}

// isRejection reports whether err is a refusal on compliance grounds, as opposed
// to a module failure.
func isRejection(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeComplianceViolation)
}
