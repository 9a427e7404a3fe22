package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"custody/internal/reserve/models"
)

type reserveChecker interface {
	CheckReserveRatio(ctx context.Context) (decimal.Decimal, error)
	GenerateProofOfReserves(ctx context.Context) (*models.ProofSnapshot, error)
}

// runReserveChecks publishes a proof-of-reserves snapshot and re-checks the ratio
// every interval until ctx is cancelled.
func runReserveChecks(ctx context.Context, reserve reserveChecker, interval time.Duration, log *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := reserve.CheckReserveRatio(ctx); err != nil {
				log.ErrorContext(ctx, "reserve ratio check failed", "error", err)
			}
			snapshot, err := reserve.GenerateProofOfReserves(ctx)
			if err != nil {
				log.ErrorContext(ctx, "proof of reserves failed", "error", err)
				continue
			}
			log.InfoContext(ctx, "proof of reserves generated",
				"commitment", snapshot.Commitment,
				"entries", snapshot.EntryCount,
				"ratio", snapshot.Ratio.String(),
			)
		}
	}
}
