package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	compliancemodels "custody/internal/compliance/models"
	reservemodels "custody/internal/reserve/models"
	"custody/internal/router/models"
	id "custody/pkg/domain"
)

// Store persists operations. Create fails with sentinel.ErrConflict when the
// account already used the idempotency key.
type Store interface {
	Create(ctx context.Context, op *models.Operation) error
	Save(ctx context.Context, op *models.Operation) error
	FindByID(ctx context.Context, opID id.OperationID) (*models.Operation, error)
	FindByIdempotencyKey(ctx context.Context, account id.AccountID, key string) (*models.Operation, error)
	ListByAccount(ctx context.Context, account id.AccountID) ([]models.Operation, error)
	ListByStatus(ctx context.Context, status models.Status, updatedBefore time.Time) ([]models.Operation, error)
}

// Registry is the KYC registry surface consulted before side effects.
type Registry interface {
	IsApprovedForOperation(ctx context.Context, account id.AccountID, kind id.OperationKind, amount int64) bool
	IsEnhancedVerified(ctx context.Context, account id.AccountID) bool
}

// Reserve is the Bitcoin reserve ledger. Registrations return the existing entry
// alongside AlreadyProcessed so a retried call can recognise its own earlier write.
type Reserve interface {
	ParseAddress(address string) (id.BitcoinAddress, error)
	AvailableReserves(ctx context.Context) (int64, error)
	GetEntry(ctx context.Context, txID string) (*reservemodels.Entry, error)
	RegisterBitcoinDeposit(ctx context.Context, reg reservemodels.DepositRegistration) (*reservemodels.Entry, error)
	RegisterBitcoinWithdrawal(ctx context.Context, reg reservemodels.WithdrawalRegistration) (*reservemodels.Entry, error)
	MarkPendingMint(ctx context.Context, txID id.BitcoinTxID, opRef string) error
	ClearPendingMint(ctx context.Context, txID id.BitcoinTxID) error
	CheckReserveRatio(ctx context.Context) (decimal.Decimal, error)
}

// TokenLedger is one token's ledger. Mint and Burn are idempotent on ref.
type TokenLedger interface {
	Symbol() id.TokenSymbol
	Mint(ctx context.Context, caller string, to id.AccountID, amount int64, ref string) error
	Burn(ctx context.Context, caller string, from id.AccountID, amount int64, ref string) error
	Applied(ctx context.Context, ref string) (bool, error)
}

// Limits is the exchange limit enforcer.
type Limits interface {
	VerifyExchangeLimits(ctx context.Context, account id.AccountID, amount int64) (*compliancemodels.Quota, error)
	CheckEnhancedVerificationRequirement(ctx context.Context, account id.AccountID, amount int64) (bool, error)
	UpdateUsage(ctx context.Context, account id.AccountID, amount int64) (*compliancemodels.Usage, error)
}
