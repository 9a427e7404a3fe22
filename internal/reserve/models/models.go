// Package models holds the reserve ledger's entries and proof snapshots.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "custody/pkg/domain"
)

// Direction is the movement an entry records.
type Direction string

const (
	DirectionDeposit    Direction = "deposit"
	DirectionWithdrawal Direction = "withdrawal"
)

// Entry is one immutable reserve movement keyed by its Bitcoin tx id. Only the
// pending-mint flag may change after registration.
type Entry struct {
	TxID          id.BitcoinTxID
	Direction     Direction
	Amount        int64
	Confirmations int64
	Address       id.BitcoinAddress
	OperationRef  string
	// PendingMint marks a deposit whose mint did not complete; PendingMintRef is
	// the operation that owns the retry.
	PendingMint    bool
	PendingMintRef string
	RecordedAt     time.Time
}

// DepositRegistration is an oracle-supplied confirmed deposit.
type DepositRegistration struct {
	TxID          string
	Amount        int64
	Confirmations int64
	OperationRef  string
}

// WithdrawalRegistration records reserves leaving custody.
type WithdrawalRegistration struct {
	TxID         string
	Amount       int64
	Address      string
	OperationRef string
}

// Totals aggregates the ledger.
type Totals struct {
	Deposits    int64
	Withdrawals int64
	Entries     int
}

// Available is the confirmed reserve still in custody.
func (t Totals) Available() int64 {
	return t.Deposits - t.Withdrawals
}

// ProofSnapshot is a commitment over the ledger and the outstanding supply. Root and
// Commitment are deterministic for the same ledger state; GeneratedAt is excluded.
type ProofSnapshot struct {
	Root             string          `json:"merkle_root"`
	Commitment       string          `json:"commitment"`
	EntryCount       int             `json:"entry_count"`
	TotalDeposits    int64           `json:"total_deposits"`
	TotalWithdrawals int64           `json:"total_withdrawals"`
	Reserves         int64           `json:"reserves"`
	TokenSupply      int64           `json:"token_supply"`
	Ratio            decimal.Decimal `json:"reserve_ratio"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
