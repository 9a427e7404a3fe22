// Package models defines router operations and their state machine.
package models

import (
	"fmt"
	"time"

	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// Status is an operation's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// validTransitions is the whole state machine: pending → processing → {completed, failed}.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PendingStep names the step left unfinished by a partially completed operation.
type PendingStep string

const (
	PendingNone              PendingStep = ""
	PendingMint              PendingStep = "mint"
	PendingReserveWithdrawal PendingStep = "reserve_withdrawal"
)

// Operation is one multi-step workflow run by the router.
type Operation struct {
	ID                   id.OperationID
	Kind                 id.OperationKind
	Status               Status
	Account              id.AccountID
	Amount               int64
	FromToken            id.TokenSymbol
	ToToken              id.TokenSymbol
	ExternalRef          string
	IdempotencyKey       string
	PendingStep          PendingStep
	EnhancedVerification bool
	FailureCode          dErrors.Code
	FailureReason        string
	Resolution           string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewOperation creates a pending operation stamped at now.
func NewOperation(kind id.OperationKind, account id.AccountID, amount int64, now time.Time) *Operation {
	return &Operation{
		ID:        id.NewOperationID(),
		Kind:      kind,
		Status:    StatusPending,
		Account:   account,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the operation to next, refusing any move the state machine
// does not allow.
func (o *Operation) Transition(next Status, now time.Time) error {
	if !CanTransition(o.Status, next) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("operation %s cannot move from %s to %s", o.ID, o.Status, next))
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// Fail moves the operation to failed and records why. step is the step left
// unfinished, or PendingNone.
func (o *Operation) Fail(err error, step PendingStep, now time.Time) error {
	if terr := o.Transition(StatusFailed, now); terr != nil {
		return terr
	}
	o.FailureCode = dErrors.CodeOf(err)
	o.FailureReason = dErrors.MessageOf(err)
	o.PendingStep = step
	return nil
}

// Resolve records a successful compensating action. The status stays failed so
// the history is not rewritten.
func (o *Operation) Resolve(resolution string, now time.Time) {
	o.PendingStep = PendingNone
	o.Resolution = resolution
	o.UpdatedAt = now
}

// MintRef is the token reference of the operation's mint. Retries reuse it so the
// ledger applies the mint at most once.
func (o *Operation) MintRef() string {
	return "op/" + o.ID.String() + "/mint"
}

// BurnRef is the token reference of the operation's burn.
func (o *Operation) BurnRef() string {
	return "op/" + o.ID.String() + "/burn"
}

// WithdrawalTxID is the reserve reference recorded for a withdrawal.
func (o *Operation) WithdrawalTxID() id.BitcoinTxID {
	return id.DeriveTxID(o.ID)
}

// DepositRequest carries a Bitcoin deposit reported by the confirmation oracle.
type DepositRequest struct {
	Account       id.AccountID
	Amount        int64
	TxID          string
	Confirmations int64
}

// WithdrawalRequest burns tokens for a Bitcoin payout to BTCAddress.
type WithdrawalRequest struct {
	Account        id.AccountID
	Amount         int64
	BTCAddress     string
	IdempotencyKey string
}

// ExchangeRequest swaps one token for another at 1:1 BTC-equivalent.
type ExchangeRequest struct {
	Account        id.AccountID
	FromToken      id.TokenSymbol
	ToToken        id.TokenSymbol
	Amount         int64
	IdempotencyKey string
}
