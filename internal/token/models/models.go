// Package models holds the token ledger's journal entries.
package models

import (
	"time"

	id "custody/pkg/domain"
)

// Kind is the journal movement type.
type Kind string

const (
	KindMint     Kind = "mint"
	KindBurn     Kind = "burn"
	KindTransfer Kind = "transfer"
)

// JournalEntry is one balance movement. Ref is unique per symbol and makes mint and
// burn idempotent. Mints have no From; burns have no To.
type JournalEntry struct {
	Symbol     id.TokenSymbol
	Ref        string
	Kind       Kind
	From       id.AccountID
	To         id.AccountID
	Amount     int64
	RecordedAt time.Time
}

// SameMovement reports whether other describes the same movement, ignoring time.
func (e *JournalEntry) SameMovement(other *JournalEntry) bool {
	return e.Symbol == other.Symbol &&
		e.Ref == other.Ref &&
		e.Kind == other.Kind &&
		e.From == other.From &&
		e.To == other.To &&
		e.Amount == other.Amount
}

// Balance is one account's holding of a token.
type Balance struct {
	Symbol  id.TokenSymbol
	Account id.AccountID
	Amount  int64
}
