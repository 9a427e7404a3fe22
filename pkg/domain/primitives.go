package domain

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"

	dErrors "custody/pkg/domain-errors"
)

// TokenSymbol names a token ledger, e.g. "CBTC".
type TokenSymbol string

// ParseTokenSymbol upper-cases and validates a 2-10 letter symbol.
func ParseTokenSymbol(s string) (TokenSymbol, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || len(s) > 10 {
		return "", dErrors.New(dErrors.CodeValidation, "token symbol must be 2-10 characters")
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", dErrors.New(dErrors.CodeValidation, "token symbol must be alphanumeric")
		}
	}
	return TokenSymbol(s), nil
}

func (s TokenSymbol) String() string { return string(s) }

// Tier is a KYC tier, 0 (unverified) through 4.
type Tier int

const (
	TierNone Tier = 0
	TierMax  Tier = 4
)

// ParseTier validates a tier value.
func ParseTier(n int) (Tier, error) {
	if n < int(TierNone) || n > int(TierMax) {
		return 0, dErrors.New(dErrors.CodeValidation, "tier must be between 0 and 4")
	}
	return Tier(n), nil
}

// ValidateAmount rejects non-positive amounts.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}

// FormatBTC renders a satoshi amount in BTC for logs and messages.
func FormatBTC(sats int64) string {
	return btcutil.Amount(sats).String()
}

// OperationKind is the kind of value movement being approved or limited.
type OperationKind string

const (
	OperationDeposit    OperationKind = "deposit"
	OperationWithdrawal OperationKind = "withdrawal"
	OperationExchange   OperationKind = "exchange"
	OperationTransfer   OperationKind = "transfer"
)

// ParseOperationKind validates a kind name.
func ParseOperationKind(s string) (OperationKind, error) {
	switch k := OperationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case OperationDeposit, OperationWithdrawal, OperationExchange, OperationTransfer:
		return k, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown operation kind")
}
