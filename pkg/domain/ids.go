// Package domain holds the typed identifiers and value primitives shared by the
// custody modules. Parse functions are the trust boundary: anything that reaches a
// service as one of these types has already been validated.
package domain

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"

	dErrors "custody/pkg/domain-errors"
)

const maxAccountIDLength = 128

// AccountID identifies a custody customer.
type AccountID string

// ParseAccountID trims and validates an account identifier.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "account is required")
	}
	if len(s) > maxAccountIDLength {
		return "", dErrors.New(dErrors.CodeValidation, "account must be at most 128 characters")
	}
	for _, r := range s {
		if !isAccountRune(r) {
			return "", dErrors.New(dErrors.CodeValidation, "account contains invalid characters")
		}
	}
	return AccountID(s), nil
}

func isAccountRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ':', r == '@':
		return true
	}
	return false
}

func (a AccountID) String() string { return string(a) }

// IsNil reports whether the account is empty.
func (a AccountID) IsNil() bool { return a == "" }

// OperationID identifies a router operation.
type OperationID uuid.UUID

// NewOperationID returns a fresh random operation id.
func NewOperationID() OperationID {
	return OperationID(uuid.New())
}

// ParseOperationID parses a non-nil UUID.
func ParseOperationID(s string) (OperationID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return OperationID{}, dErrors.New(dErrors.CodeValidation, "invalid operation id")
	}
	if parsed == uuid.Nil {
		return OperationID{}, dErrors.New(dErrors.CodeValidation, "operation id must not be nil")
	}
	return OperationID(parsed), nil
}

func (id OperationID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the nil UUID.
func (id OperationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText encodes the id as its canonical UUID string.
func (id OperationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a canonical UUID string.
func (id *OperationID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = OperationID(parsed)
	return nil
}

// BitcoinTxID is a 32-byte transaction hash in its 64-hex display form.
type BitcoinTxID string

// ParseBitcoinTxID parses a hex transaction id of up to 64 characters into its
// canonical 64-character lower-case display form. Shorter ids are zero-padded the
// way chainhash does, so "abc123" and its padded form are the same ledger key.
func ParseBitcoinTxID(s string) (BitcoinTxID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "bitcoin tx id is required")
	}
	if len(s) > chainhash.MaxHashStringSize {
		return "", dErrors.New(dErrors.CodeValidation, "bitcoin tx id must be at most 64 hex characters")
	}
	for _, r := range s {
		if !isHexRune(r) {
			return "", dErrors.New(dErrors.CodeValidation, "bitcoin tx id must be hex encoded")
		}
	}
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "invalid bitcoin tx id")
	}
	return BitcoinTxID(h.String()), nil
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// DeriveTxID derives a deterministic 64-hex reference from an operation id. Used as
// the ledger key for withdrawals, whose on-chain hash is only known after broadcast.
func DeriveTxID(op OperationID) BitcoinTxID {
	h := chainhash.HashH([]byte("custody/withdrawal/" + op.String()))
	return BitcoinTxID(h.String())
}

func (t BitcoinTxID) String() string { return string(t) }

// BitcoinAddress is a destination address valid for the configured network.
type BitcoinAddress string

// ParseBitcoinAddress decodes s and checks it belongs to params' network.
func ParseBitcoinAddress(s string, params *chaincfg.Params) (BitcoinAddress, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "btc address is required")
	}
	addr, err := btcutil.DecodeAddress(s, params)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "invalid btc address")
	}
	if !addr.IsForNet(params) {
		return "", dErrors.New(dErrors.CodeValidation, "btc address is for a different network")
	}
	return BitcoinAddress(addr.EncodeAddress()), nil
}

func (a BitcoinAddress) String() string { return string(a) }

// NetworkParams resolves a network name to chain parameters.
func NetworkParams(name string) (*chaincfg.Params, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainnet", "main", "":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3", "test":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	}
	return nil, dErrors.New(dErrors.CodeValidation, "unknown bitcoin network: "+name)
}
