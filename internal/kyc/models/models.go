package models

import (
	"strings"
	"time"

	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// Account is a registered custody customer. Only admin calls mutate it.
type Account struct {
	ID               id.AccountID
	Tier             id.Tier
	Approved         bool
	EnhancedVerified bool
	Data             KYCData
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// KYCData is the identity information captured at registration. Tier is optional;
// when nil the account starts unverified at tier 0.
type KYCData struct {
	FullName    string `json:"full_name"`
	Country     string `json:"country"`
	DocumentRef string `json:"document_ref"`
	Tier        *int   `json:"tier,omitempty"`
}

// Validate normalises and checks registration data.
func (d *KYCData) Validate() error {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Country = strings.ToUpper(strings.TrimSpace(d.Country))
	d.DocumentRef = strings.TrimSpace(d.DocumentRef)

	if d.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	if len(d.FullName) > 200 {
		return dErrors.New(dErrors.CodeValidation, "full_name must be at most 200 characters")
	}
	if len(d.Country) != 2 || !isUpperAlpha(d.Country) {
		return dErrors.New(dErrors.CodeValidation, "country must be an ISO 3166-1 alpha-2 code")
	}
	if len(d.DocumentRef) > 128 {
		return dErrors.New(dErrors.CodeValidation, "document_ref must be at most 128 characters")
	}
	if d.Tier != nil {
		if _, err := id.ParseTier(*d.Tier); err != nil {
			return err
		}
	}
	return nil
}

func isUpperAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Unlimited marks an uncapped tier in the operation cap table.
const Unlimited int64 = 0

// operationCaps is the single-operation ceiling per kind and tier. Tier 0 has no
// entry and is never approved.
var operationCaps = map[id.OperationKind]map[id.Tier]int64{
	id.OperationDeposit: {
		1: 10_000_000,
		2: 100_000_000,
		3: 1_000_000_000,
		4: Unlimited,
	},
	id.OperationWithdrawal: {
		1: 1_000_000,
		2: 5_000_000,
		3: 20_000_000,
		4: 100_000_000,
	},
	id.OperationExchange: {
		1: 1_000_000,
		2: 5_000_000,
		3: 20_000_000,
		4: 100_000_000,
	},
	id.OperationTransfer: {
		1: 1_000_000,
		2: 5_000_000,
		3: 20_000_000,
		4: 100_000_000,
	},
}

// OperationCap returns the cap for kind at tier; ok is false when the tier may not
// perform the operation at all.
func OperationCap(kind id.OperationKind, tier id.Tier) (limit int64, ok bool) {
	caps, ok := operationCaps[kind]
	if !ok {
		return 0, false
	}
	limit, ok = caps[tier]
	return limit, ok
}

// ApprovesAmount reports whether the account may perform kind for amount.
func (a *Account) ApprovesAmount(kind id.OperationKind, amount int64) bool {
	if a == nil || !a.Approved || a.Tier == id.TierNone || amount <= 0 {
		return false
	}
	limit, ok := OperationCap(kind, a.Tier)
	if !ok {
		return false
	}
	return limit == Unlimited || amount <= limit
}
