package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "custody/pkg/domain"
)

func TestAccount_ApprovesAmount(t *testing.T) {
	tests := []struct {
		name    string
		account *Account
		kind    id.OperationKind
		amount  int64
		want    bool
	}{
		{"nil account", nil, id.OperationDeposit, 1, false},
		{"tier 0 never approved", &Account{Tier: 0, Approved: true}, id.OperationDeposit, 1, false},
		{"suspended account", &Account{Tier: 2, Approved: false}, id.OperationDeposit, 1, false},
		{"tier 1 deposit at cap", &Account{Tier: 1, Approved: true}, id.OperationDeposit, 10_000_000, true},
		{"tier 1 deposit over cap", &Account{Tier: 1, Approved: true}, id.OperationDeposit, 10_000_001, false},
		{"tier 2 deposit of one btc", &Account{Tier: 2, Approved: true}, id.OperationDeposit, 100_000_000, true},
		{"tier 4 deposit uncapped", &Account{Tier: 4, Approved: true}, id.OperationDeposit, 50_000_000_000, true},
		{"tier 1 transfer over cap", &Account{Tier: 1, Approved: true}, id.OperationTransfer, 1_000_001, false},
		{"tier 4 withdrawal capped", &Account{Tier: 4, Approved: true}, id.OperationWithdrawal, 100_000_001, false},
		{"zero amount", &Account{Tier: 4, Approved: true}, id.OperationExchange, 0, false},
		{"unknown kind", &Account{Tier: 4, Approved: true}, id.OperationKind("lend"), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.account.ApprovesAmount(tt.kind, tt.amount))
		})
	}
}

func TestKYCData_Validate(t *testing.T) {
	tier := 2
	data := KYCData{FullName: " Ada Lovelace ", Country: "gb", Tier: &tier}
	assert.NoError(t, data.Validate())
	assert.Equal(t, "Ada Lovelace", data.FullName)
	assert.Equal(t, "GB", data.Country)

	bad := 7
	assert.Error(t, (&KYCData{FullName: "x", Country: "GB", Tier: &bad}).Validate())
	assert.Error(t, (&KYCData{FullName: "", Country: "GB"}).Validate())
	assert.Error(t, (&KYCData{FullName: "x", Country: "GBR"}).Validate())
}
