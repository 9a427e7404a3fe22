package handler

import (
	"strings"

	"custody/internal/router/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

const maxIdempotencyKeyLength = 128

// DepositRequest is the body for POST /admin/deposits, sent by the confirmation
// oracle once a Bitcoin transaction is observed.
type DepositRequest struct {
	Account       string `json:"account"`
	Amount        int64  `json:"amount"`
	TxID          string `json:"tx_id"`
	Confirmations int64  `json:"confirmations"`

	account id.AccountID
}

func (r *DepositRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	account, err := id.ParseAccountID(r.Account)
	if err != nil {
		return err
	}
	if err := id.ValidateAmount(r.Amount); err != nil {
		return err
	}
	r.TxID = strings.TrimSpace(r.TxID)
	if r.TxID == "" {
		return dErrors.New(dErrors.CodeValidation, "tx_id is required")
	}
	r.account = account
	return nil
}

func (r *DepositRequest) toModel() models.DepositRequest {
	return models.DepositRequest{
		Account:       r.account,
		Amount:        r.Amount,
		TxID:          r.TxID,
		Confirmations: r.Confirmations,
	}
}

// WithdrawalRequest is the body for POST /v1/withdrawals. Account defaults to the
// caller; only admins may name another account.
type WithdrawalRequest struct {
	Account        string `json:"account,omitempty"`
	Amount         int64  `json:"amount"`
	BTCAddress     string `json:"btc_address"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (r *WithdrawalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := id.ValidateAmount(r.Amount); err != nil {
		return err
	}
	r.BTCAddress = strings.TrimSpace(r.BTCAddress)
	if r.BTCAddress == "" {
		return dErrors.New(dErrors.CodeValidation, "btc_address is required")
	}
	return validateIdempotencyKey(&r.IdempotencyKey)
}

// ExchangeRequest is the body for POST /v1/exchanges.
type ExchangeRequest struct {
	Account        string `json:"account,omitempty"`
	FromToken      string `json:"from_token"`
	ToToken        string `json:"to_token"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	from id.TokenSymbol
	to   id.TokenSymbol
}

func (r *ExchangeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	from, err := id.ParseTokenSymbol(r.FromToken)
	if err != nil {
		return err
	}
	to, err := id.ParseTokenSymbol(r.ToToken)
	if err != nil {
		return err
	}
	if err := id.ValidateAmount(r.Amount); err != nil {
		return err
	}
	r.from = from
	r.to = to
	return validateIdempotencyKey(&r.IdempotencyKey)
}

func validateIdempotencyKey(key *string) error {
	*key = strings.TrimSpace(*key)
	if len(*key) > maxIdempotencyKeyLength {
		return dErrors.New(dErrors.CodeValidation, "idempotency_key must be at most 128 characters")
	}
	return nil
}
