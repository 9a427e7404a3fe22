package handler

import (
	"time"

	"custody/internal/router/models"
)

type OperationResponse struct {
	ID                   string    `json:"id"`
	Kind                 string    `json:"kind"`
	Status               string    `json:"status"`
	Account              string    `json:"account"`
	Amount               int64     `json:"amount"`
	FromToken            string    `json:"from_token,omitempty"`
	ToToken              string    `json:"to_token,omitempty"`
	ExternalRef          string    `json:"external_ref,omitempty"`
	IdempotencyKey       string    `json:"idempotency_key,omitempty"`
	PendingStep          string    `json:"pending_step,omitempty"`
	EnhancedVerification bool      `json:"enhanced_verification"`
	FailureCode          string    `json:"failure_code,omitempty"`
	FailureReason        string    `json:"failure_reason,omitempty"`
	Resolution           string    `json:"resolution,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func fromOperation(op *models.Operation) *OperationResponse {
	return &OperationResponse{
		ID:                   op.ID.String(),
		Kind:                 string(op.Kind),
		Status:               string(op.Status),
		Account:              op.Account.String(),
		Amount:               op.Amount,
		FromToken:            op.FromToken.String(),
		ToToken:              op.ToToken.String(),
		ExternalRef:          op.ExternalRef,
		IdempotencyKey:       op.IdempotencyKey,
		PendingStep:          string(op.PendingStep),
		EnhancedVerification: op.EnhancedVerification,
		FailureCode:          string(op.FailureCode),
		FailureReason:        op.FailureReason,
		Resolution:           op.Resolution,
		CreatedAt:            op.CreatedAt,
		UpdatedAt:            op.UpdatedAt,
	}
}

type operationsResponse struct {
	Account    string               `json:"account"`
	Operations []*OperationResponse `json:"operations"`
}

type pauseResponse struct {
	Paused bool `json:"paused"`
}

type expireResponse struct {
	Expired int `json:"expired"`
}

// failedResponse accompanies an error when the operation was recorded, so callers
// learn its id and state.
type failedResponse struct {
	Error            string             `json:"error"`
	ErrorDescription string             `json:"error_description,omitempty"`
	Hint             string             `json:"hint,omitempty"`
	Operation        *OperationResponse `json:"operation"`
}
