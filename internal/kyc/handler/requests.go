package handler

import (
	"custody/internal/kyc/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// RegisterCustomerRequest is the body for POST /admin/customers.
type RegisterCustomerRequest struct {
	Account string `json:"account"`
	models.KYCData

	parsedAccount id.AccountID
}

// Validate implements httputil.Validatable.
func (r *RegisterCustomerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	account, err := id.ParseAccountID(r.Account)
	if err != nil {
		return err
	}
	r.parsedAccount = account
	return r.KYCData.Validate()
}

// UpdateTierRequest is the body for PUT /admin/customers/{account}/tier.
type UpdateTierRequest struct {
	Tier *int `json:"tier"`

	parsedTier id.Tier
}

func (r *UpdateTierRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Tier == nil {
		return dErrors.New(dErrors.CodeValidation, "tier is required")
	}
	tier, err := id.ParseTier(*r.Tier)
	if err != nil {
		return err
	}
	r.parsedTier = tier
	return nil
}

// SetApprovalRequest is the body for PUT /admin/customers/{account}/approval.
type SetApprovalRequest struct {
	Approved *bool `json:"approved"`
}

func (r *SetApprovalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Approved == nil {
		return dErrors.New(dErrors.CodeValidation, "approved is required")
	}
	return nil
}
