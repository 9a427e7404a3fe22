// Package handler exposes the KYC registry's admin endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custody/internal/kyc/models"
	id "custody/pkg/domain"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/httputil"
	"custody/pkg/requestcontext"
)

// Service is the subset of the KYC registry the admin endpoints drive.
type Service interface {
	RegisterCustomer(ctx context.Context, account id.AccountID, data models.KYCData) error
	UpdateTier(ctx context.Context, account id.AccountID, tier id.Tier) error
	SetApproval(ctx context.Context, account id.AccountID, approved bool) error
	GrantEnhancedVerification(ctx context.Context, account id.AccountID) error
	RevokeEnhancedVerification(ctx context.Context, account id.AccountID) error
	GetAccount(ctx context.Context, account id.AccountID) (*models.Account, error)
	ListComplianceEvents(ctx context.Context, account id.AccountID) ([]audit.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the customer admin routes. Callers wrap r with the admin
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/customers", h.HandleRegister)
	r.Get("/admin/customers/{account}", h.HandleGet)
	r.Put("/admin/customers/{account}/tier", h.HandleUpdateTier)
	r.Put("/admin/customers/{account}/approval", h.HandleSetApproval)
	r.Post("/admin/customers/{account}/enhanced-verification", h.HandleGrantEnhanced)
	r.Delete("/admin/customers/{account}/enhanced-verification", h.HandleRevokeEnhanced)
	r.Get("/admin/customers/{account}/events", h.HandleListEvents)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterCustomerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.RegisterCustomer(ctx, req.parsedAccount, req.KYCData); err != nil {
		h.logger.WarnContext(ctx, "customer registration failed",
			"request_id", requestID,
			"account", req.parsedAccount,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.respondAccount(w, r, req.parsedAccount, http.StatusCreated)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	account, ok := h.accountParam(w, r)
	if !ok {
		return
	}
	h.respondAccount(w, r, account, http.StatusOK)
}

func (h *Handler) HandleUpdateTier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	account, ok := h.accountParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateTierRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.UpdateTier(ctx, account, req.parsedTier); err != nil {
		h.logger.WarnContext(ctx, "tier update failed",
			"request_id", requestID,
			"account", account,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.respondAccount(w, r, account, http.StatusOK)
}

func (h *Handler) HandleSetApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	account, ok := h.accountParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetApprovalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.SetApproval(ctx, account, *req.Approved); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respondAccount(w, r, account, http.StatusOK)
}

func (h *Handler) HandleGrantEnhanced(w http.ResponseWriter, r *http.Request) {
	h.toggleEnhanced(w, r, h.service.GrantEnhancedVerification)
}

func (h *Handler) HandleRevokeEnhanced(w http.ResponseWriter, r *http.Request) {
	h.toggleEnhanced(w, r, h.service.RevokeEnhancedVerification)
}

func (h *Handler) toggleEnhanced(w http.ResponseWriter, r *http.Request, apply func(context.Context, id.AccountID) error) {
	account, ok := h.accountParam(w, r)
	if !ok {
		return
	}
	if err := apply(r.Context(), account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respondAccount(w, r, account, http.StatusOK)
}

func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	account, ok := h.accountParam(w, r)
	if !ok {
		return
	}
	events, err := h.service.ListComplianceEvents(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEvents(account.String(), events))
}

func (h *Handler) respondAccount(w http.ResponseWriter, r *http.Request, account id.AccountID, status int) {
	a, err := h.service.GetAccount(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, status, fromAccount(a))
}

func (h *Handler) accountParam(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return account, true
}
