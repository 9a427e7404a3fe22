// Package handler exposes the router's workflows over HTTP: customer withdrawals
// and exchanges, oracle deposits, operation lookups and the operator controls.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"custody/internal/router/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/httputil"
	"custody/pkg/requestcontext"
)

// DefaultExpireAfter is used by POST /admin/operations/expire without older_than.
const DefaultExpireAfter = 15 * time.Minute

type Service interface {
	ExecuteBitcoinDeposit(ctx context.Context, req models.DepositRequest) (*models.Operation, error)
	ExecuteTokenWithdrawal(ctx context.Context, req models.WithdrawalRequest) (*models.Operation, error)
	ExecuteCrossTokenExchange(ctx context.Context, req models.ExchangeRequest) (*models.Operation, error)
	GetOperationStatus(ctx context.Context, opID id.OperationID) (*models.Operation, error)
	ListOperations(ctx context.Context, account id.AccountID) ([]models.Operation, error)
	RetryPendingStep(ctx context.Context, opID id.OperationID) (*models.Operation, error)
	ExpireStaleOperations(ctx context.Context, olderThan time.Duration) (int, error)
	EmergencyPause(ctx context.Context) error
	ResumeOperations(ctx context.Context) error
	IsPaused() bool
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the customer routes; callers wrap r with the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/withdrawals", h.HandleWithdrawal)
	r.Post("/v1/exchanges", h.HandleExchange)
	r.Get("/v1/operations/{id}", h.HandleGetOperation)
	r.Get("/v1/accounts/{account}/operations", h.HandleListOperations)
}

// RegisterAdmin mounts the operator routes; callers wrap r with the admin middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/deposits", h.HandleDeposit)
	r.Post("/admin/pause", h.HandlePause)
	r.Post("/admin/resume", h.HandleResume)
	r.Get("/admin/pause", h.HandlePauseStatus)
	r.Post("/admin/operations/{id}/retry", h.HandleRetry)
	r.Post("/admin/operations/expire", h.HandleExpire)
}

func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DepositRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	op, err := h.service.ExecuteBitcoinDeposit(ctx, req.toModel())
	h.respond(ctx, w, "bitcoin deposit", op, err)
}

func (h *Handler) HandleWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[WithdrawalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	account, err := actingAccount(ctx, req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	op, err := h.service.ExecuteTokenWithdrawal(ctx, models.WithdrawalRequest{
		Account:        account,
		Amount:         req.Amount,
		BTCAddress:     req.BTCAddress,
		IdempotencyKey: req.IdempotencyKey,
	})
	h.respond(ctx, w, "token withdrawal", op, err)
}

func (h *Handler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ExchangeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	account, err := actingAccount(ctx, req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	op, err := h.service.ExecuteCrossTokenExchange(ctx, models.ExchangeRequest{
		Account:        account,
		FromToken:      req.from,
		ToToken:        req.to,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	h.respond(ctx, w, "cross-token exchange", op, err)
}

func (h *Handler) HandleGetOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opID, err := id.ParseOperationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	op, err := h.service.GetOperationStatus(ctx, opID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Someone else's operation reads as missing.
	if !requestcontext.CanAccess(ctx, op.Account.String()) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "operation not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromOperation(op))
}

func (h *Handler) HandleListOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !requestcontext.CanAccess(ctx, account.String()) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authorized for this account"))
		return
	}
	ops, err := h.service.ListOperations(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := operationsResponse{Account: account.String(), Operations: make([]*OperationResponse, 0, len(ops))}
	for i := range ops {
		resp.Operations = append(resp.Operations, fromOperation(&ops[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opID, err := id.ParseOperationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	op, err := h.service.RetryPendingStep(ctx, opID)
	if err != nil {
		h.logger.WarnContext(ctx, "pending step retry rejected",
			"request_id", requestcontext.RequestID(ctx),
			"operation_id", opID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "pending step resolved",
		"request_id", requestcontext.RequestID(ctx),
		"operation_id", op.ID.String(),
		"actor", requestcontext.ActorID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, fromOperation(op))
}

func (h *Handler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	olderThan := DefaultExpireAfter
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "older_than must be a positive duration"))
			return
		}
		olderThan = d
	}
	n, err := h.service.ExpireStaleOperations(ctx, olderThan)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, expireResponse{Expired: n})
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.EmergencyPause)
}

func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.ResumeOperations)
}

func (h *Handler) HandlePauseStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, pauseResponse{Paused: h.service.IsPaused()})
}

func (h *Handler) togglePause(w http.ResponseWriter, r *http.Request, apply func(context.Context) error) {
	ctx := r.Context()
	if err := apply(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	paused := h.service.IsPaused()
	h.logger.WarnContext(ctx, "operations gate changed",
		"request_id", requestcontext.RequestID(ctx),
		"actor", requestcontext.ActorID(ctx),
		"paused", strconv.FormatBool(paused),
	)
	httputil.WriteJSON(w, http.StatusOK, pauseResponse{Paused: paused})
}

// respond writes the operation, or the error alongside the operation when one was
// recorded before the failure.
func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, workflow string, op *models.Operation, err error) {
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, fromOperation(op))
		return
	}
	h.logger.WarnContext(ctx, workflow+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	if op == nil {
		httputil.WriteError(w, err)
		return
	}
	code := dErrors.CodeOf(err)
	status := httputil.StatusFor(code)
	resp := failedResponse{Error: string(code), Operation: fromOperation(op)}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = dErrors.MessageOf(err)
		resp.Hint = dErrors.HintOf(err)
	}
	httputil.WriteJSON(w, status, resp)
}

// actingAccount is the caller, or the named account when an admin acts for it.
func actingAccount(ctx context.Context, requested string) (id.AccountID, error) {
	if requested != "" {
		account, err := id.ParseAccountID(requested)
		if err != nil {
			return "", err
		}
		if !requestcontext.CanAccess(ctx, account.String()) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "not authorized for this account")
		}
		return account, nil
	}
	account, err := id.ParseAccountID(requestcontext.ActorID(ctx))
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return account, nil
}
