// Package handler exposes an account's exchange limit status.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custody/internal/compliance/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/httputil"
	"custody/pkg/requestcontext"
)

type Service interface {
	GetComplianceStatus(ctx context.Context, account id.AccountID) (*models.Status, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/accounts/{account}/compliance", h.HandleGetStatus)
}

func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
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

	status, err := h.service.GetComplianceStatus(ctx, account)
	if err != nil {
		h.logger.WarnContext(ctx, "compliance status unavailable",
			"request_id", requestcontext.RequestID(ctx),
			"account", account,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}
