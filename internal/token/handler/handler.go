// Package handler exposes balances and customer transfers.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custody/internal/token/service"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/httputil"
	"custody/pkg/requestcontext"
)

// Ledgers is the token ledger set.
type Ledgers interface {
	Get(symbol id.TokenSymbol) (*service.Ledger, error)
	Balances(ctx context.Context, account id.AccountID) (map[id.TokenSymbol]int64, error)
}

type Handler struct {
	ledgers Ledgers
	logger  *slog.Logger
}

func New(ledgers Ledgers, logger *slog.Logger) *Handler {
	return &Handler{ledgers: ledgers, logger: logger}
}

// Register mounts the routes; callers wrap r with the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/accounts/{account}/balances", h.HandleBalances)
	r.Post("/v1/transfers", h.HandleTransfer)
}

type balancesResponse struct {
	Account  string           `json:"account"`
	Balances map[string]int64 `json:"balances"`
}

func (h *Handler) HandleBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := authorizeAccount(ctx, account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	balances, err := h.ledgers.Balances(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := balancesResponse{Account: account.String(), Balances: make(map[string]int64, len(balances))}
	for symbol, amount := range balances {
		resp.Balances[symbol.String()] = amount
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// TransferRequest is the body for POST /v1/transfers. The sender is the caller.
type TransferRequest struct {
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`

	symbol id.TokenSymbol
	to     id.AccountID
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	symbol, err := id.ParseTokenSymbol(r.Token)
	if err != nil {
		return err
	}
	to, err := id.ParseAccountID(r.To)
	if err != nil {
		return err
	}
	if err := id.ValidateAmount(r.Amount); err != nil {
		return err
	}
	r.symbol = symbol
	r.to = to
	return nil
}

type transferResponse struct {
	Token  string `json:"token"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	from, err := id.ParseAccountID(requestcontext.ActorID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	ledger, err := h.ledgers.Get(req.symbol)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := ledger.Transfer(ctx, from, req.to, req.Amount); err != nil {
		h.logger.WarnContext(ctx, "transfer rejected",
			"request_id", requestID,
			"from", from,
			"to", req.to,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, transferResponse{
		Token:  req.symbol.String(),
		From:   from.String(),
		To:     req.to.String(),
		Amount: req.Amount,
	})
}

// authorizeAccount lets customers read only their own account; admins read any.
func authorizeAccount(ctx context.Context, account id.AccountID) error {
	if requestcontext.CanAccess(ctx, account.String()) {
		return nil
	}
	return dErrors.New(dErrors.CodeUnauthorized, "not authorized for this account")
}
