// Package handler exposes read-only reserve endpoints for operators.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"custody/internal/reserve/models"
	"custody/pkg/platform/httputil"
	"custody/pkg/requestcontext"
)

type Service interface {
	GetReserveRatio(ctx context.Context) (decimal.Decimal, error)
	AvailableReserves(ctx context.Context) (int64, error)
	MinReserveRatio() decimal.Decimal
	GenerateProofOfReserves(ctx context.Context) (*models.ProofSnapshot, error)
	GetEntry(ctx context.Context, txID string) (*models.Entry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/reserves/ratio", h.HandleRatio)
	r.Get("/admin/reserves/proof", h.HandleProof)
	r.Get("/admin/reserves/entries/{txID}", h.HandleEntry)
}

type ratioResponse struct {
	Ratio             decimal.Decimal `json:"reserve_ratio"`
	MinimumRatio      decimal.Decimal `json:"minimum_ratio"`
	AvailableReserves int64           `json:"available_reserves"`
	BelowMinimum      bool            `json:"below_minimum"`
}

func (h *Handler) HandleRatio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ratio, err := h.service.GetReserveRatio(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reserve ratio lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	available, err := h.service.AvailableReserves(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	minimum := h.service.MinReserveRatio()
	httputil.WriteJSON(w, http.StatusOK, ratioResponse{
		Ratio:             ratio,
		MinimumRatio:      minimum,
		AvailableReserves: available,
		BelowMinimum:      ratio.LessThan(minimum),
	})
}

func (h *Handler) HandleProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	snapshot, err := h.service.GenerateProofOfReserves(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "proof of reserves served",
		"request_id", requestcontext.RequestID(ctx),
		"commitment", snapshot.Commitment,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

type entryResponse struct {
	TxID          string    `json:"tx_id"`
	Direction     string    `json:"direction"`
	Amount        int64     `json:"amount"`
	Confirmations int64     `json:"confirmations"`
	Address       string    `json:"address,omitempty"`
	OperationRef  string    `json:"operation_ref,omitempty"`
	PendingMint   bool      `json:"pending_mint"`
	RecordedAt    time.Time `json:"recorded_at"`
}

func (h *Handler) HandleEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetEntry(r.Context(), chi.URLParam(r, "txID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entryResponse{
		TxID:          entry.TxID.String(),
		Direction:     string(entry.Direction),
		Amount:        entry.Amount,
		Confirmations: entry.Confirmations,
		Address:       entry.Address.String(),
		OperationRef:  entry.OperationRef,
		PendingMint:   entry.PendingMint,
		RecordedAt:    entry.RecordedAt,
	})
}
