// Package service implements the bearer-token ledgers. Only the router principal
// may mint or burn; transfers are gated by KYC approval of both parties.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"custody/internal/token/metrics"
	"custody/internal/token/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/sentinel"
	"custody/pkg/requestcontext"
)

// DefaultRouterPrincipal is the caller identity allowed to mint and burn.
const DefaultRouterPrincipal = "integration-router"

// Store persists balances and the movement journal for every symbol. Apply is
// atomic: it returns sentinel.ErrConflict for a duplicate ref and
// sentinel.ErrInvalidState when the debited balance is too low.
type Store interface {
	Balance(ctx context.Context, symbol id.TokenSymbol, account id.AccountID) (int64, error)
	TotalSupply(ctx context.Context, symbol id.TokenSymbol) (int64, error)
	FindJournal(ctx context.Context, symbol id.TokenSymbol, ref string) (*models.JournalEntry, error)
	Apply(ctx context.Context, entry *models.JournalEntry) error
}

// Approver is the KYC registry's approval oracle.
type Approver interface {
	IsApprovedForOperation(ctx context.Context, account id.AccountID, kind id.OperationKind, amount int64) bool
}

// Ledger is one token's balances.
type Ledger struct {
	symbol   id.TokenSymbol
	store    Store
	approver Approver
	auditor  audit.Emitter
	router   string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithRouterPrincipal sets the only caller allowed to mint and burn.
func WithRouterPrincipal(principal string) Option {
	return func(l *Ledger) {
		if principal != "" {
			l.router = principal
		}
	}
}

func New(symbol id.TokenSymbol, store Store, approver Approver, auditor audit.Emitter, opts ...Option) (*Ledger, error) {
	if symbol == "" {
		return nil, fmt.Errorf("token symbol is required")
	}
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if approver == nil {
		return nil, fmt.Errorf("approver is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit emitter is required")
	}
	l := &Ledger{
		symbol:   symbol,
		store:    store,
		approver: approver,
		auditor:  auditor,
		router:   DefaultRouterPrincipal,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Ledger) Symbol() id.TokenSymbol {
	return l.symbol
}

// Mint credits amount to the account. Replaying ref with the same movement is a
// no-op; reusing it for a different movement is a conflict.
func (l *Ledger) Mint(ctx context.Context, caller string, to id.AccountID, amount int64, ref string) error {
	if err := l.requireRouter(caller); err != nil {
		return err
	}
	return l.apply(ctx, &models.JournalEntry{
		Kind:   models.KindMint,
		To:     to,
		Amount: amount,
		Ref:    ref,
	})
}

// Burn debits amount from the account, failing with InsufficientBalance when the
// balance is too low. Idempotent on ref like Mint.
func (l *Ledger) Burn(ctx context.Context, caller string, from id.AccountID, amount int64, ref string) error {
	if err := l.requireRouter(caller); err != nil {
		return err
	}
	return l.apply(ctx, &models.JournalEntry{
		Kind:   models.KindBurn,
		From:   from,
		Amount: amount,
		Ref:    ref,
	})
}

// Transfer moves amount between accounts once the KYC registry approves both for
// a transfer of that size.
func (l *Ledger) Transfer(ctx context.Context, from, to id.AccountID, amount int64) error {
	if from.IsNil() || to.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "from and to accounts are required")
	}
	if from == to {
		return dErrors.New(dErrors.CodeValidation, "cannot transfer to the same account")
	}
	if err := id.ValidateAmount(amount); err != nil {
		return err
	}

	for _, party := range []id.AccountID{from, to} {
		if l.approver.IsApprovedForOperation(ctx, party, id.OperationTransfer, amount) {
			continue
		}
		l.metrics.IncTransferRejected(l.symbol.String())
		audit.RecordBestEffort(ctx, l.logger, l.auditor, audit.Event{
			Account: party,
			Type:    audit.EventComplianceViolation,
			Detail:  fmt.Sprintf("%s transfer of %d not approved", l.symbol, amount),
		})
		return dErrors.New(dErrors.CodeComplianceViolation,
			fmt.Sprintf("account %s is not approved for this transfer", party)).
			WithHint("increase KYC tier to proceed")
	}

	return l.apply(ctx, &models.JournalEntry{
		Kind:   models.KindTransfer,
		From:   from,
		To:     to,
		Amount: amount,
		Ref:    "transfer/" + uuid.NewString(),
	})
}

// Balance returns the account's balance; unknown accounts hold zero.
func (l *Ledger) Balance(ctx context.Context, account id.AccountID) (int64, error) {
	balance, err := l.store.Balance(ctx, l.symbol, account)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return balance, nil
}

// TotalSupply returns Σ mints − Σ burns for this token.
func (l *Ledger) TotalSupply(ctx context.Context) (int64, error) {
	supply, err := l.store.TotalSupply(ctx, l.symbol)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read total supply")
	}
	return supply, nil
}

// Applied reports whether a mint or burn with ref is in the journal.
func (l *Ledger) Applied(ctx context.Context, ref string) (bool, error) {
	_, err := l.store.FindJournal(ctx, l.symbol, ref)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	default:
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load journal entry")
	}
}

func (l *Ledger) apply(ctx context.Context, entry *models.JournalEntry) error {
	if entry.Ref == "" {
		return dErrors.New(dErrors.CodeValidation, "movement reference is required")
	}
	if entry.Kind != models.KindTransfer && entry.From.IsNil() && entry.To.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	if err := id.ValidateAmount(entry.Amount); err != nil {
		return err
	}
	entry.Symbol = l.symbol
	entry.RecordedAt = requestcontext.Now(ctx)

	err := l.store.Apply(ctx, entry)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrConflict):
		return l.replayed(ctx, entry)
	case errors.Is(err, sentinel.ErrInvalidState):
		if entry.Kind == models.KindTransfer {
			l.metrics.IncTransferRejected(l.symbol.String())
		}
		return dErrors.New(dErrors.CodeInsufficientBalance,
			fmt.Sprintf("%s balance of %s is below %d", l.symbol, entry.From, entry.Amount))
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply "+string(entry.Kind))
	}

	l.metrics.IncMovement(l.symbol.String(), string(entry.Kind))
	if entry.Kind != models.KindTransfer {
		if supply, err := l.store.TotalSupply(ctx, l.symbol); err == nil {
			l.metrics.SetSupply(l.symbol.String(), supply)
		}
	}
	l.logger.InfoContext(ctx, "token movement applied",
		"symbol", l.symbol,
		"kind", entry.Kind,
		"ref", entry.Ref,
		"amount", entry.Amount,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// replayed resolves a duplicate ref: the same movement is an idempotent success.
func (l *Ledger) replayed(ctx context.Context, entry *models.JournalEntry) error {
	existing, err := l.store.FindJournal(ctx, l.symbol, entry.Ref)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load journal entry")
	}
	if !existing.SameMovement(entry) {
		return dErrors.New(dErrors.CodeConflict, "reference "+entry.Ref+" was used for a different movement")
	}
	l.logger.InfoContext(ctx, "token movement already applied",
		"symbol", l.symbol,
		"kind", entry.Kind,
		"ref", entry.Ref,
	)
	return nil
}

func (l *Ledger) requireRouter(caller string) error {
	if caller != l.router {
		return dErrors.New(dErrors.CodeUnauthorized, "only the integration router may mint or burn")
	}
	return nil
}
