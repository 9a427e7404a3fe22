// Package service implements the Bitcoin reserve ledger: idempotent deposit and
// withdrawal registration, the reserve ratio against outstanding token supply, and
// proof-of-reserves snapshots.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"

	"custody/internal/reserve/metrics"
	"custody/internal/reserve/models"
	"custody/internal/reserve/proof"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/sentinel"
	txcontext "custody/pkg/platform/tx"
	"custody/pkg/requestcontext"
)

const (
	DefaultMinConfirmations int64 = 6
	DefaultProofKeyLabel          = "custody-proof-of-reserves-v1"
)

// DefaultMinReserveRatio is the ratio below which a breach event is emitted.
var DefaultMinReserveRatio = decimal.RequireFromString("0.95")

// Store persists reserve entries. Insert returns sentinel.ErrConflict when the tx id
// is already registered.
type Store interface {
	Insert(ctx context.Context, entry *models.Entry) error
	FindByTxID(ctx context.Context, txID id.BitcoinTxID) (*models.Entry, error)
	List(ctx context.Context) ([]models.Entry, error)
	Totals(ctx context.Context) (models.Totals, error)
	SetPendingMint(ctx context.Context, txID id.BitcoinTxID, pending bool, ref string) error
}

// SupplySource reports the BTC-equivalent token supply across all ledgers.
type SupplySource interface {
	TotalSupply(ctx context.Context) (int64, error)
}

type Service struct {
	store            Store
	supply           SupplySource
	auditor          audit.Emitter
	tx               txcontext.Runner
	logger           *slog.Logger
	metrics          *metrics.Metrics
	network          *chaincfg.Params
	minConfirmations int64
	minRatio         decimal.Decimal
	proofKey         proof.Key
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTx sets the transactional boundary for check-then-insert registration.
func WithTx(tx txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithNetwork sets the chain used to validate withdrawal addresses.
func WithNetwork(params *chaincfg.Params) Option {
	return func(s *Service) {
		if params != nil {
			s.network = params
		}
	}
}

func WithMinConfirmations(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.minConfirmations = n
		}
	}
}

func WithMinReserveRatio(ratio decimal.Decimal) Option {
	return func(s *Service) {
		if ratio.IsPositive() {
			s.minRatio = ratio
		}
	}
}

// WithProofKeyLabel sets the published label the proof commitment key derives from.
func WithProofKeyLabel(label string) Option {
	return func(s *Service) {
		if label != "" {
			s.proofKey = proof.NewKey(label)
		}
	}
}

func New(store Store, supply SupplySource, auditor audit.Emitter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("reserve store is required")
	}
	if supply == nil {
		return nil, fmt.Errorf("supply source is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit emitter is required")
	}
	svc := &Service{
		store:            store,
		supply:           supply,
		auditor:          auditor,
		tx:               txcontext.NewLocalRunner(),
		logger:           slog.Default(),
		network:          &chaincfg.MainNetParams,
		minConfirmations: DefaultMinConfirmations,
		minRatio:         DefaultMinReserveRatio,
		proofKey:         proof.NewKey(DefaultProofKeyLabel),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// MinReserveRatio returns the configured alert threshold.
func (s *Service) MinReserveRatio() decimal.Decimal {
	return s.minRatio
}

// RegisterBitcoinDeposit records a confirmed deposit. A replayed tx id fails with
// AlreadyProcessed and returns the existing entry so callers can match its
// operation reference.
func (s *Service) RegisterBitcoinDeposit(ctx context.Context, reg models.DepositRegistration) (*models.Entry, error) {
	txID, err := id.ParseBitcoinTxID(reg.TxID)
	if err != nil {
		return nil, err
	}
	if err := id.ValidateAmount(reg.Amount); err != nil {
		return nil, err
	}
	if reg.Confirmations < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "confirmations must not be negative")
	}

	entry := &models.Entry{
		TxID:          txID,
		Direction:     models.DirectionDeposit,
		Amount:        reg.Amount,
		Confirmations: reg.Confirmations,
		OperationRef:  reg.OperationRef,
		RecordedAt:    requestcontext.Now(ctx),
	}

	var existing *models.Entry
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		found, err := s.lookup(ctx, txID)
		if err != nil {
			return err
		}
		if found != nil {
			existing = found
			return alreadyProcessed(txID)
		}
		if reg.Confirmations < s.minConfirmations {
			s.metrics.IncRejected("insufficient_confirmations")
			return dErrors.New(dErrors.CodeInsufficientConfirmations,
				fmt.Sprintf("deposit has %d confirmations, %d required", reg.Confirmations, s.minConfirmations)).
				WithHint("resubmit once the transaction has enough confirmations")
		}
		if err := s.insert(ctx, entry); err != nil {
			return err
		}
		return s.record(ctx, audit.Event{
			Type:        audit.EventReserveDepositRegistered,
			Detail:      fmt.Sprintf("tx=%s amount=%d confirmations=%d", txID, reg.Amount, reg.Confirmations),
			OperationID: reg.OperationRef,
		})
	})
	if existing != nil {
		s.metrics.IncRejected("already_processed")
		return existing, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncRegistered(string(models.DirectionDeposit))
	s.checkAfterRegistration(ctx)
	return entry, nil
}

// RegisterBitcoinWithdrawal records reserves leaving custody. The amount must not
// exceed available reserves.
func (s *Service) RegisterBitcoinWithdrawal(ctx context.Context, reg models.WithdrawalRegistration) (*models.Entry, error) {
	txID, err := id.ParseBitcoinTxID(reg.TxID)
	if err != nil {
		return nil, err
	}
	if err := id.ValidateAmount(reg.Amount); err != nil {
		return nil, err
	}
	address, err := id.ParseBitcoinAddress(reg.Address, s.network)
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{
		TxID:         txID,
		Direction:    models.DirectionWithdrawal,
		Amount:       reg.Amount,
		Address:      address,
		OperationRef: reg.OperationRef,
		RecordedAt:   requestcontext.Now(ctx),
	}

	var existing *models.Entry
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		found, err := s.lookup(ctx, txID)
		if err != nil {
			return err
		}
		if found != nil {
			existing = found
			return alreadyProcessed(txID)
		}
		totals, err := s.store.Totals(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reserve totals")
		}
		if reg.Amount > totals.Available() {
			s.metrics.IncRejected("insufficient_reserve")
			return dErrors.New(dErrors.CodeInsufficientReserve,
				fmt.Sprintf("withdrawal of %s exceeds available reserves of %s",
					id.FormatBTC(reg.Amount), id.FormatBTC(totals.Available())))
		}
		if err := s.insert(ctx, entry); err != nil {
			return err
		}
		return s.record(ctx, audit.Event{
			Type:        audit.EventReserveWithdrawalRegistered,
			Detail:      fmt.Sprintf("tx=%s amount=%d address=%s", txID, reg.Amount, address),
			OperationID: reg.OperationRef,
		})
	})
	if existing != nil {
		s.metrics.IncRejected("already_processed")
		return existing, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncRegistered(string(models.DirectionWithdrawal))
	s.checkAfterRegistration(ctx)
	return entry, nil
}

// ParseAddress validates a payout address for the configured network.
func (s *Service) ParseAddress(address string) (id.BitcoinAddress, error) {
	return id.ParseBitcoinAddress(address, s.network)
}

// AvailableReserves returns confirmed deposits minus withdrawals.
func (s *Service) AvailableReserves(ctx context.Context) (int64, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reserve totals")
	}
	return totals.Available(), nil
}

// GetEntry returns the entry registered under txID.
func (s *Service) GetEntry(ctx context.Context, txID string) (*models.Entry, error) {
	parsed, err := id.ParseBitcoinTxID(txID)
	if err != nil {
		return nil, err
	}
	found, err := s.lookup(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "reserve entry not found")
	}
	return found, nil
}

// GetReserveRatio returns reserves / supply. A zero supply is fully backed.
func (s *Service) GetReserveRatio(ctx context.Context) (decimal.Decimal, error) {
	available, supply, err := s.position(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return ratioOf(available, supply), nil
}

// CheckReserveRatio recomputes the ratio and emits ReserveThresholdBreached when it
// is below the minimum. The returned error reports a failed read or a breach alert
// that could not be recorded.
func (s *Service) CheckReserveRatio(ctx context.Context) (decimal.Decimal, error) {
	available, supply, err := s.position(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	ratio := ratioOf(available, supply)
	s.metrics.SetRatio(ratio.InexactFloat64(), available)

	if ratio.GreaterThanOrEqual(s.minRatio) {
		return ratio, nil
	}

	s.metrics.IncThresholdBreach()
	err = audit.Record(ctx, s.logger, s.auditor, audit.Event{
		Type:   audit.EventReserveThresholdBreached,
		Detail: fmt.Sprintf("ratio=%s minimum=%s reserves=%d supply=%d", ratio.StringFixed(4), s.minRatio.String(), available, supply),
	}, "ratio", ratio.String())
	if err != nil {
		return ratio, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record reserve threshold breach")
	}
	return ratio, nil
}

// MarkPendingMint flags a deposit entry whose mint did not complete. opRef is the
// operation that owns the retry.
func (s *Service) MarkPendingMint(ctx context.Context, txID id.BitcoinTxID, opRef string) error {
	return s.setPendingMint(ctx, txID, true, opRef)
}

// ClearPendingMint removes the flag once the mint has been completed.
func (s *Service) ClearPendingMint(ctx context.Context, txID id.BitcoinTxID) error {
	return s.setPendingMint(ctx, txID, false, "")
}

func (s *Service) setPendingMint(ctx context.Context, txID id.BitcoinTxID, pending bool, ref string) error {
	if err := s.store.SetPendingMint(ctx, txID, pending, ref); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "reserve entry not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update pending mint flag")
	}
	s.logger.InfoContext(ctx, "reserve entry pending mint updated",
		"tx_id", txID,
		"pending_mint", pending,
		"operation_id", ref,
	)
	return nil
}

// GenerateProofOfReserves commits to the current ledger and supply. Entries and
// supply are read inside one transactional boundary so the snapshot is consistent.
func (s *Service) GenerateProofOfReserves(ctx context.Context) (*models.ProofSnapshot, error) {
	var (
		entries []models.Entry
		supply  int64
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		entries, err = s.store.List(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reserve entries")
		}
		supply, err = s.supply.TotalSupply(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read token supply")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	totals := proof.TotalsOf(entries)
	root := proof.MerkleRoot(entries)
	snapshot := &models.ProofSnapshot{
		Root:             root.String(),
		Commitment:       proof.Commit(s.proofKey, root, totals, supply).String(),
		EntryCount:       totals.Entries,
		TotalDeposits:    totals.Deposits,
		TotalWithdrawals: totals.Withdrawals,
		Reserves:         totals.Available(),
		TokenSupply:      supply,
		Ratio:            ratioOf(totals.Available(), supply),
		GeneratedAt:      requestcontext.Now(ctx),
	}

	s.metrics.IncProofs()
	audit.RecordBestEffort(ctx, s.logger, s.auditor, audit.Event{
		Type:   audit.EventProofOfReservesGenerated,
		Detail: "commitment=" + snapshot.Commitment + " entries=" + strconv.Itoa(snapshot.EntryCount),
	})
	return snapshot, nil
}

// VerifyProof checks snapshot against entries under this service's proof key.
func (s *Service) VerifyProof(snapshot *models.ProofSnapshot, entries []models.Entry) error {
	if !proof.Verify(s.proofKey, snapshot, entries) {
		return dErrors.New(dErrors.CodeInvariantViolation, "proof of reserves does not match ledger entries")
	}
	return nil
}

// ListEntries returns the ledger sorted by tx id, for proof verification.
func (s *Service) ListEntries(ctx context.Context) ([]models.Entry, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reserve entries")
	}
	return entries, nil
}

func (s *Service) position(ctx context.Context) (available, supply int64, err error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reserve totals")
	}
	supply, err = s.supply.TotalSupply(ctx)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read token supply")
	}
	return totals.Available(), supply, nil
}

// checkAfterRegistration runs the breach check once a registration has committed.
// Failures are logged; the registration itself stands.
func (s *Service) checkAfterRegistration(ctx context.Context) {
	if _, err := s.CheckReserveRatio(ctx); err != nil {
		s.logger.ErrorContext(ctx, "reserve ratio check failed after registration",
			"error", err,
		)
	}
}

func (s *Service) lookup(ctx context.Context, txID id.BitcoinTxID) (*models.Entry, error) {
	found, err := s.store.FindByTxID(ctx, txID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reserve entry")
	}
	return found, nil
}

func (s *Service) insert(ctx context.Context, entry *models.Entry) error {
	if err := s.store.Insert(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return alreadyProcessed(entry.TxID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register reserve entry")
	}
	return nil
}

func (s *Service) record(ctx context.Context, event audit.Event) error {
	if err := audit.Record(ctx, s.logger, s.auditor, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record reserve event")
	}
	return nil
}

func alreadyProcessed(txID id.BitcoinTxID) error {
	return dErrors.New(dErrors.CodeAlreadyProcessed, "bitcoin tx "+txID.String()+" already registered")
}

func ratioOf(available, supply int64) decimal.Decimal {
	if supply == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(available).Div(decimal.NewFromInt(supply))
}
