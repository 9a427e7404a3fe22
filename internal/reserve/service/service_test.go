package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"custody/internal/reserve/models"
	reserveStore "custody/internal/reserve/store"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/audit/publishers/compliance"
	auditmemory "custody/pkg/platform/audit/store/memory"
	"custody/pkg/requestcontext"
)

const (
	btc         int64 = 100_000_000
	mainnetAddr       = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
)

// stubSupply stands in for the token ledgers.
type stubSupply struct {
	mu     sync.Mutex
	supply int64
	err    error
}

func (s *stubSupply) TotalSupply(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supply, s.err
}

func (s *stubSupply) set(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supply = n
}

// =============================================================================
// Reserve Manager Test Suite
// =============================================================================

type ReserveServiceSuite struct {
	suite.Suite
	store   *reserveStore.InMemoryEntryStore
	events  *auditmemory.InMemoryStore
	supply  *stubSupply
	service *Service
	ctx     context.Context
}

func TestReserveServiceSuite(t *testing.T) {
	suite.Run(t, new(ReserveServiceSuite))
}

func (s *ReserveServiceSuite) SetupTest() {
	s.store = reserveStore.NewInMemory()
	s.events = auditmemory.NewInMemoryStore()
	s.supply = &stubSupply{}
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	var err error
	s.service, err = New(s.store, s.supply, compliance.New(s.events))
	s.Require().NoError(err)
}

func (s *ReserveServiceSuite) deposit(tx string, amount int64) {
	_, err := s.service.RegisterBitcoinDeposit(s.ctx, models.DepositRegistration{
		TxID: tx, Amount: amount, Confirmations: 6,
	})
	s.Require().NoError(err)
}

func (s *ReserveServiceSuite) eventsOf(t audit.EventType) []audit.Event {
	events, err := s.events.ListByTypes(context.Background(), []audit.EventType{t}, 0)
	s.Require().NoError(err)
	return events
}

// =============================================================================
// Constructor
// =============================================================================

func (s *ReserveServiceSuite) TestNew() {
	_, err := New(nil, s.supply, compliance.New(s.events))
	s.Require().ErrorContains(err, "reserve store is required")

	_, err = New(s.store, nil, compliance.New(s.events))
	s.Require().ErrorContains(err, "supply source is required")

	_, err = New(s.store, s.supply, nil)
	s.Require().ErrorContains(err, "audit emitter is required")
}

// =============================================================================
// Deposits
// =============================================================================

func (s *ReserveServiceSuite) TestRegisterBitcoinDeposit() {
	s.Run("registers a confirmed deposit", func() {
		entry, err := s.service.RegisterBitcoinDeposit(s.ctx, models.DepositRegistration{
			TxID: "abc123", Amount: btc, Confirmations: 6, OperationRef: "op-1",
		})
		s.Require().NoError(err)
		s.Equal(models.DirectionDeposit, entry.Direction)
		s.Len(string(entry.TxID), 64)

		available, err := s.service.AvailableReserves(s.ctx)
		s.Require().NoError(err)
		s.Equal(btc, available)
		s.Len(s.eventsOf(audit.EventReserveDepositRegistered), 1)
	})

	s.Run("replay is already processed and returns the original entry", func() {
		entry, err := s.service.RegisterBitcoinDeposit(s.ctx, models.DepositRegistration{
			TxID: "abc123", Amount: btc, Confirmations: 12, OperationRef: "op-2",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyProcessed))
		s.Require().NotNil(entry)
		s.Equal("op-1", entry.OperationRef)

		available, err := s.service.AvailableReserves(s.ctx)
		s.Require().NoError(err)
		s.Equal(btc, available, "replay must not change reserves")
	})

	s.Run("padded and short forms are the same key", func() {
		_, err := s.service.RegisterBitcoinDeposit(s.ctx, models.DepositRegistration{
			TxID: "0000000000000000000000000000000000000000000000000000000000abc123", Amount: btc, Confirmations: 6,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyProcessed))
	})
}

func (s *ReserveServiceSuite) TestRegisterBitcoinDeposit_Rejections() {
	tests := []struct {
		name string
		reg  models.DepositRegistration
		code dErrors.Code
	}{
		{"below min confirmations", models.DepositRegistration{TxID: "01", Amount: 10, Confirmations: 5}, dErrors.CodeInsufficientConfirmations},
		{"zero amount", models.DepositRegistration{TxID: "02", Amount: 0, Confirmations: 6}, dErrors.CodeValidation},
		{"negative confirmations", models.DepositRegistration{TxID: "03", Amount: 10, Confirmations: -1}, dErrors.CodeValidation},
		{"non-hex tx id", models.DepositRegistration{TxID: "xyz", Amount: 10, Confirmations: 6}, dErrors.CodeValidation},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			entry, err := s.service.RegisterBitcoinDeposit(s.ctx, tt.reg)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tt.code), "got %v", err)
			s.Nil(entry)
		})
	}

	entries, err := s.service.ListEntries(s.ctx)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ReserveServiceSuite) TestMinConfirmationsOption() {
	svc, err := New(s.store, s.supply, compliance.New(s.events), WithMinConfirmations(1))
	s.Require().NoError(err)
	_, err = svc.RegisterBitcoinDeposit(s.ctx, models.DepositRegistration{TxID: "0a", Amount: 10, Confirmations: 1})
	s.NoError(err)
}

// =============================================================================
// Withdrawals
// =============================================================================

func (s *ReserveServiceSuite) TestRegisterBitcoinWithdrawal() {
	s.deposit("aa", 3*btc)

	s.Run("within available reserves", func() {
		entry, err := s.service.RegisterBitcoinWithdrawal(s.ctx, models.WithdrawalRegistration{
			TxID: "bb", Amount: btc, Address: mainnetAddr, OperationRef: "op-w",
		})
		s.Require().NoError(err)
		s.Equal(id.BitcoinAddress(mainnetAddr), entry.Address)

		available, err := s.service.AvailableReserves(s.ctx)
		s.Require().NoError(err)
		s.Equal(2*btc, available)
	})

	s.Run("exceeding available reserves", func() {
		_, err := s.service.RegisterBitcoinWithdrawal(s.ctx, models.WithdrawalRegistration{
			TxID: "cc", Amount: 2*btc + 1, Address: mainnetAddr,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientReserve))
	})

	s.Run("replay", func() {
		entry, err := s.service.RegisterBitcoinWithdrawal(s.ctx, models.WithdrawalRegistration{
			TxID: "bb", Amount: btc, Address: mainnetAddr, OperationRef: "op-w",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyProcessed))
		s.Equal("op-w", entry.OperationRef)
	})

	s.Run("address for another network", func() {
		_, err := s.service.RegisterBitcoinWithdrawal(s.ctx, models.WithdrawalRegistration{
			TxID: "dd", Amount: 1, Address: "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("concurrent withdrawals never overdraw", func() {
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = s.service.RegisterBitcoinWithdrawal(s.ctx, models.WithdrawalRegistration{
					TxID: fmt.Sprintf("f%02x", i), Amount: btc / 2, Address: mainnetAddr,
				})
			}(i)
		}
		wg.Wait()

		available, err := s.service.AvailableReserves(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(0), available)
	})
}

// =============================================================================
// Reserve ratio
// =============================================================================

func (s *ReserveServiceSuite) TestParseAddress() {
	addr, err := s.service.ParseAddress(mainnetAddr)
	s.Require().NoError(err)
	s.Equal(mainnetAddr, addr.String())

	_, err = s.service.ParseAddress("not-an-address")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ReserveServiceSuite) TestGetReserveRatio_ZeroSupply() {
	ratio, err := s.service.GetReserveRatio(s.ctx)
	s.Require().NoError(err)
	s.True(ratio.Equal(decimal.NewFromInt(1)))
}

// Reserves of 10 BTC against 10 BTC of supply is fully backed; withdrawing 5 BTC
// with supply unchanged halves the ratio and raises a breach.
func (s *ReserveServiceSuite) TestReserveRatio_ThresholdBreach() {
	s.deposit("10", 10*btc)
	s.supply.set(10 * btc)

	ratio, err := s.service.GetReserveRatio(s.ctx)
	s.Require().NoError(err)
	s.True(ratio.Equal(decimal.NewFromInt(1)), "got %s", ratio)
	s.Empty(s.eventsOf(audit.EventReserveThresholdBreached))

	_, err = s.service.RegisterBitcoinWithdrawal(s.ctx, models.WithdrawalRegistration{
		TxID: "20", Amount: 5 * btc, Address: mainnetAddr,
	})
	s.Require().NoError(err)

	ratio, err = s.service.GetReserveRatio(s.ctx)
	s.Require().NoError(err)
	s.True(ratio.Equal(decimal.RequireFromString("0.5")), "got %s", ratio)

	breaches := s.eventsOf(audit.EventReserveThresholdBreached)
	s.Require().Len(breaches, 1)
	s.Equal(audit.CategorySecurity, breaches[0].Category)
	s.Contains(breaches[0].Detail, "ratio=0.5000")
}

func (s *ReserveServiceSuite) TestCheckReserveRatio() {
	s.deposit("10", 96)
	s.supply.set(100)

	ratio, err := s.service.CheckReserveRatio(s.ctx)
	s.Require().NoError(err)
	s.True(ratio.Equal(decimal.RequireFromString("0.96")))
	s.Empty(s.eventsOf(audit.EventReserveThresholdBreached))

	s.supply.set(102)
	_, err = s.service.CheckReserveRatio(s.ctx)
	s.Require().NoError(err)
	s.Len(s.eventsOf(audit.EventReserveThresholdBreached), 1)

	s.supply.err = errors.New("ledger unavailable")
	_, err = s.service.CheckReserveRatio(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// Pending mint flag
// =============================================================================

func (s *ReserveServiceSuite) TestPendingMint() {
	s.deposit("abc123", btc)
	txID, err := id.ParseBitcoinTxID("abc123")
	s.Require().NoError(err)

	s.Require().NoError(s.service.MarkPendingMint(s.ctx, txID, "op-1"))
	entry, err := s.service.GetEntry(s.ctx, "abc123")
	s.Require().NoError(err)
	s.True(entry.PendingMint)
	s.Equal("op-1", entry.PendingMintRef)
	s.Equal(btc, entry.Amount, "flagging never alters the entry")

	s.Require().NoError(s.service.ClearPendingMint(s.ctx, txID))
	entry, err = s.service.GetEntry(s.ctx, "abc123")
	s.Require().NoError(err)
	s.False(entry.PendingMint)

	missing, _ := id.ParseBitcoinTxID("ff")
	s.True(dErrors.HasCode(s.service.MarkPendingMint(s.ctx, missing, "op-2"), dErrors.CodeNotFound))
}

// =============================================================================
// Proof of reserves
// =============================================================================

func (s *ReserveServiceSuite) TestGenerateProofOfReserves() {
	s.deposit("01", 4*btc)
	s.deposit("02", 6*btc)
	s.supply.set(9 * btc)

	first, err := s.service.GenerateProofOfReserves(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, first.EntryCount)
	s.Equal(10*btc, first.Reserves)
	s.Equal(9*btc, first.TokenSupply)

	later := requestcontext.WithTime(s.ctx, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	second, err := s.service.GenerateProofOfReserves(later)
	s.Require().NoError(err)
	s.Equal(first.Root, second.Root)
	s.Equal(first.Commitment, second.Commitment, "timestamp is not committed")
	s.NotEqual(first.GeneratedAt, second.GeneratedAt)

	entries, err := s.service.ListEntries(s.ctx)
	s.Require().NoError(err)
	s.NoError(s.service.VerifyProof(first, entries))

	s.deposit("03", btc)
	third, err := s.service.GenerateProofOfReserves(s.ctx)
	s.Require().NoError(err)
	s.NotEqual(first.Commitment, third.Commitment)
	s.True(dErrors.HasCode(s.service.VerifyProof(first, append(entries, entries[0])), dErrors.CodeInvariantViolation))

	s.Len(s.eventsOf(audit.EventProofOfReservesGenerated), 3)
}
