package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	tokenStore "custody/internal/token/store"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/audit/publishers/compliance"
	auditmemory "custody/pkg/platform/audit/store/memory"
)

const router = DefaultRouterPrincipal

// stubApprover approves transfers up to a per-account cap; absent accounts are denied.
type stubApprover struct {
	mu   sync.Mutex
	caps map[id.AccountID]int64
}

func (a *stubApprover) IsApprovedForOperation(_ context.Context, account id.AccountID, _ id.OperationKind, amount int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	limit, ok := a.caps[account]
	return ok && amount <= limit
}

// =============================================================================
// Token Ledger Test Suite
// =============================================================================

type LedgerSuite struct {
	suite.Suite
	store    *tokenStore.InMemoryLedgerStore
	events   *auditmemory.InMemoryStore
	approver *stubApprover
	ledger   *Ledger
	ctx      context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = tokenStore.NewInMemory()
	s.events = auditmemory.NewInMemoryStore()
	s.approver = &stubApprover{caps: map[id.AccountID]int64{"alice": 1_000_000, "bob": 1_000_000}}
	s.ctx = context.Background()

	var err error
	s.ledger, err = New("CBTC", s.store, s.approver, compliance.New(s.events))
	s.Require().NoError(err)
}

func (s *LedgerSuite) balance(account id.AccountID) int64 {
	b, err := s.ledger.Balance(s.ctx, account)
	s.Require().NoError(err)
	return b
}

func (s *LedgerSuite) supply() int64 {
	v, err := s.ledger.TotalSupply(s.ctx)
	s.Require().NoError(err)
	return v
}

func (s *LedgerSuite) TestNew() {
	_, err := New("", s.store, s.approver, compliance.New(s.events))
	s.ErrorContains(err, "token symbol is required")
	_, err = New("CBTC", nil, s.approver, compliance.New(s.events))
	s.ErrorContains(err, "ledger store is required")
	_, err = New("CBTC", s.store, nil, compliance.New(s.events))
	s.ErrorContains(err, "approver is required")
	_, err = New("CBTC", s.store, s.approver, nil)
	s.ErrorContains(err, "audit emitter is required")
}

// =============================================================================
// Mint / Burn
// =============================================================================

func (s *LedgerSuite) TestMint() {
	s.Run("router mints", func() {
		s.Require().NoError(s.ledger.Mint(s.ctx, router, "alice", 500, "op-1/mint"))
		s.Equal(int64(500), s.balance("alice"))
		s.Equal(int64(500), s.supply())
	})

	s.Run("same ref is idempotent", func() {
		s.Require().NoError(s.ledger.Mint(s.ctx, router, "alice", 500, "op-1/mint"))
		s.Equal(int64(500), s.balance("alice"))
	})

	s.Run("same ref for another movement conflicts", func() {
		err := s.ledger.Mint(s.ctx, router, "alice", 501, "op-1/mint")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(int64(500), s.supply())
	})

	s.Run("the journal answers whether a ref was applied", func() {
		applied, err := s.ledger.Applied(s.ctx, "op-1/mint")
		s.Require().NoError(err)
		s.True(applied)
		applied, err = s.ledger.Applied(s.ctx, "op-9/mint")
		s.Require().NoError(err)
		s.False(applied)
	})

	s.Run("any other caller is unauthorized", func() {
		err := s.ledger.Mint(s.ctx, "alice", "alice", 1, "op-2/mint")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal(int64(500), s.supply())
	})

	s.Run("non-positive amount", func() {
		err := s.ledger.Mint(s.ctx, router, "alice", 0, "op-3/mint")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("ref required", func() {
		err := s.ledger.Mint(s.ctx, router, "alice", 1, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *LedgerSuite) TestBurn() {
	s.Require().NoError(s.ledger.Mint(s.ctx, router, "alice", 500, "m1"))

	s.Run("insufficient balance changes nothing", func() {
		err := s.ledger.Burn(s.ctx, router, "alice", 501, "b1")
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
		s.Equal(int64(500), s.balance("alice"))
		s.Equal(int64(500), s.supply())
	})

	s.Run("burn within balance", func() {
		s.Require().NoError(s.ledger.Burn(s.ctx, router, "alice", 200, "b2"))
		s.Equal(int64(300), s.balance("alice"))
		s.Equal(int64(300), s.supply())
	})

	s.Run("replayed burn is not applied twice", func() {
		s.Require().NoError(s.ledger.Burn(s.ctx, router, "alice", 200, "b2"))
		s.Equal(int64(300), s.balance("alice"))
	})

	s.Run("unauthorized caller", func() {
		err := s.ledger.Burn(s.ctx, "mallory", "alice", 1, "b3")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Transfer
// =============================================================================

func (s *LedgerSuite) TestTransfer() {
	s.Require().NoError(s.ledger.Mint(s.ctx, router, "alice", 1_000, "m1"))

	s.Run("approved parties", func() {
		s.Require().NoError(s.ledger.Transfer(s.ctx, "alice", "bob", 400))
		s.Equal(int64(600), s.balance("alice"))
		s.Equal(int64(400), s.balance("bob"))
		s.Equal(int64(1_000), s.supply(), "transfers never change supply")
	})

	s.Run("unapproved recipient", func() {
		err := s.ledger.Transfer(s.ctx, "alice", "carol", 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceViolation))
		s.Equal("increase KYC tier to proceed", dErrors.HintOf(err))
		s.Equal(int64(600), s.balance("alice"))

		violations, err := s.events.ListByTypes(s.ctx, []audit.EventType{audit.EventComplianceViolation}, 0)
		s.Require().NoError(err)
		s.Require().Len(violations, 1)
		s.Equal(id.AccountID("carol"), violations[0].Account)
	})

	s.Run("amount above sender cap", func() {
		s.approver.caps["alice"] = 10
		defer func() { s.approver.caps["alice"] = 1_000_000 }()
		err := s.ledger.Transfer(s.ctx, "alice", "bob", 11)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceViolation))
	})

	s.Run("insufficient balance", func() {
		err := s.ledger.Transfer(s.ctx, "bob", "alice", 401)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	})

	s.Run("self transfer", func() {
		err := s.ledger.Transfer(s.ctx, "alice", "alice", 1)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Supply invariant
// =============================================================================

// Random mint, burn and transfer sequences keep supply equal to the sum of
// balances and to mints minus burns, including when individual calls fail.
func (s *LedgerSuite) TestSupplyInvariant() {
	rng := rand.New(rand.NewPCG(7, 11))
	accounts := []id.AccountID{"alice", "bob"}
	var minted, burned int64

	for i := range 500 {
		account := accounts[rng.IntN(len(accounts))]
		amount := rng.Int64N(1_000) + 1
		ref := fmt.Sprintf("ref-%d", i)

		switch rng.IntN(3) {
		case 0:
			if s.ledger.Mint(s.ctx, router, account, amount, ref) == nil {
				minted += amount
			}
		case 1:
			if s.ledger.Burn(s.ctx, router, account, amount, ref) == nil {
				burned += amount
			}
		default:
			_ = s.ledger.Transfer(s.ctx, account, accounts[(indexOf(accounts, account)+1)%2], amount)
		}

		var sum int64
		for _, a := range accounts {
			sum += s.balance(a)
		}
		s.Require().Equal(minted-burned, s.supply(), "step %d", i)
		s.Require().Equal(sum, s.supply(), "step %d", i)
	}
}

func indexOf(accounts []id.AccountID, a id.AccountID) int {
	for i, v := range accounts {
		if v == a {
			return i
		}
	}
	return -1
}

// =============================================================================
// Ledger set
// =============================================================================

func (s *LedgerSuite) TestLedgers() {
	wbtc, err := New("WBTC", s.store, s.approver, compliance.New(s.events))
	s.Require().NoError(err)
	set, err := NewLedgers(s.ledger, wbtc)
	s.Require().NoError(err)

	s.Require().NoError(s.ledger.Mint(s.ctx, router, "alice", 300, "c1"))
	s.Require().NoError(wbtc.Mint(s.ctx, router, "alice", 200, "w1"))

	total, err := set.TotalSupply(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(500), total)

	balances, err := set.Balances(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(map[id.TokenSymbol]int64{"CBTC": 300, "WBTC": 200}, balances)

	s.Equal(id.TokenSymbol("CBTC"), set.Primary().Symbol())
	_, err = set.Get("XBTC")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewLedgers(s.ledger, s.ledger)
	s.ErrorContains(err, "duplicate token ledger")
	_, err = NewLedgers()
	s.Error(err)
}
