package store

import (
	"context"
	"fmt"
	"sync"

	"custody/internal/token/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

type balanceKey struct {
	symbol  id.TokenSymbol
	account id.AccountID
}

type journalKey struct {
	symbol id.TokenSymbol
	ref    string
}

// InMemoryLedgerStore keeps balances and the journal for every symbol. Apply is
// atomic under the store lock.
type InMemoryLedgerStore struct {
	mu       sync.RWMutex
	balances map[balanceKey]int64
	supply   map[id.TokenSymbol]int64
	journal  map[journalKey]models.JournalEntry
}

func NewInMemory() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		balances: make(map[balanceKey]int64),
		supply:   make(map[id.TokenSymbol]int64),
		journal:  make(map[journalKey]models.JournalEntry),
	}
}

func (s *InMemoryLedgerStore) Balance(_ context.Context, symbol id.TokenSymbol, account id.AccountID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[balanceKey{symbol, account}], nil
}

func (s *InMemoryLedgerStore) TotalSupply(_ context.Context, symbol id.TokenSymbol) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supply[symbol], nil
}

func (s *InMemoryLedgerStore) FindJournal(_ context.Context, symbol id.TokenSymbol, ref string) (*models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.journal[journalKey{symbol, ref}]
	if !ok {
		return nil, fmt.Errorf("journal %s/%s: %w", symbol, ref, sentinel.ErrNotFound)
	}
	return &e, nil
}

func (s *InMemoryLedgerStore) Apply(_ context.Context, e *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jk := journalKey{e.Symbol, e.Ref}
	if _, exists := s.journal[jk]; exists {
		return fmt.Errorf("journal %s/%s: %w", e.Symbol, e.Ref, sentinel.ErrConflict)
	}
	if !e.From.IsNil() {
		from := balanceKey{e.Symbol, e.From}
		if s.balances[from] < e.Amount {
			return fmt.Errorf("balance of %s: %w", e.From, sentinel.ErrInvalidState)
		}
		s.balances[from] -= e.Amount
		if s.balances[from] == 0 {
			delete(s.balances, from)
		}
	}
	if !e.To.IsNil() {
		s.balances[balanceKey{e.Symbol, e.To}] += e.Amount
	}
	switch e.Kind {
	case models.KindMint:
		s.supply[e.Symbol] += e.Amount
	case models.KindBurn:
		s.supply[e.Symbol] -= e.Amount
	}
	s.journal[jk] = *e
	return nil
}
