package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"custody/internal/reserve/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

// InMemoryEntryStore keeps the reserve ledger in a map keyed by tx id.
type InMemoryEntryStore struct {
	mu      sync.RWMutex
	entries map[id.BitcoinTxID]models.Entry
	totals  models.Totals
}

func NewInMemory() *InMemoryEntryStore {
	return &InMemoryEntryStore{entries: make(map[id.BitcoinTxID]models.Entry)}
}

func (s *InMemoryEntryStore) Insert(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[e.TxID]; exists {
		return fmt.Errorf("reserve entry %s: %w", e.TxID, sentinel.ErrConflict)
	}
	s.entries[e.TxID] = *e
	switch e.Direction {
	case models.DirectionDeposit:
		s.totals.Deposits += e.Amount
	case models.DirectionWithdrawal:
		s.totals.Withdrawals += e.Amount
	}
	s.totals.Entries++
	return nil
}

func (s *InMemoryEntryStore) FindByTxID(_ context.Context, txID id.BitcoinTxID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[txID]
	if !ok {
		return nil, fmt.Errorf("reserve entry %s: %w", txID, sentinel.ErrNotFound)
	}
	return &e, nil
}

func (s *InMemoryEntryStore) List(_ context.Context) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TxID < out[j].TxID })
	return out, nil
}

func (s *InMemoryEntryStore) Totals(_ context.Context) (models.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals, nil
}

func (s *InMemoryEntryStore) SetPendingMint(_ context.Context, txID id.BitcoinTxID, pending bool, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[txID]
	if !ok {
		return fmt.Errorf("reserve entry %s: %w", txID, sentinel.ErrNotFound)
	}
	e.PendingMint = pending
	e.PendingMintRef = ref
	s.entries[txID] = e
	return nil
}
