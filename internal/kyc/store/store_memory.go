package store

import (
	"context"
	"fmt"
	"sync"

	"custody/internal/kyc/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

// InMemoryAccountStore keeps accounts in a map. Returned accounts are copies.
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]models.Account
}

func NewInMemory() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[id.AccountID]models.Account)}
}

func (s *InMemoryAccountStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrConflict)
	}
	s.accounts[account.ID] = *account
	return nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, account id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[account]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", account, sentinel.ErrNotFound)
	}
	return &a, nil
}

func (s *InMemoryAccountStore) Save(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; !ok {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrNotFound)
	}
	s.accounts[account.ID] = *account
	return nil
}
