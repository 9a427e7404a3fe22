package store

import (
	"context"
	"fmt"
	"sync"

	"custody/internal/compliance/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

// InMemoryUsageStore keeps usage per account. Update holds the store lock for the
// whole read-modify-write.
type InMemoryUsageStore struct {
	mu    sync.Mutex
	usage map[id.AccountID]models.Usage
}

func NewInMemory() *InMemoryUsageStore {
	return &InMemoryUsageStore{usage: make(map[id.AccountID]models.Usage)}
}

func (s *InMemoryUsageStore) Get(_ context.Context, account id.AccountID) (*models.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usage[account]
	if !ok {
		return nil, fmt.Errorf("usage of %s: %w", account, sentinel.ErrNotFound)
	}
	return &u, nil
}

func (s *InMemoryUsageStore) Update(_ context.Context, account id.AccountID, fn func(current *models.Usage) (*models.Usage, error)) (*models.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *models.Usage
	if u, ok := s.usage[account]; ok {
		current = &u
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	s.usage[account] = *next
	out := *next
	return &out, nil
}

// Set overwrites usage; used by tests to seed windows.
func (s *InMemoryUsageStore) Set(_ context.Context, usage *models.Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usage.Account] = *usage
}
