package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"custody/internal/router/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

type idempotencyKey struct {
	account id.AccountID
	key     string
}

// InMemoryOperationStore keeps operations by id with an index of client
// idempotency keys scoped per account.
type InMemoryOperationStore struct {
	mu   sync.RWMutex
	ops  map[id.OperationID]models.Operation
	keys map[idempotencyKey]id.OperationID
}

func NewInMemory() *InMemoryOperationStore {
	return &InMemoryOperationStore{
		ops:  make(map[id.OperationID]models.Operation),
		keys: make(map[idempotencyKey]id.OperationID),
	}
}

func (s *InMemoryOperationStore) Create(_ context.Context, op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ops[op.ID]; exists {
		return fmt.Errorf("operation %s: %w", op.ID, sentinel.ErrConflict)
	}
	if op.IdempotencyKey != "" {
		k := idempotencyKey{account: op.Account, key: op.IdempotencyKey}
		if _, exists := s.keys[k]; exists {
			return fmt.Errorf("idempotency key %q: %w", op.IdempotencyKey, sentinel.ErrConflict)
		}
		s.keys[k] = op.ID
	}
	s.ops[op.ID] = *op
	return nil
}

func (s *InMemoryOperationStore) Save(_ context.Context, op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ops[op.ID]; !exists {
		return fmt.Errorf("operation %s: %w", op.ID, sentinel.ErrNotFound)
	}
	s.ops[op.ID] = *op
	return nil
}

func (s *InMemoryOperationStore) FindByID(_ context.Context, opID id.OperationID) (*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[opID]
	if !ok {
		return nil, fmt.Errorf("operation %s: %w", opID, sentinel.ErrNotFound)
	}
	return &op, nil
}

func (s *InMemoryOperationStore) FindByIdempotencyKey(_ context.Context, account id.AccountID, key string) (*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opID, ok := s.keys[idempotencyKey{account: account, key: key}]
	if !ok {
		return nil, fmt.Errorf("idempotency key %q: %w", key, sentinel.ErrNotFound)
	}
	op := s.ops[opID]
	return &op, nil
}

// ListByAccount returns the account's operations, oldest first.
func (s *InMemoryOperationStore) ListByAccount(_ context.Context, account id.AccountID) ([]models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Operation
	for _, op := range s.ops {
		if op.Account == account {
			out = append(out, op)
		}
	}
	sortByCreated(out)
	return out, nil
}

// ListByStatus returns operations in status last updated before cutoff.
func (s *InMemoryOperationStore) ListByStatus(_ context.Context, status models.Status, updatedBefore time.Time) ([]models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Operation
	for _, op := range s.ops {
		if op.Status == status && op.UpdatedAt.Before(updatedBefore) {
			out = append(out, op)
		}
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(ops []models.Operation) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].CreatedAt.Equal(ops[j].CreatedAt) {
			return ops[i].ID.String() < ops[j].ID.String()
		}
		return ops[i].CreatedAt.Before(ops[j].CreatedAt)
	})
}
