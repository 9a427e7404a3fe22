package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"custody/internal/compliance/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

const (
	keyPrefix         = "custody:usage:"
	maxUpdateAttempts = 5
	// Usage outlives its monthly window by a day so a late reader still sees the
	// reset boundary.
	expiryGrace = 24 * time.Hour
)

// RedisUsageStore keeps usage as one JSON value per account. Update is an
// optimistic WATCH/MULTI transaction retried on contention.
type RedisUsageStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisUsageStore {
	return &RedisUsageStore{client: client}
}

// usageKey escapes ':' so account ids cannot address another account's key.
func usageKey(account id.AccountID) string {
	return keyPrefix + strings.ReplaceAll(account.String(), ":", "_")
}

func (s *RedisUsageStore) Get(ctx context.Context, account id.AccountID) (*models.Usage, error) {
	raw, err := s.client.Get(ctx, usageKey(account)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("usage of %s: %w", account, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return decodeUsage(raw)
}

func (s *RedisUsageStore) Update(ctx context.Context, account id.AccountID, fn func(current *models.Usage) (*models.Usage, error)) (*models.Usage, error) {
	key := usageKey(account)
	var result *models.Usage

	txf := func(tx *redis.Tx) error {
		var current *models.Usage
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("get usage: %w", err)
		default:
			current, err = decodeUsage(raw)
			if err != nil {
				return err
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode usage: %w", err)
		}
		ttl := time.Until(next.MonthlyResetAt) + expiryGrace
		if ttl < expiryGrace {
			ttl = expiryGrace
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("update usage of %s: %w", account, sentinel.ErrUnavailable)
}

func decodeUsage(raw []byte) (*models.Usage, error) {
	var u models.Usage
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode usage: %w", err)
	}
	return &u, nil
}
