package service

import (
	"context"
	"hash/fnv"
	"sync"

	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// numAccountShards bounds the lock table. Accounts hashing to the same shard
// serialise with each other; all others run concurrently.
const numAccountShards = 128

// accountLocks serialises workflows per account so verify, act and usage update
// never interleave for one account.
type accountLocks struct {
	shards [numAccountShards]sync.Mutex
}

// lock blocks until the account's shard is free and returns its release func.
func (l *accountLocks) lock(ctx context.Context, account id.AccountID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	mu := &l.shards[shardOf(account)]
	mu.Lock()
	if err := ctx.Err(); err != nil {
		mu.Unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	return mu.Unlock, nil
}

func shardOf(account id.AccountID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(account))
	return h.Sum32() % numAccountShards
}
