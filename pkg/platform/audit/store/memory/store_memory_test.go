package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "custody/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.Append(ctx, audit.Event{Account: "alice", Type: audit.EventCustomerRegistered}))
	require.NoError(t, store.Append(ctx, audit.Event{Account: "bob", Type: audit.EventCustomerRegistered}))
	require.NoError(t, store.Append(ctx, audit.Event{Account: "alice", Type: audit.EventLimitWarning}))
	require.NoError(t, store.Append(ctx, audit.Event{Type: audit.EventSystemPaused}))

	t.Run("filters by account in append order", func(t *testing.T) {
		events, err := store.ListByAccount(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, audit.EventCustomerRegistered, events[0].Type)
		assert.Equal(t, audit.EventLimitWarning, events[1].Type)
	})

	t.Run("filters by type", func(t *testing.T) {
		events, err := store.ListByTypes(ctx, []audit.EventType{audit.EventSystemPaused, audit.EventLimitWarning}, 0)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("limits recent", func(t *testing.T) {
		events, err := store.ListRecent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.EventSystemPaused, events[0].Type)
	})
}
