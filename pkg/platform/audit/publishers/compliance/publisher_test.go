package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custody/pkg/domain"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/audit/store/memory"
	"custody/pkg/requestcontext"
)

type failingStore struct {
	*memory.InMemoryStore
}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

type recordingForwarder struct {
	events []audit.Event
}

func (f *recordingForwarder) Enqueue(event audit.Event) {
	f.events = append(f.events, event)
}

func TestPublisher_Emit(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithAdmin(ctx, "ops-1")

	t.Run("persists and enriches event", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		fwd := &recordingForwarder{}
		metrics := NewMetrics(prometheus.NewRegistry())
		pub := New(store, WithForwarder(fwd), WithMetrics(metrics))

		err := pub.Emit(ctx, audit.Event{Account: "alice", Type: audit.EventTierUpdated, Detail: "tier=2"})
		require.NoError(t, err)

		events, err := pub.ListByAccount(ctx, id.AccountID("alice"))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.Equal(t, now, events[0].Timestamp)
		assert.Equal(t, "req-1", events[0].RequestID)
		assert.Equal(t, "ops-1", events[0].ActorID)
		assert.NotEqual(t, [16]byte{}, [16]byte(events[0].ID))

		require.Len(t, fwd.events, 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsEmitted.WithLabelValues("compliance")))
	})

	t.Run("fails closed when store fails", func(t *testing.T) {
		fwd := &recordingForwarder{}
		metrics := NewMetrics(prometheus.NewRegistry())
		pub := New(failingStore{memory.NewInMemoryStore()}, WithForwarder(fwd), WithMetrics(metrics))

		err := pub.Emit(ctx, audit.Event{Account: "alice", Type: audit.EventLimitViolation})
		require.Error(t, err)
		assert.Empty(t, fwd.events, "unpersisted events are never forwarded")
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PersistFailures))
	})

	t.Run("requires a type", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		assert.Error(t, pub.Emit(ctx, audit.Event{Account: "alice"}))
	})
}
