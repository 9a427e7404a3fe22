package stream

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/circuit"
)

type fakeSink struct {
	mu        sync.Mutex
	fail      bool
	published []audit.Event
	calls     int
}

func (s *fakeSink) Publish(_ context.Context, events []audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errors.New("broker unavailable")
	}
	s.published = append(s.published, events...)
	return nil
}

func event(detail string) audit.Event {
	return audit.Event{Type: audit.EventBitcoinDepositExecuted, Detail: detail}
}

func TestPublisher_FlushDeliversInOrder(t *testing.T) {
	sink := &fakeSink{}
	pub := New(sink, WithBatchSize(2))

	for _, d := range []string{"a", "b", "c"} {
		pub.Enqueue(event(d))
	}
	require.NoError(t, pub.Flush(context.Background()))

	require.Len(t, sink.published, 3)
	assert.Equal(t, "a", sink.published[0].Detail)
	assert.Equal(t, "c", sink.published[2].Detail)
	assert.Equal(t, 2, sink.calls)
	assert.Zero(t, pub.Pending())
}

func TestPublisher_FailedBatchIsRequeued(t *testing.T) {
	sink := &fakeSink{fail: true}
	pub := New(sink, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))))

	pub.Enqueue(event("a"))
	pub.Enqueue(event("b"))
	require.Error(t, pub.Flush(context.Background()))
	assert.Equal(t, 2, pub.Pending())

	// Breaker is open: the next flush does not reach the sink
	require.NoError(t, pub.Flush(context.Background()))
	assert.Equal(t, 1, sink.calls)
}

func TestRingBuffer(t *testing.T) {
	t.Run("drops oldest when full", func(t *testing.T) {
		b := NewRingBuffer(2)
		b.Enqueue(event("a"))
		b.Enqueue(event("b"))
		b.Enqueue(event("c"))

		batch := b.DequeueBatch(10)
		require.Len(t, batch, 2)
		assert.Equal(t, "b", batch[0].Detail)
		assert.Equal(t, int64(1), b.Dropped())
	})

	t.Run("requeue restores front order", func(t *testing.T) {
		b := NewRingBuffer(4)
		b.Enqueue(event("a"))
		b.Enqueue(event("b"))
		b.Enqueue(event("c"))

		batch := b.DequeueBatch(2)
		b.Requeue(batch)

		all := b.DequeueBatch(10)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].Detail, all[1].Detail, all[2].Detail})
	})
}
