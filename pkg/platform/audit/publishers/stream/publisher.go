// Package stream forwards persisted compliance events to external consumers.
//
// Delivery is best effort and asynchronous: events wait in a bounded ring buffer
// and Run drains them in batches to a Sink. A circuit breaker stops hammering an
// unavailable sink; undelivered batches go back to the front of the buffer.
package stream

import (
	"context"
	"log/slog"
	"time"

	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/circuit"
)

// Sink delivers a batch of events, e.g. to a Kafka topic.
type Sink interface {
	Publish(ctx context.Context, events []audit.Event) error
}

// Publisher buffers events and drains them to a Sink.
type Publisher struct {
	sink      Sink
	buffer    *RingBuffer
	breaker   *circuit.Breaker
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(n)
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// New creates a stream publisher.
func New(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:      sink,
		buffer:    NewRingBuffer(10000),
		breaker:   circuit.New("event_stream", circuit.WithFailureThreshold(3)),
		batchSize: 100,
		interval:  time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue buffers an event for delivery. It never blocks.
func (p *Publisher) Enqueue(event audit.Event) {
	p.buffer.Enqueue(event)
	p.metrics.SetBuffered(p.buffer.Len())
}

// Pending returns the number of undelivered events.
func (p *Publisher) Pending() int {
	return p.buffer.Len()
}

// Run drains the buffer every interval until ctx is cancelled, then makes one
// final flush attempt with a short deadline.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = p.Flush(flushCtx)
			cancel()
			return nil
		case <-ticker.C:
			_ = p.Flush(ctx)
		}
	}
}

// Flush delivers buffered events until the buffer is empty, the breaker is open,
// or the sink fails.
func (p *Publisher) Flush(ctx context.Context) error {
	for p.buffer.Len() > 0 {
		if !p.breaker.Allow() {
			p.metrics.IncBreakerSkips()
			return nil
		}

		batch := p.buffer.DequeueBatch(p.batchSize)
		if err := p.sink.Publish(ctx, batch); err != nil {
			p.buffer.Requeue(batch)
			_, change := p.breaker.RecordFailure()
			p.metrics.IncPublishFailures()
			if change.Opened {
				p.metrics.SetBreakerOpen(true)
				if p.logger != nil {
					p.logger.WarnContext(ctx, "event stream circuit opened", "error", err)
				}
			}
			return err
		}

		if _, change := p.breaker.RecordSuccess(); change.Closed {
			p.metrics.SetBreakerOpen(false)
			if p.logger != nil {
				p.logger.InfoContext(ctx, "event stream circuit closed")
			}
		}
		p.metrics.AddPublished(len(batch))
		p.metrics.SetBuffered(p.buffer.Len())
	}
	return nil
}
