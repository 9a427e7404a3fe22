// Package compliance provides a fail-closed publisher for compliance events.
//
// Emit blocks until the event is persisted. If persistence fails an error is
// returned and the calling operation must not report success. Persisted events
// are then handed to an optional Forwarder (the external event stream) without
// blocking.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	id "custody/pkg/domain"
	audit "custody/pkg/platform/audit"
	"custody/pkg/requestcontext"
)

// Forwarder receives events after they are durably stored.
type Forwarder interface {
	Enqueue(event audit.Event)
}

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store     audit.Store
	forwarder Forwarder
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithForwarder fans persisted events out to an external stream.
func WithForwarder(f Forwarder) Option {
	return func(p *Publisher) {
		p.forwarder = f
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills in id, category, timestamp and request metadata, then synchronously
// writes the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.Type == "" {
		return fmt.Errorf("compliance event requires Type")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Category == "" {
		event.Category = event.Type.Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.ActorID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"event_type", event.Type,
				"account", event.Account,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted(string(event.Category))

	if p.forwarder != nil {
		p.forwarder.Enqueue(event)
	}
	return nil
}

// ListByAccount exposes the store's read side.
func (p *Publisher) ListByAccount(ctx context.Context, account id.AccountID) ([]audit.Event, error) {
	return p.store.ListByAccount(ctx, account)
}

// Close is a no-op for the synchronous compliance publisher.
func (p *Publisher) Close() error {
	return nil
}
