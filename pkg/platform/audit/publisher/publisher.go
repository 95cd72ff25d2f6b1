// Package publisher delivers audit events to a store and optional extra
// sinks. Sync mode writes inline; async mode buffers events on a channel and
// drains them on Close so shutdown never loses the financial record.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"veritasor/pkg/domain"
	audit "veritasor/pkg/platform/audit"
)

// Store is the primary, queryable event store.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
	ListByBond(ctx context.Context, bondID domain.BondID) ([]audit.Event, error)
}

// Sink receives a copy of every event (e.g. a Kafka topic). Sink failures
// are logged, never propagated: the store remains the source of truth.
type Sink interface {
	Append(ctx context.Context, event audit.Event) error
}

// appendTimeout bounds each drain write so Close cannot hang on a stuck sink.
const appendTimeout = 5 * time.Second

type Publisher struct {
	store  Store
	sinks  []Sink
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup

	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

// WithSink adds an extra delivery target alongside the store.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers an event. In sync mode store failures propagate to the
// caller; in async mode delivery is deferred to the drain goroutine.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer == nil {
		return p.deliver(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns the stored events for a bond.
func (p *Publisher) List(ctx context.Context, bondID domain.BondID) ([]audit.Event, error) {
	return p.store.ListByBond(ctx, bondID)
}

// Close drains any buffered events and stops background delivery.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		if err := p.deliver(ctx, event); err != nil {
			p.logger.Error("audit event delivery failed",
				"error", err,
				"action", event.Action,
				"bond_id", event.BondID,
			)
		}
		cancel()
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.logger.Warn("audit sink append failed",
				"error", err,
				"action", event.Action,
				"bond_id", event.BondID,
			)
		}
	}
	return nil
}
