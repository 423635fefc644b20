package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"credstore/pkg/requestcontext"
)

// Publisher captures audit events. With WithAsyncBuffer, events are queued
// and persisted by a background goroutine; a full buffer drops the event
// rather than blocking the request.
type Publisher struct {
	store  Store
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"resource", event.Resource,
				"resource_id", event.ResourceID,
				"action", event.Action,
			)
		}
	}
}

// Close drains pending async events. It is safe on a nil Publisher.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit records event, stamping the time and request id when absent.
// A nil Publisher discards events.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if p.async {
		select {
		case p.events <- event:
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"resource", event.Resource,
					"action", event.Action,
				)
			}
		}
		return nil
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, resource string, resourceID int64) ([]Event, error) {
	return p.store.ListByResource(ctx, resource, resourceID)
}
