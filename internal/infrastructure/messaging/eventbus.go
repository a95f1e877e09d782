// Package messaging implements a small in-process event bus. The judge's
// ingestion pipeline publishes a SubmissionJudged event for every judged
// record; the analytics side subscribes to it to mark the user's cached
// statistics dirty.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// EventType identifies a kind of event on the bus.
type EventType string

// EventSubmissionJudged fires once per judged submission.
const EventSubmissionJudged EventType = "submission.judged"

// Event is anything that can travel over the bus.
type Event interface {
	Type() EventType
	OccurredAt() time.Time
}

// SubmissionJudged announces that a user's submission finished judging.
type SubmissionJudged struct {
	UserID   int64
	JudgedAt time.Time
}

// Type implements Event.
func (SubmissionJudged) Type() EventType { return EventSubmissionJudged }

// OccurredAt implements Event.
func (e SubmissionJudged) OccurredAt() time.Time { return e.JudgedAt }

// Handler processes one event. Handler errors are logged, never
// propagated to the publisher.
type Handler func(ctx context.Context, ev Event) error

// Bus is an in-memory publish/subscribe dispatcher. Suitable for
// single-instance deployments; handlers for one event run sequentially
// in publish order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	logger   *slog.Logger
	closed   bool
}

// NewBus creates an event bus. logger may be nil.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[EventType][]Handler),
		logger:   logger.With("component", "eventbus"),
	}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(t EventType, h Handler) error {
	if h == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("messaging: bus is closed")
	}
	b.handlers[t] = append(b.handlers[t], h)
	return nil
}

// Publish dispatches the event to all handlers registered for its type.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := b.handlers[ev.Type()]
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return
	}

	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			b.logger.Error("event handler failed",
				"event", string(ev.Type()),
				"error", err,
			)
		}
	}
}

// Close stops the bus; subsequent publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
