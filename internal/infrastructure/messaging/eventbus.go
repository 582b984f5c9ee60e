// Package messaging implements the in-process event bus of the progression engine
// plus adapters that fan events out to channels and Redis Pub/Sub.
package messaging

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// Bus is a synchronous in-memory implementation of shared.EventBus.
// Handlers run on the publisher's goroutine in registration order.
// A failing or panicking handler is logged and does not stop the others.
type Bus struct {
	mu          sync.RWMutex
	subs        []*subscription
	middlewares []Middleware
	nextID      uint64
	logger      *slog.Logger
	closed      bool
}

// BusConfig contains configuration for Bus.
type BusConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Middlewares wrap every handler, outermost first.
	Middlewares []Middleware
}

// NewBus creates a new in-memory event bus.
func NewBus(config BusConfig) *Bus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	// Recovery is always innermost so a panic never escapes Publish.
	mws := append([]Middleware{}, config.Middlewares...)
	mws = append(mws, RecoveryMiddleware(config.Logger))

	return &Bus{
		middlewares: mws,
		logger:      config.Logger,
	}
}

type subscription struct {
	id      uint64
	bus     *Bus
	handler shared.EventHandler
	types   map[shared.EventType]struct{}
}

func (s *subscription) accepts(t shared.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Unsubscribe removes the handler from the bus. Safe to call more than once.
func (s *subscription) Unsubscribe() {
	s.bus.remove(s.id)
}

// Subscribe registers a handler for the given event types.
// With no types the handler receives every event.
func (b *Bus) Subscribe(handler shared.EventHandler, types ...shared.EventType) (shared.Subscription, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrEventBusClosed
	}

	wrapped := handler
	for i := len(b.middlewares) - 1; i >= 0; i-- {
		wrapped = b.middlewares[i](wrapped)
	}

	b.nextID++
	sub := &subscription{
		id:      b.nextID,
		bus:     b,
		handler: wrapped,
	}
	if len(types) > 0 {
		sub.types = make(map[shared.EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	b.subs = append(b.subs, sub)
	b.logger.Debug("subscribed handler", "subscription_id", sub.id, "event_types", types)

	return sub, nil
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every matching handler before returning.
func (b *Bus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.accepts(event.EventType()) {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	for _, s := range subs {
		if err := s.handler(event); err != nil {
			b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
		}
	}

	return nil
}

// HandlerCount returns the number of registered handlers.
func (b *Bus) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops accepting events and drops all handlers.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.subs = nil

	b.logger.Debug("event bus closed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)
