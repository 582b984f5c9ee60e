package messaging

import (
	"sync"
	"sync/atomic"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANNEL SUBSCRIBER
// ══════════════════════════════════════════════════════════════════════════════

// ChannelSubscriber exposes bus events as a buffered channel.
// Sends never block the publisher: when the buffer is full the event is dropped
// and counted.
type ChannelSubscriber struct {
	ch      chan shared.Event
	sub     shared.Subscription
	dropped atomic.Int64
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

// NewChannelSubscriber subscribes to the given types (all when empty).
func NewChannelSubscriber(bus shared.EventSubscriber, buffer int, types ...shared.EventType) (*ChannelSubscriber, error) {
	if buffer <= 0 {
		buffer = 64
	}

	cs := &ChannelSubscriber{ch: make(chan shared.Event, buffer)}

	sub, err := bus.Subscribe(cs.deliver, types...)
	if err != nil {
		return nil, err
	}
	cs.sub = sub

	return cs, nil
}

func (cs *ChannelSubscriber) deliver(event shared.Event) error {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if cs.closed {
		return nil
	}

	select {
	case cs.ch <- event:
	default:
		cs.dropped.Add(1)
	}
	return nil
}

// Events returns the receive side of the channel. It is closed by Close.
func (cs *ChannelSubscriber) Events() <-chan shared.Event {
	return cs.ch
}

// Dropped returns how many events were dropped because the buffer was full.
func (cs *ChannelSubscriber) Dropped() int64 {
	return cs.dropped.Load()
}

// Close unsubscribes and closes the channel.
func (cs *ChannelSubscriber) Close() {
	cs.once.Do(func() {
		cs.sub.Unsubscribe()

		cs.mu.Lock()
		cs.closed = true
		close(cs.ch)
		cs.mu.Unlock()
	})
}
