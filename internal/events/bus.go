// Package events implements the in-process event bus and the periodic
// metrics collector. Publishing is fire-and-forget: a subscriber that
// cannot keep up loses events instead of slowing down the engine.
package events

import (
	"sync"
	"sync/atomic"

	"autoops/engine/pkg/logger"
	"autoops/engine/pkg/types"
)

// DefaultSubscriberBuffer is the channel capacity given to each subscriber.
const DefaultSubscriberBuffer = 64

// Subscription is a single subscriber's view of the bus. Events arrive on C
// in publish order; Close detaches the subscription and closes C.
type Subscription struct {
	C chan types.Event

	bus  *Bus
	once sync.Once
}

// Close detaches the subscription from the bus. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
		close(s.C)
	})
}

// Bus fans events out to subscribers. Publish never blocks: each subscriber
// has a bounded buffer and events are dropped per-subscriber when it is full.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	bufSize int

	dropped atomic.Uint64
}

// NewBus creates a bus with the default per-subscriber buffer size.
func NewBus() *Bus {
	return &Bus{
		subs:    make(map[*Subscription]struct{}),
		bufSize: DefaultSubscriberBuffer,
	}
}

// Subscribe registers a new subscriber. The caller must Close the
// subscription when done, or its buffer will keep dropping events.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		C:   make(chan types.Event, b.bufSize),
		bus: b,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Publish delivers the event to every current subscriber without blocking.
// Subscribers whose buffers are full lose this event.
func (b *Bus) Publish(event types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.C <- event:
		default:
			b.dropped.Add(1)
			if logger.IsDebugEnabled() {
				logger.Debug("event bus: dropped %s event for slow subscriber", event.Type)
			}
		}
	}
}

// Dropped returns the total number of events dropped across all subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of attached subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
