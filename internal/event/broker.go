package event

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 256

// SubscriberID identifies one subscription.
type SubscriberID uint64

// Subscriber receives matching change events on its channel. A slow
// subscriber drops events rather than blocking publishers; Dropped
// counts the losses.
type Subscriber struct {
	ID     SubscriberID
	Filter WatchFilter

	ch      chan ChangeEvent
	dropped atomic.Uint64
	closed  atomic.Bool
}

// Channel returns the event delivery channel. It is closed when the
// subscription ends.
func (s *Subscriber) Channel() <-chan ChangeEvent {
	return s.ch
}

// Dropped returns the number of events lost to backpressure.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscriber) send(ev ChangeEvent) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

func (s *Subscriber) close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Broker manages change event subscriptions and publishing. Publishing
// never blocks the writing operation.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[SubscriberID]*Subscriber
	nextID      atomic.Uint64
	nextToken   atomic.Uint64
	closed      atomic.Bool
}

// NewBroker creates a change feed broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[SubscriberID]*Subscriber),
	}
}

// Subscribe creates a subscription delivering events that match the
// filter. Returns nil when the broker is closed.
func (b *Broker) Subscribe(filter WatchFilter) *Subscriber {
	if b.closed.Load() {
		return nil
	}
	sub := &Subscriber{
		ID:     SubscriberID(b.nextID.Add(1)),
		Filter: filter,
		ch:     make(chan ChangeEvent, DefaultBufferSize),
	}
	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe ends a subscription and closes its channel.
func (b *Broker) Unsubscribe(id SubscriberID) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	delete(b.subscribers, id)
	b.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Publish stamps the event with a token and timestamp and fans it out
// to every matching subscriber.
func (b *Broker) Publish(ev ChangeEvent) {
	if b.closed.Load() {
		return
	}
	ev.Token = b.nextToken.Add(1)
	ev.Timestamp = time.Now().UTC()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.Filter.Matches(&ev) {
			sub.send(ev)
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close shuts the broker down and closes every subscriber channel.
func (b *Broker) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		sub.close()
		delete(b.subscribers, id)
	}
}
