// Package messaging implements the event bus and the subscriber
// runtime that every strategy, the matching engine, and the run
// recorder build on top of.
package messaging

import (
	"sync"

	"github.com/onesecondtrader/backtest-core/internal/events"
)

// Subscriber is the contract the bus dispatches to. EventSubscriberLike
// in the teacher vocabulary; kept as a narrow interface so the bus does
// not need to know about goroutines, channels, or cleanup hooks.
type Subscriber interface {
	Receive(e events.Event)
	WaitUntilIdle()
}

// EventBus routes each published event to every subscriber registered
// for the event's exact concrete type (tag). The subscriber set is
// guarded by a mutex held only for snapshot/mutation; delivery always
// happens outside the lock so that a subscriber calling back into the
// bus during Receive cannot deadlock (spec.md §4.1).
type EventBus struct {
	mu          sync.Mutex
	perTag      [events.NumTags]map[Subscriber]struct{}
	subscribers map[Subscriber]struct{}
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	b := &EventBus{subscribers: make(map[Subscriber]struct{})}
	for i := range b.perTag {
		b.perTag[i] = make(map[Subscriber]struct{})
	}
	return b
}

// Subscribe registers subscriber for events carrying the given tag.
// Idempotent: subscribing the same (tag, subscriber) pair twice has no
// additional effect.
func (b *EventBus) Subscribe(tag events.Tag, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perTag[tag][sub] = struct{}{}
	b.subscribers[sub] = struct{}{}
}

// Unsubscribe removes sub from the given tag's subscriber set. Note
// this only removes it from one tag; a subscriber registered for
// multiple tags must be unsubscribed from each.
func (b *EventBus) Unsubscribe(tag events.Tag, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.perTag[tag], sub)
}

// UnsubscribeAll removes sub from every tag and from the bus's global
// subscriber set, used during component shutdown.
func (b *EventBus) UnsubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.perTag {
		delete(b.perTag[i], sub)
	}
	delete(b.subscribers, sub)
}

// Publish snapshots the current subscriber set for e's tag under the
// lock, then delivers outside the lock. Publish never fails: delivery
// is just an enqueue on each subscriber's own queue (spec.md §4.1).
func (b *EventBus) Publish(e events.Event) {
	tag := e.EventTag()
	b.mu.Lock()
	subs := make([]Subscriber, 0, len(b.perTag[tag]))
	for s := range b.perTag[tag] {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Receive(e)
	}
}

// WaitUntilSystemIdle blocks until every currently registered
// subscriber reports an empty queue with nothing in flight. Snapshotting
// the subscriber set under the lock and waiting outside it mirrors
// Publish's lock discipline (spec.md §4.1, §5).
func (b *EventBus) WaitUntilSystemIdle() {
	b.mu.Lock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.WaitUntilIdle()
	}
}
