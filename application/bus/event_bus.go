// Package bus provides the in-process broadcast channel that decouples
// mutation producers (AI generator, sidebar, node editor) from consumers
// (the coherency context, derived list views).
package bus

import (
	"sync"

	"go.uber.org/zap"

	"netsync/domain/events"
)

// Handler consumes a published signal. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(signal events.Signal)

// UnsubscribeFunc removes a previously registered handler
type UnsubscribeFunc func()

type subscription struct {
	id      uint64
	handler Handler
}

// EventBus broadcasts named signals to registered listeners.
//
// Delivery semantics, relied upon by every consumer:
//   - synchronous and in-process
//   - at-most-once per listener
//   - registration order per signal name
//   - no ordering guarantee between different signal names
//   - no persistence or replay: a listener registered after a signal fires
//     never sees it
type EventBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[events.SignalName][]subscription
	logger *zap.Logger
}

// NewEventBus creates an event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subs:   make(map[events.SignalName][]subscription),
		logger: logger.Named("eventbus"),
	}
}

// Subscribe registers a handler for a signal name and returns its
// unsubscribe func. Unsubscribing during delivery takes effect on the next
// publish, not the in-flight one.
func (b *EventBus) Subscribe(name events.SignalName, handler Handler) UnsubscribeFunc {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[name]
		for i, s := range subs {
			if s.id == id {
				b.subs[name] = append(append([]subscription{}, subs[:i]...), subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers a signal to every listener registered for its name, in
// registration order. A panicking listener is recovered and logged so it
// cannot starve the listeners behind it.
func (b *EventBus) Publish(signal events.Signal) {
	b.mu.RLock()
	subs := b.subs[signal.Name()]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	b.mu.RUnlock()

	for _, sub := range snapshot {
		b.deliver(sub, signal)
	}
}

func (b *EventBus) deliver(sub subscription, signal events.Signal) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("signal listener panicked",
				zap.String("signal", string(signal.Name())),
				zap.Any("panic", r),
			)
		}
	}()
	sub.handler(signal)
}
