package events

import (
	"sync"

	"github.com/lober-org/welovedogs/core/types"
)

// Event represents a structured state change emitted by a native contract.
type Event interface {
	EventType() string
}

// Convertible events can be flattened into the wire representation consumed
// by subscribers (RPC, indexers).
type Convertible interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events emitted during a single host call. The host only
// publishes the buffered events once the call's writes have been committed.
type Buffer struct {
	events []*types.Event
}

// Emit implements the Emitter interface. Events that cannot be flattened are
// dropped.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	conv, ok := evt.(Convertible)
	if !ok {
		return
	}
	if flat := conv.Event(); flat != nil {
		b.events = append(b.events, flat)
	}
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []*types.Event {
	if b == nil {
		return nil
	}
	return b.events
}

// Handler consumes a published event.
type Handler func(*types.Event)

type subscription struct {
	id        uint64
	eventType string
	handler   Handler
}

// Bus fans committed events out to subscribers. Handlers run synchronously on
// the publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for events of eventType. An empty type receives
// every event. The returned function removes the subscription.
func (b *Bus) Subscribe(eventType string, handler Handler) func() {
	if b == nil || handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, handler: handler})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers every event to matching subscribers. Each handler receives
// its own copy.
func (b *Bus) Publish(evts ...*types.Event) {
	if b == nil || len(evts) == 0 {
		return
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		for _, sub := range subs {
			if sub.eventType != "" && sub.eventType != evt.Type {
				continue
			}
			sub.handler(evt.Clone())
		}
	}
}
