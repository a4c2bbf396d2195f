package event

import (
	"log"
	"sync"
	"time"
)

// defaultHistorySize bounds the diagnostic event log.
const defaultHistorySize = 100

// SubscriptionID identifies a registered handler. IDs are unique and
// monotonically increasing for the lifetime of a bus.
type SubscriptionID uint64

// Handler receives every published event. Handlers run synchronously on the
// publishing goroutine, in registration order.
type Handler func(Event)

// HistoryEntry is one retained event with its publish time.
type HistoryEntry struct {
	At    time.Time
	Event Event
}

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is a thread-safe pub/sub event bus with a bounded history buffer.
// A handler that panics is isolated: the panic is logged and the remaining
// handlers still run.
type Bus struct {
	mu      sync.RWMutex
	subs    []subscription
	nextID  SubscriptionID
	history []HistoryEntry
	maxHist int
}

// NewBus creates a bus with the default history size.
func NewBus() *Bus {
	return NewBusWithHistory(defaultHistorySize)
}

// NewBusWithHistory creates a bus retaining at most maxHistory events.
func NewBusWithHistory(maxHistory int) *Bus {
	if maxHistory < 0 {
		maxHistory = 0
	}
	return &Bus{maxHist: maxHistory}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, handler: h})
	return id
}

// Unsubscribe removes a handler. It reports whether anything was removed.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish records the event in history and delivers it to every handler
// registered at the time of the call.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.history = append(b.history, HistoryEntry{At: time.Now(), Event: e})
	if over := len(b.history) - b.maxHist; over > 0 {
		b.history = append(b.history[:0:0], b.history[over:]...)
	}
	// Snapshot so handlers can subscribe/unsubscribe without deadlocking.
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		invoke(s, e)
	}
}

func invoke(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventbus: handler %d panicked on %s: %v", s.id, e.Kind(), r)
		}
	}()
	s.handler(e)
}

// SubscriberCount returns the number of registered handlers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// History returns a copy of the retained event log, oldest first.
func (b *Bus) History() []HistoryEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]HistoryEntry, len(b.history))
	copy(out, b.history)
	return out
}

// ClearHistory discards the retained event log.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}

// ClearSubscribers removes every handler.
func (b *Bus) ClearSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
}
