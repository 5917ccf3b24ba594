package events

import (
	"log/slog"
	"sync"
	"time"
)

// Listener receives events. Listeners run synchronously on the emitting
// goroutine, in subscription order.
type Listener func(Event)

// Bus is a subscriber registry with synchronous fan-out. A panicking
// listener is isolated: the panic is logged and delivery continues with the
// remaining listeners. Listeners may subscribe, unsubscribe or emit from
// within a callback; the subscriber set is snapshotted per emit.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []busEntry
	logger *slog.Logger
}

type busEntry struct {
	id int
	fn Listener
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger.With("component", "event-bus")}
}

// On subscribes a listener and returns its unsubscribe function. The
// unsubscribe function is idempotent.
func (b *Bus) On(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, busEntry{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.subs {
			if e.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers the event to all current subscribers in subscription order.
// Delivery happens on the caller's stack before Emit returns.
func (b *Bus) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.Err != nil && ev.ErrMessage == "" {
		ev.ErrMessage = ev.Err.Error()
	}

	b.mu.Lock()
	snapshot := make([]busEntry, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, e := range snapshot {
		b.dispatch(e, ev)
	}
}

func (b *Bus) dispatch(e busEntry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener panicked",
				"event_type", ev.Type,
				"listener_id", e.id,
				"panic", r,
			)
		}
	}()
	e.fn(ev)
}

// Len returns the current number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
