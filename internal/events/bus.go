package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives published events. Handlers run synchronously on the emitting goroutine,
// so they must not block.
type Handler func(event *Event)

type subscription struct {
	id        uint64
	eventType EventType // empty means every type
	handler   Handler
}

// Bus delivers events to subscribers in subscription order
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	log    zerolog.Logger
}

// NewBus creates an empty event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log: log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler for one event type and returns a function that removes it.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	return b.add(eventType, handler)
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) func() {
	return b.add("", handler)
}

func (b *Bus) add(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
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

// Emit publishes event to every matching subscriber
func (b *Bus) Emit(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.eventType == "" || s.eventType == event.Type {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		b.dispatch(h, event)
	}
}

func (b *Bus) dispatch(h Handler, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	h(event)
}

// SubscriberCount reports the number of registered handlers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
