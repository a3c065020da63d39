// Package notify is the change-notification fan-out: every record mutation
// the store commits is published as an Event, and the dashboard consumes
// the stream to render live state. The store guarantees each mutation is a
// single atomic write, so subscribers always observe consistent records.
package notify

import (
	"sync"
	"time"
)

// Event describes one committed record change.
type Event struct {
	Table  string    `json:"table"`
	Action string    `json:"action"` // "insert" or "update"
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

// Notifier receives record-change events. Publish must not block the
// writer that committed the change.
type Notifier interface {
	Publish(Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Publish(Event) {}

const subscriberBuffer = 64

// Hub is an in-process Notifier that fans events out to subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber. A subscriber whose buffer is
// full misses the event; consumers that fall behind are expected to
// refetch rather than stall the store.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new consumer. The returned cancel func must be
// called when the consumer goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}
