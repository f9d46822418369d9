// Package feed carries change notifications for the three entity
// collections. Every confirmed store write is published here; the in-memory
// mirror and any websocket clients consume the same stream.
package feed

import "sync"

// Collection identifies which entity collection an event belongs to.
type Collection string

const (
	CollectionStudents     Collection = "students"
	CollectionPayments     Collection = "payments"
	CollectionTransactions Collection = "transactions"
)

// Kind is the change type of an event.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Event is one change notification. Entity holds the full row for created
// and updated events; for deleted events it carries at least the removed id.
type Event struct {
	Collection Collection `json:"collection"`
	Kind       Kind       `json:"kind"`
	Entity     any        `json:"entity"`
}

// subscriber buffer size. A full buffer drops events for that subscriber
// only; the mirror's subscription is drained continuously so it never fills
// under normal operation.
const subscriberBuffer = 256

// Hub fans events out to subscribers. Publish never blocks.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel together with
// a cancel function. Cancel must be called when the session ends so events
// are not delivered to dead consumers.
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

// Publish delivers ev to all current subscribers without blocking. A
// subscriber whose buffer is full misses the event.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
