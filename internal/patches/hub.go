package patches

import (
	"sync"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 16

// Hub fans out patch events to subscribers, keyed by article id. The archive
// PATCH and overwrite handlers broadcast through it; websocket connections
// subscribe.
type Hub struct {
	log zerolog.Logger

	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:  log.With().Str("component", "patch-hub").Logger(),
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers for events concerning itemID. The returned channel is
// closed by the unsubscribe function.
func (h *Hub) Subscribe(itemID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[itemID] == nil {
		h.subs[itemID] = make(map[chan Event]struct{})
	}
	h.subs[itemID][ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[itemID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, itemID)
			}
		}
	}
	return ch, unsubscribe
}

// Broadcast delivers an event to every subscriber of its article. A slow
// subscriber whose buffer is full is skipped rather than blocking delivery to
// the others.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[ev.ItemID] {
		select {
		case ch <- ev:
		default:
			h.log.Warn().Str("item_id", ev.ItemID).Msg("Dropping patch event for slow subscriber")
		}
	}
}

// SubscriberCount reports active subscriptions for an article.
func (h *Hub) SubscriberCount(itemID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[itemID])
}
