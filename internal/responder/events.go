package responder

import (
	"sync"
	"time"
)

// Event kinds published to live observers.
const (
	EventReply      = "reply"
	EventIgnored    = "ignored"
	EventDiscard    = "discard"
	EventSuppressed = "suppressed"
)

// PacketEvent describes the outcome of one processed datagram. Events
// feed the status server's live stream and carry no packet payload.
type PacketEvent struct {
	Time      time.Time `json:"time"`
	Peer      string    `json:"peer"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	ReplyID   string    `json:"reply_id,omitempty"`
	Bytes     int       `json:"bytes"`
}

// eventHub fans PacketEvents out to subscribers. Publishing never blocks
// the receive loop: a subscriber that falls behind loses events.
type eventHub struct {
	mu   sync.Mutex
	subs map[chan PacketEvent]struct{}
}

// Subscribe registers a live event channel with the given buffer size.
// The returned cancel function unregisters and closes the channel.
func (r *Responder) Subscribe(buffer int) (<-chan PacketEvent, func()) {
	ch := make(chan PacketEvent, buffer)

	r.hub.mu.Lock()
	if r.hub.subs == nil {
		r.hub.subs = make(map[chan PacketEvent]struct{})
	}
	r.hub.subs[ch] = struct{}{}
	r.hub.mu.Unlock()

	cancel := func() {
		r.hub.mu.Lock()
		if _, ok := r.hub.subs[ch]; ok {
			delete(r.hub.subs, ch)
			close(ch)
		}
		r.hub.mu.Unlock()
	}
	return ch, cancel
}

func (h *eventHub) publish(ev PacketEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
