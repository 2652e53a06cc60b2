package realtime

import (
	"sync"
	"time"

	"datecraft/internal/domain/chat"
)

// EventKind is the closed set of channel event variants pushed to
// subscribers.
type EventKind string

const (
	KindMessagePosted EventKind = "message_posted"
	KindReadReceipt   EventKind = "read_receipt"
	KindTypingChanged EventKind = "typing_changed"
	KindChannelClosed EventKind = "channel_closed"
)

// Event is one update on a conversation channel. Exactly one of the
// kind-specific fields is populated.
type Event struct {
	Kind      EventKind       `json:"kind"`
	ChannelID chat.ChannelID  `json:"channel_id"`
	Message   *chat.Message   `json:"message,omitempty"`
	ReaderID  string          `json:"reader_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Typing    bool            `json:"typing,omitempty"`
	At        time.Time       `json:"at"`
}

const subscriberBuffer = 32

// Subscription is one client's stream of events for a single channel.
// Streams are restartable: a subscriber that falls behind is dropped and is
// expected to re-fetch history and subscribe again.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	cancel func()
	once   sync.Once
}

// Cancel detaches the subscription and closes C.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub fans channel events out to the connected clients of the two bound
// participants. Delivery within one channel preserves publish order;
// nothing is guaranteed across channels. Publishing never blocks: slow
// subscribers are disconnected instead of stalling the writer.
type Hub struct {
	mu   sync.Mutex
	subs map[chat.ChannelID]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chat.ChannelID]map[*Subscription]struct{})}
}

// Subscribe registers a stream for one channel.
func (h *Hub) Subscribe(channelID chat.ChannelID) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch}
	sub.cancel = func() { h.drop(channelID, sub) }

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[channelID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[channelID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish delivers the event to every live subscriber of the channel.
func (h *Hub) Publish(channelID chat.ChannelID, event Event) {
	event.ChannelID = channelID
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[channelID] {
		select {
		case sub.ch <- event:
		default:
			// subscriber is not keeping up; cut it loose so the channel's
			// ordering guarantee is never violated by selective drops
			delete(h.subs[channelID], sub)
			sub.close()
		}
	}
}

func (h *Hub) drop(channelID chat.ChannelID, sub *Subscription) {
	h.mu.Lock()
	set, ok := h.subs[channelID]
	if ok {
		if _, live := set[sub]; live {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, channelID)
			}
			h.mu.Unlock()
			sub.close()
			return
		}
	}
	h.mu.Unlock()
}

// SubscriberCount is used by tests and the readiness probe.
func (h *Hub) SubscriberCount(channelID chat.ChannelID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[channelID])
}
