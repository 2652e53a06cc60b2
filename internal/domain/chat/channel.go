package chat

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrChannelNotFound = errors.New("chat: channel not found")
	ErrNotParticipant  = errors.New("chat: user is not a channel participant")
	ErrChannelClosed   = errors.New("chat: channel is closed")
	ErrEmptyContent    = errors.New("chat: message content required")
)

// PostGracePeriod keeps a closed channel writable for a short while after
// the booking reaches a terminal status, so the two parties can settle
// logistics. Past the window posting fails with ErrChannelClosed; history
// stays readable forever.
const PostGracePeriod = 24 * time.Hour

// SystemSender marks messages emitted by the platform itself, e.g. the
// "booking cancelled" notice.
const SystemSender = "system"

type ChannelID string

type MessageKind string

const (
	KindUser   MessageKind = "USER"
	KindSystem MessageKind = "SYSTEM"
)

// Message belongs to exactly one channel. Only the read flag ever changes
// after creation, and only from false to true.
type Message struct {
	ID        string
	ChannelID ChannelID
	SenderID  string
	Kind      MessageKind
	Content   string
	Seq       int64
	CreatedAt time.Time
	Read      bool
}

// Channel is the 1:1 conversation bound to a booking. Messages are strictly
// ordered by creation time with the insertion sequence breaking ties; all
// mutation goes through the repository's per-channel serialization.
type Channel struct {
	ID        ChannelID
	BookingID string
	HostID    string
	GuestID   string
	Messages  []Message
	LastRead  map[string]int64 // participant id -> seq of last message read
	nextSeq   int64
	Closed    bool
	ClosedAt  time.Time
	CreatedAt time.Time
	Version   int64
}

// Repository provides per-channel serialized access. Update runs fn with
// exclusive ownership of the channel; implementations guarantee no two
// updates on the same channel interleave. Channels in different bookings
// never contend with each other.
type Repository interface {
	ByID(ctx context.Context, id ChannelID) (*Channel, error)
	Create(ctx context.Context, channel *Channel) error
	Update(ctx context.Context, id ChannelID, fn func(*Channel) error) (*Channel, error)
}

func NewChannel(id ChannelID, bookingID, hostID, guestID string, now time.Time) *Channel {
	return &Channel{
		ID:        id,
		BookingID: bookingID,
		HostID:    hostID,
		GuestID:   guestID,
		LastRead:  map[string]int64{},
		CreatedAt: now.UTC(),
	}
}

// IsParticipant reports whether the user is one of the two bound parties.
func (c *Channel) IsParticipant(userID string) bool {
	return userID != "" && (userID == c.HostID || userID == c.GuestID)
}

// Counterpart returns the other participant.
func (c *Channel) Counterpart(userID string) string {
	if userID == c.HostID {
		return c.GuestID
	}
	return c.HostID
}

// Post appends a participant message. Timestamps are strictly
// non-decreasing: a message never sorts before its predecessor even if the
// caller's clock stepped back, and the sequence breaks exact ties.
func (c *Channel) Post(senderID, msgID, content string, now time.Time) (*Message, error) {
	if !c.IsParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	if c.Closed && !now.Before(c.ClosedAt.Add(PostGracePeriod)) {
		return nil, ErrChannelClosed
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	return c.append(senderID, KindUser, msgID, content, now), nil
}

// PostSystem appends a platform notice, e.g. on cancellation. System
// messages ignore the closed state: the notice that closes the channel must
// still land in it.
func (c *Channel) PostSystem(msgID, content string, now time.Time) *Message {
	return c.append(SystemSender, KindSystem, msgID, content, now)
}

func (c *Channel) append(senderID string, kind MessageKind, msgID, content string, now time.Time) *Message {
	at := now.UTC()
	if n := len(c.Messages); n > 0 && at.Before(c.Messages[n-1].CreatedAt) {
		at = c.Messages[n-1].CreatedAt
	}
	c.nextSeq++
	msg := Message{
		ID:        msgID,
		ChannelID: c.ID,
		SenderID:  senderID,
		Kind:      kind,
		Content:   content,
		Seq:       c.nextSeq,
		CreatedAt: at,
	}
	c.Messages = append(c.Messages, msg)
	return &c.Messages[len(c.Messages)-1]
}

// MarkRead flips read=true on every counterpart-authored message and moves
// the reader's last-read marker. Idempotent; a read message never reverts.
// Returns how many messages were newly marked.
func (c *Channel) MarkRead(readerID string, now time.Time) (int, error) {
	if !c.IsParticipant(readerID) {
		return 0, ErrNotParticipant
	}
	newlyRead := 0
	var lastSeq int64
	for i := range c.Messages {
		msg := &c.Messages[i]
		if msg.SenderID == readerID {
			continue
		}
		lastSeq = msg.Seq
		if !msg.Read {
			msg.Read = true
			newlyRead++
		}
	}
	if lastSeq > c.LastRead[readerID] {
		c.LastRead[readerID] = lastSeq
	}
	return newlyRead, nil
}

// UnreadCountFor counts counterpart-authored messages the user has not read.
func (c *Channel) UnreadCountFor(userID string) (int, error) {
	if !c.IsParticipant(userID) {
		return 0, ErrNotParticipant
	}
	count := 0
	for i := range c.Messages {
		if c.Messages[i].SenderID != userID && !c.Messages[i].Read {
			count++
		}
	}
	return count, nil
}

// MessagesAfter returns up to limit messages with Seq > afterSeq, oldest
// first. A limit <= 0 or > 200 falls back to 50, matching the transport
// default.
func (c *Channel) MessagesAfter(afterSeq int64, limit int) []Message {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out := make([]Message, 0, limit)
	for i := range c.Messages {
		if c.Messages[i].Seq <= afterSeq {
			continue
		}
		out = append(out, c.Messages[i])
		if len(out) == limit {
			break
		}
	}
	return out
}

// Close makes the channel read-only once the grace window elapses.
// Idempotent; the original close time is kept.
func (c *Channel) Close(now time.Time) {
	if c.Closed {
		return
	}
	c.Closed = true
	c.ClosedAt = now.UTC()
}

// NextSeq exposes the tail sequence for persistence round-trips.
func (c *Channel) NextSeq() int64 { return c.nextSeq }

// RestoreSeq rebuilds the internal counter after loading from storage.
func (c *Channel) RestoreSeq(seq int64) { c.nextSeq = seq }
