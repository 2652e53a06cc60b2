package chat

import "time"

// MessagePosted is consumed by the notification dispatcher so the
// counterpart learns about new messages even when disconnected.
type MessagePosted struct {
	ChannelID   ChannelID
	BookingID   string
	MessageID   string
	SenderID    string
	RecipientID string
	Preview     string
	At          time.Time
}

func (e MessagePosted) EventName() string     { return "chat.message_posted" }
func (e MessagePosted) AggregateID() string   { return string(e.ChannelID) }
func (e MessagePosted) OccurredAt() time.Time { return e.At }
