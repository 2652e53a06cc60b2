package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainchat "datecraft/internal/domain/chat"
	"datecraft/internal/domain/shared/events"
	"datecraft/internal/realtime"
)

// EventSink receives chat domain events for notification fan-out.
type EventSink interface {
	Dispatch(ctx context.Context, evs ...events.DomainEvent)
}

const previewLimit = 80

// Service exposes the per-booking conversation channel: message posting,
// read receipts, typing presence and the live event stream. Every mutation
// runs through the repository's per-channel serialization; the hub then
// fans the update out in append order.
type Service struct {
	Channels domainchat.Repository
	Hub      *realtime.Hub
	Presence *realtime.PresenceTracker
	Events   EventSink
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Post appends a message and pushes it to both participants' live streams.
func (s *Service) Post(ctx context.Context, channelID domainchat.ChannelID, senderID, content string) (*domainchat.Message, error) {
	now := s.now()
	msgID := uuid.NewString()
	var posted domainchat.Message
	channel, err := s.Channels.Update(ctx, channelID, func(c *domainchat.Channel) error {
		msg, err := c.Post(senderID, msgID, content, now)
		if err != nil {
			return err
		}
		posted = *msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Hub != nil {
		s.Hub.Publish(channelID, realtime.Event{
			Kind:    realtime.KindMessagePosted,
			Message: &posted,
			At:      posted.CreatedAt,
		})
	}
	if s.Events != nil {
		s.Events.Dispatch(ctx, domainchat.MessagePosted{
			ChannelID:   channelID,
			BookingID:   channel.BookingID,
			MessageID:   posted.ID,
			SenderID:    senderID,
			RecipientID: channel.Counterpart(senderID),
			Preview:     preview(posted.Content),
			At:          posted.CreatedAt,
		})
	}
	return &posted, nil
}

// MarkRead flips the counterpart's messages to read and, when anything
// actually changed, pushes a read receipt. Idempotent.
func (s *Service) MarkRead(ctx context.Context, channelID domainchat.ChannelID, readerID string) (int, error) {
	now := s.now()
	newlyRead := 0
	_, err := s.Channels.Update(ctx, channelID, func(c *domainchat.Channel) error {
		n, err := c.MarkRead(readerID, now)
		if err != nil {
			return err
		}
		newlyRead = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	if newlyRead > 0 && s.Hub != nil {
		s.Hub.Publish(channelID, realtime.Event{
			Kind:     realtime.KindReadReceipt,
			ReaderID: readerID,
			At:       now,
		})
	}
	return newlyRead, nil
}

// SetTyping refreshes the caller's ephemeral typing indicator and pushes
// the change to the counterpart. Presence storage failures are logged and
// dropped: typing carries no durability requirement.
func (s *Service) SetTyping(ctx context.Context, channelID domainchat.ChannelID, userID string, isTyping bool) error {
	channel, err := s.Channels.ByID(ctx, channelID)
	if err != nil {
		return err
	}
	if !channel.IsParticipant(userID) {
		return domainchat.ErrNotParticipant
	}
	if err := s.Presence.SetTyping(ctx, channelID, userID, isTyping); err != nil && s.Logger != nil {
		s.Logger.Warn("typing presence write failed", "channel_id", channelID, "user_id", userID, "error", err)
	}
	if s.Hub != nil {
		s.Hub.Publish(channelID, realtime.Event{
			Kind:   realtime.KindTypingChanged,
			UserID: userID,
			Typing: isTyping,
			At:     s.now(),
		})
	}
	return nil
}

// UnreadCount returns how many counterpart messages the user has not read.
func (s *Service) UnreadCount(ctx context.Context, channelID domainchat.ChannelID, userID string) (int, error) {
	channel, err := s.Channels.ByID(ctx, channelID)
	if err != nil {
		return 0, err
	}
	return channel.UnreadCountFor(userID)
}

// History pages through the ordered message log, oldest first. Closed
// channels stay readable forever.
func (s *Service) History(ctx context.Context, channelID domainchat.ChannelID, userID string, afterSeq int64, limit int) ([]domainchat.Message, error) {
	channel, err := s.Channels.ByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsParticipant(userID) {
		return nil, domainchat.ErrNotParticipant
	}
	return channel.MessagesAfter(afterSeq, limit), nil
}

// Typists lists users currently typing in the channel.
func (s *Service) Typists(ctx context.Context, channelID domainchat.ChannelID, userID string) ([]string, error) {
	channel, err := s.Channels.ByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsParticipant(userID) {
		return nil, domainchat.ErrNotParticipant
	}
	return s.Presence.ActiveTypists(ctx, channelID)
}

// Subscribe opens a restartable stream of channel events for a participant.
// The caller cancels the subscription when the client disconnects.
func (s *Service) Subscribe(ctx context.Context, channelID domainchat.ChannelID, userID string) (*realtime.Subscription, error) {
	channel, err := s.Channels.ByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsParticipant(userID) {
		return nil, domainchat.ErrNotParticipant
	}
	return s.Hub.Subscribe(channelID), nil
}

// CloseWithNotice appends a system message and closes the channel. Driven
// by booking cancellation and pending expiry.
func (s *Service) CloseWithNotice(ctx context.Context, channelID domainchat.ChannelID, notice string, now time.Time) error {
	msgID := uuid.NewString()
	var posted domainchat.Message
	_, err := s.Channels.Update(ctx, channelID, func(c *domainchat.Channel) error {
		posted = *c.PostSystem(msgID, notice, now)
		c.Close(now)
		return nil
	})
	if err != nil {
		return err
	}
	if s.Hub != nil {
		s.Hub.Publish(channelID, realtime.Event{
			Kind:    realtime.KindMessagePosted,
			Message: &posted,
			At:      posted.CreatedAt,
		})
		s.Hub.Publish(channelID, realtime.Event{Kind: realtime.KindChannelClosed, At: now})
	}
	return nil
}

// Close makes the channel read-only without a notice. Driven by booking
// completion.
func (s *Service) Close(ctx context.Context, channelID domainchat.ChannelID, now time.Time) error {
	_, err := s.Channels.Update(ctx, channelID, func(c *domainchat.Channel) error {
		c.Close(now)
		return nil
	})
	if err != nil {
		return err
	}
	if s.Hub != nil {
		s.Hub.Publish(channelID, realtime.Event{Kind: realtime.KindChannelClosed, At: now})
	}
	return nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "…"
}
