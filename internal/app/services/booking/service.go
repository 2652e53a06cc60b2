package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"datecraft/internal/app/services/payment"
	domainbooking "datecraft/internal/domain/booking"
	domainchat "datecraft/internal/domain/chat"
	domainoffer "datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
	"datecraft/internal/domain/shared/events"
)

var (
	ErrGuestIsHost = errors.New("booking: hosts cannot book their own offer")
	ErrSlotOffer   = errors.New("booking: slot does not belong to the offer")
)

// EventSink receives the domain events a transition produced, after the
// transition has been persisted. Dispatch must not fail the caller.
type EventSink interface {
	Dispatch(ctx context.Context, evs ...events.DomainEvent)
}

// ChannelLifecycle lets the booking lifecycle drive its conversation
// channel (creation happens here, closing and system notices happen through
// the chat service) without knowing chat internals.
type ChannelLifecycle interface {
	CloseWithNotice(ctx context.Context, id domainchat.ChannelID, notice string, now time.Time) error
	Close(ctx context.Context, id domainchat.ChannelID, now time.Time) error
}

// DefaultPendingTTL is how long a pending booking may await payment
// attestation before the sweep expires it.
const DefaultPendingTTL = 168 * time.Hour

// Service owns booking identity and status transitions. Each operation
// loads the aggregate, applies one transition, persists, then hands the
// recorded events to the sink.
type Service struct {
	Bookings   domainbooking.Repository
	Offers     domainoffer.Repository
	Slots      schedule.Registry
	Channels   domainchat.Repository
	Chat       ChannelLifecycle
	Payments   *payment.Tracker
	Events     EventSink
	Logger     *slog.Logger
	PendingTTL time.Duration
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) pendingTTL() time.Duration {
	if s.PendingTTL > 0 {
		return s.PendingTTL
	}
	return DefaultPendingTTL
}

func (s *Service) dispatch(ctx context.Context, b *domainbooking.Booking) {
	evs := b.PendingEvents()
	b.ClearEvents()
	if s.Events != nil && len(evs) > 0 {
		s.Events.Dispatch(ctx, evs...)
	}
}

type CreateParams struct {
	OfferID         domainoffer.OfferID
	SlotID          schedule.SlotID
	GuestID         string
	Guests          int
	SpecialRequests string
}

// Create reserves the slot atomically, creates the booking in pending and
// binds a fresh conversation channel to it. The slot claim is the only
// racing step; once it is won, any later failure releases the claim so the
// slot is never stranded.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domainbooking.Booking, error) {
	now := s.now()

	off, err := s.Offers.ByID(ctx, params.OfferID)
	if err != nil {
		return nil, err
	}
	if params.GuestID == string(off.Host) {
		return nil, ErrGuestIsHost
	}
	slot, err := s.Slots.Slot(ctx, params.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.OfferID != off.ID {
		return nil, ErrSlotOffer
	}

	bookingID := domainbooking.BookingID(uuid.NewString())
	if err := s.Slots.Reserve(ctx, params.SlotID, string(bookingID), params.Guests, now); err != nil {
		return nil, err
	}

	channel := domainchat.NewChannel(
		domainchat.ChannelID(uuid.NewString()),
		string(bookingID),
		string(off.Host),
		params.GuestID,
		now,
	)

	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:              bookingID,
		OfferID:         off.ID,
		SlotID:          slot.ID,
		GuestID:         params.GuestID,
		HostID:          string(off.Host),
		Guests:          params.Guests,
		SpecialRequests: params.SpecialRequests,
		Policy:          off.CancellationTier,
		EventStart:      slot.Start,
		EventEnd:        slot.End,
		ChannelID:       string(channel.ID),
		Now:             now,
	})
	if err != nil {
		s.release(ctx, params.SlotID, string(bookingID))
		return nil, err
	}
	if err := s.Channels.Create(ctx, channel); err != nil {
		s.release(ctx, params.SlotID, string(bookingID))
		return nil, err
	}
	if err := s.Bookings.Save(ctx, b); err != nil {
		s.release(ctx, params.SlotID, string(bookingID))
		return nil, err
	}

	s.dispatch(ctx, b)
	return b, nil
}

func (s *Service) release(ctx context.Context, slotID schedule.SlotID, bookingID string) {
	if err := s.Slots.Release(ctx, slotID, bookingID); err != nil && s.Logger != nil {
		s.Logger.Error("slot release failed", "slot_id", slotID, "booking_id", bookingID, "error", err)
	}
}

// ConfirmPayment records the guest's manual payment attestation; the first
// call moves pending to confirmed, repeats are idempotent.
func (s *Service) ConfirmPayment(ctx context.Context, id domainbooking.BookingID, callerID string) (*domainbooking.Booking, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Payments.Confirm(ctx, b, callerID, s.now()); err != nil {
		return nil, err
	}
	if err := s.Bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	s.dispatch(ctx, b)
	return b, nil
}

type EditParams struct {
	Guests          *int
	SpecialRequests *string
}

// Edit adjusts guest count and/or special requests while the booking is
// confirmed and the event has not started.
func (s *Service) Edit(ctx context.Context, id domainbooking.BookingID, callerID string, params EditParams) (*domainbooking.Booking, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != b.GuestID {
		return nil, domainbooking.ErrNotGuest
	}
	slot, err := s.Slots.Slot(ctx, b.SlotID)
	if err != nil {
		return nil, err
	}
	if err := b.Edit(params.Guests, params.SpecialRequests, slot.Capacity, s.now()); err != nil {
		return nil, err
	}
	if err := s.Bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	s.dispatch(ctx, b)
	return b, nil
}

// RequestCancellation validates the reason, evaluates the refund outcome
// from the policy snapshot, releases the slot and closes the conversation
// channel with a system notice. Either party may cancel.
func (s *Service) RequestCancellation(ctx context.Context, id domainbooking.BookingID, callerID, reason string) (*domainbooking.Booking, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(callerID) {
		return nil, domainbooking.ErrNotParty
	}
	now := s.now()
	if _, err := b.Cancel(reason, now); err != nil {
		return nil, err
	}
	// the terminal status must be durable before the slot is freed; a
	// failed save leaves the slot held, never double-bookable
	if err := s.Bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	s.release(ctx, b.SlotID, string(b.ID))
	if s.Chat != nil {
		if err := s.Chat.CloseWithNotice(ctx, domainchat.ChannelID(b.ChannelID), "Booking cancelled: "+b.CancellationReason, now); err != nil && s.Logger != nil {
			s.Logger.Error("channel close failed", "channel_id", b.ChannelID, "error", err)
		}
	}
	s.dispatch(ctx, b)
	return b, nil
}

// Get returns the booking to one of its two parties.
func (s *Service) Get(ctx context.Context, id domainbooking.BookingID, callerID string) (*domainbooking.Booking, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(callerID) {
		return nil, domainbooking.ErrNotParty
	}
	return b, nil
}

func (s *Service) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return s.Bookings.ListByGuest(ctx, guestID)
}

func (s *Service) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return s.Bookings.ListByHost(ctx, hostID)
}

// RunSweep applies the two system transitions: confirmed bookings whose
// event window has elapsed become completed, and pending bookings past the
// attestation TTL expire. Called on a ticker from main; each booking is
// handled independently so one failure never stalls the rest.
func (s *Service) RunSweep(ctx context.Context) {
	now := s.now()
	active, err := s.Bookings.ListActive(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("sweep: listing active bookings failed", "error", err)
		}
		return
	}
	for _, b := range active {
		switch b.Status {
		case domainbooking.StatusConfirmed:
			if b.EventEnd.After(now) {
				continue
			}
			if err := b.Complete(now); err != nil {
				continue
			}
			if err := s.Bookings.Save(ctx, b); err != nil {
				s.logSweepError("complete", b, err)
				continue
			}
			if s.Chat != nil {
				if err := s.Chat.Close(ctx, domainchat.ChannelID(b.ChannelID), now); err != nil {
					s.logSweepError("close channel", b, err)
				}
			}
			s.dispatch(ctx, b)
		case domainbooking.StatusPending:
			if now.Sub(b.CreatedAt) < s.pendingTTL() {
				continue
			}
			if err := b.Expire("payment confirmation window elapsed", now); err != nil {
				continue
			}
			if err := s.Bookings.Save(ctx, b); err != nil {
				s.logSweepError("expire", b, err)
				continue
			}
			s.release(ctx, b.SlotID, string(b.ID))
			if s.Chat != nil {
				if err := s.Chat.CloseWithNotice(ctx, domainchat.ChannelID(b.ChannelID), "Booking cancelled: payment confirmation window elapsed", now); err != nil {
					s.logSweepError("close channel", b, err)
				}
			}
			s.dispatch(ctx, b)
		}
	}
}

func (s *Service) logSweepError(step string, b *domainbooking.Booking, err error) {
	if s.Logger != nil {
		s.Logger.Error("sweep step failed", "step", step, "booking_id", b.ID, "error", err)
	}
}
