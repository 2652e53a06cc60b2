package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
	"datecraft/internal/domain/shared/events"
)

var (
	ErrBookingNotFound  = errors.New("booking: not found")
	ErrInvalidGuests    = errors.New("booking: guests count must be positive")
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrEditWindowClosed = errors.New("booking: edits allowed only while confirmed and before the event")
	ErrReasonRequired   = errors.New("booking: cancellation reason required")
	ErrNotGuest         = errors.New("booking: only the guest may perform this action")
	ErrNotParty         = errors.New("booking: caller is not a party to this booking")
	ErrEventNotOver     = errors.New("booking: event has not finished yet")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition can leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking is the record of a guest reserving one slot on an offer. It is
// never physically deleted; cancellation and completion are terminal
// statuses, not removals.
type Booking struct {
	ID              BookingID
	OfferID         offer.OfferID
	SlotID          schedule.SlotID
	GuestID         string
	HostID          string
	Guests          int
	SpecialRequests string
	Status          Status

	// Snapshots taken at creation so later offer/slot edits cannot change
	// the terms of an existing booking.
	Policy     offer.CancellationTier
	EventStart time.Time
	EventEnd   time.Time

	PaymentConfirmed   bool
	PaymentConfirmedAt time.Time
	CancellationReason string
	Refund             RefundOutcome

	ChannelID string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64

	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
	// ListActive returns every booking in a non-terminal status, for the
	// completion/expiry sweep.
	ListActive(ctx context.Context) ([]*Booking, error)
}

type CreateParams struct {
	ID              BookingID
	OfferID         offer.OfferID
	SlotID          schedule.SlotID
	GuestID         string
	HostID          string
	Guests          int
	SpecialRequests string
	Policy          offer.CancellationTier
	EventStart      time.Time
	EventEnd        time.Time
	ChannelID       string
	Now             time.Time
}

// New creates a booking in PENDING with payment unconfirmed and records
// BookingCreated. Capacity and slot availability are the registry's concern;
// identity invariants are enforced here.
func New(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.GuestID == "" || params.HostID == "" {
		return nil, errors.New("booking: guest and host ids required")
	}
	now := params.Now.UTC()
	b := &Booking{
		ID:              params.ID,
		OfferID:         params.OfferID,
		SlotID:          params.SlotID,
		GuestID:         params.GuestID,
		HostID:          params.HostID,
		Guests:          params.Guests,
		SpecialRequests: strings.TrimSpace(params.SpecialRequests),
		Status:          StatusPending,
		Policy:          params.Policy,
		EventStart:      params.EventStart.UTC(),
		EventEnd:        params.EventEnd.UTC(),
		ChannelID:       params.ChannelID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingCreated{
		BookingID: b.ID,
		OfferID:   b.OfferID,
		SlotID:    b.SlotID,
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		Guests:    b.Guests,
		ChannelID: b.ChannelID,
		At:        now,
	})
	return b, nil
}

// IsParty reports whether the user is the booking's guest or host.
func (b *Booking) IsParty(userID string) bool {
	return userID != "" && (userID == b.GuestID || userID == b.HostID)
}

// ConfirmPayment records the guest's manual payment attestation and moves a
// pending booking to CONFIRMED. Repeat calls are idempotent with respect to
// status and keep the original confirmation timestamp. Terminal bookings
// reject the call.
func (b *Booking) ConfirmPayment(now time.Time) error {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if !b.PaymentConfirmed {
		b.PaymentConfirmed = true
		b.PaymentConfirmedAt = now.UTC()
		b.Record(PaymentConfirmed{BookingID: b.ID, GuestID: b.GuestID, HostID: b.HostID, At: b.PaymentConfirmedAt})
	}
	if b.Status == StatusPending {
		b.Status = StatusConfirmed
		b.UpdatedAt = now.UTC()
	}
	return nil
}

// Edit updates guest count and/or special requests. Only permitted while
// CONFIRMED and strictly before the event starts; the guest count is
// re-validated against the slot capacity by the caller-supplied limit.
func (b *Booking) Edit(guests *int, specialRequests *string, slotCapacity int, now time.Time) error {
	if b.Status != StatusConfirmed || !b.EventStart.After(now) {
		return ErrEditWindowClosed
	}
	if guests != nil {
		if *guests <= 0 {
			return ErrInvalidGuests
		}
		if *guests > slotCapacity {
			return schedule.ErrCapacityExceeded
		}
	}
	if guests != nil {
		b.Guests = *guests
	}
	if specialRequests != nil {
		b.SpecialRequests = strings.TrimSpace(*specialRequests)
	}
	b.UpdatedAt = now.UTC()
	b.Record(BookingEdited{BookingID: b.ID, GuestID: b.GuestID, HostID: b.HostID, Guests: b.Guests, At: b.UpdatedAt})
	return nil
}

// Cancel transitions to CANCELLED and returns the refund outcome evaluated
// from the policy snapshot. The reason is validated before any mutation.
// User cancellation is only reachable before the event starts; bookings
// whose event already ran are settled by the completion sweep instead.
func (b *Booking) Cancel(reason string, now time.Time) (RefundOutcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return RefundOutcome{}, ErrReasonRequired
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return RefundOutcome{}, ErrInvalidState
	}
	if !b.EventStart.After(now) {
		return RefundOutcome{}, ErrInvalidState
	}
	outcome := Evaluate(b.Policy, HoursUntil(b.EventStart, now))
	b.applyCancellation(reason, outcome, now)
	return outcome, nil
}

// Expire is the system-side cancellation used when a pending booking never
// receives payment attestation. No refund applies (nothing was attested)
// and the event-in-future rule does not: stale bookings are swept whenever
// they are found.
func (b *Booking) Expire(reason string, now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.applyCancellation(reason, RefundOutcome{Kind: RefundNone, Percent: 0}, now)
	return nil
}

func (b *Booking) applyCancellation(reason string, outcome RefundOutcome, now time.Time) {
	b.Status = StatusCancelled
	b.CancellationReason = reason
	b.Refund = outcome
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{
		BookingID: b.ID,
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		SlotID:    b.SlotID,
		ChannelID: b.ChannelID,
		Reason:    reason,
		Refund:    outcome,
		At:        b.UpdatedAt,
	})
}

// Complete is the only system-triggered transition: a confirmed booking
// whose slot window has fully elapsed becomes COMPLETED.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if b.EventEnd.After(now) {
		return ErrEventNotOver
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, GuestID: b.GuestID, HostID: b.HostID, ChannelID: b.ChannelID, At: b.UpdatedAt})
	return nil
}
