package schedule

import (
	"context"
	"errors"
	"strings"
	"time"

	"datecraft/internal/domain/offer"
)

var (
	// ErrSlotUnavailable is returned when the slot is already claimed, sits
	// on a date the host blocked, or has already started. Racing callers on
	// the same slot see exactly one success; everyone else gets this error.
	ErrSlotUnavailable  = errors.New("schedule: slot unavailable")
	ErrCapacityExceeded = errors.New("schedule: guest count exceeds slot capacity")
	ErrSlotNotFound     = errors.New("schedule: slot not found")
	ErrBlockNotFound    = errors.New("schedule: blocked date not found")
	ErrInvalidSlot      = errors.New("schedule: slot window invalid")
	ErrBlockReason      = errors.New("schedule: blocked date reason required")
)

type SlotID string

type BlockID string

// TimeSlot is one bookable window on an offer. The booked flag is the only
// field mutated after creation and is flipped exclusively through the
// registry's Reserve/Release, which serialize per slot.
type TimeSlot struct {
	ID       SlotID
	OfferID  offer.OfferID
	HostID   offer.HostID
	Start    time.Time
	End      time.Time
	Capacity int
	Booked   bool
	BookedBy string // booking id holding the claim, empty when free
}

// NewSlot validates the window. Slots are created when a host publishes or
// edits an offer and are retained forever once a completed booking
// references them.
func NewSlot(id SlotID, offerID offer.OfferID, hostID offer.HostID, start, end time.Time, capacity int) (*TimeSlot, error) {
	if !end.After(start) || capacity <= 0 {
		return nil, ErrInvalidSlot
	}
	return &TimeSlot{
		ID:       id,
		OfferID:  offerID,
		HostID:   hostID,
		Start:    start.UTC(),
		End:      end.UTC(),
		Capacity: capacity,
	}, nil
}

// Claim marks the slot as held by a booking. Callers must serialize claims
// on the same slot; the registry implementations own that discipline.
func (s *TimeSlot) Claim(bookingID string, guests int, now time.Time) error {
	if guests > s.Capacity {
		return ErrCapacityExceeded
	}
	if s.Booked || !s.Start.After(now) {
		return ErrSlotUnavailable
	}
	s.Booked = true
	s.BookedBy = bookingID
	return nil
}

// Release reverts the claim. Idempotent: releasing a free slot or a slot
// held by another booking is a no-op.
func (s *TimeSlot) Release(bookingID string) {
	if !s.Booked || s.BookedBy != bookingID {
		return
	}
	s.Booked = false
	s.BookedBy = ""
}

// Date returns the slot's calendar day in UTC, used for blocked-date checks.
func (s *TimeSlot) Date() time.Time {
	return DateOnly(s.Start)
}

// BlockedDate is a host-level exclusion: no new booking may reserve any slot
// of that host on the blocked day. Independent lifecycle from bookings.
type BlockedDate struct {
	ID        BlockID
	HostID    offer.HostID
	Date      time.Time // midnight UTC
	Reason    string
	CreatedAt time.Time
}

func NewBlockedDate(id BlockID, hostID offer.HostID, date time.Time, reason string, now time.Time) (*BlockedDate, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrBlockReason
	}
	return &BlockedDate{
		ID:        id,
		HostID:    hostID,
		Date:      DateOnly(date),
		Reason:    strings.TrimSpace(reason),
		CreatedAt: now.UTC(),
	}, nil
}

// Registry owns the slot arena and the host blocked dates. Reserve is the
// system's principal race: implementations must guarantee at most one winner
// per slot, either under a lock (memory) or a conditional update (mongo).
type Registry interface {
	AddSlot(ctx context.Context, slot *TimeSlot) error
	Slot(ctx context.Context, id SlotID) (*TimeSlot, error)
	SlotsByOffer(ctx context.Context, offerID offer.OfferID) ([]*TimeSlot, error)

	Reserve(ctx context.Context, id SlotID, bookingID string, guests int, now time.Time) error
	Release(ctx context.Context, id SlotID, bookingID string) error

	BlockDate(ctx context.Context, block *BlockedDate) error
	UnblockDate(ctx context.Context, id BlockID) error
	BlockedDates(ctx context.Context, hostID offer.HostID) ([]*BlockedDate, error)
	IsDateBlocked(ctx context.Context, hostID offer.HostID, date time.Time) (bool, error)
}

// DateOnly truncates to midnight UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
