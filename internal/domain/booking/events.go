package booking

import (
	"time"

	"datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
)

type BookingCreated struct {
	BookingID BookingID
	OfferID   offer.OfferID
	SlotID    schedule.SlotID
	GuestID   string
	HostID    string
	Guests    int
	ChannelID string
	At        time.Time
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type PaymentConfirmed struct {
	BookingID BookingID
	GuestID   string
	HostID    string
	At        time.Time
}

func (e PaymentConfirmed) EventName() string     { return "booking.payment_confirmed" }
func (e PaymentConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e PaymentConfirmed) OccurredAt() time.Time { return e.At }

type BookingEdited struct {
	BookingID BookingID
	GuestID   string
	HostID    string
	Guests    int
	At        time.Time
}

func (e BookingEdited) EventName() string     { return "booking.edited" }
func (e BookingEdited) AggregateID() string   { return string(e.BookingID) }
func (e BookingEdited) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	GuestID   string
	HostID    string
	SlotID    schedule.SlotID
	ChannelID string
	Reason    string
	Refund    RefundOutcome
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID
	GuestID   string
	HostID    string
	ChannelID string
	At        time.Time
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }
