package payment

import (
	"context"
	"time"

	domainbooking "datecraft/internal/domain/booking"
)

// Attestation is the audit row for one manual payment confirmation. The
// claim is unverified: nothing checks that money actually moved, so the
// rows exist to support out-of-band reconciliation.
type Attestation struct {
	BookingID   domainbooking.BookingID
	ConfirmerID string
	At          time.Time
}

type Store interface {
	Append(ctx context.Context, attestation Attestation) error
	ListByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]Attestation, error)
}

// Tracker gates the pending→confirmed transition on a guest attestation.
// Host-side confirmation is deliberately not accepted here; if it is ever
// added it will be a distinct operation.
type Tracker struct {
	Store Store
}

// Confirm verifies the caller is the booking's guest, applies the payment
// transition on the aggregate and records the attestation. The caller is
// responsible for persisting the booking afterwards.
func (t *Tracker) Confirm(ctx context.Context, b *domainbooking.Booking, confirmerID string, now time.Time) error {
	if confirmerID != b.GuestID {
		return domainbooking.ErrNotGuest
	}
	if err := b.ConfirmPayment(now); err != nil {
		return err
	}
	if t.Store == nil {
		return nil
	}
	return t.Store.Append(ctx, Attestation{
		BookingID:   b.ID,
		ConfirmerID: confirmerID,
		At:          now.UTC(),
	})
}
