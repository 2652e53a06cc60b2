package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datecraft/internal/domain/offer"
)

func testBooking(t *testing.T, now time.Time) *Booking {
	t.Helper()
	b, err := New(CreateParams{
		ID:         "bkg-1",
		OfferID:    "off-1",
		SlotID:     "slot-1",
		GuestID:    "guest-1",
		HostID:     "host-1",
		Guests:     2,
		Policy:     offer.TierModerate,
		EventStart: now.Add(96 * time.Hour),
		EventEnd:   now.Add(99 * time.Hour),
		ChannelID:  "chn-1",
		Now:        now,
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingStartsPending(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b := testBooking(t, now)

	assert.Equal(t, StatusPending, b.Status)
	assert.False(t, b.PaymentConfirmed)
	assert.Equal(t, "chn-1", b.ChannelID)

	evts := b.PendingEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, "booking.created", evts[0].EventName())
}

func TestNewBookingRejectsBadGuests(t *testing.T) {
	_, err := New(CreateParams{ID: "b", GuestID: "g", HostID: "h", Guests: 0, Now: time.Now()})
	assert.ErrorIs(t, err, ErrInvalidGuests)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b := testBooking(t, now)

	require.NoError(t, b.ConfirmPayment(now))
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.True(t, b.PaymentConfirmed)
	first := b.PaymentConfirmedAt

	// second attestation does not error, does not reset the timestamp
	require.NoError(t, b.ConfirmPayment(now.Add(time.Hour)))
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, first, b.PaymentConfirmedAt)
}

func TestConfirmPaymentOnTerminalBooking(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b := testBooking(t, now)
	_, err := b.Cancel("plans changed", now)
	require.NoError(t, err)

	assert.ErrorIs(t, b.ConfirmPayment(now), ErrInvalidState)
}

func TestEditWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	guests := 3

	t.Run("pending booking cannot be edited", func(t *testing.T) {
		b := testBooking(t, now)
		assert.ErrorIs(t, b.Edit(&guests, nil, 4, now), ErrEditWindowClosed)
	})

	t.Run("confirmed and future succeeds", func(t *testing.T) {
		b := testBooking(t, now)
		require.NoError(t, b.ConfirmPayment(now))
		notes := "vegetarian menu"
		require.NoError(t, b.Edit(&guests, &notes, 4, now))
		assert.Equal(t, 3, b.Guests)
		assert.Equal(t, "vegetarian menu", b.SpecialRequests)
	})

	t.Run("guest count capped by slot capacity", func(t *testing.T) {
		b := testBooking(t, now)
		require.NoError(t, b.ConfirmPayment(now))
		many := 9
		err := b.Edit(&many, nil, 4, now)
		assert.Error(t, err)
		assert.Equal(t, 2, b.Guests, "failed edit must not change state")
	})

	t.Run("event already started", func(t *testing.T) {
		b := testBooking(t, now)
		require.NoError(t, b.ConfirmPayment(now))
		assert.ErrorIs(t, b.Edit(&guests, nil, 4, b.EventStart), ErrEditWindowClosed)
	})
}

func TestCancelRequiresReason(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b := testBooking(t, now)

	_, err := b.Cancel("   ", now)
	assert.ErrorIs(t, err, ErrReasonRequired)
	assert.Equal(t, StatusPending, b.Status, "validation failure must not mutate")
}

func TestCancelComputesRefundFromSnapshot(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b := testBooking(t, now) // moderate, event in 96h

	outcome, err := b.Cancel("host asked to reschedule", now)
	require.NoError(t, err)
	assert.Equal(t, RefundFree, outcome.Kind)
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Equal(t, "host asked to reschedule", b.CancellationReason)

	// 30h before a moderate event -> 50%
	b2 := testBooking(t, now)
	outcome2, err := b2.Cancel("sick", b2.EventStart.Add(-30*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, RefundPartial, outcome2.Kind)
}

func TestCancelTwice(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b := testBooking(t, now)
	_, err := b.Cancel("first", now)
	require.NoError(t, err)
	_, err = b.Cancel("second", now)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestComplete(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("pending cannot complete", func(t *testing.T) {
		b := testBooking(t, now)
		assert.ErrorIs(t, b.Complete(b.EventEnd.Add(time.Hour)), ErrInvalidState)
	})

	t.Run("event still running", func(t *testing.T) {
		b := testBooking(t, now)
		require.NoError(t, b.ConfirmPayment(now))
		assert.ErrorIs(t, b.Complete(b.EventEnd.Add(-time.Minute)), ErrEventNotOver)
	})

	t.Run("confirmed and elapsed", func(t *testing.T) {
		b := testBooking(t, now)
		require.NoError(t, b.ConfirmPayment(now))
		require.NoError(t, b.Complete(b.EventEnd))
		assert.Equal(t, StatusCompleted, b.Status)
	})
}
