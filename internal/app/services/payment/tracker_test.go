package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "datecraft/internal/domain/booking"
	domainoffer "datecraft/internal/domain/offer"
)

type memStore struct {
	items []Attestation
}

func (s *memStore) Append(ctx context.Context, a Attestation) error {
	s.items = append(s.items, a)
	return nil
}

func (s *memStore) ListByBooking(ctx context.Context, id domainbooking.BookingID) ([]Attestation, error) {
	return s.items, nil
}

func testBooking(t *testing.T, now time.Time) *domainbooking.Booking {
	t.Helper()
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:         "bkg-1",
		OfferID:    "off-1",
		SlotID:     "slot-1",
		GuestID:    "guest-1",
		HostID:     "host-1",
		Guests:     2,
		Policy:     domainoffer.TierFlexible,
		EventStart: now.Add(48 * time.Hour),
		EventEnd:   now.Add(50 * time.Hour),
		ChannelID:  "ch-1",
		Now:        now,
	})
	require.NoError(t, err)
	return b
}

func TestConfirmRequiresTheGuest(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := testBooking(t, now)
	tracker := &Tracker{Store: &memStore{}}

	assert.ErrorIs(t, tracker.Confirm(context.Background(), b, "host-1", now), domainbooking.ErrNotGuest)
	assert.Equal(t, domainbooking.StatusPending, b.Status)
}

func TestConfirmTransitionsAndAuditsEveryAttempt(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := testBooking(t, now)
	store := &memStore{}
	tracker := &Tracker{Store: store}
	ctx := context.Background()

	require.NoError(t, tracker.Confirm(ctx, b, "guest-1", now))
	assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
	assert.True(t, b.PaymentConfirmed)
	assert.Equal(t, now, b.PaymentConfirmedAt)

	// repeat confirmations keep the original timestamp but still audit
	require.NoError(t, tracker.Confirm(ctx, b, "guest-1", now.Add(time.Hour)))
	assert.Equal(t, now, b.PaymentConfirmedAt)
	assert.Len(t, store.items, 2)
	assert.Equal(t, "guest-1", store.items[0].ConfirmerID)
}

func TestConfirmRejectsTerminalBookings(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := testBooking(t, now)
	_, err := b.Cancel("changed plans", now)
	require.NoError(t, err)

	tracker := &Tracker{Store: &memStore{}}
	assert.ErrorIs(t, tracker.Confirm(context.Background(), b, "guest-1", now), domainbooking.ErrInvalidState)
}
