package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "datecraft/internal/app/outbox"
	"datecraft/internal/app/policies"
	domainbooking "datecraft/internal/domain/booking"
	domainchat "datecraft/internal/domain/chat"
)

type recordingNotifier struct {
	sent []policies.Notification
	fail error
}

func (n *recordingNotifier) Send(ctx context.Context, notification policies.Notification) error {
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, notification)
	return nil
}

type recordingOutbox struct {
	records []appoutbox.EventRecord
}

func (o *recordingOutbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.records = append(o.records, record)
	return nil
}

func cancelledEvent() domainbooking.BookingCancelled {
	return domainbooking.BookingCancelled{
		BookingID: "bkg-1",
		GuestID:   "guest-1",
		HostID:    "host-1",
		SlotID:    "slot-1",
		ChannelID: "ch-1",
		Reason:    "plans changed",
		Refund:    domainbooking.RefundOutcome{Kind: domainbooking.RefundPartial, Percent: 50},
		At:        time.Now().UTC(),
	}
}

func TestDispatchNotifiesBothPartiesAndRecordsOutbox(t *testing.T) {
	notifier := &recordingNotifier{}
	outbox := &recordingOutbox{}
	d := &Dispatcher{Notifier: notifier, Outbox: outbox}

	d.Dispatch(context.Background(), cancelledEvent())

	require.Len(t, notifier.sent, 2)
	recipients := []string{notifier.sent[0].RecipientID, notifier.sent[1].RecipientID}
	assert.ElementsMatch(t, []string{"guest-1", "host-1"}, recipients)
	assert.Contains(t, notifier.sent[0].Summary, "50%")
	assert.Contains(t, notifier.sent[0].Summary, "plans changed")

	require.Len(t, outbox.records, 1)
	assert.Equal(t, "booking.cancelled", outbox.records[0].Name)
	assert.Equal(t, "bkg-1", outbox.records[0].Aggregate)
}

func TestDispatchSuppressesNotifierFailures(t *testing.T) {
	notifier := &recordingNotifier{fail: errors.New("smtp down")}
	outbox := &recordingOutbox{}
	d := &Dispatcher{Notifier: notifier, Outbox: outbox}

	// must not panic or propagate; the event still reaches the outbox
	d.Dispatch(context.Background(), cancelledEvent())
	assert.Len(t, outbox.records, 1)
}

func TestDispatchRoutesMessagePostedToCounterpartOnly(t *testing.T) {
	notifier := &recordingNotifier{}
	d := &Dispatcher{Notifier: notifier}

	d.Dispatch(context.Background(), domainchat.MessagePosted{
		ChannelID:   "ch-1",
		BookingID:   "bkg-1",
		MessageID:   "msg-1",
		SenderID:    "guest-1",
		RecipientID: "host-1",
		Preview:     "see you saturday",
		At:          time.Now().UTC(),
	})

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "host-1", notifier.sent[0].RecipientID)
	assert.Contains(t, notifier.sent[0].Summary, "see you saturday")
}

func TestDispatchIgnoresNilEvents(t *testing.T) {
	d := &Dispatcher{}
	d.Dispatch(context.Background(), nil)
}
