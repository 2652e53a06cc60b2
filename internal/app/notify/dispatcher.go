package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"datecraft/internal/app/outbox"
	"datecraft/internal/app/policies"
	domainbooking "datecraft/internal/domain/booking"
	domainchat "datecraft/internal/domain/chat"
	"datecraft/internal/domain/shared/events"
)

var (
	eventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datecraft_domain_events_total",
		Help: "Domain events handed to the notification dispatcher.",
	}, []string{"event"})
	notificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datecraft_notifications_failed_total",
		Help: "Notification deliveries that failed and were suppressed.",
	})
)

// Dispatcher fans every booking/chat domain event out to the two parties
// through the Notifier port and records it in the outbox for broker
// publication. Nothing here may fail the transition that emitted the event:
// all errors are logged and swallowed.
type Dispatcher struct {
	Notifier policies.Notifier
	Outbox   outbox.Outbox
	Logger   *slog.Logger
}

func (d *Dispatcher) Dispatch(ctx context.Context, evs ...events.DomainEvent) {
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		eventsDispatched.WithLabelValues(ev.EventName()).Inc()
		d.record(ctx, ev)
		for _, n := range notificationsFor(ev) {
			d.send(ctx, n)
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, ev events.DomainEvent) {
	if d.Outbox == nil {
		return
	}
	rec, err := outbox.Encode(ev)
	if err == nil {
		err = d.Outbox.Add(ctx, rec)
	}
	if err != nil && d.Logger != nil {
		d.Logger.Error("outbox record failed", "event", ev.EventName(), "aggregate", ev.AggregateID(), "error", err)
	}
}

func (d *Dispatcher) send(ctx context.Context, n policies.Notification) {
	if d.Notifier == nil {
		return
	}
	if err := d.Notifier.Send(ctx, n); err != nil {
		notificationsFailed.Inc()
		if d.Logger != nil {
			d.Logger.Error("notification delivery failed", "type", n.Type, "recipient", n.RecipientID, "booking_id", n.BookingID, "error", err)
		}
	}
}

func notificationsFor(ev events.DomainEvent) []policies.Notification {
	switch e := ev.(type) {
	case domainbooking.BookingCreated:
		return []policies.Notification{
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.HostID,
				Summary: fmt.Sprintf("New booking request for %d guest(s), awaiting payment", e.Guests)},
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.GuestID,
				Summary: "Your booking was created and is awaiting payment confirmation"},
		}
	case domainbooking.PaymentConfirmed:
		return []policies.Notification{
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.HostID,
				Summary: "The guest confirmed payment; the booking is confirmed"},
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.GuestID,
				Summary: "Payment noted; your booking is confirmed"},
		}
	case domainbooking.BookingEdited:
		return []policies.Notification{
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.HostID,
				Summary: fmt.Sprintf("The booking was updated: %d guest(s)", e.Guests)},
		}
	case domainbooking.BookingCancelled:
		summary := fmt.Sprintf("Booking cancelled (%s refund): %s", refundLabel(e.Refund), e.Reason)
		return []policies.Notification{
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.HostID, Summary: summary},
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.GuestID, Summary: summary},
		}
	case domainbooking.BookingCompleted:
		return []policies.Notification{
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.HostID,
				Summary: "The event ended; the booking is completed"},
			{Type: e.EventName(), BookingID: string(e.BookingID), RecipientID: e.GuestID,
				Summary: "Hope you enjoyed it! The booking is completed"},
		}
	case domainchat.MessagePosted:
		return []policies.Notification{
			{Type: e.EventName(), BookingID: e.BookingID, RecipientID: e.RecipientID,
				Summary: "New message: " + e.Preview},
		}
	default:
		return nil
	}
}

func refundLabel(outcome domainbooking.RefundOutcome) string {
	switch outcome.Kind {
	case domainbooking.RefundFree:
		return "full"
	case domainbooking.RefundPartial:
		return fmt.Sprintf("%d%%", outcome.Percent)
	default:
		return "no"
	}
}

// LogNotifier is the default delivery sink: it writes the notification to
// the log. Real deployments plug email/push behind the same port.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, notification policies.Notification) error {
	if n.Logger != nil {
		n.Logger.Info("notification",
			"type", notification.Type,
			"recipient", notification.RecipientID,
			"booking_id", notification.BookingID,
			"summary", notification.Summary,
		)
	}
	return nil
}

var _ policies.Notifier = LogNotifier{}
