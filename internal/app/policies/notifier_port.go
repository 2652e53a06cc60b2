package policies

import "context"

// Notification is the payload handed to the delivery collaborator
// (email/push/in-app).
type Notification struct {
	Type        string `json:"type"`
	BookingID   string `json:"booking_id"`
	RecipientID string `json:"recipient_id"`
	Summary     string `json:"summary"`
}

// Notifier is the abstract delivery sink. Failures are best-effort: the
// dispatcher logs and suppresses them, never the triggering transition.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
