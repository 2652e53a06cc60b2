package dto

import "time"

// Booking is the transport view of a booking aggregate.
type Booking struct {
	ID                 string     `json:"id"`
	OfferID            string     `json:"offer_id"`
	SlotID             string     `json:"slot_id"`
	GuestID            string     `json:"guest_id"`
	HostID             string     `json:"host_id"`
	Guests             int        `json:"guests"`
	SpecialRequests    string     `json:"special_requests,omitempty"`
	Status             string     `json:"status"`
	Policy             string     `json:"policy"`
	EventStart         time.Time  `json:"event_start"`
	EventEnd           time.Time  `json:"event_end"`
	PaymentConfirmed   bool       `json:"payment_confirmed"`
	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	RefundKind         string     `json:"refund_kind,omitempty"`
	RefundPercent      int        `json:"refund_percent,omitempty"`
	ChannelID          string     `json:"channel_id"`
	CreatedAt          time.Time  `json:"created_at"`
}

type BookingList struct {
	Items []Booking `json:"items"`
}

type Offer struct {
	ID               string    `json:"id"`
	HostID           string    `json:"host_id"`
	Title            string    `json:"title"`
	Location         string    `json:"location,omitempty"`
	MaxGuests        int       `json:"max_guests"`
	PricePerGuest    int64     `json:"price_per_guest"`
	CancellationTier string    `json:"cancellation_tier"`
	CreatedAt        time.Time `json:"created_at"`
}

type TimeSlot struct {
	ID       string    `json:"id"`
	OfferID  string    `json:"offer_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Capacity int       `json:"capacity"`
	Booked   bool      `json:"booked"`
}

type TimeSlotList struct {
	Items []TimeSlot `json:"items"`
}

type BlockedDate struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type BlockedDateList struct {
	Items []BlockedDate `json:"items"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	SenderID  string    `json:"sender_id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

type ChatMessageList struct {
	Items []ChatMessage `json:"items"`
}
