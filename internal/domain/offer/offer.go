package offer

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrOfferNotFound = errors.New("offer: not found")
	ErrInvalidOffer  = errors.New("offer: title, host and positive guest limit required")
)

type OfferID string

type HostID string

// CancellationTier selects the refund schedule applied when a booking on
// this offer is cancelled. The tier is snapshotted onto the booking at
// creation time so later edits to the offer never change the deal.
type CancellationTier string

const (
	TierFlexible CancellationTier = "flexible"
	TierModerate CancellationTier = "moderate"
	TierStrict   CancellationTier = "strict"
)

func ParseTier(raw string) (CancellationTier, bool) {
	switch CancellationTier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierFlexible:
		return TierFlexible, true
	case TierModerate:
		return TierModerate, true
	case TierStrict:
		return TierStrict, true
	}
	return "", false
}

// Offer is a hostable experience. Only the fields the booking lifecycle
// needs are modelled here; presentation data lives with the catalog.
type Offer struct {
	ID               OfferID
	Host             HostID
	Title            string
	Location         string
	MaxGuests        int
	PricePerGuest    int64 // minor currency units
	CancellationTier CancellationTier
	CreatedAt        time.Time
}

type Repository interface {
	ByID(ctx context.Context, id OfferID) (*Offer, error)
	Save(ctx context.Context, offer *Offer) error
}

type CreateParams struct {
	ID               OfferID
	Host             HostID
	Title            string
	Location         string
	MaxGuests        int
	PricePerGuest    int64
	CancellationTier CancellationTier
	Now              time.Time
}

func New(params CreateParams) (*Offer, error) {
	if params.Host == "" || strings.TrimSpace(params.Title) == "" || params.MaxGuests <= 0 {
		return nil, ErrInvalidOffer
	}
	tier := params.CancellationTier
	if tier == "" {
		tier = TierModerate
	}
	return &Offer{
		ID:               params.ID,
		Host:             params.Host,
		Title:            strings.TrimSpace(params.Title),
		Location:         strings.TrimSpace(params.Location),
		MaxGuests:        params.MaxGuests,
		PricePerGuest:    params.PricePerGuest,
		CancellationTier: tier,
		CreatedAt:        params.Now.UTC(),
	}, nil
}
