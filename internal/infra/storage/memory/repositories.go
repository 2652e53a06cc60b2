package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"datecraft/internal/app/services/payment"
	domainbooking "datecraft/internal/domain/booking"
	domainchat "datecraft/internal/domain/chat"
	domainoffer "datecraft/internal/domain/offer"
)

// OfferRepository is an in-memory offer store.
type OfferRepository struct {
	mu    sync.RWMutex
	items map[domainoffer.OfferID]*domainoffer.Offer
}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{items: make(map[domainoffer.OfferID]*domainoffer.Offer)}
}

func (r *OfferRepository) ByID(ctx context.Context, id domainoffer.OfferID) (*domainoffer.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	off, ok := r.items[id]
	if !ok {
		return nil, domainoffer.ErrOfferNotFound
	}
	copied := *off
	return &copied, nil
}

func (r *OfferRepository) Save(ctx context.Context, off *domainoffer.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *off
	r.items[off.ID] = &copied
	return nil
}

// BookingRepository stores bookings in memory. Save bumps the version the
// way the mongo repository does, so the two backends behave alike.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	copied := *b
	copied.ClearEvents()
	return &copied, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Version++
	copied := *b
	copied.ClearEvents()
	r.items[b.ID] = &copied
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.GuestID == guestID })
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.HostID == hostID })
}

func (r *BookingRepository) ListActive(ctx context.Context) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return !b.Status.Terminal() })
}

func (r *BookingRepository) list(match func(*domainbooking.Booking) bool) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if !match(b) {
			continue
		}
		copied := *b
		copied.ClearEvents()
		matches = append(matches, &copied)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	return matches, nil
}

// ChannelRepository keeps conversation channels partitioned per channel id.
// Update serializes all mutation of one channel behind a dedicated lock;
// different channels never contend.
type ChannelRepository struct {
	mu    sync.RWMutex
	items map[domainchat.ChannelID]*channelEntry
}

type channelEntry struct {
	mu      sync.Mutex
	channel *domainchat.Channel
}

func NewChannelRepository() *ChannelRepository {
	return &ChannelRepository{items: make(map[domainchat.ChannelID]*channelEntry)}
}

func (r *ChannelRepository) Create(ctx context.Context, channel *domainchat.Channel) error {
	if channel == nil {
		return errors.New("memory: channel required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[channel.ID]; ok {
		return errors.New("memory: channel already exists")
	}
	r.items[channel.ID] = &channelEntry{channel: cloneChannel(channel)}
	return nil
}

func (r *ChannelRepository) ByID(ctx context.Context, id domainchat.ChannelID) (*domainchat.Channel, error) {
	r.mu.RLock()
	entry, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domainchat.ErrChannelNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneChannel(entry.channel), nil
}

func (r *ChannelRepository) Update(ctx context.Context, id domainchat.ChannelID, fn func(*domainchat.Channel) error) (*domainchat.Channel, error) {
	r.mu.RLock()
	entry, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domainchat.ErrChannelNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	working := cloneChannel(entry.channel)
	if err := fn(working); err != nil {
		return nil, err
	}
	entry.channel = working
	return cloneChannel(working), nil
}

func cloneChannel(c *domainchat.Channel) *domainchat.Channel {
	copied := *c
	copied.Messages = append([]domainchat.Message(nil), c.Messages...)
	copied.LastRead = make(map[string]int64, len(c.LastRead))
	for k, v := range c.LastRead {
		copied.LastRead[k] = v
	}
	copied.RestoreSeq(c.NextSeq())
	return &copied
}

// AttestationStore is the in-memory payment attestation audit log.
type AttestationStore struct {
	mu    sync.Mutex
	items map[domainbooking.BookingID][]payment.Attestation
}

func NewAttestationStore() *AttestationStore {
	return &AttestationStore{items: make(map[domainbooking.BookingID][]payment.Attestation)}
}

func (s *AttestationStore) Append(ctx context.Context, attestation payment.Attestation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(attestation.ConfirmerID) == "" {
		return errors.New("memory: confirmer id required")
	}
	s.items[attestation.BookingID] = append(s.items[attestation.BookingID], attestation)
	return nil
}

func (s *AttestationStore) ListByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]payment.Attestation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.Attestation(nil), s.items[bookingID]...), nil
}

var _ payment.Store = (*AttestationStore)(nil)
