package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
)

// SlotRegistry is the in-memory slot arena plus host blocked dates. One
// mutex serializes every claim, which makes the reserve race trivially
// exactly-one-winner; reads copy so callers never alias arena state.
type SlotRegistry struct {
	mu     sync.RWMutex
	slots  map[schedule.SlotID]*schedule.TimeSlot
	blocks map[schedule.BlockID]*schedule.BlockedDate
}

func NewSlotRegistry() *SlotRegistry {
	return &SlotRegistry{
		slots:  make(map[schedule.SlotID]*schedule.TimeSlot),
		blocks: make(map[schedule.BlockID]*schedule.BlockedDate),
	}
}

func (r *SlotRegistry) AddSlot(ctx context.Context, slot *schedule.TimeSlot) error {
	if slot == nil {
		return errors.New("memory: slot required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *slot
	r.slots[slot.ID] = &copied
	return nil
}

func (r *SlotRegistry) Slot(ctx context.Context, id schedule.SlotID) (*schedule.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[id]
	if !ok {
		return nil, schedule.ErrSlotNotFound
	}
	copied := *slot
	return &copied, nil
}

func (r *SlotRegistry) SlotsByOffer(ctx context.Context, offerID offer.OfferID) ([]*schedule.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*schedule.TimeSlot, 0)
	for _, slot := range r.slots {
		if slot.OfferID != offerID {
			continue
		}
		copied := *slot
		matches = append(matches, &copied)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Start.Before(matches[j].Start) })
	return matches, nil
}

// Reserve atomically claims the slot for the booking. Blocked-date and
// capacity checks happen under the same lock as the claim, so no interleave
// can produce a double booking.
func (r *SlotRegistry) Reserve(ctx context.Context, id schedule.SlotID, bookingID string, guests int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[id]
	if !ok {
		return schedule.ErrSlotNotFound
	}
	if r.dateBlockedLocked(slot.HostID, slot.Date()) {
		return schedule.ErrSlotUnavailable
	}
	return slot.Claim(bookingID, guests, now)
}

// Release is idempotent and only honors the booking that holds the claim.
func (r *SlotRegistry) Release(ctx context.Context, id schedule.SlotID, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[id]
	if !ok {
		return schedule.ErrSlotNotFound
	}
	slot.Release(bookingID)
	return nil
}

func (r *SlotRegistry) BlockDate(ctx context.Context, block *schedule.BlockedDate) error {
	if block == nil {
		return errors.New("memory: blocked date required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *block
	r.blocks[block.ID] = &copied
	return nil
}

func (r *SlotRegistry) UnblockDate(ctx context.Context, id schedule.BlockID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[id]; !ok {
		return schedule.ErrBlockNotFound
	}
	delete(r.blocks, id)
	return nil
}

func (r *SlotRegistry) BlockedDates(ctx context.Context, hostID offer.HostID) ([]*schedule.BlockedDate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*schedule.BlockedDate, 0)
	for _, block := range r.blocks {
		if block.HostID != hostID {
			continue
		}
		copied := *block
		matches = append(matches, &copied)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Date.Before(matches[j].Date) })
	return matches, nil
}

func (r *SlotRegistry) IsDateBlocked(ctx context.Context, hostID offer.HostID, date time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dateBlockedLocked(hostID, schedule.DateOnly(date)), nil
}

func (r *SlotRegistry) dateBlockedLocked(hostID offer.HostID, date time.Time) bool {
	for _, block := range r.blocks {
		if block.HostID == hostID && block.Date.Equal(date) {
			return true
		}
	}
	return false
}

var _ schedule.Registry = (*SlotRegistry)(nil)
