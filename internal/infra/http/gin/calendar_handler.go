package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"datecraft/internal/app/dto"
	domainoffer "datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
)

// CalendarHTTP exposes host-side offer publication and availability
// management.
type CalendarHTTP interface {
	CreateOffer(c *gin.Context)
	GetOffer(c *gin.Context)
	CreateSlot(c *gin.Context)
	ListSlots(c *gin.Context)
	BlockDate(c *gin.Context)
	UnblockDate(c *gin.Context)
	ListBlockedDates(c *gin.Context)
}

type CalendarHandler struct {
	Offers domainoffer.Repository
	Slots  schedule.Registry
	Logger *slog.Logger
	Now    func() time.Time
}

func (h CalendarHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h CalendarHandler) CreateOffer(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Title            string `json:"title"`
		Location         string `json:"location"`
		MaxGuests        int    `json:"max_guests"`
		PricePerGuest    int64  `json:"price_per_guest"`
		CancellationTier string `json:"cancellation_tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	tier := domainoffer.CancellationTier("")
	if req.CancellationTier != "" {
		parsed, ok := domainoffer.ParseTier(req.CancellationTier)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown cancellation_tier"})
			return
		}
		tier = parsed
	}
	off, err := domainoffer.New(domainoffer.CreateParams{
		ID:               domainoffer.OfferID(uuid.NewString()),
		Host:             domainoffer.HostID(p.ID),
		Title:            req.Title,
		Location:         req.Location,
		MaxGuests:        req.MaxGuests,
		PricePerGuest:    req.PricePerGuest,
		CancellationTier: tier,
		Now:              h.now(),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if err := h.Offers.Save(c.Request.Context(), off); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOfferDTO(off))
}

func (h CalendarHandler) GetOffer(c *gin.Context) {
	off, err := h.Offers.ByID(c.Request.Context(), domainoffer.OfferID(c.Param("id")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOfferDTO(off))
}

// CreateSlot publishes one bookable window on the host's own offer.
func (h CalendarHandler) CreateSlot(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Start    time.Time `json:"start"`
		End      time.Time `json:"end"`
		Capacity int       `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	off, err := h.Offers.ByID(c.Request.Context(), domainoffer.OfferID(c.Param("id")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if string(off.Host) != p.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	slot, err := schedule.NewSlot(schedule.SlotID(uuid.NewString()), off.ID, off.Host, req.Start, req.End, req.Capacity)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if err := h.Slots.AddSlot(c.Request.Context(), slot); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSlotDTO(slot))
}

func (h CalendarHandler) ListSlots(c *gin.Context) {
	slots, err := h.Slots.SlotsByOffer(c.Request.Context(), domainoffer.OfferID(c.Param("id")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	list := dto.TimeSlotList{Items: make([]dto.TimeSlot, 0, len(slots))}
	for _, s := range slots {
		list.Items = append(list.Items, toSlotDTO(s))
	}
	c.JSON(http.StatusOK, list)
}

// BlockDate excludes one calendar day from new reservations across all of
// the host's offers. A reason is mandatory.
func (h CalendarHandler) BlockDate(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Date   time.Time `json:"date"`
		Reason string    `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	block, err := schedule.NewBlockedDate(schedule.BlockID(uuid.NewString()), domainoffer.HostID(p.ID), req.Date, req.Reason, h.now())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if err := h.Slots.BlockDate(c.Request.Context(), block); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBlockDTO(block))
}

func (h CalendarHandler) UnblockDate(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	blocks, err := h.Slots.BlockedDates(c.Request.Context(), domainoffer.HostID(p.ID))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	id := schedule.BlockID(c.Param("id"))
	owned := false
	for _, b := range blocks {
		if b.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err := h.Slots.UnblockDate(c.Request.Context(), id); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h CalendarHandler) ListBlockedDates(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	blocks, err := h.Slots.BlockedDates(c.Request.Context(), domainoffer.HostID(p.ID))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	list := dto.BlockedDateList{Items: make([]dto.BlockedDate, 0, len(blocks))}
	for _, b := range blocks {
		list.Items = append(list.Items, toBlockDTO(b))
	}
	c.JSON(http.StatusOK, list)
}

func toOfferDTO(o *domainoffer.Offer) dto.Offer {
	return dto.Offer{
		ID:               string(o.ID),
		HostID:           string(o.Host),
		Title:            o.Title,
		Location:         o.Location,
		MaxGuests:        o.MaxGuests,
		PricePerGuest:    o.PricePerGuest,
		CancellationTier: string(o.CancellationTier),
		CreatedAt:        o.CreatedAt,
	}
}

func toSlotDTO(s *schedule.TimeSlot) dto.TimeSlot {
	return dto.TimeSlot{
		ID:       string(s.ID),
		OfferID:  string(s.OfferID),
		Start:    s.Start,
		End:      s.End,
		Capacity: s.Capacity,
		Booked:   s.Booked,
	}
}

func toBlockDTO(b *schedule.BlockedDate) dto.BlockedDate {
	return dto.BlockedDate{
		ID:        string(b.ID),
		Date:      b.Date,
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}
}

var _ CalendarHTTP = (*CalendarHandler)(nil)
