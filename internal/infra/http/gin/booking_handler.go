package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"datecraft/internal/app/dto"
	bookingservice "datecraft/internal/app/services/booking"
	domainbooking "datecraft/internal/domain/booking"
	domainoffer "datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
)

// BookingHTTP exposes the booking lifecycle endpoints.
type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	ConfirmPayment(c *gin.Context)
	Edit(c *gin.Context)
	Cancel(c *gin.Context)
	ListMine(c *gin.Context)
	ListHosting(c *gin.Context)
}

type BookingHandler struct {
	Service *bookingservice.Service
	Logger  *slog.Logger
}

// Create reserves the requested slot and opens the booking in pending.
func (h BookingHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		OfferID         string `json:"offer_id"`
		SlotID          string `json:"slot_id"`
		Guests          int    `json:"guests"`
		SpecialRequests string `json:"special_requests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(req.OfferID) == "" || strings.TrimSpace(req.SlotID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offer_id and slot_id are required"})
		return
	}
	b, err := h.Service.Create(c.Request.Context(), bookingservice.CreateParams{
		OfferID:         domainoffer.OfferID(req.OfferID),
		SlotID:          schedule.SlotID(req.SlotID),
		GuestID:         p.ID,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingDTO(b))
}

func (h BookingHandler) Get(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	b, err := h.Service.Get(c.Request.Context(), domainbooking.BookingID(c.Param("id")), p.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingDTO(b))
}

// ConfirmPayment records the guest's manual attestation; repeats are
// idempotent and return the unchanged booking.
func (h BookingHandler) ConfirmPayment(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	b, err := h.Service.ConfirmPayment(c.Request.Context(), domainbooking.BookingID(c.Param("id")), p.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingDTO(b))
}

func (h BookingHandler) Edit(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Guests          *int    `json:"guests"`
		SpecialRequests *string `json:"special_requests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Guests == nil && req.SpecialRequests == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to edit"})
		return
	}
	b, err := h.Service.Edit(c.Request.Context(), domainbooking.BookingID(c.Param("id")), p.ID, bookingservice.EditParams{
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingDTO(b))
}

// Cancel requires a non-empty reason and returns the evaluated refund.
func (h BookingHandler) Cancel(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	b, err := h.Service.RequestCancellation(c.Request.Context(), domainbooking.BookingID(c.Param("id")), p.ID, req.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingDTO(b))
}

func (h BookingHandler) ListMine(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	items, err := h.Service.ListByGuest(c.Request.Context(), p.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingList(items))
}

func (h BookingHandler) ListHosting(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	items, err := h.Service.ListByHost(c.Request.Context(), p.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingList(items))
}

func toBookingDTO(b *domainbooking.Booking) dto.Booking {
	out := dto.Booking{
		ID:                 string(b.ID),
		OfferID:            string(b.OfferID),
		SlotID:             string(b.SlotID),
		GuestID:            b.GuestID,
		HostID:             b.HostID,
		Guests:             b.Guests,
		SpecialRequests:    b.SpecialRequests,
		Status:             string(b.Status),
		Policy:             string(b.Policy),
		EventStart:         b.EventStart,
		EventEnd:           b.EventEnd,
		PaymentConfirmed:   b.PaymentConfirmed,
		CancellationReason: b.CancellationReason,
		RefundKind:         string(b.Refund.Kind),
		RefundPercent:      b.Refund.Percent,
		ChannelID:          b.ChannelID,
		CreatedAt:          b.CreatedAt,
	}
	if b.PaymentConfirmed {
		at := b.PaymentConfirmedAt
		out.PaymentConfirmedAt = &at
	}
	return out
}

func toBookingList(items []*domainbooking.Booking) dto.BookingList {
	list := dto.BookingList{Items: make([]dto.Booking, 0, len(items))}
	for _, b := range items {
		list.Items = append(list.Items, toBookingDTO(b))
	}
	return list
}

var _ BookingHTTP = (*BookingHandler)(nil)
