package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingservice "datecraft/internal/app/services/booking"
	domainbooking "datecraft/internal/domain/booking"
	domainchat "datecraft/internal/domain/chat"
	domainoffer "datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
)

// respondDomainError maps domain errors onto HTTP statuses. Conflicts with
// current state are 409, capacity violations 422, authorization failures 403
// and malformed input 400.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainoffer.ErrOfferNotFound),
		errors.Is(err, schedule.ErrSlotNotFound),
		errors.Is(err, schedule.ErrBlockNotFound),
		errors.Is(err, domainchat.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

	case errors.Is(err, domainbooking.ErrNotGuest),
		errors.Is(err, domainbooking.ErrNotParty),
		errors.Is(err, domainchat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})

	case errors.Is(err, schedule.ErrCapacityExceeded):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, schedule.ErrSlotUnavailable),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domainbooking.ErrEditWindowClosed),
		errors.Is(err, domainbooking.ErrEventNotOver),
		errors.Is(err, domainchat.ErrChannelClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, domainbooking.ErrInvalidGuests),
		errors.Is(err, domainbooking.ErrReasonRequired),
		errors.Is(err, domainchat.ErrEmptyContent),
		errors.Is(err, domainoffer.ErrInvalidOffer),
		errors.Is(err, schedule.ErrInvalidSlot),
		errors.Is(err, schedule.ErrBlockReason),
		errors.Is(err, bookingservice.ErrGuestIsHost),
		errors.Is(err, bookingservice.ErrSlotOffer):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
