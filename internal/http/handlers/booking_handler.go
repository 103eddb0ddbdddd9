package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/http/handlers/common"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
	"github.com/Leganyst/consulting-platform/internal/service"
)

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type slotResponse struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func toSlots(ranges []calendar.TimeRange) []slotResponse {
	out := make([]slotResponse, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, slotResponse{StartsAt: r.Start, EndsAt: r.End})
	}
	return out
}

// CanBook GET /providers/:id/can-book?start=...&end=...
func (h *BookingHandler) CanBook(c *gin.Context) {
	providerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}
	start, err := common.ParseTimeQuery(c, "start")
	if err != nil || start == nil {
		common.RespondBadRequest(c, "start must be an RFC3339 timestamp")
		return
	}
	end, err := common.ParseTimeQuery(c, "end")
	if err != nil || end == nil {
		common.RespondBadRequest(c, "end must be an RFC3339 timestamp")
		return
	}

	decision, err := h.bookings.CanBook(c.Request.Context(), providerID, *start, *end)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// Create POST /bookings
func (h *BookingHandler) Create(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req service.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), p, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// Get GET /bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid booking id")
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), p, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// List GET /bookings?status=&from=&to=&provider_id=
func (h *BookingHandler) List(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var filter repository.BookingFilter
	if filter.ProviderID, err = common.ParseUUIDQuery(c, "provider_id"); err != nil {
		common.RespondBadRequest(c, "invalid provider_id")
		return
	}
	if filter.From, err = common.ParseTimeQuery(c, "from"); err != nil {
		common.RespondBadRequest(c, "from must be an RFC3339 timestamp")
		return
	}
	if filter.To, err = common.ParseTimeQuery(c, "to"); err != nil {
		common.RespondBadRequest(c, "to must be an RFC3339 timestamp")
		return
	}
	for _, s := range c.QueryArray("status") {
		status := model.BookingStatus(s)
		if !status.Valid() {
			common.RespondBadRequest(c, "unknown booking status "+s)
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	page, err := h.bookings.List(c.Request.Context(), p, filter, common.ParsePage(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Upcoming GET /bookings/upcoming
func (h *BookingHandler) Upcoming(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	page, err := h.bookings.Upcoming(c.Request.Context(), p, common.ParsePage(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Start POST /bookings/:id/start
func (h *BookingHandler) Start(c *gin.Context) {
	h.transition(c, h.bookings.Start)
}

// Complete POST /bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, h.bookings.Complete)
}

// Cancel POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"max=2000"`
	}
	// Тело необязательно.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	h.transition(c, func(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Booking, error) {
		return h.bookings.Cancel(ctx, p, id, req.Reason)
	})
}

type bookingTransition func(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Booking, error)

func (h *BookingHandler) transition(c *gin.Context, apply bookingTransition) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid booking id")
		return
	}

	booking, err := apply(c.Request.Context(), p, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// FreeSlots GET /providers/:id/slots?date=2006-01-02&slot_minutes=60
func (h *BookingHandler) FreeSlots(c *gin.Context) {
	providerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}
	date, err := time.Parse(time.DateOnly, c.Query("date"))
	if err != nil {
		common.RespondBadRequest(c, "date must be YYYY-MM-DD")
		return
	}
	minutes, err := strconv.Atoi(c.DefaultQuery("slot_minutes", "60"))
	if err != nil {
		common.RespondBadRequest(c, "slot_minutes must be an integer")
		return
	}

	slots, err := h.bookings.FreeSlots(c.Request.Context(), providerID, date, time.Duration(minutes)*time.Minute)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": toSlots(slots)})
}
