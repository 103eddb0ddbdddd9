package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/consulting-platform/internal/http/handlers/common"
	"github.com/Leganyst/consulting-platform/internal/repository"
	"github.com/Leganyst/consulting-platform/internal/service"
)

type ProviderHandler struct {
	providers *service.ProviderService
	bookings  *service.BookingService
	ratings   *service.RatingService
}

func NewProviderHandler(
	providers *service.ProviderService,
	bookings *service.BookingService,
	ratings *service.RatingService,
) *ProviderHandler {
	return &ProviderHandler{providers: providers, bookings: bookings, ratings: ratings}
}

// Register POST /providers
func (h *ProviderHandler) Register(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req service.ProviderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	provider, err := h.providers.Register(c.Request.Context(), p, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, provider)
}

// List GET /providers?specialization=&available=true
func (h *ProviderHandler) List(c *gin.Context) {
	filter := repository.ProviderFilter{Specialization: c.Query("specialization")}
	if raw := c.Query("available"); raw != "" {
		only, err := strconv.ParseBool(raw)
		if err != nil {
			common.RespondBadRequest(c, "available must be a boolean")
			return
		}
		filter.OnlyAvailable = only
	}

	page, err := h.providers.List(c.Request.Context(), filter, common.ParsePage(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get GET /providers/:id
func (h *ProviderHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}

	provider, err := h.providers.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

// Update PUT /providers/:id
func (h *ProviderHandler) Update(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}

	var req service.ProviderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	provider, err := h.providers.UpdateProfile(c.Request.Context(), p, id, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

// SetAvailability PUT /providers/:id/availability
// При выключении в ответе — список отменённых броней.
func (h *ProviderHandler) SetAvailability(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}

	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "available is required")
		return
	}

	cancelled, err := h.bookings.SetProviderAvailability(c.Request.Context(), p, id, *req.Available)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available":          *req.Available,
		"cancelled_bookings": cancelled,
	})
}

// Stats GET /providers/:id/stats
func (h *ProviderHandler) Stats(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}

	if _, err := h.providers.Get(c.Request.Context(), id); err != nil {
		common.RespondError(c, err)
		return
	}
	stats, err := h.ratings.StatsFor(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Ratings GET /providers/:id/ratings
func (h *ProviderHandler) Ratings(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}

	ratings, err := h.ratings.List(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": ratings})
}

// Rate POST /providers/:id/ratings
func (h *ProviderHandler) Rate(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}

	var req service.RateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	rating, err := h.ratings.Rate(c.Request.Context(), p, id, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}
