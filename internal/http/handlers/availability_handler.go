package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/consulting-platform/internal/http/handlers/common"
	"github.com/Leganyst/consulting-platform/internal/service"
)

// AvailabilityHandler — недельные окна консультанта.
type AvailabilityHandler struct {
	windows *service.AvailabilityService
}

func NewAvailabilityHandler(windows *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{windows: windows}
}

// List GET /providers/:id/windows
func (h *AvailabilityHandler) List(c *gin.Context) {
	providerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}

	windows, err := h.windows.ListWindows(c.Request.Context(), providerID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": windows})
}

// Add POST /providers/:id/windows
func (h *AvailabilityHandler) Add(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	providerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid provider id")
		return
	}

	var req service.WindowInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	window, err := h.windows.AddWindow(c.Request.Context(), p, providerID, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, window)
}

// Update PUT /windows/:id
func (h *AvailabilityHandler) Update(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid window id")
		return
	}

	var req service.WindowInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	window, err := h.windows.UpdateWindow(c.Request.Context(), p, id, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, window)
}

// Delete DELETE /windows/:id
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid window id")
		return
	}

	if err := h.windows.DeleteWindow(c.Request.Context(), p, id); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
