package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/consulting-platform/internal/http/handlers/common"
	"github.com/Leganyst/consulting-platform/internal/service"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// List GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	page, err := h.payments.List(c.Request.Context(), p, common.ParsePage(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Settlement POST /payments/settlement
// Колбэк шлюза; маршрут закрыт ролью admin.
func (h *PaymentHandler) Settlement(c *gin.Context) {
	var req service.SettlementInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.payments.ApplySettlement(c.Request.Context(), req); err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// Refund POST /payments/:id/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid payment id")
		return
	}

	if err := h.payments.Refund(c.Request.Context(), p, id); err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}
