package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/consulting-platform/internal/http/handlers/common"
	"github.com/Leganyst/consulting-platform/internal/service"
)

type UserHandler struct {
	identity *service.IdentityService
}

func NewUserHandler(identity *service.IdentityService) *UserHandler {
	return &UserHandler{identity: identity}
}

// Register POST /users
// Заведение пользователя из внешнего провайдера идентификации; маршрут для админов.
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.identity.RegisterUser(c.Request.Context(), req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// Me GET /me
func (h *UserHandler) Me(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	profile, err := h.identity.GetProfile(c.Request.Context(), p.UserID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SetRole PUT /users/:id/role
func (h *UserHandler) SetRole(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid user id")
		return
	}

	var req service.SetRoleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.identity.SetRole(c.Request.Context(), p, id, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
