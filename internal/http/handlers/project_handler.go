package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/http/handlers/common"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/service"
)

type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Tiers GET /tiers
func (h *ProjectHandler) Tiers(c *gin.Context) {
	tiers, err := h.projects.ListTiers(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": tiers})
}

// Purchase POST /projects
// Проект создаётся в pending, оплата подтверждается асинхронно.
func (h *ProjectHandler) Purchase(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req service.PurchaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, payment, err := h.projects.Purchase(c.Request.Context(), p, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project, "payment": payment})
}

// Get GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	h.apply(c, h.projects.Get, http.StatusOK)
}

// List GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	page, err := h.projects.List(c.Request.Context(), p, common.ParsePage(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// RecordProgress POST /projects/:id/progress
// Завершение проекта проверяется фоновой задачей, поэтому 202.
func (h *ProjectHandler) RecordProgress(c *gin.Context) {
	var req service.ProgressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	h.apply(c, func(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Project, error) {
		return h.projects.RecordProgress(ctx, p, id, req)
	}, http.StatusAccepted)
}

// Start POST /projects/:id/start
func (h *ProjectHandler) Start(c *gin.Context) {
	h.apply(c, h.projects.Start, http.StatusOK)
}

// Complete POST /projects/:id/complete
func (h *ProjectHandler) Complete(c *gin.Context) {
	h.apply(c, h.projects.Complete, http.StatusOK)
}

// Cancel POST /projects/:id/cancel
func (h *ProjectHandler) Cancel(c *gin.Context) {
	h.apply(c, h.projects.Cancel, http.StatusOK)
}

type projectAction func(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Project, error)

func (h *ProjectHandler) apply(c *gin.Context, action projectAction, status int) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid project id")
		return
	}

	project, err := action(c.Request.Context(), p, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(status, project)
}
