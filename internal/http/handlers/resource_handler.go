package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/consulting-platform/internal/http/handlers/common"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
	"github.com/Leganyst/consulting-platform/internal/service"
)

type ResourceHandler struct {
	resources *service.ResourceService
}

func NewResourceHandler(resources *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// List GET /resources?category_id=&tag=&file_type=&q=
func (h *ResourceHandler) List(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	if q := c.Query("q"); q != "" {
		page, err := h.resources.Search(c.Request.Context(), p, q, common.ParsePage(c))
		if err != nil {
			common.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
		return
	}

	filter := repository.ResourceFilter{
		Tag:      c.Query("tag"),
		FileType: model.ResourceFileType(c.Query("file_type")),
	}
	if filter.CategoryID, err = common.ParseUUIDQuery(c, "category_id"); err != nil {
		common.RespondBadRequest(c, "invalid category_id")
		return
	}

	page, err := h.resources.List(c.Request.Context(), p, filter, common.ParsePage(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get GET /resources/:id
func (h *ResourceHandler) Get(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid resource id")
		return
	}

	resource, err := h.resources.Get(c.Request.Context(), p, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resource)
}

// Create POST /resources
// sample — необязательные первые байты файла (base64) для сверки типа.
func (h *ResourceHandler) Create(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		service.ResourceInput
		Sample []byte `json:"sample"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	in := req.ResourceInput
	in.Head = req.Sample

	resource, err := h.resources.Create(c.Request.Context(), p, in)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resource)
}

// Rate POST /resources/:id/ratings
func (h *ResourceHandler) Rate(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid resource id")
		return
	}

	var req service.RateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	rating, err := h.resources.Rate(c.Request.Context(), p, id, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

// Stats GET /resources/:id/stats
func (h *ResourceHandler) Stats(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "invalid resource id")
		return
	}

	stats, err := h.resources.Stats(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Recommended GET /resources/recommended?limit=10
func (h *ResourceHandler) Recommended(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		common.RespondBadRequest(c, "limit must be an integer")
		return
	}

	items, err := h.resources.Recommended(c.Request.Context(), p, limit)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Categories GET /resource-categories
func (h *ResourceHandler) Categories(c *gin.Context) {
	items, err := h.resources.Categories(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// CreateCategory POST /resource-categories
func (h *ResourceHandler) CreateCategory(c *gin.Context) {
	p, err := common.CurrentPrincipal(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	category, err := h.resources.CreateCategory(c.Request.Context(), p, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}
