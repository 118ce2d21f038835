package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/internal/service"
	"github.com/gin-gonic/gin"
)

type ResourceHandler struct {
	resourceService service.ResourceService
}

func NewResourceHandler(resourceService service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

// ListResources serves GET /resources?type=&search=&date=
func (h *ResourceHandler) ListResources(c *gin.Context) {
	var filter entity.ResourceFilter
	if t := strings.TrimSpace(c.Query("type")); t != "" {
		resourceType, err := entity.ParseResourceType(t)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Type = resourceType
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	date := entity.Date(strings.TrimSpace(c.Query("date")))

	resources, err := h.resourceService.ListResources(c.Request.Context(), filter, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    resources,
		Meta:    gin.H{"count": len(resources)},
	})
}

func (h *ResourceHandler) GetResource(c *gin.Context) {
	resource, err := h.resourceService.GetResource(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", resource)
}

func (h *ResourceHandler) CreateResource(c *gin.Context) {
	var req service.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resource, err := h.resourceService.CreateResource(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, "resource created", resource)
}

func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	var update entity.ResourceUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resource, err := h.resourceService.UpdateResource(c.Request.Context(), c.Param("id"), &update)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "resource updated", resource)
}

func (h *ResourceHandler) DeleteResource(c *gin.Context) {
	if err := h.resourceService.DeleteResource(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "resource deleted", nil)
}

// UploadImage expects a multipart form with the file in the "image" field.
func (h *ResourceHandler) UploadImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", entity.ErrResourceImageMissing, err))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	resource, err := h.resourceService.UploadImage(c.Request.Context(), c.Param("id"), file)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "image uploaded", resource)
}

func (h *ResourceHandler) GetResourcesWithBookings(c *gin.Context) {
	resources, err := h.resourceService.GetResourcesWithBookings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", resources)
}
