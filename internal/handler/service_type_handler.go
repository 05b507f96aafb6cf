package handler

import (
	"net/http"

	"officina/internal/middleware"
	"officina/internal/model"
	"officina/internal/service"
	"officina/pkg/pagination"
	"officina/pkg/response"

	"github.com/gin-gonic/gin"
)

type ServiceTypeHandler struct {
	serviceTypes service.ServiceTypeService
}

func NewServiceTypeHandler(serviceTypes service.ServiceTypeService) *ServiceTypeHandler {
	return &ServiceTypeHandler{serviceTypes: serviceTypes}
}

func (h *ServiceTypeHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/service-types")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	{
		group.GET("", h.ListServiceTypes)
		group.GET("/:id", h.GetServiceType)
		group.POST("", h.CreateServiceType)
		group.PUT("/:id", h.UpdateServiceType)
		group.DELETE("/:id", h.DeleteServiceType)
	}
}

// ListServiceTypes returns the service catalog
// @Summary      List service types
// @Tags         service-types
// @Security     BearerAuth
// @Produce      json
// @Param        category  query     string  false  "Category filter"
// @Param        active    query     bool    false  "Only active entries"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=[]service.ServiceTypeResponse}
// @Router       /api/service-types [get]
func (h *ServiceTypeHandler) ListServiceTypes(c *gin.Context) {
	p := pagination.Parse(c)
	list, total, err := h.serviceTypes.ListServiceTypes(c.Request.Context(), c.Query("category"), c.Query("active") == "true", p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, list, p.Page, p.Limit, total))
}

// @Summary      Get service type
// @Tags         service-types
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Service type ID"
// @Success      200  {object}  response.Response{data=service.ServiceTypeResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/service-types/{id} [get]
func (h *ServiceTypeHandler) GetServiceType(c *gin.Context) {
	st, err := h.serviceTypes.GetServiceType(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, st))
}

// @Summary      Create service type
// @Tags         service-types
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ServiceTypeRequest  true  "Service type"
// @Success      201      {object}  response.Response{data=service.ServiceTypeResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/service-types [post]
func (h *ServiceTypeHandler) CreateServiceType(c *gin.Context) {
	var req service.ServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	st, err := h.serviceTypes.CreateServiceType(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, st))
}

// @Summary      Update service type
// @Tags         service-types
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Service type ID"
// @Param        payload  body      service.ServiceTypeRequest  true  "Service type"
// @Success      200      {object}  response.Response{data=service.ServiceTypeResponse}
// @Router       /api/service-types/{id} [put]
func (h *ServiceTypeHandler) UpdateServiceType(c *gin.Context) {
	var req service.ServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	st, err := h.serviceTypes.UpdateServiceType(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, st))
}

// @Summary      Delete service type
// @Tags         service-types
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Service type ID"
// @Success      200  {object}  response.Response
// @Router       /api/service-types/{id} [delete]
func (h *ServiceTypeHandler) DeleteServiceType(c *gin.Context) {
	if err := h.serviceTypes.DeleteServiceType(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": c.Param("id")}))
}
