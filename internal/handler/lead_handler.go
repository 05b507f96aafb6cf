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

type LeadHandler struct {
	leads service.LeadService
}

func NewLeadHandler(leads service.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

func (h *LeadHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/leads", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.ListLeads)
}

// ListLeads returns the stored website submissions, newest first
// @Summary      List leads
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        kind   query     string  false  "contact, quote_request or booking"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]service.LeadResponse}
// @Router       /api/leads [get]
func (h *LeadHandler) ListLeads(c *gin.Context) {
	p := pagination.Parse(c)
	leads, total, err := h.leads.ListLeads(c.Request.Context(), c.Query("kind"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, leads, p.Page, p.Limit, total))
}
