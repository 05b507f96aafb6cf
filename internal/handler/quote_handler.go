package handler

import (
	"encoding/json"
	"net/http"

	"officina/internal/middleware"
	"officina/internal/model"
	"officina/internal/repository"
	"officina/internal/service"
	"officina/pkg/pagination"
	"officina/pkg/response"

	"github.com/gin-gonic/gin"
)

type QuoteHandler struct {
	quoteService service.QuoteService
}

func NewQuoteHandler(quoteService service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

func (h *QuoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	quotes := router.Group("/api/quotes")
	quotes.Use(middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	{
		quotes.GET("", h.ListQuotes)
		quotes.GET("/:id", h.GetQuote)
		quotes.POST("", h.CreateQuote)
		quotes.POST("/preview", h.PreviewQuote)
		quotes.PUT("/:id", h.UpdateQuote)
		quotes.PATCH("/:id/status", h.UpdateQuoteStatus)
		quotes.DELETE("/:id", h.DeleteQuote)
	}
}

// ListQuotes returns a page of quotes, newest first
// @Summary      List quotes
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        client_id  query     string  false  "Client ID"
// @Param        status     query     string  false  "bozza, inviato, accettato or rifiutato"
// @Param        search     query     string  false  "Client name or plate"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]service.QuoteResponse}
// @Router       /api/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	clientID, ok := optionalUUID(c, "client_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.QuoteFilter{ClientID: clientID, Status: c.Query("status"), Search: c.Query("search")}

	quotes, total, err := h.quoteService.ListQuotes(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, quotes, p.Page, p.Limit, total))
}

// GetQuote returns a quote with its items and parts
// @Summary      Get quote
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/quotes/{id} [get]
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	quote, err := h.quoteService.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// PreviewQuote prices a quote without saving it
// @Summary      Preview quote totals
// @Description  Computes part prices, item totals, subtotal, tax and total for an unsaved quote
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.QuoteRequest  true  "Quote"
// @Success      200      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/quotes/preview [post]
func (h *QuoteHandler) PreviewQuote(c *gin.Context) {
	var req service.QuoteRequest
	// client_id is optional for a preview, so the binding tags are not enforced here
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		bindError(c, err)
		return
	}
	quote, err := h.quoteService.PreviewQuote(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// CreateQuote stores a quote; every derived amount is computed server side
// @Summary      Create quote
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.QuoteRequest  true  "Quote"
// @Success      201      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/quotes [post]
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	quote, err := h.quoteService.CreateQuote(c.Request.Context(), req, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, quote))
}

// UpdateQuote replaces a quote and its items
// @Summary      Update quote
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Quote ID"
// @Param        payload  body      service.QuoteRequest  true  "Quote"
// @Success      200      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/quotes/{id} [put]
func (h *QuoteHandler) UpdateQuote(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	quote, err := h.quoteService.UpdateQuote(c.Request.Context(), c.Param("id"), req, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// @Summary      Change quote status
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Quote ID"
// @Param        payload  body      service.QuoteStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/quotes/{id}/status [patch]
func (h *QuoteHandler) UpdateQuoteStatus(c *gin.Context) {
	var req service.QuoteStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	quote, err := h.quoteService.UpdateQuoteStatus(c.Request.Context(), c.Param("id"), req.Status, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// DeleteQuote removes a quote; linked appointments lose the reference
// @Summary      Delete quote
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/quotes/{id} [delete]
func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	if err := h.quoteService.DeleteQuote(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": c.Param("id")}))
}
