package handler

import (
	"net/http"

	"officina/internal/service"
	"officina/pkg/response"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the website forms. Routes are unauthenticated and rate limited by the caller.
type PublicHandler struct {
	appointments service.AppointmentService
	leads        service.LeadService
}

func NewPublicHandler(appointments service.AppointmentService, leads service.LeadService) *PublicHandler {
	return &PublicHandler{appointments: appointments, leads: leads}
}

func (h *PublicHandler) RegisterRoutes(router *gin.RouterGroup) {
	public := router.Group("/api/public")
	{
		public.GET("/slots", h.AvailableSlots)
		public.POST("/slots/hold", h.HoldSlot)
		public.DELETE("/slots/hold", h.ReleaseHold)
		public.POST("/bookings", h.SubmitBooking)
		public.POST("/contact", h.SubmitContact)
		public.POST("/quote-requests", h.SubmitQuoteRequest)
	}
}

// AvailableSlots lists the slots a visitor can book on a day
// @Summary      Free public slots
// @Tags         public
// @Produce      json
// @Param        date  query     string  true  "Day, YYYY-MM-DD"
// @Success      200   {object}  response.Response{data=service.SlotsResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/public/slots [get]
func (h *PublicHandler) AvailableSlots(c *gin.Context) {
	slots, err := h.appointments.AvailableSlots(c.Request.Context(), c.Query("date"), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, slots))
}

// HoldSlot reserves a slot while the visitor fills in the booking form
// @Summary      Hold a slot
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SlotHoldRequest  true  "Slot"
// @Success      201      {object}  response.Response{data=service.SlotHoldResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/public/slots/hold [post]
func (h *PublicHandler) HoldSlot(c *gin.Context) {
	var req service.SlotHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	hold, err := h.appointments.HoldSlot(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, hold))
}

// ReleaseHold frees a held slot when the visitor leaves the booking form
// @Summary      Release a slot hold
// @Tags         public
// @Produce      json
// @Param        date   query     string  true  "Day, YYYY-MM-DD"
// @Param        time   query     string  true  "Slot, HH:mm"
// @Param        token  query     string  true  "Hold token"
// @Success      200    {object}  response.Response
// @Failure      409    {object}  response.Response
// @Router       /api/public/slots/hold [delete]
func (h *PublicHandler) ReleaseHold(c *gin.Context) {
	var req service.SlotReleaseRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.appointments.ReleaseHold(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"date": req.Date, "time": req.Time}))
}

// SubmitBooking books a public slot
// @Summary      Book an appointment
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BookingRequest  true  "Booking"
// @Success      201      {object}  response.Response{data=service.BookingResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/public/bookings [post]
func (h *PublicHandler) SubmitBooking(c *gin.Context) {
	var req service.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.leads.SubmitBooking(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// @Summary      Contact form
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ContactRequest  true  "Message"
// @Success      201      {object}  response.Response{data=service.LeadResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/public/contact [post]
func (h *PublicHandler) SubmitContact(c *gin.Context) {
	var req service.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	lead, err := h.leads.SubmitContact(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, lead))
}

// @Summary      Quote request form
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        payload  body      service.QuoteRequestForm  true  "Request"
// @Success      201      {object}  response.Response{data=service.LeadResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/public/quote-requests [post]
func (h *PublicHandler) SubmitQuoteRequest(c *gin.Context) {
	var req service.QuoteRequestForm
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	lead, err := h.leads.SubmitQuoteRequest(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, lead))
}
