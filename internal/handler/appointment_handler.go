package handler

import (
	"net/http"

	"officina/internal/middleware"
	"officina/internal/model"
	"officina/internal/repository"
	"officina/internal/service"
	"officina/pkg/pagination"
	"officina/pkg/response"

	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	appointments service.AppointmentService
}

func NewAppointmentHandler(appointments service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

func (h *AppointmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/appointments")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	{
		group.GET("", h.ListAppointments)
		group.GET("/slots", h.AvailableSlots)
		group.GET("/:id", h.GetAppointment)
		group.POST("", h.CreateAppointment)
		group.PUT("/:id", h.UpdateAppointment)
		group.PATCH("/:id/status", h.ChangeStatus)
		group.POST("/:id/reopen", h.Reopen)
		group.DELETE("/:id", h.DeleteAppointment)
	}
}

// ListAppointments returns the calendar between two dates
// @Summary      List appointments
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        from       query     string  false  "First day, YYYY-MM-DD"
// @Param        to         query     string  false  "Last day, YYYY-MM-DD"
// @Param        status     query     string  false  "programmato, in_lavorazione, completato or annullato"
// @Param        client_id  query     string  false  "Client ID"
// @Param        search     query     string  false  "Client name or plate"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]service.AppointmentResponse}
// @Router       /api/appointments [get]
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	clientID, ok := optionalUUID(c, "client_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.AppointmentFilter{
		From:     c.Query("from"),
		To:       c.Query("to"),
		Status:   c.Query("status"),
		ClientID: clientID,
		Search:   c.Query("search"),
	}

	list, total, err := h.appointments.ListAppointments(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, list, p.Page, p.Limit, total))
}

// AvailableSlots lists the free calendar slots of a day
// @Summary      Free calendar slots
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        date  query     string  true  "Day, YYYY-MM-DD"
// @Success      200   {object}  response.Response{data=service.SlotsResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/appointments/slots [get]
func (h *AppointmentHandler) AvailableSlots(c *gin.Context) {
	slots, err := h.appointments.AvailableSlots(c.Request.Context(), c.Query("date"), false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, slots))
}

// @Summary      Get appointment
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  response.Response{data=service.AppointmentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/appointments/{id} [get]
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	a, err := h.appointments.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, a))
}

// CreateAppointment books any calendar slot
// @Summary      Create appointment
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AppointmentRequest  true  "Appointment"
// @Success      201      {object}  response.Response{data=service.AppointmentResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/appointments [post]
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req service.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, err := h.appointments.CreateAppointment(c.Request.Context(), req, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, a))
}

// UpdateAppointment changes the fields present in the payload
// @Summary      Update appointment
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Appointment ID"
// @Param        payload  body      service.UpdateAppointmentRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=service.AppointmentResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/appointments/{id} [put]
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var req service.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, err := h.appointments.UpdateAppointment(c.Request.Context(), c.Param("id"), req, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, a))
}

// ChangeStatus moves an appointment through the workshop flow
// @Summary      Change appointment status
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Appointment ID"
// @Param        payload  body      service.AppointmentStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.AppointmentResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/appointments/{id}/status [patch]
func (h *AppointmentHandler) ChangeStatus(c *gin.Context) {
	var req service.AppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, err := h.appointments.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, a))
}

// Reopen puts a recently completed job back in progress
// @Summary      Reopen appointment
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  response.Response{data=service.AppointmentResponse}
// @Failure      422  {object}  response.Response
// @Router       /api/appointments/{id}/reopen [post]
func (h *AppointmentHandler) Reopen(c *gin.Context) {
	a, err := h.appointments.Reopen(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, a))
}

// @Summary      Delete appointment
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/appointments/{id} [delete]
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	if err := h.appointments.DeleteAppointment(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": c.Param("id")}))
}
