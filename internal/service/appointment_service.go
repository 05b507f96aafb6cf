package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"officina/internal/cache"
	"officina/internal/model"
	"officina/internal/notification"
	"officina/internal/repository"
	"officina/internal/scheduling"
	"officina/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type AppointmentRequest struct {
	ClientID     string  `json:"client_id"`
	ClientName   string  `json:"client_name"`
	ClientEmail  string  `json:"client_email" binding:"omitempty,email"`
	Phone        string  `json:"phone"`
	Plate        string  `json:"plate"`
	Model        string  `json:"model"`
	Date         string  `json:"date" binding:"required"` // YYYY-MM-DD
	Time         string  `json:"time" binding:"required"` // HH:mm
	Duration     float64 `json:"duration"`                // hours, default 1
	PartsOrdered bool    `json:"parts_ordered"`
	QuoteID      string  `json:"quote_id"`
	Notes        string  `json:"notes"`
	HoldToken    string  `json:"hold_token"`
}

// UpdateAppointmentRequest changes only the fields that are set
type UpdateAppointmentRequest struct {
	ClientName   *string  `json:"client_name"`
	ClientEmail  *string  `json:"client_email" binding:"omitempty,email"`
	Phone        *string  `json:"phone"`
	Plate        *string  `json:"plate"`
	Model        *string  `json:"model"`
	Date         *string  `json:"date"`
	Time         *string  `json:"time"`
	Duration     *float64 `json:"duration"`
	PartsOrdered *bool    `json:"parts_ordered"`
	QuoteID      *string  `json:"quote_id"` // empty string detaches the quote
	Notes        *string  `json:"notes"`
}

type AppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SlotHoldRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// SlotReleaseRequest identifies a hold the visitor gives up
type SlotReleaseRequest struct {
	Date  string `form:"date" json:"date" binding:"required"`
	Time  string `form:"time" json:"time" binding:"required"`
	Token string `form:"token" json:"token" binding:"required"`
}

type SlotHoldResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type SlotsResponse struct {
	Date      string   `json:"date"`
	Available []string `json:"available"`
	Catalog   []string `json:"catalog"`
}

type WorkSessionResponse struct {
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at"`
}

type AppointmentResponse struct {
	ID           string                `json:"id"`
	ClientID     *string               `json:"client_id"`
	ClientName   string                `json:"client_name"`
	ClientEmail  string                `json:"client_email"`
	Phone        string                `json:"phone"`
	Plate        string                `json:"plate"`
	Model        string                `json:"model"`
	Date         string                `json:"date"`
	Time         string                `json:"time"`
	Duration     float64               `json:"duration"`
	Status       string                `json:"status"`
	PartsOrdered bool                  `json:"parts_ordered"`
	QuoteID      *string               `json:"quote_id"`
	Notes        string                `json:"notes"`
	WorkSessions []WorkSessionResponse `json:"work_sessions,omitempty"`
	CreatedAt    string                `json:"created_at"`
}

// --- Interface ---

type AppointmentService interface {
	ListAppointments(ctx context.Context, filter repository.AppointmentFilter, page, limit int) ([]AppointmentResponse, int64, error)
	GetAppointment(ctx context.Context, id string) (*AppointmentResponse, error)
	AvailableSlots(ctx context.Context, date string, public bool) (*SlotsResponse, error)
	HoldSlot(ctx context.Context, req SlotHoldRequest) (*SlotHoldResponse, error)
	ReleaseHold(ctx context.Context, req SlotReleaseRequest) error
	CreateAppointment(ctx context.Context, req AppointmentRequest, actor *uuid.UUID) (*AppointmentResponse, error)
	BookPublic(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error)
	UpdateAppointment(ctx context.Context, id string, req UpdateAppointmentRequest, actor *uuid.UUID) (*AppointmentResponse, error)
	ChangeStatus(ctx context.Context, id string, status string, actor *uuid.UUID) (*AppointmentResponse, error)
	Reopen(ctx context.Context, id string, actor *uuid.UUID) (*AppointmentResponse, error)
	DeleteAppointment(ctx context.Context, id string, actor *uuid.UUID) error
}

// EventPublisher pushes calendar changes to connected clients
type EventPublisher interface {
	Publish(event websocket.Event)
}

// AppointmentSettings are the scheduling knobs of AppointmentService
type AppointmentSettings struct {
	PublicCatalog   scheduling.Catalog
	CalendarCatalog scheduling.Catalog
	HoldTTL         time.Duration
	ReopenWindow    time.Duration
	ReminderLead    time.Duration
	Location        *time.Location
	Now             func() time.Time
}

type appointmentService struct {
	appointments repository.AppointmentRepository
	clients      repository.ClientRepository
	quotes       repository.QuoteRepository
	tx           repository.TransactionManager
	audit        auditTrail
	holds        cache.SlotHolds
	events       EventPublisher
	notifier     notification.Sender
	settings     AppointmentSettings
	log          *zap.Logger
}

func NewAppointmentService(
	appointments repository.AppointmentRepository,
	clients repository.ClientRepository,
	quotes repository.QuoteRepository,
	tx repository.TransactionManager,
	auditRepo repository.AuditRepository,
	holds cache.SlotHolds,
	events EventPublisher,
	notifier notification.Sender,
	settings AppointmentSettings,
	log *zap.Logger,
) AppointmentService {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.Location == nil {
		settings.Location = time.Local
	}
	return &appointmentService{
		appointments: appointments,
		clients:      clients,
		quotes:       quotes,
		tx:           tx,
		audit:        auditTrail{repo: auditRepo},
		holds:        holds,
		events:       events,
		notifier:     notifier,
		settings:     settings,
		log:          log.Named("appointments"),
	}
}

// --- Mapping ---

func toAppointmentResponse(a model.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:           a.ID.String(),
		ClientName:   a.ClientName,
		ClientEmail:  a.ClientEmail,
		Phone:        a.Phone,
		Plate:        a.Plate,
		Model:        a.Model,
		Date:         a.Date,
		Time:         a.Time,
		Duration:     a.Duration,
		Status:       string(a.Status),
		PartsOrdered: a.PartsOrdered,
		Notes:        a.Notes,
		CreatedAt:    formatTime(a.CreatedAt),
	}
	if a.ClientID != nil {
		s := a.ClientID.String()
		resp.ClientID = &s
	}
	if a.QuoteID != nil {
		s := a.QuoteID.String()
		resp.QuoteID = &s
	}
	for _, ws := range a.WorkSessions {
		sr := WorkSessionResponse{StartedAt: formatTime(ws.StartedAt)}
		if ws.EndedAt != nil {
			e := formatTime(*ws.EndedAt)
			sr.EndedAt = &e
		}
		resp.WorkSessions = append(resp.WorkSessions, sr)
	}
	return resp
}

// --- Helpers ---

func validateSlot(date, slot string) error {
	if err := scheduling.ValidateDate(date); err != nil {
		return invalidf("%v", err)
	}
	if err := scheduling.ValidateTime(slot); err != nil {
		return invalidf("%v", err)
	}
	return nil
}

// checkSlotFree loads the day's bookings and rejects (date, slot) when a live
// appointment other than self occupies it
func (s *appointmentService) checkSlotFree(ctx context.Context, date, slot string, self *uuid.UUID) error {
	day, err := s.appointments.ListByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}
	others := day[:0]
	for _, a := range day {
		if self != nil && a.ID == *self {
			continue
		}
		others = append(others, a)
	}
	return scheduling.ValidateSlotRequest(date, slot, scheduling.BookingsFrom(others))
}

// claimHold consumes the caller's hold, or makes sure nobody else holds the slot.
// The hold store does not roll back, so callers run it as the last step of their transaction.
func (s *appointmentService) claimHold(ctx context.Context, date, slot, token string) error {
	if s.holds == nil {
		return nil
	}
	if token != "" {
		err := s.holds.Confirm(ctx, date, slot, token)
		if errors.Is(err, cache.ErrHoldNotFound) || errors.Is(err, cache.ErrTokenMismatch) {
			return conflictf("%v", err)
		}
		return err
	}
	held, err := s.holds.IsHeld(ctx, date, slot)
	if err != nil {
		return fmt.Errorf("failed to check slot hold: %w", err)
	}
	if held {
		return &scheduling.SlotConflictError{Date: date, Time: slot}
	}
	return nil
}

func (s *appointmentService) checkQuoteLink(ctx context.Context, quoteID uuid.UUID, self *uuid.UUID) error {
	if _, err := s.quotes.FindByID(ctx, quoteID); err != nil {
		return lookupErr("quote", err)
	}
	linked, err := s.appointments.FindByQuoteID(ctx, quoteID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check quote link: %w", err)
	}
	if self == nil || linked.ID != *self {
		return conflictf("quote %s is already linked to appointment %s", quoteID, linked.ID)
	}
	return nil
}

// publish pushes a calendar event once the surrounding transaction, if any, has committed
func (s *appointmentService) publish(ctx context.Context, eventType string, a model.Appointment) {
	if s.events == nil {
		return
	}
	event := websocket.Event{Type: eventType, Date: a.Date, Data: toAppointmentResponse(a)}
	repository.AfterCommit(ctx, func() { s.events.Publish(event) })
}

func (s *appointmentService) scheduleReminder(ctx context.Context, a model.Appointment) {
	repository.AfterCommit(ctx, func() { s.sendReminder(ctx, a) })
}

// sendReminder hands a reminder to the notifier; failures are logged only
func (s *appointmentService) sendReminder(ctx context.Context, a model.Appointment) {
	if s.notifier == nil || a.ClientEmail == "" || a.Status == model.AppointmentCancelled {
		return
	}
	sendAt, err := notification.ReminderTime(a.Date, a.Time, s.settings.ReminderLead, s.settings.Now(), s.settings.Location)
	if err != nil {
		s.log.Warn("cannot compute reminder time", zap.String("appointment_id", a.ID.String()), zap.Error(err))
		return
	}
	err = s.notifier.SendAppointmentReminder(ctx, notification.AppointmentReminder{
		AppointmentID: a.ID.String(),
		ClientName:    a.ClientName,
		Email:         a.ClientEmail,
		Plate:         a.Plate,
		Date:          a.Date,
		Time:          a.Time,
		SendAt:        sendAt,
	})
	if err != nil {
		s.log.Warn("failed to schedule reminder", zap.String("appointment_id", a.ID.String()), zap.Error(err))
	}
}

// --- Queries ---

func (s *appointmentService) ListAppointments(ctx context.Context, filter repository.AppointmentFilter, page, limit int) ([]AppointmentResponse, int64, error) {
	if filter.Status != "" {
		if _, err := model.ParseAppointmentStatus(filter.Status); err != nil {
			return nil, 0, invalidf("%v", err)
		}
	}
	list, total, err := s.appointments.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch appointments: %w", err)
	}
	res := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		res = append(res, toAppointmentResponse(a))
	}
	return res, total, nil
}

func (s *appointmentService) GetAppointment(ctx context.Context, id string) (*AppointmentResponse, error) {
	appointmentID, err := parseID(id, "appointment")
	if err != nil {
		return nil, err
	}
	a, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, lookupErr("appointment", err)
	}
	resp := toAppointmentResponse(*a)
	return &resp, nil
}

// AvailableSlots lists the free times of a day. Public callers get the public
// catalog and do not see slots someone is holding.
func (s *appointmentService) AvailableSlots(ctx context.Context, date string, public bool) (*SlotsResponse, error) {
	if err := scheduling.ValidateDate(date); err != nil {
		return nil, invalidf("%v", err)
	}
	catalog := s.settings.CalendarCatalog
	if public {
		catalog = s.settings.PublicCatalog
	}

	day, err := s.appointments.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	available := scheduling.AvailableSlots(date, catalog, scheduling.BookingsFrom(day))

	if public && s.holds != nil {
		free := available[:0]
		for _, slot := range available {
			held, err := s.holds.IsHeld(ctx, date, slot)
			if err != nil {
				return nil, fmt.Errorf("failed to check slot hold: %w", err)
			}
			if !held {
				free = append(free, slot)
			}
		}
		available = free
	}

	return &SlotsResponse{Date: date, Available: available, Catalog: catalog.Slots()}, nil
}

// HoldSlot reserves a public slot for a short time; the returned token must accompany the booking
func (s *appointmentService) HoldSlot(ctx context.Context, req SlotHoldRequest) (*SlotHoldResponse, error) {
	if s.holds == nil {
		return nil, conflictf("slot holds are not enabled")
	}
	if err := validateSlot(req.Date, req.Time); err != nil {
		return nil, err
	}
	if !s.settings.PublicCatalog.Contains(req.Time) {
		return nil, invalidf("time %s is not bookable online", req.Time)
	}
	if err := s.checkSlotFree(ctx, req.Date, req.Time, nil); err != nil {
		return nil, err
	}

	token, err := s.holds.Hold(ctx, req.Date, req.Time, s.settings.HoldTTL)
	if errors.Is(err, cache.ErrSlotHeld) {
		return nil, &scheduling.SlotConflictError{Date: req.Date, Time: req.Time}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hold slot: %w", err)
	}

	if s.events != nil {
		s.events.Publish(websocket.Event{Type: websocket.EventSlotHeld, Date: req.Date, Data: map[string]string{"time": req.Time}})
	}
	return &SlotHoldResponse{
		Date:      req.Date,
		Time:      req.Time,
		Token:     token,
		ExpiresAt: formatTime(s.settings.Now().Add(s.settings.HoldTTL)),
	}, nil
}

// ReleaseHold gives a held slot back before its TTL runs out. A hold that already
// expired or was used counts as released; someone else's token is a conflict.
func (s *appointmentService) ReleaseHold(ctx context.Context, req SlotReleaseRequest) error {
	if s.holds == nil {
		return conflictf("slot holds are not enabled")
	}
	if err := validateSlot(req.Date, req.Time); err != nil {
		return err
	}
	err := s.holds.Release(ctx, req.Date, req.Time, req.Token)
	switch {
	case errors.Is(err, cache.ErrHoldNotFound):
		return nil
	case errors.Is(err, cache.ErrTokenMismatch):
		return conflictf("%v", err)
	case err != nil:
		return fmt.Errorf("failed to release slot hold: %w", err)
	}

	if s.events != nil {
		s.events.Publish(websocket.Event{Type: websocket.EventSlotReleased, Date: req.Date, Data: map[string]string{"time": req.Time}})
	}
	return nil
}

// --- Commands ---

func (s *appointmentService) CreateAppointment(ctx context.Context, req AppointmentRequest, actor *uuid.UUID) (*AppointmentResponse, error) {
	return s.create(ctx, req, actor, nil)
}

// BookPublic creates an appointment from the public site, restricted to the public catalog
func (s *appointmentService) BookPublic(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error) {
	return s.create(ctx, req, nil, &s.settings.PublicCatalog)
}

func (s *appointmentService) create(ctx context.Context, req AppointmentRequest, actor *uuid.UUID, catalog *scheduling.Catalog) (*AppointmentResponse, error) {
	if err := validateSlot(req.Date, req.Time); err != nil {
		return nil, err
	}
	if catalog != nil && !catalog.Contains(req.Time) {
		return nil, invalidf("time %s is not bookable online", req.Time)
	}
	if req.Duration < 0 {
		return nil, invalidf("duration must not be negative")
	}

	a := model.Appointment{
		ClientName:   strings.TrimSpace(req.ClientName),
		ClientEmail:  strings.TrimSpace(req.ClientEmail),
		Phone:        strings.TrimSpace(req.Phone),
		Plate:        NormalizePlate(req.Plate),
		Model:        strings.TrimSpace(req.Model),
		Date:         req.Date,
		Time:         req.Time,
		Duration:     req.Duration,
		Status:       model.AppointmentScheduled,
		PartsOrdered: req.PartsOrdered,
		Notes:        req.Notes,
	}
	if a.Duration == 0 {
		a.Duration = 1
	}

	clientID, err := parseOptionalID(req.ClientID, "client")
	if err != nil {
		return nil, err
	}
	quoteID, err := parseOptionalID(req.QuoteID, "quote")
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if clientID != nil {
			client, err := s.clients.FindByID(txCtx, *clientID)
			if err != nil {
				return lookupErr("client", err)
			}
			a.ClientID = &client.ID
			if a.ClientName == "" {
				a.ClientName = client.FullName()
			}
			if a.ClientEmail == "" {
				a.ClientEmail = client.Email
			}
			if a.Phone == "" {
				a.Phone = client.Phone
			}
			if a.Plate == "" {
				a.Plate = client.Plate
			}
			if a.Model == "" {
				a.Model = client.Model
			}
		}
		if a.ClientName == "" {
			return invalidf("client_name or client_id is required")
		}
		if quoteID != nil {
			if err := s.checkQuoteLink(txCtx, *quoteID, nil); err != nil {
				return err
			}
			a.QuoteID = quoteID
		}

		if err := s.checkSlotFree(txCtx, a.Date, a.Time, nil); err != nil {
			return err
		}
		if err := s.appointments.Create(txCtx, &a); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		if err := s.audit.record(txCtx, actor, model.ActionCreateAppointment, a.ID.String(), a.ClientName+" "+a.Date+" "+a.Time, req); err != nil {
			return err
		}
		return s.claimHold(txCtx, a.Date, a.Time, req.HoldToken)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, websocket.EventAppointmentCreated, a)
	s.scheduleReminder(ctx, a)

	resp := toAppointmentResponse(a)
	return &resp, nil
}

func (s *appointmentService) UpdateAppointment(ctx context.Context, id string, req UpdateAppointmentRequest, actor *uuid.UUID) (*AppointmentResponse, error) {
	appointmentID, err := parseID(id, "appointment")
	if err != nil {
		return nil, err
	}

	var a *model.Appointment
	var moved bool
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.appointments.FindByID(txCtx, appointmentID)
		if err != nil {
			return lookupErr("appointment", err)
		}
		a = found

		date, slot := a.Date, a.Time
		if req.Date != nil {
			date = *req.Date
		}
		if req.Time != nil {
			slot = *req.Time
		}
		moved = date != a.Date || slot != a.Time
		if moved {
			if err := validateSlot(date, slot); err != nil {
				return err
			}
			if a.Status != model.AppointmentCancelled {
				if err := s.checkSlotFree(txCtx, date, slot, &a.ID); err != nil {
					return err
				}
				if err := s.claimHold(txCtx, date, slot, ""); err != nil {
					return err
				}
			}
			a.Date, a.Time = date, slot
		}

		if req.ClientName != nil {
			a.ClientName = strings.TrimSpace(*req.ClientName)
		}
		if req.ClientEmail != nil {
			a.ClientEmail = strings.TrimSpace(*req.ClientEmail)
		}
		if req.Phone != nil {
			a.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Plate != nil {
			a.Plate = NormalizePlate(*req.Plate)
		}
		if req.Model != nil {
			a.Model = strings.TrimSpace(*req.Model)
		}
		if req.Duration != nil {
			if *req.Duration <= 0 {
				return invalidf("duration must be positive")
			}
			a.Duration = *req.Duration
		}
		if req.PartsOrdered != nil {
			a.PartsOrdered = *req.PartsOrdered
		}
		if req.Notes != nil {
			a.Notes = *req.Notes
		}
		if req.QuoteID != nil {
			quoteID, err := parseOptionalID(*req.QuoteID, "quote")
			if err != nil {
				return err
			}
			if quoteID != nil {
				if err := s.checkQuoteLink(txCtx, *quoteID, &a.ID); err != nil {
					return err
				}
			}
			a.QuoteID = quoteID
		}

		if err := s.appointments.Update(txCtx, a); err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionUpdateAppointment, a.ID.String(), a.ClientName+" "+a.Date+" "+a.Time, req)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, websocket.EventAppointmentUpdated, *a)
	if moved {
		s.scheduleReminder(ctx, *a)
	}

	resp := toAppointmentResponse(*a)
	return &resp, nil
}

// ChangeStatus moves an appointment along programmato -> in_lavorazione -> completato,
// or to annullato from a non-terminal state, and keeps the work sessions in step
func (s *appointmentService) ChangeStatus(ctx context.Context, id string, status string, actor *uuid.UUID) (*AppointmentResponse, error) {
	appointmentID, err := parseID(id, "appointment")
	if err != nil {
		return nil, err
	}
	next, err := model.ParseAppointmentStatus(status)
	if err != nil {
		return nil, invalidf("%v", err)
	}

	var a *model.Appointment
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.appointments.FindByID(txCtx, appointmentID)
		if err != nil {
			return lookupErr("appointment", err)
		}
		a = found
		previous := a.Status
		if err := scheduling.Transition(previous, next); err != nil {
			return err
		}

		now := s.settings.Now()
		switch next {
		case model.AppointmentInProgress:
			if err := s.appointments.StartSession(txCtx, &model.WorkSession{AppointmentID: a.ID, StartedAt: now}); err != nil {
				return fmt.Errorf("failed to start work session: %w", err)
			}
		case model.AppointmentCompleted, model.AppointmentCancelled:
			if err := s.appointments.CloseOpenSessions(txCtx, a.ID, now); err != nil {
				return fmt.Errorf("failed to close work session: %w", err)
			}
		}

		a.Status = next
		if err := s.appointments.Update(txCtx, a); err != nil {
			return fmt.Errorf("failed to update appointment status: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionChangeAppointmentStatus, a.ID.String(), a.ClientName, map[string]string{
			"from": string(previous),
			"to":   string(next),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, websocket.EventAppointmentUpdated, *a)
	return s.GetAppointment(ctx, id)
}

// Reopen puts a completed appointment back in progress when its last work
// session ended within the reopen window
func (s *appointmentService) Reopen(ctx context.Context, id string, actor *uuid.UUID) (*AppointmentResponse, error) {
	appointmentID, err := parseID(id, "appointment")
	if err != nil {
		return nil, err
	}

	var a *model.Appointment
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.appointments.FindByID(txCtx, appointmentID)
		if err != nil {
			return lookupErr("appointment", err)
		}
		a = found

		session, err := s.appointments.LatestSession(txCtx, a.ID)
		if err != nil {
			return fmt.Errorf("failed to load work session: %w", err)
		}
		var endedAt *time.Time
		if session != nil {
			endedAt = session.EndedAt
		}
		if err := scheduling.CheckReopen(a.Status, endedAt, s.settings.Now(), s.settings.ReopenWindow); err != nil {
			return err
		}

		// The closed session stays as the record of the earlier completion.
		if err := s.appointments.StartSession(txCtx, &model.WorkSession{AppointmentID: a.ID, StartedAt: s.settings.Now()}); err != nil {
			return fmt.Errorf("failed to start work session: %w", err)
		}
		a.Status = model.AppointmentInProgress
		if err := s.appointments.Update(txCtx, a); err != nil {
			return fmt.Errorf("failed to reopen appointment: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionReopenAppointment, a.ID.String(), a.ClientName, map[string]string{
			"session_ended_at": formatTime(*endedAt),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, websocket.EventAppointmentUpdated, *a)
	return s.GetAppointment(ctx, id)
}

func (s *appointmentService) DeleteAppointment(ctx context.Context, id string, actor *uuid.UUID) error {
	appointmentID, err := parseID(id, "appointment")
	if err != nil {
		return err
	}

	var a *model.Appointment
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.appointments.FindByID(txCtx, appointmentID)
		if err != nil {
			return lookupErr("appointment", err)
		}
		a = found
		if err := s.appointments.Delete(txCtx, appointmentID); err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionDeleteAppointment, a.ID.String(), a.ClientName+" "+a.Date+" "+a.Time, map[string]string{"deleted_id": id})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, websocket.EventAppointmentDeleted, *a)
	return nil
}
