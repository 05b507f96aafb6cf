package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"officina/internal/model"
	"officina/internal/notification"
	"officina/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- DTOs ---

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" binding:"required"`
}

type QuoteRequestForm struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Phone    string   `json:"phone" binding:"required"`
	Plate    string   `json:"plate"`
	Model    string   `json:"model"`
	Services []string `json:"services"`
	Message  string   `json:"message"`
}

type BookingRequest struct {
	Name      string `json:"name" binding:"required"`
	Surname   string `json:"surname" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"required"`
	Plate     string `json:"plate" binding:"required"`
	Model     string `json:"model"`
	Date      string `json:"date" binding:"required"`
	Time      string `json:"time" binding:"required"`
	Message   string `json:"message"`
	HoldToken string `json:"hold_token"`
}

type LeadResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Notified  bool            `json:"notified"`
	CreatedAt string          `json:"created_at"`
}

type BookingResponse struct {
	Lead        LeadResponse        `json:"lead"`
	Appointment AppointmentResponse `json:"appointment"`
}

// --- Interface ---

type LeadService interface {
	SubmitContact(ctx context.Context, req ContactRequest) (*LeadResponse, error)
	SubmitQuoteRequest(ctx context.Context, req QuoteRequestForm) (*LeadResponse, error)
	SubmitBooking(ctx context.Context, req BookingRequest) (*BookingResponse, error)
	ListLeads(ctx context.Context, kind string, page, limit int) ([]LeadResponse, int64, error)
}

type leadService struct {
	leads        repository.LeadRepository
	clients      repository.ClientRepository
	appointments AppointmentService
	tx           repository.TransactionManager
	notifier     notification.Sender
	now          func() time.Time
	log          *zap.Logger
}

func NewLeadService(
	leads repository.LeadRepository,
	clients repository.ClientRepository,
	appointments AppointmentService,
	tx repository.TransactionManager,
	notifier notification.Sender,
	log *zap.Logger,
) LeadService {
	return &leadService{
		leads:        leads,
		clients:      clients,
		appointments: appointments,
		tx:           tx,
		notifier:     notifier,
		now:          time.Now,
		log:          log.Named("leads"),
	}
}

func toLeadResponse(l model.Lead) LeadResponse {
	resp := LeadResponse{
		ID:        l.ID.String(),
		Kind:      string(l.Kind),
		Name:      l.Name,
		Email:     l.Email,
		Phone:     l.Phone,
		Message:   l.Message,
		Notified:  l.Notified,
		CreatedAt: formatTime(l.CreatedAt),
	}
	if len(l.Payload) > 0 {
		resp.Payload = json.RawMessage(l.Payload)
	}
	return resp
}

// store persists the lead and then tries to notify the shop.
// A failed notification leaves notified=false and is not returned to the caller.
func (s *leadService) store(ctx context.Context, kind model.LeadKind, name, email, phone, message string, fields map[string]string) (*model.Lead, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lead payload: %w", err)
	}
	lead := &model.Lead{
		Kind:    kind,
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Phone:   strings.TrimSpace(phone),
		Message: strings.TrimSpace(message),
		Payload: datatypes.JSON(payload),
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}

	if s.notifier == nil {
		return lead, nil
	}
	err = s.notifier.SendFormSubmission(ctx, notification.FormSubmission{
		Kind:        string(kind),
		Name:        lead.Name,
		Email:       lead.Email,
		Phone:       lead.Phone,
		Message:     lead.Message,
		Fields:      fields,
		SubmittedAt: s.now(),
	})
	if err != nil {
		s.log.Warn("form notification failed", zap.String("lead_id", lead.ID.String()), zap.String("kind", string(kind)), zap.Error(err))
		return lead, nil
	}
	if err := s.leads.MarkNotified(ctx, lead.ID); err != nil {
		s.log.Warn("failed to mark lead notified", zap.String("lead_id", lead.ID.String()), zap.Error(err))
		return lead, nil
	}
	lead.Notified = true
	return lead, nil
}

func (s *leadService) SubmitContact(ctx context.Context, req ContactRequest) (*LeadResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, invalidf("message is required")
	}
	lead, err := s.store(ctx, model.LeadContact, req.Name, req.Email, req.Phone, req.Message, nil)
	if err != nil {
		return nil, err
	}
	resp := toLeadResponse(*lead)
	return &resp, nil
}

func (s *leadService) SubmitQuoteRequest(ctx context.Context, req QuoteRequestForm) (*LeadResponse, error) {
	fields := map[string]string{}
	if plate := NormalizePlate(req.Plate); plate != "" {
		fields["targa"] = plate
	}
	if m := strings.TrimSpace(req.Model); m != "" {
		fields["modello"] = m
	}
	if len(req.Services) > 0 {
		fields["servizi"] = strings.Join(req.Services, ", ")
	}
	lead, err := s.store(ctx, model.LeadQuoteRequest, req.Name, req.Email, req.Phone, req.Message, fields)
	if err != nil {
		return nil, err
	}
	resp := toLeadResponse(*lead)
	return &resp, nil
}

// SubmitBooking books a public slot for the client owning the plate, registering
// the client first when the plate is unknown
func (s *leadService) SubmitBooking(ctx context.Context, req BookingRequest) (*BookingResponse, error) {
	plate := NormalizePlate(req.Plate)
	if plate == "" {
		return nil, invalidf("plate is required")
	}

	var appointment *AppointmentResponse
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.clients.FindByPlate(txCtx, plate)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			client = &model.Client{
				Name:    strings.TrimSpace(req.Name),
				Surname: strings.TrimSpace(req.Surname),
				Email:   strings.TrimSpace(req.Email),
				Phone:   strings.TrimSpace(req.Phone),
				Plate:   plate,
				Model:   strings.TrimSpace(req.Model),
			}
			if err := s.clients.Create(txCtx, client); err != nil {
				return fmt.Errorf("failed to register client: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up client: %w", err)
		}

		appointment, err = s.appointments.BookPublic(txCtx, AppointmentRequest{
			ClientID:    client.ID.String(),
			ClientName:  strings.TrimSpace(req.Name + " " + req.Surname),
			ClientEmail: req.Email,
			Phone:       req.Phone,
			Plate:       plate,
			Model:       req.Model,
			Date:        req.Date,
			Time:        req.Time,
			Notes:       req.Message,
			HoldToken:   req.HoldToken,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	lead, err := s.store(ctx, model.LeadBooking, req.Name+" "+req.Surname, req.Email, req.Phone, req.Message, map[string]string{
		"targa":        plate,
		"modello":      strings.TrimSpace(req.Model),
		"data":         req.Date,
		"ora":          req.Time,
		"appuntamento": appointment.ID,
	})
	if err != nil {
		return nil, err
	}
	return &BookingResponse{Lead: toLeadResponse(*lead), Appointment: *appointment}, nil
}

func (s *leadService) ListLeads(ctx context.Context, kind string, page, limit int) ([]LeadResponse, int64, error) {
	switch model.LeadKind(kind) {
	case "", model.LeadContact, model.LeadQuoteRequest, model.LeadBooking:
	default:
		return nil, 0, invalidf("unknown lead kind %q", kind)
	}
	leads, total, err := s.leads.List(ctx, kind, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch leads: %w", err)
	}
	res := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		res = append(res, toLeadResponse(l))
	}
	return res, total, nil
}
