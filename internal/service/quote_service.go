package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"officina/internal/model"
	"officina/internal/pricing"
	"officina/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SparePartRequest struct {
	Code      string `json:"code"`
	Name      string `json:"name" binding:"required"`
	Brand     string `json:"brand"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`   // below 1 counts as 1
	UnitPrice string `json:"unit_price"` // decimal string
}

type QuoteItemRequest struct {
	ServiceTypeID   string             `json:"service_type_id"`
	ServiceName     string             `json:"service_name"`
	ServiceCategory string             `json:"service_category"`
	Description     string             `json:"description"`
	LaborPrice      string             `json:"labor_price"` // defaults to the service type hourly rate
	LaborHours      string             `json:"labor_hours"`
	Parts           []SparePartRequest `json:"parts" binding:"dive"`
}

type QuoteRequest struct {
	ClientID   string             `json:"client_id" binding:"required"`
	ClientName string             `json:"client_name"`
	Phone      string             `json:"phone"`
	Plate      string             `json:"plate"`
	Model      string             `json:"model"`
	Date       string             `json:"date"` // YYYY-MM-DD, defaults to today
	Status     string             `json:"status"`
	Items      []QuoteItemRequest `json:"items" binding:"dive"`
	LaborPrice string             `json:"labor_price"` // extra labor hourly rate
	LaborHours string             `json:"labor_hours"` // extra labor hours
	TaxRate    *string            `json:"tax_rate"`    // percent; active tax rule when omitted
	Notes      string             `json:"notes"`
}

type QuoteStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SparePartResponse struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	FinalPrice string `json:"final_price"`
}

type QuoteItemResponse struct {
	ID                string              `json:"id"`
	ServiceTypeID     *string             `json:"service_type_id"`
	ServiceName       string              `json:"service_name"`
	ServiceCategory   string              `json:"service_category"`
	ServiceLaborPrice string              `json:"service_labor_price"`
	Description       string              `json:"description"`
	LaborPrice        string              `json:"labor_price"`
	LaborHours        string              `json:"labor_hours"`
	Parts             []SparePartResponse `json:"parts"`
	TotalPrice        string              `json:"total_price"`
}

type QuoteResponse struct {
	ID         string              `json:"id"`
	ClientID   string              `json:"client_id"`
	ClientName string              `json:"client_name"`
	Phone      string              `json:"phone"`
	Plate      string              `json:"plate"`
	Model      string              `json:"model"`
	Date       string              `json:"date"`
	Status     string              `json:"status"`
	Items      []QuoteItemResponse `json:"items"`
	LaborPrice string              `json:"labor_price"`
	LaborHours string              `json:"labor_hours"`
	TaxRate    string              `json:"tax_rate"`
	PartsTotal string              `json:"parts_total"`
	ExtraLabor string              `json:"extra_labor"`
	Subtotal   string              `json:"subtotal"`
	TaxAmount  string              `json:"tax_amount"`
	Total      string              `json:"total"`
	Notes      string              `json:"notes"`
	CreatedAt  string              `json:"created_at"`
}

// --- Interface ---

type QuoteService interface {
	ListQuotes(ctx context.Context, filter repository.QuoteFilter, page, limit int) ([]QuoteResponse, int64, error)
	GetQuote(ctx context.Context, id string) (*QuoteResponse, error)
	PreviewQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
	CreateQuote(ctx context.Context, req QuoteRequest, actor *uuid.UUID) (*QuoteResponse, error)
	UpdateQuote(ctx context.Context, id string, req QuoteRequest, actor *uuid.UUID) (*QuoteResponse, error)
	UpdateQuoteStatus(ctx context.Context, id string, status string, actor *uuid.UUID) (*QuoteResponse, error)
	DeleteQuote(ctx context.Context, id string, actor *uuid.UUID) error
}

type quoteService struct {
	quotes       repository.QuoteRepository
	clients      repository.ClientRepository
	serviceTypes repository.ServiceTypeRepository
	appointments repository.AppointmentRepository
	taxes        TaxService
	tx           repository.TransactionManager
	audit        auditTrail
	now          func() time.Time
}

func NewQuoteService(
	quotes repository.QuoteRepository,
	clients repository.ClientRepository,
	serviceTypes repository.ServiceTypeRepository,
	appointments repository.AppointmentRepository,
	taxes TaxService,
	tx repository.TransactionManager,
	auditRepo repository.AuditRepository,
) QuoteService {
	return &quoteService{
		quotes:       quotes,
		clients:      clients,
		serviceTypes: serviceTypes,
		appointments: appointments,
		taxes:        taxes,
		tx:           tx,
		audit:        auditTrail{repo: auditRepo},
		now:          time.Now,
	}
}

// --- Mapping ---

func toQuoteResponse(q model.Quote) QuoteResponse {
	totals := pricing.QuoteTotals(itemsOf(q), q.LaborPrice, q.LaborHours, q.TaxRate)

	items := make([]QuoteItemResponse, 0, len(q.Items))
	for _, it := range q.Items {
		parts := make([]SparePartResponse, 0, len(it.Parts))
		for _, p := range it.Parts {
			parts = append(parts, SparePartResponse{
				ID:         p.ID.String(),
				Code:       p.Code,
				Name:       p.Name,
				Brand:      p.Brand,
				Category:   p.Category,
				Quantity:   p.Quantity,
				UnitPrice:  p.UnitPrice.StringFixed(2),
				FinalPrice: p.FinalPrice.StringFixed(2),
			})
		}
		var stID *string
		if it.ServiceTypeID != nil {
			s := it.ServiceTypeID.String()
			stID = &s
		}
		items = append(items, QuoteItemResponse{
			ID:                it.ID.String(),
			ServiceTypeID:     stID,
			ServiceName:       it.ServiceName,
			ServiceCategory:   it.ServiceCategory,
			ServiceLaborPrice: it.ServiceLaborPrice.StringFixed(2),
			Description:       it.Description,
			LaborPrice:        it.LaborPrice.StringFixed(2),
			LaborHours:        it.LaborHours.StringFixed(2),
			Parts:             parts,
			TotalPrice:        it.TotalPrice.StringFixed(2),
		})
	}

	return QuoteResponse{
		ID:         q.ID.String(),
		ClientID:   q.ClientID.String(),
		ClientName: q.ClientName,
		Phone:      q.Phone,
		Plate:      q.Plate,
		Model:      q.Model,
		Date:       q.Date.Format("2006-01-02"),
		Status:     string(q.Status),
		Items:      items,
		LaborPrice: q.LaborPrice.StringFixed(2),
		LaborHours: q.LaborHours.StringFixed(2),
		TaxRate:    q.TaxRate.StringFixed(2),
		PartsTotal: totals.PartsTotal.StringFixed(2),
		ExtraLabor: totals.ExtraLabor.StringFixed(2),
		Subtotal:   q.Subtotal.StringFixed(2),
		TaxAmount:  q.TaxAmount.StringFixed(2),
		Total:      q.Total.StringFixed(2),
		Notes:      q.Notes,
		CreatedAt:  formatTime(q.CreatedAt),
	}
}

func itemsOf(q model.Quote) []pricing.Item {
	items := make([]pricing.Item, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, pricing.ItemFromModel(it))
	}
	return items
}

// --- Building ---

// buildQuote turns a request into a priced quote tree. Client data is looked up
// when a client id is given; preview requests may omit it.
func (s *quoteService) buildQuote(ctx context.Context, req QuoteRequest, requireClient bool) (*model.Quote, error) {
	q := &model.Quote{
		ClientName: strings.TrimSpace(req.ClientName),
		Phone:      strings.TrimSpace(req.Phone),
		Plate:      NormalizePlate(req.Plate),
		Model:      strings.TrimSpace(req.Model),
		Notes:      req.Notes,
		Status:     model.QuoteStatusDraft,
	}

	if req.ClientID != "" || requireClient {
		clientID, err := parseID(req.ClientID, "client")
		if err != nil {
			return nil, err
		}
		client, err := s.clients.FindByID(ctx, clientID)
		if err != nil {
			return nil, lookupErr("client", err)
		}
		q.ClientID = client.ID
		if q.ClientName == "" {
			q.ClientName = client.FullName()
		}
		if q.Phone == "" {
			q.Phone = client.Phone
		}
		if q.Plate == "" {
			q.Plate = client.Plate
		}
		if q.Model == "" {
			q.Model = client.Model
		}
	}

	if req.Status != "" {
		status, err := model.ParseQuoteStatus(req.Status)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		q.Status = status
	}

	q.Date = s.now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		d, err := parseDate(req.Date, "quote")
		if err != nil {
			return nil, err
		}
		q.Date = d
	}

	var err error
	if q.LaborPrice, err = parseMoney(req.LaborPrice, "labor_price"); err != nil {
		return nil, err
	}
	if q.LaborHours, err = parseMoney(req.LaborHours, "labor_hours"); err != nil {
		return nil, err
	}

	if req.TaxRate != nil && *req.TaxRate != "" {
		rate, err := decimal.NewFromString(*req.TaxRate)
		if err != nil {
			return nil, invalidf("tax_rate must be a number, got %q", *req.TaxRate)
		}
		q.TaxRate = rate
	} else {
		rate, err := s.taxes.ActiveRate(ctx, q.Date)
		if err != nil {
			return nil, err
		}
		q.TaxRate = rate
	}

	for i, itemReq := range req.Items {
		item, err := s.buildItem(ctx, i, itemReq)
		if err != nil {
			return nil, err
		}
		q.Items = append(q.Items, item)
	}

	pricing.ApplyToQuote(q)
	return q, nil
}

func (s *quoteService) buildItem(ctx context.Context, position int, req QuoteItemRequest) (model.QuoteItem, error) {
	item := model.QuoteItem{
		Position:        position,
		ServiceName:     strings.TrimSpace(req.ServiceName),
		ServiceCategory: strings.TrimSpace(req.ServiceCategory),
		Description:     req.Description,
	}

	stID, err := parseOptionalID(req.ServiceTypeID, "service type")
	if err != nil {
		return item, err
	}
	if stID != nil {
		st, err := s.serviceTypes.FindByID(ctx, *stID)
		if err != nil {
			return item, lookupErr("service type", err)
		}
		item.ServiceTypeID = &st.ID
		item.ServiceLaborPrice = st.LaborPrice
		if item.ServiceName == "" {
			item.ServiceName = st.Name
		}
		if item.ServiceCategory == "" {
			item.ServiceCategory = st.Category
		}
	}
	if item.ServiceName == "" {
		return item, invalidf("item %d: service_name or service_type_id is required", position+1)
	}

	if req.LaborPrice == "" {
		item.LaborPrice = item.ServiceLaborPrice
	} else if item.LaborPrice, err = parseMoney(req.LaborPrice, "labor_price"); err != nil {
		return item, err
	}
	if item.LaborHours, err = parseMoney(req.LaborHours, "labor_hours"); err != nil {
		return item, err
	}

	for _, pr := range req.Parts {
		unit, err := parseMoney(pr.UnitPrice, "unit_price")
		if err != nil {
			return item, err
		}
		item.Parts = append(item.Parts, model.SparePart{
			Code:      strings.TrimSpace(pr.Code),
			Name:      strings.TrimSpace(pr.Name),
			Brand:     strings.TrimSpace(pr.Brand),
			Category:  strings.TrimSpace(pr.Category),
			Quantity:  pr.Quantity,
			UnitPrice: unit,
		})
	}
	return item, nil
}

// --- Implementation ---

func (s *quoteService) ListQuotes(ctx context.Context, filter repository.QuoteFilter, page, limit int) ([]QuoteResponse, int64, error) {
	quotes, total, err := s.quotes.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	res := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		res = append(res, toQuoteResponse(q))
	}
	return res, total, nil
}

func (s *quoteService) GetQuote(ctx context.Context, id string) (*QuoteResponse, error) {
	quoteID, err := parseID(id, "quote")
	if err != nil {
		return nil, err
	}
	q, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return nil, lookupErr("quote", err)
	}
	resp := toQuoteResponse(*q)
	return &resp, nil
}

// PreviewQuote prices a request without storing anything
func (s *quoteService) PreviewQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	q, err := s.buildQuote(ctx, req, false)
	if err != nil {
		return nil, err
	}
	resp := toQuoteResponse(*q)
	return &resp, nil
}

func (s *quoteService) CreateQuote(ctx context.Context, req QuoteRequest, actor *uuid.UUID) (*QuoteResponse, error) {
	var quoteID uuid.UUID
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		q, err := s.buildQuote(txCtx, req, true)
		if err != nil {
			return err
		}
		if err := s.quotes.Create(txCtx, q); err != nil {
			return fmt.Errorf("failed to create quote: %w", err)
		}
		quoteID = q.ID
		return s.audit.record(txCtx, actor, model.ActionCreateQuote, q.ID.String(), q.ClientName+" "+q.Total.StringFixed(2), map[string]string{
			"client_id": q.ClientID.String(),
			"total":     q.Total.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuote(ctx, quoteID.String())
}

func (s *quoteService) UpdateQuote(ctx context.Context, id string, req QuoteRequest, actor *uuid.UUID) (*QuoteResponse, error) {
	quoteID, err := parseID(id, "quote")
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.quotes.FindByID(txCtx, quoteID)
		if err != nil {
			return lookupErr("quote", err)
		}
		if req.Status == "" {
			req.Status = string(existing.Status)
		}
		q, err := s.buildQuote(txCtx, req, true)
		if err != nil {
			return err
		}
		q.ID = existing.ID
		q.CreatedAt = existing.CreatedAt
		if err := s.quotes.Update(txCtx, q); err != nil {
			return fmt.Errorf("failed to update quote: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionUpdateQuote, q.ID.String(), q.ClientName+" "+q.Total.StringFixed(2), map[string]string{
			"previous_total": existing.Total.StringFixed(2),
			"total":          q.Total.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuote(ctx, id)
}

func (s *quoteService) UpdateQuoteStatus(ctx context.Context, id string, status string, actor *uuid.UUID) (*QuoteResponse, error) {
	quoteID, err := parseID(id, "quote")
	if err != nil {
		return nil, err
	}
	next, err := model.ParseQuoteStatus(status)
	if err != nil {
		return nil, invalidf("%v", err)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		q, err := s.quotes.FindByID(txCtx, quoteID)
		if err != nil {
			return lookupErr("quote", err)
		}
		if err := s.quotes.UpdateStatus(txCtx, quoteID, next); err != nil {
			return fmt.Errorf("failed to update quote status: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionUpdateQuoteStatus, q.ID.String(), q.ClientName, map[string]string{
			"from": string(q.Status),
			"to":   string(next),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuote(ctx, id)
}

// DeleteQuote removes the quote tree and detaches any appointment that referenced it
func (s *quoteService) DeleteQuote(ctx context.Context, id string, actor *uuid.UUID) error {
	quoteID, err := parseID(id, "quote")
	if err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		q, err := s.quotes.FindByID(txCtx, quoteID)
		if err != nil {
			return lookupErr("quote", err)
		}
		if err := s.appointments.ClearQuote(txCtx, quoteID); err != nil {
			return fmt.Errorf("failed to detach appointments: %w", err)
		}
		if err := s.quotes.Delete(txCtx, quoteID); err != nil {
			return fmt.Errorf("failed to delete quote: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionDeleteQuote, q.ID.String(), q.ClientName, map[string]string{"deleted_id": id})
	})
}
