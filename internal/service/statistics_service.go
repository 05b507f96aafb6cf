package service

import (
	"context"
	"fmt"
	"time"

	"officina/internal/model"
	"officina/internal/repository"
	"officina/internal/scheduling"
)

type DashboardResponse struct {
	Date                 string                    `json:"date"`
	AppointmentsToday    int64                     `json:"appointments_today"`
	AppointmentsByStatus map[string]int64          `json:"appointments_by_status"`
	QuotesByStatus       map[string]int64          `json:"quotes_by_status"`
	AcceptedQuotesTotal  string                    `json:"accepted_quotes_total"`
	ClientCount          int64                     `json:"client_count"`
	PendingLeads         int64                     `json:"pending_leads"`
	WeekLoad             []repository.DayLoad      `json:"week_load"`
	TopServices          []repository.ServiceUsage `json:"top_services"`
}

type StatisticsService interface {
	Dashboard(ctx context.Context) (*DashboardResponse, error)
}

type statisticsService struct {
	stats        repository.StatisticsRepository
	appointments repository.AppointmentRepository
	quotes       repository.QuoteRepository
	clients      repository.ClientRepository
	leads        repository.LeadRepository
	now          func() time.Time
}

func NewStatisticsService(
	stats repository.StatisticsRepository,
	appointments repository.AppointmentRepository,
	quotes repository.QuoteRepository,
	clients repository.ClientRepository,
	leads repository.LeadRepository,
) StatisticsService {
	return &statisticsService{
		stats:        stats,
		appointments: appointments,
		quotes:       quotes,
		clients:      clients,
		leads:        leads,
		now:          time.Now,
	}
}

// Dashboard aggregates the counters shown on the staff home page
func (s *statisticsService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	today := s.now()
	date := today.Format(scheduling.DateFormat)
	res := &DashboardResponse{
		Date:                 date,
		AppointmentsByStatus: map[string]int64{},
		QuotesByStatus:       map[string]int64{},
	}

	var err error
	if res.AppointmentsToday, err = s.appointments.CountOnDate(ctx, date); err != nil {
		return nil, fmt.Errorf("failed to count today's appointments: %w", err)
	}

	byStatus, err := s.appointments.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	for _, st := range []model.AppointmentStatus{model.AppointmentScheduled, model.AppointmentInProgress, model.AppointmentCompleted, model.AppointmentCancelled} {
		res.AppointmentsByStatus[string(st)] = byStatus[st]
	}

	quotes, err := s.quotes.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count quotes: %w", err)
	}
	for _, st := range []model.QuoteStatus{model.QuoteStatusDraft, model.QuoteStatusSent, model.QuoteStatusAccepted, model.QuoteStatusRejected} {
		res.QuotesByStatus[string(st)] = quotes[st]
	}

	accepted, err := s.quotes.SumTotalByStatus(ctx, model.QuoteStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to sum accepted quotes: %w", err)
	}
	res.AcceptedQuotesTotal = accepted.StringFixed(2)

	if res.ClientCount, err = s.clients.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}
	if res.PendingLeads, err = s.leads.CountPending(ctx); err != nil {
		return nil, fmt.Errorf("failed to count pending leads: %w", err)
	}

	weekEnd := today.AddDate(0, 0, 6).Format(scheduling.DateFormat)
	if res.WeekLoad, err = s.stats.WorkshopLoad(ctx, date, weekEnd); err != nil {
		return nil, err
	}
	if res.TopServices, err = s.stats.TopServices(ctx, 5); err != nil {
		return nil, err
	}
	return res, nil
}
