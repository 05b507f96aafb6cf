package repository

import (
	"context"
	"errors"
	"time"

	"officina/internal/model"
	"officina/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentFilter narrows the calendar listing. Dates are yyyy-MM-dd and inclusive.
type AppointmentFilter struct {
	From     string
	To       string
	Status   string
	ClientID *uuid.UUID
	Search   string
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Update(ctx context.Context, appointment *model.Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	FindByQuoteID(ctx context.Context, quoteID uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter, page, limit int) ([]model.Appointment, int64, error)
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
	ClearQuote(ctx context.Context, quoteID uuid.UUID) error
	CountByStatus(ctx context.Context) (map[model.AppointmentStatus]int64, error)
	CountOnDate(ctx context.Context, date string) (int64, error)

	StartSession(ctx context.Context, session *model.WorkSession) error
	CloseOpenSessions(ctx context.Context, appointmentID uuid.UUID, endedAt time.Time) error
	LatestSession(ctx context.Context, appointmentID uuid.UUID) (*model.WorkSession, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	return GetDB(ctx, r.db).Omit("WorkSessions").Create(appointment).Error
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	return GetDB(ctx, r.db).Omit("WorkSessions").Save(appointment).Error
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("appointment_id = ?", id).Delete(&model.WorkSession{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Appointment{}).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := GetDB(ctx, r.db).
		Preload("WorkSessions", func(db *gorm.DB) *gorm.DB { return db.Order("started_at ASC") }).
		First(&appointment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByQuoteID(ctx context.Context, quoteID uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := GetDB(ctx, r.db).First(&appointment, "quote_id = ?", quoteID).Error; err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter, page, limit int) ([]model.Appointment, int64, error) {
	var appointments []model.Appointment
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Appointment{})
	if filter.From != "" {
		query = query.Where("date >= ?", filter.From)
	}
	if filter.To != "" {
		query = query.Where("date <= ?", filter.To)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("LOWER(client_name) LIKE ? OR LOWER(plate) LIKE ?", p, p)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("date ASC, time ASC").Scopes(pagination.New(page, limit).Scope).Find(&appointments).Error; err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

// ListByDate returns every appointment of a day, cancelled ones included
func (r *appointmentRepository) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	var appointments []model.Appointment
	if err := GetDB(ctx, r.db).Where("date = ?", date).Order("time ASC").Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

// ClearQuote detaches appointments from a deleted quote
func (r *appointmentRepository) ClearQuote(ctx context.Context, quoteID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Appointment{}).
		Where("quote_id = ?", quoteID).
		Update("quote_id", nil).Error
}

func (r *appointmentRepository) CountByStatus(ctx context.Context) (map[model.AppointmentStatus]int64, error) {
	var rows []struct {
		Status model.AppointmentStatus
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Appointment{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.AppointmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *appointmentRepository) CountOnDate(ctx context.Context, date string) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Appointment{}).
		Where("date = ? AND status <> ?", date, model.AppointmentCancelled).
		Count(&total).Error
	return total, err
}

func (r *appointmentRepository) StartSession(ctx context.Context, session *model.WorkSession) error {
	return GetDB(ctx, r.db).Create(session).Error
}

func (r *appointmentRepository) CloseOpenSessions(ctx context.Context, appointmentID uuid.UUID, endedAt time.Time) error {
	return GetDB(ctx, r.db).Model(&model.WorkSession{}).
		Where("appointment_id = ? AND ended_at IS NULL", appointmentID).
		Update("ended_at", endedAt).Error
}

// LatestSession returns the most recently started work session, or nil when none exists
func (r *appointmentRepository) LatestSession(ctx context.Context, appointmentID uuid.UUID) (*model.WorkSession, error) {
	var session model.WorkSession
	err := GetDB(ctx, r.db).
		Where("appointment_id = ?", appointmentID).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
