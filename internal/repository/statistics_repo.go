package repository

import (
	"context"
	"fmt"

	"officina/internal/model"

	"gorm.io/gorm"
)

// DayLoad is the number of live appointments booked on one calendar day
type DayLoad struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ServiceUsage counts how often a service appears on quotes
type ServiceUsage struct {
	ServiceName string `json:"service_name"`
	Count       int64  `json:"count"`
}

type StatisticsRepository interface {
	WorkshopLoad(ctx context.Context, from, to string) ([]DayLoad, error)
	TopServices(ctx context.Context, limit int) ([]ServiceUsage, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// WorkshopLoad groups non-cancelled appointments per day between from and to inclusive
func (r *statisticsRepository) WorkshopLoad(ctx context.Context, from, to string) ([]DayLoad, error) {
	var load []DayLoad
	if err := GetDB(ctx, r.db).Model(&model.Appointment{}).
		Select("date, COUNT(*) as count").
		Where("date >= ? AND date <= ? AND status <> ?", from, to, model.AppointmentCancelled).
		Group("date").
		Order("date ASC").
		Scan(&load).Error; err != nil {
		return nil, fmt.Errorf("failed to query workshop load: %w", err)
	}
	return load, nil
}

func (r *statisticsRepository) TopServices(ctx context.Context, limit int) ([]ServiceUsage, error) {
	var usage []ServiceUsage
	if err := GetDB(ctx, r.db).Model(&model.QuoteItem{}).
		Select("service_name, COUNT(*) as count").
		Group("service_name").
		Order("count DESC, service_name ASC").
		Limit(limit).
		Scan(&usage).Error; err != nil {
		return nil, fmt.Errorf("failed to query top services: %w", err)
	}
	return usage, nil
}
