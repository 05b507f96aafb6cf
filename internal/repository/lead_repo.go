package repository

import (
	"context"

	"officina/internal/model"
	"officina/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadRepository interface {
	Create(ctx context.Context, lead *model.Lead) error
	MarkNotified(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lead, error)
	List(ctx context.Context, kind string, page, limit int) ([]model.Lead, int64, error)
	CountPending(ctx context.Context) (int64, error)
}

type leadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(ctx context.Context, lead *model.Lead) error {
	return GetDB(ctx, r.db).Create(lead).Error
}

func (r *leadRepository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Lead{}).Where("id = ?", id).Update("notified", true).Error
}

func (r *leadRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	var lead model.Lead
	if err := GetDB(ctx, r.db).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) List(ctx context.Context, kind string, page, limit int) ([]model.Lead, int64, error) {
	var leads []model.Lead
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Lead{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Scopes(pagination.New(page, limit).Scope).Find(&leads).Error; err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// CountPending counts leads whose notification never went out
func (r *leadRepository) CountPending(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Lead{}).Where("notified = ?", false).Count(&total).Error
	return total, err
}
