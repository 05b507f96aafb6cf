package repository

import (
	"context"

	"officina/internal/model"
	"officina/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ServiceTypeRepository interface {
	Create(ctx context.Context, st *model.ServiceType) error
	Update(ctx context.Context, st *model.ServiceType) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceType, error)
	List(ctx context.Context, category string, activeOnly bool, page, limit int) ([]model.ServiceType, int64, error)
}

type serviceTypeRepository struct {
	db *gorm.DB
}

func NewServiceTypeRepository(db *gorm.DB) ServiceTypeRepository {
	return &serviceTypeRepository{db: db}
}

func (r *serviceTypeRepository) Create(ctx context.Context, st *model.ServiceType) error {
	return GetDB(ctx, r.db).Create(st).Error
}

func (r *serviceTypeRepository) Update(ctx context.Context, st *model.ServiceType) error {
	return GetDB(ctx, r.db).Save(st).Error
}

func (r *serviceTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ServiceType{}).Error
}

func (r *serviceTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceType, error) {
	var st model.ServiceType
	if err := GetDB(ctx, r.db).First(&st, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *serviceTypeRepository) List(ctx context.Context, category string, activeOnly bool, page, limit int) ([]model.ServiceType, int64, error) {
	var types []model.ServiceType
	var total int64

	query := GetDB(ctx, r.db).Model(&model.ServiceType{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("category ASC, name ASC").Scopes(pagination.New(page, limit).Scope).Find(&types).Error; err != nil {
		return nil, 0, err
	}
	return types, total, nil
}
