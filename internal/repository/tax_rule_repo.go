package repository

import (
	"context"
	"time"

	"officina/internal/model"
	"officina/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaxRuleRepository stores the VAT rates applied to quotes over time
type TaxRuleRepository interface {
	Create(ctx context.Context, rule *model.TaxRule) error
	Update(ctx context.Context, rule *model.TaxRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error)
	List(ctx context.Context, page, limit int) ([]model.TaxRule, int64, error)
	FindActive(ctx context.Context, day time.Time) (*model.TaxRule, error)
	CountOverlapping(ctx context.Context, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error)
}

type taxRuleRepository struct {
	db *gorm.DB
}

func NewTaxRuleRepository(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepository{db: db}
}

// openEndedAfter keeps rules with no end date or ending on/after day
func openEndedAfter(day time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(effective_to IS NULL OR effective_to >= ?)", day)
	}
}

// startingBy keeps rules that start on or before day
func startingBy(day time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("effective_from <= ?", day)
	}
}

func (r *taxRuleRepository) Create(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *taxRuleRepository) Update(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *taxRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.TaxRule{}, "id = ?", id).Error
}

func (r *taxRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := GetDB(ctx, r.db).Take(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// List pages through the rules, most recent first
func (r *taxRuleRepository) List(ctx context.Context, page, limit int) ([]model.TaxRule, int64, error) {
	var (
		rules []model.TaxRule
		total int64
	)
	query := GetDB(ctx, r.db).Model(&model.TaxRule{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("effective_from DESC").Scopes(pagination.New(page, limit).Scope).Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// FindActive returns the rule in force on day. Both validity bounds are inclusive;
// when several match the latest start wins.
func (r *taxRuleRepository) FindActive(ctx context.Context, day time.Time) (*model.TaxRule, error) {
	var rule model.TaxRule
	err := GetDB(ctx, r.db).
		Scopes(startingBy(day), openEndedAfter(day)).
		Order("effective_from DESC").
		Take(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// CountOverlapping counts the rules whose validity intersects [from, to]; a nil to never ends
func (r *taxRuleRepository) CountOverlapping(ctx context.Context, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	query := GetDB(ctx, r.db).Model(&model.TaxRule{}).Scopes(openEndedAfter(from))
	if to != nil {
		query = query.Scopes(startingBy(*to))
	}
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
