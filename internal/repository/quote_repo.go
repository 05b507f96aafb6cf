package repository

import (
	"context"

	"officina/internal/model"
	"officina/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuoteFilter narrows the quote list
type QuoteFilter struct {
	ClientID *uuid.UUID
	Status   string
	Search   string // client name or plate
}

type QuoteRepository interface {
	Create(ctx context.Context, quote *model.Quote) error
	Update(ctx context.Context, quote *model.Quote) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuoteStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error)
	List(ctx context.Context, filter QuoteFilter, page, limit int) ([]model.Quote, int64, error)
	CountByStatus(ctx context.Context) (map[model.QuoteStatus]int64, error)
	SumTotalByStatus(ctx context.Context, status model.QuoteStatus) (decimal.Decimal, error)
}

type quoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Items.Parts")
}

// Create inserts the quote with its items and parts
func (r *quoteRepository) Create(ctx context.Context, quote *model.Quote) error {
	return GetDB(ctx, r.db).Create(quote).Error
}

// Update saves the quote header and replaces its whole item tree
func (r *quoteRepository) Update(ctx context.Context, quote *model.Quote) error {
	db := GetDB(ctx, r.db)
	if err := r.deleteItems(db, quote.ID); err != nil {
		return err
	}
	if err := db.Omit("Items").Save(quote).Error; err != nil {
		return err
	}
	for i := range quote.Items {
		quote.Items[i].ID = uuid.Nil
		quote.Items[i].QuoteID = quote.ID
		for j := range quote.Items[i].Parts {
			quote.Items[i].Parts[j].ID = uuid.Nil
		}
	}
	if len(quote.Items) == 0 {
		return nil
	}
	return db.Create(&quote.Items).Error
}

func (r *quoteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuoteStatus) error {
	return GetDB(ctx, r.db).Model(&model.Quote{}).Where("id = ?", id).Update("status", status).Error
}

func (r *quoteRepository) deleteItems(db *gorm.DB, quoteID uuid.UUID) error {
	itemIDs := db.Model(&model.QuoteItem{}).Select("id").Where("quote_id = ?", quoteID)
	if err := db.Where("quote_item_id IN (?)", itemIDs).Delete(&model.SparePart{}).Error; err != nil {
		return err
	}
	return db.Where("quote_id = ?", quoteID).Delete(&model.QuoteItem{}).Error
}

func (r *quoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := r.deleteItems(db, id); err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Quote{}).Error
}

func (r *quoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	var quote model.Quote
	if err := preloadItems(GetDB(ctx, r.db)).First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) List(ctx context.Context, filter QuoteFilter, page, limit int) ([]model.Quote, int64, error) {
	var quotes []model.Quote
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Quote{})
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("LOWER(client_name) LIKE ? OR LOWER(plate) LIKE ?", p, p)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := preloadItems(query).Order("date DESC, created_at DESC").Scopes(pagination.New(page, limit).Scope).Find(&quotes).Error; err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

func (r *quoteRepository) CountByStatus(ctx context.Context) (map[model.QuoteStatus]int64, error) {
	var rows []struct {
		Status model.QuoteStatus
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Quote{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.QuoteStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// SumTotalByStatus adds up quote totals in Go so the result is exact on every driver
func (r *quoteRepository) SumTotalByStatus(ctx context.Context, status model.QuoteStatus) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := GetDB(ctx, r.db).Model(&model.Quote{}).
		Where("status = ?", status).
		Pluck("total", &totals).Error; err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, nil
}
