package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxRule stores a VAT percentage with temporal validity
type TaxRule struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(100);not null" json:"name"`
	Rate          decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"rate"`         // percent, e.g. 22 = 22%
	EffectiveFrom time.Time       `gorm:"type:date;not null;index" json:"effective_from"` // Start date
	EffectiveTo   *time.Time      `gorm:"type:date;index" json:"effective_to"`            // End date, nullable = currently active
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (t *TaxRule) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}
