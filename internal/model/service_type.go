package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceType is an entry of the shop's service catalog (oil change, brake pads, ...)
type ServiceType struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Category   string          `gorm:"type:varchar(100);not null;index" json:"category"`
	LaborPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"labor_price"` // hourly rate
	Active     bool            `gorm:"default:true" json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (s *ServiceType) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
