package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LeadKind tells which public form produced a lead
type LeadKind string

const (
	LeadContact      LeadKind = "contact"
	LeadQuoteRequest LeadKind = "quote_request"
	LeadBooking      LeadKind = "booking"
)

// Lead is a stored public form submission. Payload keeps the raw form fields.
type Lead struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      LeadKind       `gorm:"type:varchar(20);not null;index" json:"kind"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Email     string         `gorm:"type:varchar(255)" json:"email"`
	Phone     string         `gorm:"type:varchar(50)" json:"phone"`
	Message   string         `gorm:"type:text" json:"message"`
	Payload   datatypes.JSON `json:"payload"`
	Notified  bool           `gorm:"not null;default:false" json:"notified"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}
