package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateClient = "CREATE_CLIENT"
	ActionUpdateClient = "UPDATE_CLIENT"
	ActionDeleteClient = "DELETE_CLIENT"

	ActionCreateQuote       = "CREATE_QUOTE"
	ActionUpdateQuote       = "UPDATE_QUOTE"
	ActionUpdateQuoteStatus = "UPDATE_QUOTE_STATUS"
	ActionDeleteQuote       = "DELETE_QUOTE"

	ActionCreateAppointment       = "CREATE_APPOINTMENT"
	ActionUpdateAppointment       = "UPDATE_APPOINTMENT"
	ActionChangeAppointmentStatus = "CHANGE_APPOINTMENT_STATUS"
	ActionReopenAppointment       = "REOPEN_APPOINTMENT"
	ActionDeleteAppointment       = "DELETE_APPOINTMENT"

	ActionCreateTaxRule = "CREATE_TAX_RULE"
	ActionUpdateTaxRule = "UPDATE_TAX_RULE"
	ActionDeleteTaxRule = "DELETE_TAX_RULE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // nil for public bookings
	User       *User          `gorm:"foreignKey:UserID" json:"user"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
