package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus is the workshop state of a booked appointment
type AppointmentStatus string

const (
	AppointmentScheduled  AppointmentStatus = "programmato"
	AppointmentInProgress AppointmentStatus = "in_lavorazione"
	AppointmentCompleted  AppointmentStatus = "completato"
	AppointmentCancelled  AppointmentStatus = "annullato"
)

// ParseAppointmentStatus accepts only the canonical spelling of an appointment status
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch status := AppointmentStatus(s); status {
	case AppointmentScheduled, AppointmentInProgress, AppointmentCompleted, AppointmentCancelled:
		return status, nil
	}
	return "", fmt.Errorf("invalid appointment status %q: must be one of programmato, in_lavorazione, completato, annullato", s)
}

// Appointment occupies one calendar slot identified by Date (yyyy-MM-dd) and Time (HH:mm).
// Date and time are kept as text so slot matching is a plain string comparison.
type Appointment struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID     *uuid.UUID        `gorm:"type:uuid;index" json:"client_id"`
	ClientName   string            `gorm:"type:varchar(255);not null" json:"client_name"`
	ClientEmail  string            `gorm:"type:varchar(255)" json:"client_email"`
	Phone        string            `gorm:"type:varchar(50)" json:"phone"`
	Plate        string            `gorm:"type:varchar(20);index" json:"plate"`
	Model        string            `gorm:"type:varchar(255)" json:"model"`
	Date         string            `gorm:"type:varchar(10);not null;index:idx_appointment_slot" json:"date"`
	Time         string            `gorm:"type:varchar(5);not null;index:idx_appointment_slot" json:"time"`
	Duration     float64           `gorm:"not null;default:1" json:"duration"` // hours
	Status       AppointmentStatus `gorm:"type:varchar(20);not null;default:'programmato';index" json:"status"`
	PartsOrdered bool              `gorm:"not null;default:false" json:"parts_ordered"`
	QuoteID      *uuid.UUID        `gorm:"type:uuid;index" json:"quote_id"`
	Notes        string            `gorm:"type:text" json:"notes"`
	WorkSessions []WorkSession     `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE" json:"work_sessions,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// WorkSession records the time a vehicle spent in the workshop for an appointment.
// A session is opened on in_lavorazione and closed on completato.
type WorkSession struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AppointmentID uuid.UUID  `gorm:"type:uuid;not null;index" json:"appointment_id"`
	StartedAt     time.Time  `gorm:"not null" json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (w *WorkSession) BeforeCreate(tx *gorm.DB) error {
	assignID(&w.ID)
	return nil
}
