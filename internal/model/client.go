package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a customer of the shop together with the vehicle they bring in.
// Deleting a client never touches its quotes or appointments.
type Client struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Surname   string         `gorm:"type:varchar(255);not null" json:"surname"`
	Email     string         `gorm:"type:varchar(255);index" json:"email"`
	Phone     string         `gorm:"type:varchar(50);not null;index" json:"phone"`
	Plate     string         `gorm:"type:varchar(20);index" json:"plate"`
	Model     string         `gorm:"type:varchar(255)" json:"model"`
	VIN       string         `gorm:"column:vin;type:varchar(32)" json:"vin"`
	BirthDate *time.Time     `gorm:"type:date" json:"birth_date"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// FullName joins name and surname the way quotes and appointments display it
func (c *Client) FullName() string {
	if c.Surname == "" {
		return c.Name
	}
	return c.Name + " " + c.Surname
}
