package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuoteStatus is the lifecycle state of a quote
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "bozza"
	QuoteStatusSent     QuoteStatus = "inviato"
	QuoteStatusAccepted QuoteStatus = "accettato"
	QuoteStatusRejected QuoteStatus = "rifiutato"
)

var quoteStatuses = map[QuoteStatus]bool{
	QuoteStatusDraft:    true,
	QuoteStatusSent:     true,
	QuoteStatusAccepted: true,
	QuoteStatusRejected: true,
}

// ParseQuoteStatus accepts only the canonical spelling of a quote status
func ParseQuoteStatus(s string) (QuoteStatus, error) {
	status := QuoteStatus(s)
	if !quoteStatuses[status] {
		return "", fmt.Errorf("invalid quote status %q: must be one of bozza, inviato, accettato, rifiutato", s)
	}
	return status, nil
}

// Quote is a priced proposal of services and parts for a client's vehicle.
//
//	subtotal  = sum(items[].parts[].final_price) + labor_price*labor_hours
//	tax       = subtotal * tax_rate / 100
//	total     = subtotal + tax
//
// labor_price/labor_hours are the quote-level "extra labor"; item labor is not part of the subtotal.
type Quote struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	ClientName string          `gorm:"type:varchar(255);not null" json:"client_name"`
	Phone      string          `gorm:"type:varchar(50)" json:"phone"`
	Plate      string          `gorm:"type:varchar(20);index" json:"plate"`
	Model      string          `gorm:"type:varchar(255)" json:"model"`
	Date       time.Time       `gorm:"type:date;not null;index" json:"date"`
	Status     QuoteStatus     `gorm:"type:varchar(20);not null;default:'bozza';index" json:"status"`
	Items      []QuoteItem     `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`
	LaborPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"labor_price"`
	LaborHours decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0" json:"labor_hours"`
	TaxRate    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"` // percent
	Subtotal   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	TaxAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Notes      string          `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	assignID(&q.ID)
	return nil
}

// QuoteItem is one service line of a quote, bundling its own labor and parts.
// total_price = labor_price*labor_hours + sum(parts[].final_price)
type QuoteItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
	Position          int             `gorm:"not null;default:0" json:"position"`
	ServiceTypeID     *uuid.UUID      `gorm:"type:uuid;index" json:"service_type_id"`
	ServiceName       string          `gorm:"type:varchar(255);not null" json:"service_name"`
	ServiceCategory   string          `gorm:"type:varchar(100)" json:"service_category"`
	ServiceLaborPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"service_labor_price"`
	Description       string          `gorm:"type:text" json:"description"`
	LaborPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"labor_price"`
	LaborHours        decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0" json:"labor_hours"`
	Parts             []SparePart     `gorm:"foreignKey:QuoteItemID;constraint:OnDelete:CASCADE" json:"parts"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_price"`
}

func (i *QuoteItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// SparePart is a replacement component attached to a quote item.
// final_price = round(unit_price * quantity, 2)
type SparePart struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteItemID uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_item_id"`
	Code        string          `gorm:"type:varchar(100)" json:"code"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Brand       string          `gorm:"type:varchar(100)" json:"brand"`
	Category    string          `gorm:"type:varchar(100)" json:"category"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	FinalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"final_price"`
}

func (p *SparePart) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
