package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Application is the root aggregate of the financing lifecycle.
type Application struct {
	ID              uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReferenceNumber string            `gorm:"type:varchar(32);uniqueIndex;not null" json:"reference_number"`
	Type            ApplicationType   `gorm:"type:varchar(20);not null" json:"type"`
	Status          ApplicationStatus `gorm:"type:varchar(30);not null;index" json:"status"`

	// CustomerID is nil for applications created through public intake until a customer claims them.
	CustomerID   *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	ContactEmail string     `gorm:"type:varchar(255);not null;index" json:"contact_email"`
	FinancierID  *uuid.UUID `gorm:"type:uuid;index" json:"financier_id"`

	CompanyName   string `gorm:"type:varchar(255);not null" json:"company_name"`
	BusinessID    string `gorm:"type:varchar(20);not null" json:"business_id"`
	ContactPerson string `gorm:"type:varchar(255)" json:"contact_person"`
	ContactPhone  string `gorm:"type:varchar(30)" json:"contact_phone"`
	StreetAddress string `gorm:"type:varchar(255)" json:"street_address"`
	PostalCode    string `gorm:"type:varchar(10)" json:"postal_code"`
	City          string `gorm:"type:varchar(100)" json:"city"`

	EquipmentDescription string          `gorm:"type:text" json:"equipment_description"`
	EquipmentSupplier    string          `gorm:"type:varchar(255)" json:"equipment_supplier"`
	RequestedAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"requested_amount"`
	RequestedTermMonths  int             `gorm:"not null;default:0" json:"requested_term_months"`
	AdditionalInfo       string          `gorm:"type:text" json:"additional_info"`
	RegistryData         string          `gorm:"type:jsonb;default:'{}'" json:"registry_data"`

	SubmittedAt *time.Time `json:"submitted_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
