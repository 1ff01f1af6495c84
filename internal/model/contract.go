package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Party is an identity block printed on a contract.
type Party struct {
	CompanyName   string `gorm:"type:varchar(255)" json:"company_name"`
	BusinessID    string `gorm:"type:varchar(20)" json:"business_id"`
	Address       string `gorm:"type:varchar(255)" json:"address"`
	PostalCode    string `gorm:"type:varchar(10)" json:"postal_code"`
	City          string `gorm:"type:varchar(100)" json:"city"`
	ContactPerson string `gorm:"type:varchar(255)" json:"contact_person"`
	Email         string `gorm:"type:varchar(255)" json:"email"`
	Phone         string `gorm:"type:varchar(30)" json:"phone"`
}

type Contract struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApplicationID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"application_id"`
	OfferID        *uuid.UUID     `gorm:"type:uuid;index" json:"offer_id"`
	FinancierID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"financier_id"`
	ContractNumber string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"contract_number"`
	Status         ContractStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	Lessor Party `gorm:"embedded;embeddedPrefix:lessor_" json:"lessor"`
	Lessee Party `gorm:"embedded;embeddedPrefix:lessee_" json:"lessee"`
	// Seller is only filled for sale-leaseback contracts.
	Seller Party `gorm:"embedded;embeddedPrefix:seller_" json:"seller"`

	EquipmentDescription string              `gorm:"type:text" json:"equipment_description"`
	EquipmentValue       decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"equipment_value"`
	MonthlyRent          decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"monthly_rent"`
	TermMonths           int                 `gorm:"not null;default:0" json:"term_months"`
	ResidualValue        decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"residual_value"`
	AdvancePayment       decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"advance_payment"`
	ProcessingFee        decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"processing_fee"`
	ArrangementFee       decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"arrangement_fee"`
	TotalAmount          decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"total_amount"`

	MessageToCustomer string `gorm:"type:text" json:"message_to_customer"`
	InternalNotes     string `gorm:"type:text" json:"internal_notes"`
	// DocumentRef and SignedDocumentRef are opaque ids in the document store.
	DocumentRef       string `gorm:"type:varchar(255)" json:"document_ref"`
	SignedDocumentRef string `gorm:"type:varchar(255)" json:"signed_document_ref"`

	SentAt      *time.Time `json:"sent_at"`
	SignedAt    *time.Time `json:"signed_at"`
	SignerName  string     `gorm:"type:varchar(255)" json:"signer_name"`
	ActivatedAt *time.Time `json:"activated_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Released reports whether the contract was ever sent to the customer. A draft
// cancelled before sending stays internal.
func (c Contract) Released() bool {
	switch c.Status {
	case ContractDraft:
		return false
	case ContractCancelled:
		return c.SentAt != nil
	}
	return true
}

const (
	DefaultProcessingFee  = 300
	DefaultArrangementFee = 9
)
