package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offer is a financier-issued payment proposal attached to an application.
type Offer struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApplicationID uuid.UUID   `gorm:"type:uuid;not null;index" json:"application_id"`
	FinancierID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"financier_id"`
	Status        OfferStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	MonthlyPayment   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"monthly_payment"`
	UpfrontPayment   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"upfront_payment"`
	ResidualValue    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"residual_value"`
	TermMonths       int             `gorm:"not null" json:"term_months"`
	OpeningFee       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"opening_fee"`
	InvoiceFee       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"invoice_fee"`
	InterestOrMargin string          `gorm:"type:varchar(100)" json:"interest_or_margin"`
	IncludedServices string          `gorm:"type:text" json:"included_services"`
	NotesToCustomer  string          `gorm:"type:text" json:"notes_to_customer"`
	InternalNotes    string          `gorm:"type:text" json:"internal_notes"`

	ValidUntil  *time.Time `json:"valid_until"`
	SentAt      *time.Time `json:"sent_at"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Released reports whether an admin ever let the offer out to the customer.
// Offers expired straight from PENDING_ADMIN by cancel or a re-offer never were.
func (o Offer) Released() bool {
	switch o.Status {
	case OfferSent, OfferAccepted, OfferRejected:
		return true
	case OfferExpired:
		return o.SentAt != nil
	}
	return false
}
