package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationCategory string

const (
	CategoryApplicationRouted   NotificationCategory = "APPLICATION_ROUTED"
	CategoryInfoRequested       NotificationCategory = "INFO_REQUESTED"
	CategoryInfoProvided        NotificationCategory = "INFO_PROVIDED"
	CategoryOfferPending        NotificationCategory = "OFFER_PENDING_APPROVAL"
	CategoryOfferAvailable      NotificationCategory = "OFFER_AVAILABLE"
	CategoryOfferAccepted       NotificationCategory = "OFFER_ACCEPTED"
	CategoryOfferRejected       NotificationCategory = "OFFER_REJECTED"
	CategoryContractReady       NotificationCategory = "CONTRACT_READY"
	CategoryContractSigned      NotificationCategory = "CONTRACT_SIGNED"
	CategoryContractActivated   NotificationCategory = "CONTRACT_ACTIVATED"
	CategoryApplicationCanceled NotificationCategory = "APPLICATION_CANCELLED"
	CategoryRequestReceived     NotificationCategory = "CONTRACT_REQUEST_RECEIVED"
	CategoryRequestAnswered     NotificationCategory = "CONTRACT_REQUEST_ANSWERED"
)

// Urgent categories ask the recipient to act and are also sent by SMS when enabled.
func (c NotificationCategory) Urgent() bool {
	return c == CategoryInfoRequested || c == CategoryContractReady
}

type Notification struct {
	ID            uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID            `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Title         string               `gorm:"type:varchar(255);not null" json:"title"`
	Message       string               `gorm:"type:text;not null" json:"message"`
	Category      NotificationCategory `gorm:"type:varchar(40);not null" json:"category"`
	ReferenceType string               `gorm:"type:varchar(30)" json:"reference_type"`
	ReferenceID   *uuid.UUID           `gorm:"type:uuid" json:"reference_id"`
	Link          string               `gorm:"type:varchar(255)" json:"link"`
	IsRead        bool                 `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	ReadAt        *time.Time           `json:"read_at"`
	// DedupeKey makes a dispatch idempotent within one applied transition.
	DedupeKey string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
