package model

import (
	"time"

	"github.com/google/uuid"
)

// ContractRequest is an early-payoff, annual-report or free-form request on an active contract.
type ContractRequest struct {
	ID          uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractID  uuid.UUID             `gorm:"type:uuid;not null;index" json:"contract_id"`
	UserID      uuid.UUID             `gorm:"type:uuid;not null;index" json:"user_id"`
	Type        ContractRequestType   `gorm:"type:varchar(20);not null" json:"type"`
	Message     string                `gorm:"type:text" json:"message"`
	Status      ContractRequestStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Response    string                `gorm:"type:text" json:"response"`
	RespondedBy *uuid.UUID            `gorm:"type:uuid" json:"responded_by"`
	RespondedAt *time.Time            `json:"responded_at"`
	CreatedAt   time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}
