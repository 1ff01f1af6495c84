package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EntityApplication     = "application"
	EntityOffer           = "offer"
	EntityContract        = "contract"
	EntityMessage         = "message"
	EntityContractRequest = "contract_request"
	EntityUser            = "user"
)

const (
	ActionCreateApplication      = "CREATE_APPLICATION"
	ActionCreateContractDraft    = "CREATE_CONTRACT_DRAFT"
	ActionCompleteContract       = "COMPLETE_CONTRACT"
	ActionOpenContractRequest    = "OPEN_CONTRACT_REQUEST"
	ActionResolveContractRequest = "RESOLVE_CONTRACT_REQUEST"
	ActionRegisterUser           = "REGISTER_USER"
)

// AuditLog tracks who changed what and when. Applied transitions log their
// transition name as Action with the status pair.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(30);not null" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	// ApplicationID groups every row belonging to one application's history.
	ApplicationID *uuid.UUID `gorm:"type:uuid;index" json:"application_id"`
	FromStatus    string     `gorm:"type:varchar(30)" json:"from_status,omitempty"`
	ToStatus      string     `gorm:"type:varchar(30)" json:"to_status,omitempty"`
	Details       string     `gorm:"type:jsonb" json:"details"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
}
