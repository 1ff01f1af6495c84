package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local record of an identity issued by the external identity provider.
// Role and verified email are read from here on every request, never from the token.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email         string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	EmailVerified bool           `gorm:"not null;default:false" json:"email_verified"`
	FullName      string         `gorm:"type:varchar(255)" json:"full_name"`
	CompanyName   string         `gorm:"type:varchar(255)" json:"company_name"`
	Phone         string         `gorm:"type:varchar(30)" json:"phone"`
	Role          Role           `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive      bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
