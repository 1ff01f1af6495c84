package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is a note on an application. Info-requests are messages with IsInfoRequest set;
// one stays open while IsRead is false.
type Message struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApplicationID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"application_id"`
	SenderID           uuid.UUID  `gorm:"type:uuid;not null" json:"sender_id"`
	SenderRole         Role       `gorm:"type:varchar(20);not null" json:"sender_role"`
	Body               string     `gorm:"type:text;not null" json:"body"`
	IsInfoRequest      bool       `gorm:"not null;default:false" json:"is_info_request"`
	IsRead             bool       `gorm:"not null;default:false" json:"is_read"`
	RequestedDocuments []string   `gorm:"type:jsonb;serializer:json" json:"requested_documents"`
	ReplyTo            *uuid.UUID `gorm:"type:uuid;index" json:"reply_to"`
	Attachments        []string   `gorm:"type:jsonb;serializer:json" json:"attachments"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// IsOpenInfoRequest reports whether m still blocks the application waiting for a reply.
func (m Message) IsOpenInfoRequest() bool {
	return m.IsInfoRequest && !m.IsRead
}
