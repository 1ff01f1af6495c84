package repository

import (
	"context"

	"leaseflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Message, error)
	// CloseInfoRequest marks an open info-request as answered. It fails with
	// ErrStaleWrite when the request was already closed.
	CloseInfoRequest(ctx context.Context, id uuid.UUID) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return translate(GetDB(ctx, r.db).Create(msg).Error)
}

func (r *messageRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	if err := GetDB(ctx, r.db).First(&msg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *messageRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Message, error) {
	var msgs []model.Message
	err := GetDB(ctx, r.db).Where("application_id = ?", applicationID).Order("created_at ASC").Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) CloseInfoRequest(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	res := db.Model(&model.Message{}).
		Where("id = ? AND is_info_request = ? AND is_read = ?", id, true, false).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&model.Message{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStaleWrite
}
