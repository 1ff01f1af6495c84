package repository

import (
	"context"
	"time"

	"leaseflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OfferPatch struct {
	Status      model.OfferStatus
	SentAt      *time.Time
	RespondedAt *time.Time
}

func (p OfferPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{"status": p.Status, "updated_at": time.Now()}
	if p.SentAt != nil {
		cols["sent_at"] = *p.SentAt
	}
	if p.RespondedAt != nil {
		cols["responded_at"] = *p.RespondedAt
	}
	return cols
}

func (p OfferPatch) Apply(o *model.Offer) {
	o.Status = p.Status
	if p.SentAt != nil {
		t := *p.SentAt
		o.SentAt = &t
	}
	if p.RespondedAt != nil {
		t := *p.RespondedAt
		o.RespondedAt = &t
	}
}

type OfferRepository interface {
	Create(ctx context.Context, offer *model.Offer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Offer, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.OfferStatus, patch OfferPatch) error
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, offer *model.Offer) error {
	return translate(GetDB(ctx, r.db).Create(offer).Error)
}

func (r *offerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var offer model.Offer
	if err := GetDB(ctx, r.db).First(&offer, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &offer, nil
}

func (r *offerRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Offer, error) {
	var offers []model.Offer
	err := GetDB(ctx, r.db).Where("application_id = ?", applicationID).Order("created_at ASC").Find(&offers).Error
	return offers, err
}

func (r *offerRepository) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.OfferStatus, patch OfferPatch) error {
	return conditionalUpdate(GetDB(ctx, r.db), &model.Offer{}, id, string(expected), patch.columns())
}
