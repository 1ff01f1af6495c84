package repository

import (
	"context"
	"time"

	"leaseflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContractPatch struct {
	Status      model.ContractStatus
	SentAt      *time.Time
	SignedAt    *time.Time
	SignerName  string
	ActivatedAt *time.Time
	CompletedAt *time.Time
}

func (p ContractPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{"status": p.Status, "updated_at": time.Now()}
	if p.SentAt != nil {
		cols["sent_at"] = *p.SentAt
	}
	if p.SignedAt != nil {
		cols["signed_at"] = *p.SignedAt
	}
	if p.SignerName != "" {
		cols["signer_name"] = p.SignerName
	}
	if p.ActivatedAt != nil {
		cols["activated_at"] = *p.ActivatedAt
	}
	if p.CompletedAt != nil {
		cols["completed_at"] = *p.CompletedAt
	}
	return cols
}

func (p ContractPatch) Apply(c *model.Contract) {
	c.Status = p.Status
	copyTime := func(dst **time.Time, src *time.Time) {
		if src != nil {
			t := *src
			*dst = &t
		}
	}
	copyTime(&c.SentAt, p.SentAt)
	copyTime(&c.SignedAt, p.SignedAt)
	copyTime(&c.ActivatedAt, p.ActivatedAt)
	copyTime(&c.CompletedAt, p.CompletedAt)
	if p.SignerName != "" {
		c.SignerName = p.SignerName
	}
}

type ContractRepository interface {
	Create(ctx context.Context, contract *model.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Contract, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ContractStatus, patch ContractPatch) error
}

type contractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, contract *model.Contract) error {
	return translate(GetDB(ctx, r.db).Create(contract).Error)
}

func (r *contractRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	if err := GetDB(ctx, r.db).First(&contract, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &contract, nil
}

func (r *contractRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Contract, error) {
	var contracts []model.Contract
	err := GetDB(ctx, r.db).Where("application_id = ?", applicationID).Order("created_at ASC").Find(&contracts).Error
	return contracts, err
}

func (r *contractRepository) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ContractStatus, patch ContractPatch) error {
	return conditionalUpdate(GetDB(ctx, r.db), &model.Contract{}, id, string(expected), patch.columns())
}
