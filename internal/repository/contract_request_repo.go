package repository

import (
	"context"
	"time"

	"leaseflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContractRequestPatch struct {
	Status      model.ContractRequestStatus
	Response    string
	RespondedBy *uuid.UUID
	RespondedAt *time.Time
}

func (p ContractRequestPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{"status": p.Status, "updated_at": time.Now()}
	if p.Response != "" {
		cols["response"] = p.Response
	}
	if p.RespondedBy != nil {
		cols["responded_by"] = *p.RespondedBy
	}
	if p.RespondedAt != nil {
		cols["responded_at"] = *p.RespondedAt
	}
	return cols
}

func (p ContractRequestPatch) Apply(req *model.ContractRequest) {
	req.Status = p.Status
	if p.Response != "" {
		req.Response = p.Response
	}
	if p.RespondedBy != nil {
		id := *p.RespondedBy
		req.RespondedBy = &id
	}
	if p.RespondedAt != nil {
		t := *p.RespondedAt
		req.RespondedAt = &t
	}
}

type ContractRequestRepository interface {
	Create(ctx context.Context, req *model.ContractRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ContractRequest, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.ContractRequest, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ContractRequestStatus, patch ContractRequestPatch) error
}

type contractRequestRepository struct {
	db *gorm.DB
}

func NewContractRequestRepository(db *gorm.DB) ContractRequestRepository {
	return &contractRequestRepository{db: db}
}

func (r *contractRequestRepository) Create(ctx context.Context, req *model.ContractRequest) error {
	return translate(GetDB(ctx, r.db).Create(req).Error)
}

func (r *contractRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ContractRequest, error) {
	var req model.ContractRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *contractRequestRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.ContractRequest, error) {
	var reqs []model.ContractRequest
	err := GetDB(ctx, r.db).Where("contract_id = ?", contractID).Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (r *contractRequestRepository) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ContractRequestStatus, patch ContractRequestPatch) error {
	return conditionalUpdate(GetDB(ctx, r.db), &model.ContractRequest{}, id, string(expected), patch.columns())
}
