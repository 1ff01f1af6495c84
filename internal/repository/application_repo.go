package repository

import (
	"context"
	"strings"
	"time"

	"leaseflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationFilter narrows an application listing. Scope fields are set by the
// visibility layer; the rest come from the caller's query.
type ApplicationFilter struct {
	// CustomerID matches owned applications. CustomerEmail additionally matches
	// applications with no owner whose contact email equals it.
	CustomerID    *uuid.UUID
	CustomerEmail string
	FinancierID   *uuid.UUID
	// Statuses restricts to the listed statuses when non-empty.
	Statuses []model.ApplicationStatus
	Type     model.ApplicationType
	Search   string
	// MatchNone short-circuits to an empty result.
	MatchNone bool
	Page      int
	Limit     int
}

// ApplicationPatch lists the columns a transition may change besides status.
type ApplicationPatch struct {
	Status      model.ApplicationStatus
	FinancierID *uuid.UUID
	CustomerID  *uuid.UUID
	SubmittedAt *time.Time
}

func (p ApplicationPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{
		"status":     p.Status,
		"updated_at": time.Now(),
	}
	if p.FinancierID != nil {
		cols["financier_id"] = *p.FinancierID
	}
	if p.CustomerID != nil {
		cols["customer_id"] = *p.CustomerID
	}
	if p.SubmittedAt != nil {
		cols["submitted_at"] = *p.SubmittedAt
	}
	return cols
}

// Apply copies the patch onto an in-memory application.
func (p ApplicationPatch) Apply(app *model.Application) {
	app.Status = p.Status
	if p.FinancierID != nil {
		id := *p.FinancierID
		app.FinancierID = &id
	}
	if p.CustomerID != nil {
		id := *p.CustomerID
		app.CustomerID = &id
	}
	if p.SubmittedAt != nil {
		t := *p.SubmittedAt
		app.SubmittedAt = &t
	}
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]model.Application, int64, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ApplicationStatus, patch ApplicationPatch) error
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *model.Application) error {
	if app.RegistryData == "" {
		app.RegistryData = "{}"
	}
	return translate(GetDB(ctx, r.db).Create(app).Error)
}

func (r *applicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	if err := GetDB(ctx, r.db).First(&app, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]model.Application, int64, error) {
	if filter.MatchNone {
		return []model.Application{}, 0, nil
	}
	page, limit := normalizePage(filter.Page, filter.Limit)

	query := func() *gorm.DB {
		return r.scoped(GetDB(ctx, r.db).Model(&model.Application{}), filter)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []model.Application
	if err := query().Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&apps).Error; err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *applicationRepository) scoped(q *gorm.DB, f ApplicationFilter) *gorm.DB {
	switch {
	case f.CustomerID != nil && f.CustomerEmail != "":
		q = q.Where("(customer_id = ? OR (customer_id IS NULL AND LOWER(contact_email) = ?))",
			*f.CustomerID, strings.ToLower(f.CustomerEmail))
	case f.CustomerID != nil:
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.FinancierID != nil {
		q = q.Where("financier_id = ?", *f.FinancierID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(LOWER(company_name) LIKE ? OR LOWER(reference_number) LIKE ? OR business_id LIKE ?)", like, like, like)
	}
	return q
}

func (r *applicationRepository) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ApplicationStatus, patch ApplicationPatch) error {
	return conditionalUpdate(GetDB(ctx, r.db), &model.Application{}, id, string(expected), patch.columns())
}
