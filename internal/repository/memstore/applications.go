package memstore

import (
	"context"
	"slices"
	"strings"

	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
)

type applicationRepo struct {
	db *DB
}

func (r *applicationRepo) Create(ctx context.Context, app *model.Application) error {
	defer r.db.lock(ctx)()

	for _, existing := range r.db.t.applications.rows {
		if existing.ReferenceNumber == app.ReferenceNumber {
			return repository.ErrConflict
		}
	}
	assignID(&app.ID)
	if app.RegistryData == "" {
		app.RegistryData = "{}"
	}
	now := r.db.stamp()
	app.CreatedAt, app.UpdatedAt = now, now
	r.db.t.applications.put(app.ID, *app)
	return nil
}

func (r *applicationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	defer r.db.lock(ctx)()

	app, ok := r.db.t.applications.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &app, nil
}

func (r *applicationRepo) List(ctx context.Context, f repository.ApplicationFilter) ([]model.Application, int64, error) {
	if f.MatchNone {
		return []model.Application{}, 0, nil
	}
	defer r.db.lock(ctx)()

	var matched []model.Application
	for _, app := range reversed(r.db.t.applications.all()) {
		if matches(app, f) {
			matched = append(matched, app)
		}
	}
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func matches(app model.Application, f repository.ApplicationFilter) bool {
	if f.CustomerID != nil {
		owned := app.CustomerID != nil && *app.CustomerID == *f.CustomerID
		byEmail := f.CustomerEmail != "" && app.CustomerID == nil &&
			strings.EqualFold(app.ContactEmail, f.CustomerEmail)
		if !owned && !byEmail {
			return false
		}
	}
	if f.FinancierID != nil && (app.FinancierID == nil || *app.FinancierID != *f.FinancierID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, app.Status) {
		return false
	}
	if f.Type != "" && app.Type != f.Type {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(app.CompanyName), q) &&
			!strings.Contains(strings.ToLower(app.ReferenceNumber), q) &&
			!strings.Contains(app.BusinessID, q) {
			return false
		}
	}
	return true
}

func (r *applicationRepo) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ApplicationStatus, patch repository.ApplicationPatch) error {
	defer r.db.lock(ctx)()

	app, ok := r.db.t.applications.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	if app.Status != expected {
		return repository.ErrStaleWrite
	}
	patch.Apply(&app)
	app.UpdatedAt = r.db.stamp()
	r.db.t.applications.put(id, app)
	return nil
}
