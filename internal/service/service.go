package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/logger"
	"leaseflow/internal/model"
	"leaseflow/internal/notify"
	"leaseflow/internal/repository"
	"leaseflow/internal/visibility"
	"leaseflow/internal/workflow"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("leaseflow/service")

// Deps are the collaborators shared by every service.
type Deps struct {
	Store      *repository.Store
	Engine     *workflow.Engine
	Dispatcher *notify.Dispatcher
	Deliverer  *notify.Deliverer
	Counter    notify.UnreadCounter
	Log        logger.Logger
	// Now defaults to time.Now in UTC.
	Now func() time.Time
	// AsyncDelivery hands deliveries to a goroutine instead of delivering
	// before the call returns.
	AsyncDelivery bool
}

func (d *Deps) defaults() {
	if d.Engine == nil {
		d.Engine = workflow.NewEngine()
	}
	if d.Log == nil {
		d.Log = logger.NewNoOpLogger()
	}
	if d.Counter == nil {
		d.Counter = notify.NopCounter{}
	}
	if d.Dispatcher == nil {
		d.Dispatcher = notify.NewDispatcher(d.Store, d.Log)
	}
	if d.Deliverer == nil {
		d.Deliverer = notify.NewDeliverer(d.Counter, d.Log)
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
}

// base carries the plumbing the concrete services share.
type base struct {
	deps Deps
}

func newBase(deps Deps) base {
	deps.defaults()
	return base{deps: deps}
}

func (b *base) store() *repository.Store { return b.deps.Store }

func (b *base) now() time.Time { return b.deps.Now() }

func (b *base) deliver(ctx context.Context, deliveries []notify.Delivery) {
	if len(deliveries) == 0 {
		return
	}
	if b.deps.AsyncDelivery {
		go b.deps.Deliverer.Deliver(context.WithoutCancel(ctx), deliveries)
		return
	}
	b.deps.Deliverer.Deliver(ctx, deliveries)
}

// fromRepo converts repository sentinels from a read of entity id into typed errors.
func fromRepo(err error, entity string, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound(entity, id.String())
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Internal(fmt.Sprintf("load %s %s", entity, id), err)
}

// writeErr converts the failure of a guarded write. A lost status guard and a
// violated single-active rule both mean a concurrent writer got there first.
func writeErr(err error, entity string, id uuid.UUID, expected string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStaleWrite), errors.Is(err, repository.ErrConflict):
		return apperror.StaleWrite(entity, id.String(), expected)
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound(entity, id.String())
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Internal(fmt.Sprintf("write %s %s", entity, id), err)
}

// loadApplication returns the application if p may see it. Invisible and missing
// applications produce the same error.
func (b *base) loadApplication(ctx context.Context, p visibility.Principal, id uuid.UUID) (*model.Application, error) {
	app, err := b.store().Applications.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.VisibilityDenied(model.EntityApplication, id.String())
	}
	if err != nil {
		return nil, fromRepo(err, model.EntityApplication, id)
	}
	if !visibility.CanSeeApplication(p, *app) {
		return nil, apperror.VisibilityDenied(model.EntityApplication, id.String())
	}
	return app, nil
}

// loadContract returns a contract and its application if p may see the contract.
func (b *base) loadContract(ctx context.Context, p visibility.Principal, id uuid.UUID) (*model.Contract, *model.Application, error) {
	c, err := b.store().Contracts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperror.VisibilityDenied(model.EntityContract, id.String())
	}
	if err != nil {
		return nil, nil, fromRepo(err, model.EntityContract, id)
	}
	app, err := b.store().Applications.FindByID(ctx, c.ApplicationID)
	if err != nil {
		return nil, nil, fromRepo(err, model.EntityApplication, c.ApplicationID)
	}
	if !visibility.CanSeeContract(p, *app, *c) {
		return nil, nil, apperror.VisibilityDenied(model.EntityContract, id.String())
	}
	return c, app, nil
}

type auditEntry struct {
	actor         uuid.UUID
	action        string
	entityType    string
	entityID      uuid.UUID
	applicationID *uuid.UUID
	from, to      string
	details       map[string]interface{}
}

func (b *base) audit(ctx context.Context, e auditEntry) error {
	details := []byte("{}")
	if e.details != nil {
		var err error
		if details, err = json.Marshal(e.details); err != nil {
			return apperror.Internal("encode audit details", err)
		}
	}
	var actor *uuid.UUID
	if e.actor != uuid.Nil {
		id := e.actor
		actor = &id
	}
	entry := model.AuditLog{
		UserID:        actor,
		Action:        e.action,
		EntityType:    e.entityType,
		EntityID:      e.entityID.String(),
		ApplicationID: e.applicationID,
		FromStatus:    e.from,
		ToStatus:      e.to,
		Details:       string(details),
	}
	if err := b.store().Audit.Log(ctx, &entry); err != nil {
		return apperror.Internal("failed to write audit log", err)
	}
	return nil
}

func actorOf(p visibility.Principal) workflow.Actor {
	return workflow.Actor{UserID: p.UserID, Role: p.Role}
}

func requireRole(p visibility.Principal, roles ...model.Role) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return apperror.Forbidden(fmt.Sprintf("role %s may not perform this operation", p.Role))
}
