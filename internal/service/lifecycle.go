package service

import (
	"context"
	"errors"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/metrics"
	"leaseflow/internal/model"
	"leaseflow/internal/notify"
	"leaseflow/internal/repository"
	"leaseflow/internal/visibility"
	"leaseflow/internal/workflow"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TransitionResult is returned for every applied transition.
type TransitionResult struct {
	ApplicationID    uuid.UUID               `json:"application_id"`
	DecisionID       uuid.UUID               `json:"decision_id"`
	Action           workflow.Action         `json:"action"`
	From             model.ApplicationStatus `json:"from"`
	To               model.ApplicationStatus `json:"to"`
	OfferIDs         []uuid.UUID             `json:"offer_ids,omitempty"`
	ContractIDs      []uuid.UUID             `json:"contract_ids,omitempty"`
	Notifications    int                     `json:"notifications"`
	AvailableActions []workflow.Action       `json:"available_actions"`
}

// LifecycleService drives applications through the transition table.
type LifecycleService interface {
	RequestTransition(ctx context.Context, p visibility.Principal, applicationID uuid.UUID, action workflow.Action, payload workflow.Payload) (*TransitionResult, error)
	CheckTransition(ctx context.Context, p visibility.Principal, applicationID uuid.UUID, action workflow.Action) error
}

type lifecycleService struct {
	base
}

func NewLifecycleService(deps Deps) LifecycleService {
	return &lifecycleService{base: newBase(deps)}
}

// CheckTransition reports whether p may perform action on the application in
// its current status, without looking at any payload. RequestTransition checks
// again under the transaction.
func (s *lifecycleService) CheckTransition(ctx context.Context, p visibility.Principal, applicationID uuid.UUID, action workflow.Action) error {
	app, err := s.loadApplication(ctx, p, applicationID)
	if err != nil {
		return err
	}
	if !workflow.Allowed(app.Status, p.Role, action) {
		return apperror.IllegalTransition(model.EntityApplication, string(app.Status), string(p.Role), string(action))
	}
	return nil
}

// maxAttempts bounds the reload-and-redecide loop after a lost write race.
const maxAttempts = 2

func (s *lifecycleService) RequestTransition(ctx context.Context, p visibility.Principal, applicationID uuid.UUID, action workflow.Action, payload workflow.Payload) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.RequestTransition", trace.WithAttributes(
		attribute.String("application.id", applicationID.String()),
		attribute.String("transition.action", string(action)),
		attribute.String("actor.role", string(p.Role)),
	))
	defer span.End()
	started := time.Now()

	var (
		res        *TransitionResult
		deliveries []notify.Delivery
		err        error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, deliveries, err = s.attempt(ctx, p, applicationID, action, payload)
		if !errors.Is(err, apperror.ErrStaleWrite) {
			break
		}
		s.deps.Log.Warn("Transition lost a write race", map[string]interface{}{
			"application_id": applicationID.String(),
			"action":         string(action),
			"attempt":        attempt,
		})
	}

	outcome := outcomeOf(err)
	metrics.ObserveTransition(string(action), outcome, started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		fields := map[string]interface{}{
			"application_id": applicationID.String(),
			"action":         string(action),
			"actor_id":       p.UserID.String(),
			"error":          err.Error(),
		}
		if outcome == metrics.OutcomeError {
			s.deps.Log.Error("Transition failed", fields)
		} else {
			s.deps.Log.Warn("Transition rejected", fields)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("transition.to", string(res.To)))
	s.deps.Log.Info("Transition applied", map[string]interface{}{
		"application_id": applicationID.String(),
		"decision_id":    res.DecisionID.String(),
		"action":         string(action),
		"from":           string(res.From),
		"to":             string(res.To),
		"actor_id":       p.UserID.String(),
	})
	s.deliver(ctx, deliveries)
	return res, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeApplied
	case errors.Is(err, apperror.ErrStaleWrite):
		return metrics.OutcomeStale
	case errors.Is(err, apperror.ErrInternal):
		return metrics.OutcomeError
	}
	if _, ok := apperror.As(err); ok {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

// attempt runs one load-decide-apply cycle inside a single transaction.
func (s *lifecycleService) attempt(ctx context.Context, p visibility.Principal, applicationID uuid.UUID, action workflow.Action, payload workflow.Payload) (*TransitionResult, []notify.Delivery, error) {
	var (
		res        *TransitionResult
		deliveries []notify.Delivery
	)
	err := s.store().Tx.RunInTx(ctx, func(txCtx context.Context) error {
		snap, err := s.snapshot(txCtx, p, applicationID, action, payload)
		if err != nil {
			return err
		}
		d, err := s.deps.Engine.Decide(*snap, workflow.Request{
			Action:  action,
			Actor:   actorOf(p),
			Payload: payload,
			Now:     s.now(),
		})
		if err != nil {
			return err
		}
		if err := s.apply(txCtx, d); err != nil {
			return err
		}
		if err := s.auditDecision(txCtx, d, payload); err != nil {
			return err
		}
		deliveries, err = s.deps.Dispatcher.Dispatch(txCtx, d.Notices)
		if err != nil {
			return apperror.Internal("failed to store notifications", err)
		}
		res = resultOf(d, p.Role, len(deliveries))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res, deliveries, nil
}

func (s *lifecycleService) snapshot(ctx context.Context, p visibility.Principal, applicationID uuid.UUID, action workflow.Action, payload workflow.Payload) (*workflow.Snapshot, error) {
	app, err := s.loadApplication(ctx, p, applicationID)
	if err != nil {
		return nil, err
	}
	snap := &workflow.Snapshot{Application: *app}
	if snap.Offers, err = s.store().Offers.ListByApplication(ctx, app.ID); err != nil {
		return nil, fromRepo(err, model.EntityOffer, app.ID)
	}
	if snap.Contracts, err = s.store().Contracts.ListByApplication(ctx, app.ID); err != nil {
		return nil, fromRepo(err, model.EntityContract, app.ID)
	}
	if snap.Messages, err = s.store().Messages.ListByApplication(ctx, app.ID); err != nil {
		return nil, fromRepo(err, model.EntityMessage, app.ID)
	}
	if action == workflow.ActionRouteToFinancier && payload.FinancierID != nil {
		u, err := s.store().Users.GetByID(ctx, *payload.FinancierID)
		switch {
		case err == nil:
			snap.Financier = u
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fromRepo(err, model.EntityUser, *payload.FinancierID)
		}
	}
	return snap, nil
}

// apply persists d. Superseded children leave their active status before new
// children are inserted so the single-active rules hold at every statement.
func (s *base) apply(ctx context.Context, d *workflow.Decision) error {
	st := s.store()
	if err := st.Applications.ConditionalUpdate(ctx, d.ApplicationID, d.From, d.Patch); err != nil {
		return writeErr(err, model.EntityApplication, d.ApplicationID, string(d.From))
	}
	return s.applyChildren(ctx, d)
}

func (s *base) applyChildren(ctx context.Context, d *workflow.Decision) error {
	st := s.store()
	for _, id := range d.ClosedInfoRequests {
		if err := st.Messages.CloseInfoRequest(ctx, id); err != nil {
			return writeErr(err, model.EntityMessage, id, "open")
		}
	}
	for i := range d.NewMessages {
		m := d.NewMessages[i]
		if err := st.Messages.Create(ctx, &m); err != nil {
			return writeErr(err, model.EntityMessage, m.ID, "")
		}
	}
	for _, u := range d.OfferUpdates {
		if err := st.Offers.ConditionalUpdate(ctx, u.ID, u.Expected, u.Patch); err != nil {
			return writeErr(err, model.EntityOffer, u.ID, string(u.Expected))
		}
	}
	for i := range d.NewOffers {
		o := d.NewOffers[i]
		if err := st.Offers.Create(ctx, &o); err != nil {
			return writeErr(err, model.EntityOffer, o.ID, "")
		}
	}
	for _, u := range d.ContractUpdates {
		if err := st.Contracts.ConditionalUpdate(ctx, u.ID, u.Expected, u.Patch); err != nil {
			return writeErr(err, model.EntityContract, u.ID, string(u.Expected))
		}
	}
	for i := range d.NewContracts {
		c := d.NewContracts[i]
		if err := st.Contracts.Create(ctx, &c); err != nil {
			return writeErr(err, model.EntityContract, c.ID, "")
		}
	}
	return nil
}

func (s *lifecycleService) auditDecision(ctx context.Context, d *workflow.Decision, payload workflow.Payload) error {
	details := map[string]interface{}{
		"decision_id": d.ID.String(),
		"notices":     len(d.Notices),
	}
	if ids := offerIDs(d); len(ids) > 0 {
		details["offer_ids"] = ids
	}
	if ids := contractIDs(d); len(ids) > 0 {
		details["contract_ids"] = ids
	}
	if d.Patch.FinancierID != nil {
		details["financier_id"] = d.Patch.FinancierID.String()
	}
	if payload.Reason != "" {
		details["reason"] = payload.Reason
	}
	appID := d.ApplicationID
	return s.audit(ctx, auditEntry{
		actor:         d.Actor.UserID,
		action:        string(d.Action),
		entityType:    model.EntityApplication,
		entityID:      d.ApplicationID,
		applicationID: &appID,
		from:          string(d.From),
		to:            string(d.To),
		details:       details,
	})
}

func offerIDs(d *workflow.Decision) []uuid.UUID {
	var ids []uuid.UUID
	for _, o := range d.NewOffers {
		ids = append(ids, o.ID)
	}
	for _, u := range d.OfferUpdates {
		ids = append(ids, u.ID)
	}
	return ids
}

func contractIDs(d *workflow.Decision) []uuid.UUID {
	var ids []uuid.UUID
	for _, c := range d.NewContracts {
		ids = append(ids, c.ID)
	}
	for _, u := range d.ContractUpdates {
		ids = append(ids, u.ID)
	}
	return ids
}

func resultOf(d *workflow.Decision, role model.Role, notifications int) *TransitionResult {
	return &TransitionResult{
		ApplicationID:    d.ApplicationID,
		DecisionID:       d.ID,
		Action:           d.Action,
		From:             d.From,
		To:               d.To,
		OfferIDs:         offerIDs(d),
		ContractIDs:      contractIDs(d),
		Notifications:    notifications,
		AvailableActions: workflow.AvailableActions(d.To, role),
	}
}
