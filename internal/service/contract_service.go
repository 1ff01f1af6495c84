package service

import (
	"context"
	"errors"
	"iter"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"
	"leaseflow/internal/notify"
	"leaseflow/internal/repository"
	"leaseflow/internal/timeline"
	"leaseflow/internal/visibility"
	"leaseflow/internal/workflow"

	"github.com/google/uuid"
)

type OpenContractRequestDTO struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ResolveContractRequestDTO struct {
	Response string `json:"response"`
}

type ContractService interface {
	GetContract(ctx context.Context, p visibility.Principal, id uuid.UUID) (*model.Contract, error)
	CompleteContract(ctx context.Context, p visibility.Principal, id uuid.UUID) (*model.Contract, error)
	GetTimeline(ctx context.Context, p visibility.Principal, id uuid.UUID, asOf time.Time) (*timeline.View, error)
	Schedule(ctx context.Context, p visibility.Principal, id uuid.UUID, asOf time.Time) (iter.Seq[timeline.Entry], error)

	OpenContractRequest(ctx context.Context, p visibility.Principal, contractID uuid.UUID, req OpenContractRequestDTO) (*model.ContractRequest, error)
	ListContractRequests(ctx context.Context, p visibility.Principal, contractID uuid.UUID) ([]model.ContractRequest, error)
	ResolveContractRequest(ctx context.Context, p visibility.Principal, requestID uuid.UUID, action workflow.Action, req ResolveContractRequestDTO) (*model.ContractRequest, error)
}

type contractService struct {
	base
}

func NewContractService(deps Deps) ContractService {
	return &contractService{base: newBase(deps)}
}

func (s *contractService) GetContract(ctx context.Context, p visibility.Principal, id uuid.UUID) (*model.Contract, error) {
	c, _, err := s.loadContract(ctx, p, id)
	if err != nil {
		return nil, err
	}
	redacted := visibility.RedactContract(p, *c)
	return &redacted, nil
}

func (s *contractService) CompleteContract(ctx context.Context, p visibility.Principal, id uuid.UUID) (*model.Contract, error) {
	var out *model.Contract
	err := s.store().Tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, _, err := s.loadContract(txCtx, p, id)
		if err != nil {
			return err
		}
		u, err := workflow.CompleteContract(*c, actorOf(p), s.now())
		if err != nil {
			return err
		}
		if err := s.store().Contracts.ConditionalUpdate(txCtx, u.ID, u.Expected, u.Patch); err != nil {
			return writeErr(err, model.EntityContract, u.ID, string(u.Expected))
		}
		appID := c.ApplicationID
		if err := s.audit(txCtx, auditEntry{
			actor:         p.UserID,
			action:        model.ActionCompleteContract,
			entityType:    model.EntityContract,
			entityID:      c.ID,
			applicationID: &appID,
			from:          string(u.Expected),
			to:            string(u.Patch.Status),
		}); err != nil {
			return err
		}
		out, err = s.store().Contracts.FindByID(txCtx, id)
		return fromRepo(err, model.EntityContract, id)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *contractService) timelineInput(ctx context.Context, p visibility.Principal, id uuid.UUID) (timeline.Input, error) {
	c, _, err := s.loadContract(ctx, p, id)
	if err != nil {
		return timeline.Input{}, err
	}
	var offer *model.Offer
	if c.OfferID != nil {
		offer, err = s.store().Offers.FindByID(ctx, *c.OfferID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return timeline.Input{}, fromRepo(err, model.EntityOffer, *c.OfferID)
		}
	}
	return timeline.FromContract(*c, offer)
}

// GetTimeline computes payment progress as of asOf, or now when asOf is zero.
func (s *contractService) GetTimeline(ctx context.Context, p visibility.Principal, id uuid.UUID, asOf time.Time) (*timeline.View, error) {
	in, err := s.timelineInput(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	v := timeline.Compute(in, asOf)
	return &v, nil
}

func (s *contractService) Schedule(ctx context.Context, p visibility.Principal, id uuid.UUID, asOf time.Time) (iter.Seq[timeline.Entry], error) {
	in, err := s.timelineInput(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	return timeline.Schedule(in, asOf), nil
}

func (s *contractService) OpenContractRequest(ctx context.Context, p visibility.Principal, contractID uuid.UUID, req OpenContractRequestDTO) (*model.ContractRequest, error) {
	typ, err := model.ParseContractRequestType(req.Type)
	if err != nil {
		return nil, apperror.Validation("invalid request type", map[string]interface{}{"type": req.Type})
	}

	var (
		created    *model.ContractRequest
		d          *workflow.RequestDecision
		deliveries []notify.Delivery
	)
	err = s.store().Tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, _, err := s.loadContract(txCtx, p, contractID)
		if err != nil {
			return err
		}
		if d, err = s.deps.Engine.OpenRequest(*c, actorOf(p), typ, req.Message); err != nil {
			return err
		}
		r := *d.Created
		if err := s.store().ContractRequests.Create(txCtx, &r); err != nil {
			return apperror.Internal("failed to store contract request", err)
		}
		created = &r
		appID := c.ApplicationID
		if err := s.audit(txCtx, auditEntry{
			actor:         p.UserID,
			action:        model.ActionOpenContractRequest,
			entityType:    model.EntityContractRequest,
			entityID:      r.ID,
			applicationID: &appID,
			to:            string(r.Status),
			details:       map[string]interface{}{"contract_id": c.ID.String(), "type": string(r.Type)},
		}); err != nil {
			return err
		}
		deliveries, err = s.deps.Dispatcher.Dispatch(txCtx, d.Notices)
		if err != nil {
			return apperror.Internal("failed to store notifications", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, deliveries)
	return created, nil
}

func (s *contractService) ListContractRequests(ctx context.Context, p visibility.Principal, contractID uuid.UUID) ([]model.ContractRequest, error) {
	c, app, err := s.loadContract(ctx, p, contractID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.store().ContractRequests.ListByContract(ctx, contractID)
	if err != nil {
		return nil, fromRepo(err, model.EntityContractRequest, contractID)
	}
	out := make([]model.ContractRequest, 0, len(reqs))
	for _, r := range reqs {
		if visibility.CanSeeContractRequest(p, *app, *c, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ResolveContractRequest runs process, complete or reject on an open request.
func (s *contractService) ResolveContractRequest(ctx context.Context, p visibility.Principal, requestID uuid.UUID, action workflow.Action, req ResolveContractRequestDTO) (*model.ContractRequest, error) {
	var (
		out        *model.ContractRequest
		deliveries []notify.Delivery
	)
	err := s.store().Tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.store().ContractRequests.FindByID(txCtx, requestID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.VisibilityDenied(model.EntityContractRequest, requestID.String())
		}
		if err != nil {
			return fromRepo(err, model.EntityContractRequest, requestID)
		}
		c, app, err := s.loadContract(txCtx, p, r.ContractID)
		if err != nil {
			return apperror.VisibilityDenied(model.EntityContractRequest, requestID.String())
		}
		if !visibility.CanSeeContractRequest(p, *app, *c, *r) {
			return apperror.VisibilityDenied(model.EntityContractRequest, requestID.String())
		}

		d, err := s.deps.Engine.ResolveRequest(*r, actorOf(p), action, req.Response, s.now())
		if err != nil {
			return err
		}
		if err := s.store().ContractRequests.ConditionalUpdate(txCtx, d.RequestID, d.From, d.Patch); err != nil {
			return writeErr(err, model.EntityContractRequest, d.RequestID, string(d.From))
		}
		appID := app.ID
		if err := s.audit(txCtx, auditEntry{
			actor:         p.UserID,
			action:        model.ActionResolveContractRequest,
			entityType:    model.EntityContractRequest,
			entityID:      r.ID,
			applicationID: &appID,
			from:          string(d.From),
			to:            string(d.Patch.Status),
			details:       map[string]interface{}{"transition": string(action)},
		}); err != nil {
			return err
		}
		deliveries, err = s.deps.Dispatcher.Dispatch(txCtx, d.Notices)
		if err != nil {
			return apperror.Internal("failed to store notifications", err)
		}
		out, err = s.store().ContractRequests.FindByID(txCtx, requestID)
		return fromRepo(err, model.EntityContractRequest, requestID)
	})
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, deliveries)
	return out, nil
}
