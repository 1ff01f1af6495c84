package memstore

import (
	"context"

	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
)

type offerRepo struct {
	db *DB
}

func (r *offerRepo) Create(ctx context.Context, offer *model.Offer) error {
	defer r.db.lock(ctx)()

	if offer.Status == model.OfferSent && r.hasSent(offer.ApplicationID, uuid.Nil) {
		return repository.ErrConflict
	}
	assignID(&offer.ID)
	now := r.db.stamp()
	offer.CreatedAt, offer.UpdatedAt = now, now
	r.db.t.offers.put(offer.ID, *offer)
	return nil
}

func (r *offerRepo) hasSent(applicationID, except uuid.UUID) bool {
	for _, o := range r.db.t.offers.rows {
		if o.ApplicationID == applicationID && o.Status == model.OfferSent && o.ID != except {
			return true
		}
	}
	return false
}

func (r *offerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	defer r.db.lock(ctx)()

	o, ok := r.db.t.offers.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *offerRepo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Offer, error) {
	defer r.db.lock(ctx)()

	var out []model.Offer
	for _, o := range r.db.t.offers.all() {
		if o.ApplicationID == applicationID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *offerRepo) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.OfferStatus, patch repository.OfferPatch) error {
	defer r.db.lock(ctx)()

	o, ok := r.db.t.offers.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	if o.Status != expected {
		return repository.ErrStaleWrite
	}
	if patch.Status == model.OfferSent && r.hasSent(o.ApplicationID, id) {
		return repository.ErrConflict
	}
	patch.Apply(&o)
	o.UpdatedAt = r.db.stamp()
	r.db.t.offers.put(id, o)
	return nil
}

type contractRepo struct {
	db *DB
}

func (r *contractRepo) Create(ctx context.Context, c *model.Contract) error {
	defer r.db.lock(ctx)()

	for _, existing := range r.db.t.contracts.rows {
		if existing.ContractNumber == c.ContractNumber {
			return repository.ErrConflict
		}
	}
	if c.Status == model.ContractSent && r.hasSent(c.ApplicationID, uuid.Nil) {
		return repository.ErrConflict
	}
	assignID(&c.ID)
	now := r.db.stamp()
	c.CreatedAt, c.UpdatedAt = now, now
	r.db.t.contracts.put(c.ID, *c)
	return nil
}

func (r *contractRepo) hasSent(applicationID, except uuid.UUID) bool {
	for _, c := range r.db.t.contracts.rows {
		if c.ApplicationID == applicationID && c.Status == model.ContractSent && c.ID != except {
			return true
		}
	}
	return false
}

func (r *contractRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	defer r.db.lock(ctx)()

	c, ok := r.db.t.contracts.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *contractRepo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Contract, error) {
	defer r.db.lock(ctx)()

	var out []model.Contract
	for _, c := range r.db.t.contracts.all() {
		if c.ApplicationID == applicationID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *contractRepo) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ContractStatus, patch repository.ContractPatch) error {
	defer r.db.lock(ctx)()

	c, ok := r.db.t.contracts.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	if c.Status != expected {
		return repository.ErrStaleWrite
	}
	if patch.Status == model.ContractSent && r.hasSent(c.ApplicationID, id) {
		return repository.ErrConflict
	}
	patch.Apply(&c)
	c.UpdatedAt = r.db.stamp()
	r.db.t.contracts.put(id, c)
	return nil
}

type messageRepo struct {
	db *DB
}

func (r *messageRepo) Create(ctx context.Context, msg *model.Message) error {
	defer r.db.lock(ctx)()

	if msg.IsOpenInfoRequest() {
		for _, m := range r.db.t.messages.rows {
			if m.ApplicationID == msg.ApplicationID && m.IsOpenInfoRequest() {
				return repository.ErrConflict
			}
		}
	}
	assignID(&msg.ID)
	msg.CreatedAt = r.db.stamp()
	r.db.t.messages.put(msg.ID, *msg)
	return nil
}

func (r *messageRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	defer r.db.lock(ctx)()

	m, ok := r.db.t.messages.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *messageRepo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Message, error) {
	defer r.db.lock(ctx)()

	var out []model.Message
	for _, m := range r.db.t.messages.all() {
		if m.ApplicationID == applicationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *messageRepo) CloseInfoRequest(ctx context.Context, id uuid.UUID) error {
	defer r.db.lock(ctx)()

	m, ok := r.db.t.messages.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	if !m.IsOpenInfoRequest() {
		return repository.ErrStaleWrite
	}
	m.IsRead = true
	r.db.t.messages.put(id, m)
	return nil
}

type contractRequestRepo struct {
	db *DB
}

func (r *contractRequestRepo) Create(ctx context.Context, req *model.ContractRequest) error {
	defer r.db.lock(ctx)()

	assignID(&req.ID)
	now := r.db.stamp()
	req.CreatedAt, req.UpdatedAt = now, now
	r.db.t.contractRequests.put(req.ID, *req)
	return nil
}

func (r *contractRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ContractRequest, error) {
	defer r.db.lock(ctx)()

	req, ok := r.db.t.contractRequests.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r *contractRequestRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.ContractRequest, error) {
	defer r.db.lock(ctx)()

	var out []model.ContractRequest
	for _, req := range reversed(r.db.t.contractRequests.all()) {
		if req.ContractID == contractID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *contractRequestRepo) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected model.ContractRequestStatus, patch repository.ContractRequestPatch) error {
	defer r.db.lock(ctx)()

	req, ok := r.db.t.contractRequests.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != expected {
		return repository.ErrStaleWrite
	}
	patch.Apply(&req)
	req.UpdatedAt = r.db.stamp()
	r.db.t.contractRequests.put(id, req)
	return nil
}
