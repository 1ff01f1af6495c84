package workflow

import (
	"fmt"
	"math/rand/v2"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"

	"github.com/google/uuid"
)

type Engine struct {
	newID          func() uuid.UUID
	contractNumber func() string
}

type Option func(*Engine)

// WithIDGenerator fixes the ids given to decisions and created children.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(e *Engine) { e.newID = fn }
}

func WithContractNumbers(fn func() string) Option {
	return func(e *Engine) { e.contractNumber = fn }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		newID: uuid.New,
		contractNumber: func() string {
			return fmt.Sprintf("KNT-SOP-%06d", rand.IntN(1_000_000))
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide validates req against the transition table and the snapshot and returns
// the resulting decision. It never mutates s.
func (e *Engine) Decide(s Snapshot, req Request) (*Decision, error) {
	app := s.Application
	r, ok := transitions[key{from: app.Status, role: req.Actor.Role, action: req.Action}]
	if !ok {
		return nil, apperror.IllegalTransition(model.EntityApplication, string(app.Status), string(req.Actor.Role), string(req.Action))
	}
	if req.Now.IsZero() {
		req.Now = time.Now().UTC()
	}

	d := &Decision{
		ID:            e.newID(),
		Action:        req.Action,
		Actor:         req.Actor,
		ApplicationID: app.ID,
		From:          app.Status,
		To:            r.to,
	}
	if r.effect != nil {
		if err := r.effect(e, s, req, d); err != nil {
			return nil, err
		}
	}
	d.Patch.Status = r.to
	return d, nil
}

func validation(msg string, details map[string]interface{}) error {
	return apperror.Validation(msg, details)
}

func offersIn(s Snapshot, statuses ...model.OfferStatus) []model.Offer {
	var out []model.Offer
	for _, o := range s.Offers {
		for _, st := range statuses {
			if o.Status == st {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

func contractsIn(s Snapshot, statuses ...model.ContractStatus) []model.Contract {
	var out []model.Contract
	for _, c := range s.Contracts {
		for _, st := range statuses {
			if c.Status == st {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// single picks the only candidate, honouring an explicit id when the caller gave one.
func single[T any](candidates []T, id func(T) uuid.UUID, want *uuid.UUID, what string) (T, error) {
	var zero T
	if want != nil {
		for _, c := range candidates {
			if id(c) == *want {
				return c, nil
			}
		}
		return zero, validation(fmt.Sprintf("no %s with id %s", what, want), map[string]interface{}{"id": want.String()})
	}
	if len(candidates) != 1 {
		return zero, validation(fmt.Sprintf("expected exactly one %s, found %d", what, len(candidates)),
			map[string]interface{}{"count": len(candidates)})
	}
	return candidates[0], nil
}

func offerID(o model.Offer) uuid.UUID       { return o.ID }
func contractID(c model.Contract) uuid.UUID { return c.ID }
