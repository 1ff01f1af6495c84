// Package notify turns the notices of an applied decision into stored
// notifications and delivers them over the configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"leaseflow/internal/logger"
	"leaseflow/internal/metrics"
	"leaseflow/internal/model"
	"leaseflow/internal/repository"
	"leaseflow/internal/workflow"

	"github.com/google/uuid"
)

// Delivery is a newly stored notification together with its recipient.
type Delivery struct {
	Notification model.Notification
	Recipient    model.User
}

// Dispatcher stores notifications. It runs inside the caller's transaction so a
// rolled-back transition leaves no notification behind.
type Dispatcher struct {
	store *repository.Store
	log   logger.Logger
}

func NewDispatcher(store *repository.Store, log logger.Logger) *Dispatcher {
	return &Dispatcher{store: store, log: log.WithFields(map[string]interface{}{"component": "notify"})}
}

// DedupeKey identifies one notice per recipient within one applied decision.
func DedupeKey(n workflow.Notice, userID uuid.UUID) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", n.DecisionID, n.SubjectID, n.Action, n.Recipient.Role, userID)
}

// Dispatch resolves the recipients of each notice and stores one notification per
// recipient. Notices whose key was already stored are skipped, so dispatching the
// same decision twice does not notify twice.
func (d *Dispatcher) Dispatch(ctx context.Context, notices []workflow.Notice) ([]Delivery, error) {
	var out []Delivery
	for _, n := range notices {
		users, err := d.resolve(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("resolve recipients for %s: %w", n.Category, err)
		}
		if len(users) == 0 {
			d.log.Debug("notice has no recipient", map[string]interface{}{
				"category": string(n.Category),
				"role":     string(n.Recipient.Role),
				"subject":  n.SubjectID.String(),
			})
			continue
		}

		for _, u := range users {
			refID := n.Ref.ID
			row := model.Notification{
				UserID:        u.ID,
				Title:         n.Title,
				Message:       n.Body,
				Category:      n.Category,
				ReferenceType: n.Ref.Type,
				ReferenceID:   &refID,
				Link:          workflow.DeepLink(u.Role, n.Ref),
				DedupeKey:     DedupeKey(n, u.ID),
			}
			created, err := d.store.Notifications.CreateIfAbsent(ctx, &row)
			if err != nil {
				return nil, fmt.Errorf("store notification: %w", err)
			}
			if !created {
				continue
			}
			metrics.NotificationsCreated.WithLabelValues(string(n.Category)).Inc()
			out = append(out, Delivery{Notification: row, Recipient: u})
		}
	}
	return out, nil
}

func (d *Dispatcher) resolve(ctx context.Context, n workflow.Notice) ([]model.User, error) {
	r := n.Recipient
	if r.UserID != nil {
		u, err := d.store.Users.GetByID(ctx, *r.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !u.IsActive {
			return nil, nil
		}
		return []model.User{*u}, nil
	}

	switch r.Role {
	case model.RoleAdmin:
		return d.store.Users.ListByRole(ctx, model.RoleAdmin)
	case model.RoleCustomer:
		return d.unclaimedCustomer(ctx, n.SubjectID)
	}
	return nil, nil
}

// unclaimedCustomer finds the account matching the contact email of an application
// that no customer has claimed yet. Only a verified address counts.
func (d *Dispatcher) unclaimedCustomer(ctx context.Context, applicationID uuid.UUID) ([]model.User, error) {
	app, err := d.store.Applications.FindByID(ctx, applicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u, err := d.store.Users.GetByEmail(ctx, app.ContactEmail)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleCustomer || !u.EmailVerified || !u.IsActive {
		return nil, nil
	}
	return []model.User{*u}, nil
}
