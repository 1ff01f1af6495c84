package service

import (
	"context"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"
	"leaseflow/internal/visibility"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	UserEmail     string  `json:"user_email"`
	Action        string  `json:"action"`
	EntityType    string  `json:"entity_type"`
	EntityID      string  `json:"entity_id"`
	ApplicationID *string `json:"application_id"`
	FromStatus    string  `json:"from_status,omitempty"`
	ToStatus      string  `json:"to_status,omitempty"`
	Details       string  `json:"details"`
	CreatedAt     string  `json:"created_at"`
}

type AuditService interface {
	ListAuditTrail(ctx context.Context, p visibility.Principal, applicationID *uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	base
}

// NewAuditService creates a new AuditService instance
func NewAuditService(deps Deps) AuditService {
	return &auditService{base: newBase(deps)}
}

// ListAuditTrail returns audit rows newest first, optionally for one application.
func (s *auditService) ListAuditTrail(ctx context.Context, p visibility.Principal, applicationID *uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	logs, total, err := s.store().Audit.List(ctx, applicationID, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to list audit trail", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		email := "System"
		userID := ""
		if l.User != nil {
			email = l.User.Email
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		var appID *string
		if l.ApplicationID != nil {
			id := l.ApplicationID.String()
			appID = &id
		}

		res = append(res, AuditLogResponse{
			ID:            l.ID.String(),
			UserID:        userID,
			UserEmail:     email,
			Action:        l.Action,
			EntityType:    l.EntityType,
			EntityID:      l.EntityID,
			ApplicationID: appID,
			FromStatus:    l.FromStatus,
			ToStatus:      l.ToStatus,
			Details:       l.Details,
			CreatedAt:     l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return res, total, nil
}
