package service

import (
	"context"
	"errors"

	"leaseflow/internal/apperror"
	"leaseflow/internal/metrics"
	"leaseflow/internal/model"
	"leaseflow/internal/repository"
	"leaseflow/internal/visibility"

	"github.com/google/uuid"
)

type NotificationQuery struct {
	UnreadOnly bool
	Page       int
	Limit      int
}

// NotificationService exposes a caller's own notifications. No method reads
// or changes another user's rows.
type NotificationService interface {
	ListNotifications(ctx context.Context, p visibility.Principal, q NotificationQuery) ([]model.Notification, int64, error)
	UnreadCount(ctx context.Context, p visibility.Principal) (int64, error)
	MarkRead(ctx context.Context, p visibility.Principal, id uuid.UUID) error
	MarkAllRead(ctx context.Context, p visibility.Principal) (int64, error)
}

type notificationService struct {
	base
}

func NewNotificationService(deps Deps) NotificationService {
	return &notificationService{base: newBase(deps)}
}

func (s *notificationService) ListNotifications(ctx context.Context, p visibility.Principal, q NotificationQuery) ([]model.Notification, int64, error) {
	rows, total, err := s.store().Notifications.ListByUser(ctx, p.UserID, repository.NotificationFilter{
		UnreadOnly: q.UnreadOnly,
		Page:       q.Page,
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, 0, apperror.Internal("failed to list notifications", err)
	}
	return rows, total, nil
}

// UnreadCount is served from the counter cache when possible. A miss refills
// the cache only if no delivery invalidated it while the count was read.
func (s *notificationService) UnreadCount(ctx context.Context, p visibility.Principal) (int64, error) {
	n, gen, ok := s.deps.Counter.Get(ctx, p.UserID)
	if ok {
		metrics.RecordCacheLookup(true)
		return n, nil
	}
	metrics.RecordCacheLookup(false)

	n, err := s.store().Notifications.CountUnread(ctx, p.UserID)
	if err != nil {
		return 0, apperror.Internal("failed to count notifications", err)
	}
	s.deps.Counter.Set(ctx, p.UserID, n, gen)
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, p visibility.Principal, id uuid.UUID) error {
	err := s.store().Notifications.MarkRead(ctx, id, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("notification", id.String())
	}
	if err != nil {
		return apperror.Internal("failed to mark notification read", err)
	}
	s.deps.Counter.Invalidate(ctx, p.UserID)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, p visibility.Principal) (int64, error) {
	n, err := s.store().Notifications.MarkAllRead(ctx, p.UserID)
	if err != nil {
		return 0, apperror.Internal("failed to mark notifications read", err)
	}
	s.deps.Counter.Invalidate(ctx, p.UserID)
	return n, nil
}
