package memstore

import (
	"context"
	"strings"

	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
)

type userRepo struct {
	db *DB
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	defer r.db.lock(ctx)()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.db.t.users.rows {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	assignID(&u.ID)
	now := r.db.stamp()
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.t.users.put(u.ID, *u)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	defer r.db.lock(ctx)()

	u, ok := r.db.t.users.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer r.db.lock(ctx)()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.db.t.users.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	defer r.db.lock(ctx)()

	var out []model.User
	for _, u := range r.db.t.users.all() {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *userRepo) List(ctx context.Context, role model.Role, page, limit int) ([]model.User, int64, error) {
	defer r.db.lock(ctx)()

	var matched []model.User
	for _, u := range reversed(r.db.t.users.all()) {
		if role == "" || u.Role == role {
			matched = append(matched, u)
		}
	}
	return paginate(matched, page, limit), int64(len(matched)), nil
}

type notificationRepo struct {
	db *DB
}

func (r *notificationRepo) CreateIfAbsent(ctx context.Context, n *model.Notification) (bool, error) {
	defer r.db.lock(ctx)()

	for _, existing := range r.db.t.notifications.rows {
		if existing.DedupeKey == n.DedupeKey {
			*n = existing
			return false, nil
		}
	}
	assignID(&n.ID)
	n.CreatedAt = r.db.stamp()
	r.db.t.notifications.put(n.ID, *n)
	return true, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, f repository.NotificationFilter) ([]model.Notification, int64, error) {
	defer r.db.lock(ctx)()

	var matched []model.Notification
	for _, n := range reversed(r.db.t.notifications.all()) {
		if n.UserID != userID || (f.UnreadOnly && n.IsRead) {
			continue
		}
		matched = append(matched, n)
	}
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.db.lock(ctx)()

	var count int64
	for _, n := range r.db.t.notifications.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	defer r.db.lock(ctx)()

	n, ok := r.db.t.notifications.get(id)
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	if !n.IsRead {
		now := r.db.stamp()
		n.IsRead, n.ReadAt = true, &now
		r.db.t.notifications.put(id, n)
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.db.lock(ctx)()

	now := r.db.stamp()
	var updated int64
	for _, id := range r.db.t.notifications.order {
		n := r.db.t.notifications.rows[id]
		if n.UserID == userID && !n.IsRead {
			n.IsRead, n.ReadAt = true, &now
			r.db.t.notifications.rows[id] = n
			updated++
		}
	}
	return updated, nil
}

type auditRepo struct {
	db *DB
}

func (r *auditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	defer r.db.lock(ctx)()

	assignID(&entry.ID)
	if entry.Details == "" {
		entry.Details = "{}"
	}
	entry.CreatedAt = r.db.stamp()
	r.db.t.audit.put(entry.ID, *entry)
	return nil
}

func (r *auditRepo) List(ctx context.Context, applicationID *uuid.UUID, page, limit int) ([]model.AuditLog, int64, error) {
	defer r.db.lock(ctx)()

	var matched []model.AuditLog
	for _, l := range reversed(r.db.t.audit.all()) {
		if applicationID != nil && (l.ApplicationID == nil || *l.ApplicationID != *applicationID) {
			continue
		}
		if l.UserID != nil {
			if u, ok := r.db.t.users.get(*l.UserID); ok {
				l.User = &u
			}
		}
		matched = append(matched, l)
	}
	return paginate(matched, page, limit), int64(len(matched)), nil
}
