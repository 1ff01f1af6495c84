package service

import (
	"context"
	"testing"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/logger"
	"leaseflow/internal/model"
	"leaseflow/internal/notify"
	"leaseflow/internal/repository/memstore"
	"leaseflow/internal/workflow"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationReadFlow(t *testing.T) {
	e := newEnv(t)
	e.advance(model.ApplicationOfferSent)

	n, err := e.notifications.UnreadCount(e.ctx, e.customer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, total, err := e.notifications.ListNotifications(e.ctx, e.admin, NotificationQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.CategoryOfferPending, rows[0].Category)

	// only the owner can mark a row read
	err = e.notifications.MarkRead(e.ctx, e.admin2, rows[0].ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	require.NoError(t, e.notifications.MarkRead(e.ctx, e.admin, rows[0].ID))

	unread, _, err := e.notifications.ListNotifications(e.ctx, e.admin, NotificationQuery{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	marked, err := e.notifications.MarkAllRead(e.ctx, e.financier)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)
	n, err = e.notifications.UnreadCount(e.ctx, e.financier)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnreadCountUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	log := logger.NewTestLogger(t)
	counter := notify.NewRedisCounter(client, time.Minute, log)

	store := memstore.NewWithClock(func() time.Time { return testNow })
	deps := Deps{
		Store:     store,
		Log:       log,
		Counter:   counter,
		Now:       func() time.Time { return testNow },
		Deliverer: notify.NewDeliverer(counter, log),
	}
	e := &env{t: t, ctx: context.Background(), store: store}
	e.lifecycle = NewLifecycleService(deps)
	e.apps = NewApplicationService(deps)
	e.notifications = NewNotificationService(deps)
	e.customer = e.user("buyer@example.com", model.RoleCustomer)
	e.financier = e.user("fin@example.com", model.RoleFinancier)
	e.admin = e.user("admin@example.com", model.RoleAdmin)

	id := e.advance(model.ApplicationSubmitted)

	n, err := e.notifications.UnreadCount(e.ctx, e.financier)
	require.NoError(t, err)
	assert.Zero(t, n)
	cached, _, ok := counter.Get(e.ctx, e.financier.UserID)
	require.True(t, ok)
	assert.Zero(t, cached)

	// delivery invalidates the cached value
	fid := e.financier.UserID
	e.transition(e.admin, id, workflow.ActionRouteToFinancier, workflow.Payload{FinancierID: &fid})
	_, _, ok = counter.Get(e.ctx, fid)
	assert.False(t, ok)

	n, err = e.notifications.UnreadCount(e.ctx, e.financier)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// a stale cached value is served until invalidated
	_, gen, _ := counter.Get(e.ctx, fid)
	counter.Set(e.ctx, fid, 42, gen)
	n, err = e.notifications.UnreadCount(e.ctx, e.financier)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	_, err = e.notifications.MarkAllRead(e.ctx, e.financier)
	require.NoError(t, err)
	n, err = e.notifications.UnreadCount(e.ctx, e.financier)
	require.NoError(t, err)
	assert.Zero(t, n)
}
