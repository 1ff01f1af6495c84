package notify

import (
	"context"
	"testing"

	"leaseflow/internal/logger"
	"leaseflow/internal/model"
	"leaseflow/internal/repository"
	"leaseflow/internal/repository/memstore"
	"leaseflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *repository.Store
	customer  model.User
	financier model.User
	admins    []model.User
	app       model.Application
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memstore.New()}

	mk := func(email string, role model.Role, verified bool) model.User {
		u := model.User{Email: email, Role: role, EmailVerified: verified, IsActive: true, Phone: "+358401234567"}
		require.NoError(t, f.store.Users.Create(ctx, &u))
		return u
	}
	f.customer = mk("buyer@example.com", model.RoleCustomer, true)
	f.financier = mk("fin@example.com", model.RoleFinancier, true)
	f.admins = []model.User{mk("a1@example.com", model.RoleAdmin, true), mk("a2@example.com", model.RoleAdmin, true)}
	inactive := model.User{Email: "gone@example.com", Role: model.RoleAdmin}
	require.NoError(t, f.store.Users.Create(ctx, &inactive))

	f.app = model.Application{
		ReferenceNumber: "LEA-2025-000001",
		Type:            model.ApplicationTypeLeasing,
		Status:          model.ApplicationDraft,
		ContactEmail:    "Buyer@Example.com",
		CompanyName:     "Konepaja Oy",
		RequestedAmount: decimal.NewFromInt(1000),
	}
	require.NoError(t, f.store.Applications.Create(ctx, &f.app))
	return f
}

func notice(f *fixture, role model.Role, userID *uuid.UUID) workflow.Notice {
	ref := workflow.EntityRef{Type: model.EntityApplication, ID: f.app.ID}
	return workflow.Notice{
		DecisionID: uuid.New(),
		SubjectID:  f.app.ID,
		Action:     workflow.ActionCancel,
		Recipient:  workflow.Recipient{Role: role, UserID: userID},
		Category:   model.CategoryApplicationCanceled,
		Title:      "Application cancelled",
		Body:       "cancelled",
		Ref:        ref,
	}
}

func TestDispatch_AdminFanOut(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.store, logger.NewTestLogger(t))

	out, err := d.Dispatch(context.Background(), []workflow.Notice{notice(f, model.RoleAdmin, nil)})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i, del := range out {
		assert.Equal(t, f.admins[i].ID, del.Recipient.ID)
		assert.Equal(t, "/admin/applications/"+f.app.ID.String(), del.Notification.Link)
		assert.Equal(t, model.EntityApplication, del.Notification.ReferenceType)
		assert.False(t, del.Notification.IsRead)
	}
}

func TestDispatch_IsIdempotentPerDecision(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.store, logger.NewNoOpLogger())
	fid := f.financier.ID
	n := notice(f, model.RoleFinancier, &fid)

	first, err := d.Dispatch(context.Background(), []workflow.Notice{n})
	require.NoError(t, err)
	require.Len(t, first, 1)

	again, err := d.Dispatch(context.Background(), []workflow.Notice{n})
	require.NoError(t, err)
	assert.Empty(t, again)

	count, err := f.store.Notifications.CountUnread(context.Background(), f.financier.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestDispatch_UnclaimedCustomerByVerifiedEmail(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.store, logger.NewNoOpLogger())

	out, err := d.Dispatch(context.Background(), []workflow.Notice{notice(f, model.RoleCustomer, nil)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, f.customer.ID, out[0].Recipient.ID)
	assert.Equal(t, "/customer/applications/"+f.app.ID.String(), out[0].Notification.Link)
}

func TestDispatch_SkipsUnknownAndInactiveRecipients(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.store, logger.NewNoOpLogger())
	missing := uuid.New()

	other := model.Application{
		ReferenceNumber: "LEA-2025-000002",
		Type:            model.ApplicationTypeLeasing,
		Status:          model.ApplicationDraft,
		ContactEmail:    "nobody@example.com",
		RequestedAmount: decimal.NewFromInt(1),
	}
	require.NoError(t, f.store.Applications.Create(context.Background(), &other))
	noAccount := notice(f, model.RoleCustomer, nil)
	noAccount.SubjectID = other.ID

	out, err := d.Dispatch(context.Background(), []workflow.Notice{
		notice(f, model.RoleFinancier, &missing),
		noAccount,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDedupeKey(t *testing.T) {
	f := newFixture(t)
	n := notice(f, model.RoleAdmin, nil)
	a, b := uuid.New(), uuid.New()

	assert.NotEqual(t, DedupeKey(n, a), DedupeKey(n, b))
	assert.Equal(t, DedupeKey(n, a), DedupeKey(n, a))
	assert.LessOrEqual(t, len(DedupeKey(n, a)), 255)
}
