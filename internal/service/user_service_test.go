package service

import (
	"testing"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	e := newEnv(t)

	_, err := e.users.RegisterUser(e.ctx, e.financier, RegisterUserRequest{Email: "new@example.com", Role: "FINANCIER"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	u, err := e.users.RegisterUser(e.ctx, e.admin, RegisterUserRequest{
		Email:         " New.Financier@Example.com ",
		EmailVerified: true,
		Role:          "FINANCIER",
		FullName:      "Nina Rahoittaja",
		Phone:         "+358401112223",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.financier@example.com", u.Email)
	assert.Equal(t, model.RoleFinancier, u.Role)
	assert.True(t, u.IsActive)

	tests := []struct {
		name string
		req  RegisterUserRequest
	}{
		{"duplicate email", RegisterUserRequest{Email: "new.financier@example.com", Role: "CUSTOMER"}},
		{"bad role", RegisterUserRequest{Email: "x@example.com", Role: "SUPERUSER"}},
		{"bad email", RegisterUserRequest{Email: "not-an-email", Role: "CUSTOMER"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.users.RegisterUser(e.ctx, e.admin, tt.req)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}

	trail, _, err := e.audit.ListAuditTrail(e.ctx, e.admin, nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, model.ActionRegisterUser, trail[0].Action)
	assert.Equal(t, e.admin.Email, trail[0].UserEmail)
}

func TestListUsersByRole(t *testing.T) {
	e := newEnv(t)

	admins, total, err := e.users.ListUsers(e.ctx, e.admin, model.RoleAdmin, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, admins, 2)

	_, _, err = e.users.ListUsers(e.ctx, e.customer, "", 1, 10)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestResolveRereadsTheStore(t *testing.T) {
	e := newEnv(t)

	p, err := e.users.Resolve(e.ctx, e.financier.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleFinancier, p.Role)

	me, err := e.users.Me(e.ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "fin@example.com", me.Email)

	_, err = e.users.Resolve(e.ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	disabled := model.User{Email: "gone@example.com", Role: model.RoleCustomer, IsActive: false}
	require.NoError(t, e.store.Users.Create(e.ctx, &disabled))
	_, err = e.users.Resolve(e.ctx, disabled.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestAuditTrailIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.audit.ListAuditTrail(e.ctx, e.financier, nil, 1, 10)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	e := newEnv(t)

	created, err := e.users.EnsureAdmin(e.ctx, "  Root@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", created.Email)
	assert.Equal(t, model.RoleAdmin, created.Role)
	assert.True(t, created.EmailVerified)

	again, err := e.users.EnsureAdmin(e.ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	_, total, err := e.users.ListUsers(e.ctx, e.admin, model.RoleAdmin, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	p, err := e.users.Resolve(e.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, p.Role)
}
