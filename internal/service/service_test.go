package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"leaseflow/internal/logger"
	"leaseflow/internal/model"
	"leaseflow/internal/notify"
	"leaseflow/internal/repository"
	"leaseflow/internal/repository/memstore"
	"leaseflow/internal/visibility"
	"leaseflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingHub struct {
	mu     sync.Mutex
	pushes map[uuid.UUID]int
}

func (h *recordingHub) SendToUser(userID uuid.UUID, _ []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pushes == nil {
		h.pushes = map[uuid.UUID]int{}
	}
	h.pushes[userID]++
	return 1
}

func (h *recordingHub) count(id uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushes[id]
}

type env struct {
	t     *testing.T
	ctx   context.Context
	store *repository.Store
	hub   *recordingHub

	lifecycle     LifecycleService
	apps          ApplicationService
	contracts     ContractService
	notifications NotificationService
	users         UserService
	audit         AuditService
	stats         StatisticsService

	customer  visibility.Principal
	financier visibility.Principal
	admin     visibility.Principal
	admin2    visibility.Principal
}

func newEnv(t *testing.T) *env {
	return newEnvWithStore(t, memstore.NewWithClock(func() time.Time { return testNow }))
}

func newEnvWithStore(t *testing.T, store *repository.Store) *env {
	t.Helper()
	e := &env{t: t, ctx: context.Background(), store: store, hub: &recordingHub{}}
	log := logger.NewTestLogger(t)
	deps := Deps{
		Store:     store,
		Log:       log,
		Now:       func() time.Time { return testNow },
		Deliverer: notify.NewDeliverer(notify.NopCounter{}, log, notify.NewPushChannel(e.hub)),
	}
	e.lifecycle = NewLifecycleService(deps)
	e.apps = NewApplicationService(deps)
	e.contracts = NewContractService(deps)
	e.notifications = NewNotificationService(deps)
	e.users = NewUserService(deps)
	e.audit = NewAuditService(deps)
	e.stats = NewStatisticsService(deps)

	e.customer = e.user("buyer@example.com", model.RoleCustomer)
	e.financier = e.user("fin@example.com", model.RoleFinancier)
	e.admin = e.user("admin@example.com", model.RoleAdmin)
	e.admin2 = e.user("admin2@example.com", model.RoleAdmin)
	return e
}

func (e *env) user(email string, role model.Role) visibility.Principal {
	e.t.Helper()
	u := model.User{Email: email, EmailVerified: true, Role: role, IsActive: true, FullName: email}
	require.NoError(e.t, e.store.Users.Create(e.ctx, &u))
	return visibility.FromUser(&u)
}

func applicationInput() CreateApplicationRequest {
	return CreateApplicationRequest{
		Type:                 string(model.ApplicationTypeLeasing),
		CompanyName:          "Konepaja Oy",
		BusinessID:           "1234567-8",
		EquipmentDescription: "CNC lathe",
		RequestedAmount:      decimal.NewFromInt(50000),
		RequestedTermMonths:  36,
	}
}

func (e *env) newApplication() uuid.UUID {
	e.t.Helper()
	app, err := e.apps.CreateApplication(e.ctx, e.customer, applicationInput())
	require.NoError(e.t, err)
	return app.ID
}

func (e *env) transition(p visibility.Principal, id uuid.UUID, action workflow.Action, payload workflow.Payload) *TransitionResult {
	e.t.Helper()
	res, err := e.lifecycle.RequestTransition(e.ctx, p, id, action, payload)
	require.NoError(e.t, err, "action %s", action)
	return res
}

func offerPayload() workflow.Payload {
	return workflow.Payload{Offer: &workflow.OfferTerms{
		MonthlyPayment: decimal.NewFromInt(1000),
		TermMonths:     36,
		InternalNotes:  "margin 4.1%",
	}}
}

// advance walks a new application along the happy path until it reaches to.
func (e *env) advance(to model.ApplicationStatus) uuid.UUID {
	e.t.Helper()
	id := e.newApplication()
	fid := e.financier.UserID
	path := []struct {
		action workflow.Action
		actor  visibility.Principal
		p      workflow.Payload
	}{
		{workflow.ActionSubmit, e.customer, workflow.Payload{}},
		{workflow.ActionRouteToFinancier, e.admin, workflow.Payload{FinancierID: &fid}},
		{workflow.ActionCreateOffer, e.financier, offerPayload()},
		{workflow.ActionApproveOffer, e.admin, workflow.Payload{}},
		{workflow.ActionAcceptOffer, e.customer, workflow.Payload{}},
		{workflow.ActionSendContract, e.financier, workflow.Payload{}},
		{workflow.ActionSignContract, e.customer, workflow.Payload{SignerName: "Maija Meikäläinen"}},
		{workflow.ActionClose, e.admin, workflow.Payload{}},
	}
	app, err := e.store.Applications.FindByID(e.ctx, id)
	require.NoError(e.t, err)
	for _, st := range path {
		if app.Status == to {
			break
		}
		res := e.transition(st.actor, id, st.action, st.p)
		app.Status = res.To
	}
	require.Equal(e.t, to, app.Status)
	return id
}

func (e *env) activeContract(appID uuid.UUID) model.Contract {
	e.t.Helper()
	contracts, err := e.store.Contracts.ListByApplication(e.ctx, appID)
	require.NoError(e.t, err)
	for _, c := range contracts {
		if c.Status == model.ContractActive {
			return c
		}
	}
	e.t.Fatalf("application %s has no active contract", appID)
	return model.Contract{}
}
