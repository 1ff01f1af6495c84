package service

import (
	"testing"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"
	"leaseflow/internal/timeline"
	"leaseflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineOfActiveContract(t *testing.T) {
	e := newEnv(t)
	appID := e.advance(model.ApplicationClosed)
	c := e.activeContract(appID)

	asOf := testNow.Add(18 * timeline.AverageMonth)
	view, err := e.contracts.GetTimeline(e.ctx, e.customer, c.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, 36, view.TermMonths)
	assert.Equal(t, 18, view.ElapsedMonths)
	assert.Equal(t, 18, view.RemainingMonths)
	assert.InDelta(t, 50.0, view.ProgressPercent, 0.001)
	assert.Equal(t, "18000", view.PaidAmount.String())
	assert.Equal(t, "18000", view.RemainingAmount.String())

	// zero asOf means now
	view, err = e.contracts.GetTimeline(e.ctx, e.customer, c.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, view.ElapsedMonths)
}

func TestTimelineRejectsInactiveContract(t *testing.T) {
	e := newEnv(t)
	appID := e.advance(model.ApplicationContractSent)
	contracts, err := e.apps.ListContracts(e.ctx, e.customer, appID)
	require.NoError(t, err)
	require.Len(t, contracts, 1)

	_, err = e.contracts.GetTimeline(e.ctx, e.customer, contracts[0].ID, testNow)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.contracts.GetTimeline(e.ctx, e.customer, uuid.New(), testNow)
	assert.ErrorIs(t, err, apperror.ErrVisibilityDenied)
}

func TestScheduleStream(t *testing.T) {
	e := newEnv(t)
	c := e.activeContract(e.advance(model.ApplicationClosed))

	seq, err := e.contracts.Schedule(e.ctx, e.financier, c.ID, testNow.Add(2*timeline.AverageMonth))
	require.NoError(t, err)
	var phases []timeline.Phase
	for entry := range seq {
		phases = append(phases, entry.Phase)
	}
	require.Len(t, phases, 36)
	assert.Equal(t, timeline.PhasePast, phases[0])
	assert.Equal(t, timeline.PhaseFuture, phases[35])
}

func TestCompleteContract(t *testing.T) {
	e := newEnv(t)
	c := e.activeContract(e.advance(model.ApplicationClosed))

	_, err := e.contracts.CompleteContract(e.ctx, e.financier, c.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	done, err := e.contracts.CompleteContract(e.ctx, e.admin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, err = e.contracts.CompleteContract(e.ctx, e.admin, c.ID)
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)

	// a completed contract still has a timeline
	_, err = e.contracts.GetTimeline(e.ctx, e.customer, c.ID, testNow)
	assert.NoError(t, err)
}

func TestContractRequestLifecycle(t *testing.T) {
	e := newEnv(t)
	c := e.activeContract(e.advance(model.ApplicationClosed))

	_, err := e.contracts.OpenContractRequest(e.ctx, e.financier, c.ID, OpenContractRequestDTO{Type: "EARLY_PAYOFF"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = e.contracts.OpenContractRequest(e.ctx, e.customer, c.ID, OpenContractRequestDTO{Type: "REFINANCE"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.contracts.OpenContractRequest(e.ctx, e.customer, c.ID, OpenContractRequestDTO{Type: "EARLY_PAYOFF"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	req, err := e.contracts.OpenContractRequest(e.ctx, e.customer, c.ID, OpenContractRequestDTO{Type: "EARLY_PAYOFF", Message: "payoff quote please"})
	require.NoError(t, err)
	assert.Equal(t, model.ContractRequestPending, req.Status)

	rows, _, err := e.notifications.ListNotifications(e.ctx, e.financier, NotificationQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, model.CategoryRequestReceived, rows[0].Category)

	_, err = e.contracts.ResolveContractRequest(e.ctx, e.customer, req.ID, workflow.ActionCompleteRequest, ResolveContractRequestDTO{Response: "x"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	processing, err := e.contracts.ResolveContractRequest(e.ctx, e.financier, req.ID, workflow.ActionProcessRequest, ResolveContractRequestDTO{})
	require.NoError(t, err)
	assert.Equal(t, model.ContractRequestProcessing, processing.Status)

	_, err = e.contracts.ResolveContractRequest(e.ctx, e.financier, req.ID, workflow.ActionCompleteRequest, ResolveContractRequestDTO{})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	done, err := e.contracts.ResolveContractRequest(e.ctx, e.financier, req.ID, workflow.ActionCompleteRequest,
		ResolveContractRequestDTO{Response: "Payoff amount is 17 500 EUR"})
	require.NoError(t, err)
	assert.Equal(t, model.ContractRequestCompleted, done.Status)
	require.NotNil(t, done.RespondedBy)
	assert.Equal(t, e.financier.UserID, *done.RespondedBy)

	_, err = e.contracts.ResolveContractRequest(e.ctx, e.financier, req.ID, workflow.ActionRejectRequest, ResolveContractRequestDTO{})
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)

	answered, _, err := e.notifications.ListNotifications(e.ctx, e.customer, NotificationQuery{})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryRequestAnswered, answered[0].Category)

	listed, err := e.contracts.ListContractRequests(e.ctx, e.customer, c.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	stranger := e.user("x@example.com", model.RoleCustomer)
	_, err = e.contracts.ListContractRequests(e.ctx, stranger, c.ID)
	assert.ErrorIs(t, err, apperror.ErrVisibilityDenied)
	_, err = e.contracts.ResolveContractRequest(e.ctx, e.admin, uuid.New(), workflow.ActionRejectRequest, ResolveContractRequestDTO{})
	assert.ErrorIs(t, err, apperror.ErrVisibilityDenied)
}

func TestGetContractRedactsForCustomer(t *testing.T) {
	e := newEnv(t)
	appID := e.advance(model.ApplicationOfferAccepted)
	e.transition(e.financier, appID, workflow.ActionSendContract, workflow.Payload{
		Contract: &workflow.ContractTerms{InternalNotes: "collateral pending"},
	})
	contracts, err := e.store.Contracts.ListByApplication(e.ctx, appID)
	require.NoError(t, err)
	require.Len(t, contracts, 1)

	got, err := e.contracts.GetContract(e.ctx, e.customer, contracts[0].ID)
	require.NoError(t, err)
	assert.Empty(t, got.InternalNotes)

	got, err = e.contracts.GetContract(e.ctx, e.financier, contracts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "collateral pending", got.InternalNotes)
}
