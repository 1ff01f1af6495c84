package workflow

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customerID  = uuid.MustParse("00000000-0000-0000-0000-00000000c001")
	financierID = uuid.MustParse("00000000-0000-0000-0000-00000000f001")
	adminID     = uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	testNow     = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
)

func seqIDs() func() uuid.UUID {
	var n uint32
	return func() uuid.UUID {
		n++
		var id uuid.UUID
		id[0] = 0xee
		binary.BigEndian.PutUint32(id[12:], n)
		return id
	}
}

func newTestEngine() *Engine {
	n := 0
	return NewEngine(WithIDGenerator(seqIDs()), WithContractNumbers(func() string {
		n++
		return fmt.Sprintf("KNT-SOP-%06d", n)
	}))
}

func customer() Actor  { return Actor{UserID: customerID, Role: model.RoleCustomer} }
func financier() Actor { return Actor{UserID: financierID, Role: model.RoleFinancier} }
func admin() Actor     { return Actor{UserID: adminID, Role: model.RoleAdmin} }

func actorFor(role model.Role) Actor {
	switch role {
	case model.RoleFinancier:
		return financier()
	case model.RoleAdmin:
		return admin()
	default:
		return customer()
	}
}

func draftApplication() model.Application {
	cid := customerID
	return model.Application{
		ID:                   uuid.MustParse("00000000-0000-0000-0000-0000000000a1"),
		ReferenceNumber:      "LEA-2025-000001",
		Type:                 model.ApplicationTypeLeasing,
		Status:               model.ApplicationDraft,
		CustomerID:           &cid,
		ContactEmail:         "buyer@example.com",
		CompanyName:          "Konepaja Oy",
		BusinessID:           "1234567-8",
		EquipmentDescription: "CNC lathe",
		RequestedAmount:      decimal.NewFromInt(50000),
		RequestedTermMonths:  36,
	}
}

func activeFinancier() *model.User {
	return &model.User{ID: financierID, Email: "fin@example.com", Role: model.RoleFinancier, IsActive: true}
}

// apply mirrors what the service persists for a decision.
func apply(s *Snapshot, d *Decision) {
	d.Patch.Apply(&s.Application)
	for _, id := range d.ClosedInfoRequests {
		for i := range s.Messages {
			if s.Messages[i].ID == id {
				s.Messages[i].IsRead = true
			}
		}
	}
	s.Messages = append(s.Messages, d.NewMessages...)
	for _, u := range d.OfferUpdates {
		for i := range s.Offers {
			if s.Offers[i].ID == u.ID {
				u.Patch.Apply(&s.Offers[i])
			}
		}
	}
	s.Offers = append(s.Offers, d.NewOffers...)
	for _, u := range d.ContractUpdates {
		for i := range s.Contracts {
			if s.Contracts[i].ID == u.ID {
				u.Patch.Apply(&s.Contracts[i])
			}
		}
	}
	s.Contracts = append(s.Contracts, d.NewContracts...)
}

func step(t *testing.T, e *Engine, s *Snapshot, action Action, actor Actor, p Payload) *Decision {
	t.Helper()
	d, err := e.Decide(*s, Request{Action: action, Actor: actor, Payload: p, Now: testNow})
	require.NoError(t, err, "action %s", action)
	apply(s, d)
	return d
}

func offerTerms() *OfferTerms {
	return &OfferTerms{MonthlyPayment: decimal.NewFromInt(500), TermMonths: 36}
}

// advance walks a fresh application to the given status along the happy path.
func advance(t *testing.T, e *Engine, to model.ApplicationStatus) *Snapshot {
	t.Helper()
	fid := financierID
	s := &Snapshot{Application: draftApplication(), Financier: activeFinancier()}
	path := []struct {
		status model.ApplicationStatus
		action Action
		actor  Actor
		p      Payload
	}{
		{model.ApplicationSubmitted, ActionSubmit, customer(), Payload{}},
		{model.ApplicationSubmittedToFinancier, ActionRouteToFinancier, admin(), Payload{FinancierID: &fid}},
		{model.ApplicationOfferReceived, ActionCreateOffer, financier(), Payload{Offer: offerTerms()}},
		{model.ApplicationOfferSent, ActionApproveOffer, admin(), Payload{}},
		{model.ApplicationOfferAccepted, ActionAcceptOffer, customer(), Payload{}},
		{model.ApplicationContractSent, ActionSendContract, financier(), Payload{}},
		{model.ApplicationSigned, ActionSignContract, customer(), Payload{SignerName: "Maija Meikäläinen"}},
		{model.ApplicationClosed, ActionClose, admin(), Payload{}},
	}
	for _, p := range path {
		if s.Application.Status == to {
			return s
		}
		step(t, e, s, p.action, p.actor, p.p)
		require.Equal(t, p.status, s.Application.Status)
	}
	require.Equal(t, to, s.Application.Status)
	return s
}

func TestDecide_IllegalTriplesAreRejected(t *testing.T) {
	legal := map[key]bool{}
	mark := func(from model.ApplicationStatus, role model.Role, a Action) {
		legal[key{from: from, role: role, action: a}] = true
	}
	mark(model.ApplicationDraft, model.RoleCustomer, ActionSubmit)
	mark(model.ApplicationSubmitted, model.RoleAdmin, ActionRouteToFinancier)
	mark(model.ApplicationSubmittedToFinancier, model.RoleFinancier, ActionRequestInfo)
	mark(model.ApplicationInfoRequested, model.RoleCustomer, ActionRespondInfo)
	mark(model.ApplicationSubmittedToFinancier, model.RoleFinancier, ActionCreateOffer)
	mark(model.ApplicationInfoRequested, model.RoleFinancier, ActionCreateOffer)
	mark(model.ApplicationOfferReceived, model.RoleAdmin, ActionApproveOffer)
	mark(model.ApplicationOfferSent, model.RoleCustomer, ActionAcceptOffer)
	mark(model.ApplicationOfferSent, model.RoleCustomer, ActionRejectOffer)
	mark(model.ApplicationOfferAccepted, model.RoleFinancier, ActionSendContract)
	mark(model.ApplicationOfferAccepted, model.RoleAdmin, ActionSendContract)
	mark(model.ApplicationContractSent, model.RoleCustomer, ActionSignContract)
	mark(model.ApplicationSigned, model.RoleAdmin, ActionClose)
	for _, st := range model.AllApplicationStatuses {
		if !st.IsTerminal() {
			mark(st, model.RoleAdmin, ActionCancel)
		}
	}

	e := newTestEngine()
	roles := []model.Role{model.RoleCustomer, model.RoleFinancier, model.RoleAdmin}
	for _, st := range model.AllApplicationStatuses {
		for _, role := range roles {
			for _, a := range AllActions {
				k := key{from: st, role: role, action: a}
				assert.Equal(t, legal[k], Allowed(st, role, a), "%s/%s/%s", st, role, a)
				if legal[k] {
					continue
				}
				app := draftApplication()
				app.Status = st
				_, err := e.Decide(Snapshot{Application: app}, Request{Action: a, Actor: actorFor(role), Now: testNow})
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperror.ErrIllegalTransition), "%s/%s/%s: %v", st, role, a, err)
			}
		}
	}
}

func TestAvailableActions(t *testing.T) {
	assert.Equal(t, []Action{ActionAcceptOffer, ActionRejectOffer}, AvailableActions(model.ApplicationOfferSent, model.RoleCustomer))
	assert.Equal(t, []Action{ActionRequestInfo, ActionCreateOffer}, AvailableActions(model.ApplicationSubmittedToFinancier, model.RoleFinancier))
	assert.Equal(t, []Action{ActionClose, ActionCancel}, AvailableActions(model.ApplicationSigned, model.RoleAdmin))
	assert.Empty(t, AvailableActions(model.ApplicationClosed, model.RoleAdmin))

	to, ok := Target(model.ApplicationInfoRequested, model.RoleCustomer, ActionRespondInfo)
	assert.True(t, ok)
	assert.Equal(t, model.ApplicationSubmittedToFinancier, to)
}

func TestDecide_HappyPathNotifications(t *testing.T) {
	e := newTestEngine()
	fid := financierID
	s := &Snapshot{Application: draftApplication(), Financier: activeFinancier()}

	type want struct {
		role   model.Role
		userID *uuid.UUID
	}
	cid := customerID
	steps := []struct {
		action Action
		actor  Actor
		p      Payload
		to     model.ApplicationStatus
		notes  []want
	}{
		{ActionSubmit, customer(), Payload{}, model.ApplicationSubmitted, nil},
		{ActionRouteToFinancier, admin(), Payload{FinancierID: &fid}, model.ApplicationSubmittedToFinancier,
			[]want{{model.RoleFinancier, &fid}}},
		{ActionCreateOffer, financier(), Payload{Offer: offerTerms()}, model.ApplicationOfferReceived,
			[]want{{model.RoleAdmin, nil}}},
		{ActionApproveOffer, admin(), Payload{}, model.ApplicationOfferSent,
			[]want{{model.RoleCustomer, &cid}}},
		{ActionAcceptOffer, customer(), Payload{}, model.ApplicationOfferAccepted,
			[]want{{model.RoleFinancier, &fid}, {model.RoleAdmin, nil}}},
		{ActionSendContract, financier(), Payload{}, model.ApplicationContractSent,
			[]want{{model.RoleCustomer, &cid}}},
		{ActionSignContract, customer(), Payload{SignerName: "Maija"}, model.ApplicationSigned,
			[]want{{model.RoleFinancier, &fid}, {model.RoleAdmin, nil}}},
	}

	total := 0
	for _, st := range steps {
		d := step(t, e, s, st.action, st.actor, st.p)
		assert.Equal(t, st.to, d.To)
		require.Len(t, d.Notices, len(st.notes), "notices for %s", st.action)
		for i, w := range st.notes {
			n := d.Notices[i]
			assert.Equal(t, w.role, n.Recipient.Role)
			assert.Equal(t, w.userID, n.Recipient.UserID)
			assert.Equal(t, d.ID, n.DecisionID)
			assert.Equal(t, st.action, n.Action)
			assert.NotEmpty(t, n.Link)
		}
		total += len(d.Notices)
	}

	assert.Equal(t, 8, total)
	assert.Equal(t, model.ApplicationSigned, s.Application.Status)
	assert.Equal(t, &fid, s.Application.FinancierID)
	require.Len(t, s.Offers, 1)
	assert.Equal(t, model.OfferAccepted, s.Offers[0].Status)
	require.Len(t, s.Contracts, 1)
	assert.Equal(t, model.ContractSigned, s.Contracts[0].Status)
	assert.Equal(t, "Maija", s.Contracts[0].SignerName)
}

func TestDecide_SubmitValidatesAndClaimsCustomer(t *testing.T) {
	e := newTestEngine()

	app := draftApplication()
	app.BusinessID = ""
	app.RequestedAmount = decimal.Zero
	_, err := e.Decide(Snapshot{Application: app}, Request{Action: ActionSubmit, Actor: customer(), Now: testNow})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"business_id", "requested_amount"}, appErr.Details["missing"])

	intake := draftApplication()
	intake.CustomerID = nil
	d, err := e.Decide(Snapshot{Application: intake}, Request{Action: ActionSubmit, Actor: customer(), Now: testNow})
	require.NoError(t, err)
	require.NotNil(t, d.Patch.CustomerID)
	assert.Equal(t, customerID, *d.Patch.CustomerID)
	assert.Equal(t, testNow, *d.Patch.SubmittedAt)
}

func TestDecide_RouteRequiresActiveFinancier(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationSubmitted)
	fid := financierID

	cases := []struct {
		name      string
		financier *model.User
		payload   Payload
	}{
		{"missing id", activeFinancier(), Payload{}},
		{"unknown user", nil, Payload{FinancierID: &fid}},
		{"wrong role", &model.User{ID: financierID, Role: model.RoleCustomer, IsActive: true}, Payload{FinancierID: &fid}},
		{"inactive", &model.User{ID: financierID, Role: model.RoleFinancier}, Payload{FinancierID: &fid}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := *s
			snap.Financier = tc.financier
			_, err := e.Decide(snap, Request{Action: ActionRouteToFinancier, Actor: admin(), Payload: tc.payload, Now: testNow})
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}

func TestDecide_InfoRequestLoop(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationSubmittedToFinancier)

	_, err := e.Decide(*s, Request{Action: ActionRequestInfo, Actor: financier(), Payload: Payload{Message: "  "}, Now: testNow})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	d := step(t, e, s, ActionRequestInfo, financier(), Payload{Message: "Send the latest balance sheet", RequestedDocuments: []string{"balance_sheet"}})
	require.Len(t, d.NewMessages, 1)
	request := d.NewMessages[0]
	assert.True(t, request.IsOpenInfoRequest())
	assert.Equal(t, []string{"balance_sheet"}, request.RequestedDocuments)
	require.Len(t, d.Notices, 1)
	assert.Equal(t, model.CategoryInfoRequested, d.Notices[0].Category)
	assert.Equal(t, model.ApplicationInfoRequested, s.Application.Status)

	// a reply must point at the open request and carry content
	other := uuid.New()
	_, err = e.Decide(*s, Request{Action: ActionRespondInfo, Actor: customer(), Payload: Payload{ReplyTo: &other, Message: "here"}, Now: testNow})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	_, err = e.Decide(*s, Request{Action: ActionRespondInfo, Actor: customer(), Payload: Payload{ReplyTo: &request.ID}, Now: testNow})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	d = step(t, e, s, ActionRespondInfo, customer(), Payload{ReplyTo: &request.ID, Attachments: []string{"doc-42"}})
	assert.Equal(t, []uuid.UUID{request.ID}, d.ClosedInfoRequests)
	require.Len(t, d.NewMessages, 1)
	assert.Equal(t, &request.ID, d.NewMessages[0].ReplyTo)
	assert.Equal(t, model.ApplicationSubmittedToFinancier, s.Application.Status)
	for _, m := range s.Messages {
		assert.False(t, m.IsOpenInfoRequest())
	}

	// second round, then an offer straight from INFO_REQUESTED
	step(t, e, s, ActionRequestInfo, financier(), Payload{Message: "One more thing"})
	d = step(t, e, s, ActionCreateOffer, financier(), Payload{Offer: offerTerms()})
	assert.Equal(t, model.ApplicationOfferReceived, s.Application.Status)
	assert.Len(t, d.ClosedInfoRequests, 1)
	for _, m := range s.Messages {
		assert.False(t, m.IsOpenInfoRequest())
	}
}

func TestDecide_RequestInfoSupersedesOpenRequest(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationSubmittedToFinancier)
	step(t, e, s, ActionRequestInfo, financier(), Payload{Message: "first"})

	// an open request left behind by an earlier round is closed by the next one
	s.Application.Status = model.ApplicationSubmittedToFinancier
	d := step(t, e, s, ActionRequestInfo, financier(), Payload{Message: "second"})
	require.Len(t, d.ClosedInfoRequests, 1)

	open := 0
	for _, m := range s.Messages {
		if m.IsOpenInfoRequest() {
			open++
		}
	}
	assert.Equal(t, 1, open)
}

func TestDecide_OfferValidation(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationSubmittedToFinancier)
	past := testNow.Add(-time.Hour)

	cases := map[string]*OfferTerms{
		"no terms":        nil,
		"zero payment":    {TermMonths: 12},
		"zero term":       {MonthlyPayment: decimal.NewFromInt(10)},
		"negative fee":    {MonthlyPayment: decimal.NewFromInt(10), TermMonths: 12, OpeningFee: decimal.NewFromInt(-1)},
		"already expired": {MonthlyPayment: decimal.NewFromInt(10), TermMonths: 12, ValidUntil: &past},
	}
	for name, terms := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.Decide(*s, Request{Action: ActionCreateOffer, Actor: financier(), Payload: Payload{Offer: terms}, Now: testNow})
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}

func TestDecide_ApproveSupersedesSentOffer(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferSent)
	first := s.Offers[0]
	require.Equal(t, model.OfferSent, first.Status)

	// a stale SENT offer can coexist with a new pending one after an admin resets the application
	s.Application.Status = model.ApplicationSubmittedToFinancier
	step(t, e, s, ActionCreateOffer, financier(), Payload{Offer: offerTerms()})
	d := step(t, e, s, ActionApproveOffer, admin(), Payload{})

	require.Len(t, d.OfferUpdates, 2)
	assert.Equal(t, first.ID, d.OfferUpdates[0].ID)
	assert.Equal(t, model.OfferExpired, d.OfferUpdates[0].Patch.Status)

	sent := 0
	for _, o := range s.Offers {
		if o.Status == model.OfferSent {
			sent++
		}
	}
	assert.Equal(t, 1, sent)
}

func TestDecide_ApproveNeedsExactlyOnePendingOffer(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferReceived)
	s.Offers[0].Status = model.OfferExpired

	_, err := e.Decide(*s, Request{Action: ActionApproveOffer, Actor: admin(), Now: testNow})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestDecide_AcceptExpiredOfferFails(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferSent)
	deadline := testNow.Add(-time.Minute)
	s.Offers[0].ValidUntil = &deadline

	_, err := e.Decide(*s, Request{Action: ActionAcceptOffer, Actor: customer(), Now: testNow})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, model.ApplicationOfferSent, s.Application.Status)
}

func TestDecide_RejectOffer(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferSent)

	d := step(t, e, s, ActionRejectOffer, customer(), Payload{Reason: "too expensive"})
	assert.Equal(t, model.ApplicationOfferRejected, s.Application.Status)
	assert.Equal(t, model.OfferRejected, s.Offers[0].Status)
	require.Len(t, d.Notices, 1)
	assert.Equal(t, model.RoleFinancier, d.Notices[0].Recipient.Role)
	assert.Contains(t, d.Notices[0].Body, "too expensive")
}

func TestDecide_SendContractDefaultsFromOffer(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferAccepted)

	rent := decimal.NewFromInt(520)
	d := step(t, e, s, ActionSendContract, admin(), Payload{Contract: &ContractTerms{
		Lessor:      model.Party{CompanyName: "Rahoitus Oy"},
		MonthlyRent: &rent,
	}})
	require.Len(t, d.NewContracts, 1)
	c := d.NewContracts[0]
	assert.Equal(t, model.ContractSent, c.Status)
	assert.Equal(t, "Rahoitus Oy", c.Lessor.CompanyName)
	assert.Equal(t, "Konepaja Oy", c.Lessee.CompanyName)
	assert.Empty(t, c.Seller.CompanyName)
	assert.True(t, rent.Equal(c.MonthlyRent))
	assert.Equal(t, 36, c.TermMonths)
	assert.True(t, decimal.NewFromInt(300).Equal(c.ProcessingFee))
	assert.True(t, decimal.NewFromInt(9).Equal(c.ArrangementFee))
	assert.True(t, decimal.NewFromInt(50000).Equal(c.EquipmentValue))
	assert.Equal(t, financierID, c.FinancierID)
	assert.Equal(t, &s.Offers[0].ID, c.OfferID)
	assert.Equal(t, testNow, *c.SentAt)
}

func TestDecide_SaleLeasebackSellerIsCustomer(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferAccepted)
	s.Application.Type = model.ApplicationTypeSaleLeaseback

	d, err := e.Decide(*s, Request{Action: ActionSendContract, Actor: financier(), Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, "Konepaja Oy", d.NewContracts[0].Seller.CompanyName)
}

func TestDecide_SendDraftContract(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferAccepted)

	draft, err := e.DraftContract(*s, financier(), nil)
	require.NoError(t, err)
	assert.Equal(t, draft.From, draft.To)
	assert.Empty(t, draft.Notices)
	apply(s, draft)
	require.Len(t, s.Contracts, 1)
	assert.Equal(t, model.ContractDraft, s.Contracts[0].Status)

	id := s.Contracts[0].ID
	d := step(t, e, s, ActionSendContract, financier(), Payload{ContractID: &id})
	assert.Empty(t, d.NewContracts)
	require.Len(t, d.ContractUpdates, 1)
	assert.Equal(t, model.ContractSent, s.Contracts[0].Status)

	_, err = e.DraftContract(*s, customer(), nil)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
	_, err = e.DraftContract(*s, financier(), nil)
	assert.True(t, errors.Is(err, apperror.ErrIllegalTransition))
}

func draftTwice(t *testing.T, e *Engine, s *Snapshot) (first, second uuid.UUID) {
	t.Helper()
	for i := 0; i < 2; i++ {
		d, err := e.DraftContract(*s, financier(), nil)
		require.NoError(t, err)
		apply(s, d)
	}
	require.Len(t, s.Contracts, 2)
	return s.Contracts[0].ID, s.Contracts[1].ID
}

func TestDecide_SendContractPicksTheOnlyDraft(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferAccepted)
	draft, err := e.DraftContract(*s, financier(), nil)
	require.NoError(t, err)
	apply(s, draft)

	d := step(t, e, s, ActionSendContract, financier(), Payload{})
	assert.Empty(t, d.NewContracts)
	require.Len(t, s.Contracts, 1)
	assert.Equal(t, model.ContractSent, s.Contracts[0].Status)
	assert.Equal(t, testNow, *s.Contracts[0].SentAt)
}

func TestDecide_SendContractCancelsOtherDrafts(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferAccepted)
	first, second := draftTwice(t, e, s)

	// ambiguous without an id
	_, err := e.Decide(*s, Request{Action: ActionSendContract, Actor: financier(), Now: testNow})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// terms and an id together
	rent := decimal.NewFromInt(700)
	_, err = e.Decide(*s, Request{Action: ActionSendContract, Actor: financier(), Now: testNow,
		Payload: Payload{ContractID: &second, Contract: &ContractTerms{MonthlyRent: &rent}}})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	step(t, e, s, ActionSendContract, financier(), Payload{ContractID: &second})
	byID := map[uuid.UUID]model.ContractStatus{}
	for _, c := range s.Contracts {
		byID[c.ID] = c.Status
	}
	assert.Equal(t, model.ContractCancelled, byID[first])
	assert.Equal(t, model.ContractSent, byID[second])
}

func TestDecide_SendFreshTermsCancelsDrafts(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferAccepted)
	first, second := draftTwice(t, e, s)

	rent := decimal.NewFromInt(700)
	d := step(t, e, s, ActionSendContract, admin(), Payload{Contract: &ContractTerms{MonthlyRent: &rent}})
	require.Len(t, d.NewContracts, 1)
	require.Len(t, s.Contracts, 3)
	for _, c := range s.Contracts {
		switch c.ID {
		case first, second:
			assert.Equal(t, model.ContractCancelled, c.Status)
		default:
			assert.Equal(t, model.ContractSent, c.Status)
			assert.True(t, rent.Equal(c.MonthlyRent))
		}
	}
}

func TestDecide_SignRequiresSignerName(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationContractSent)

	_, err := e.Decide(*s, Request{Action: ActionSignContract, Actor: customer(), Now: testNow})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestDecide_CloseActivatesContract(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationSigned)
	at := testNow.Add(-24 * time.Hour)

	d := step(t, e, s, ActionClose, admin(), Payload{ActivatedAt: &at})
	assert.Empty(t, d.Notices)
	assert.Equal(t, model.ApplicationClosed, s.Application.Status)
	assert.Equal(t, model.ContractActive, s.Contracts[0].Status)
	assert.Equal(t, at, *s.Contracts[0].ActivatedAt)
}

func TestDecide_CancelCleansUpChildren(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationContractSent)

	d := step(t, e, s, ActionCancel, admin(), Payload{Reason: "duplicate"})
	assert.Equal(t, model.ApplicationCancelled, s.Application.Status)
	assert.Equal(t, model.ContractCancelled, s.Contracts[0].Status)
	// the accepted offer is history and stays as it was
	assert.Equal(t, model.OfferAccepted, s.Offers[0].Status)
	require.Len(t, d.Notices, 2)
	assert.Equal(t, model.RoleCustomer, d.Notices[0].Recipient.Role)
	assert.Equal(t, model.RoleFinancier, d.Notices[1].Recipient.Role)

	_, err := e.Decide(*s, Request{Action: ActionCancel, Actor: admin(), Now: testNow})
	assert.True(t, errors.Is(err, apperror.ErrIllegalTransition))
}

func TestDecide_CancelBeforeRoutingNotifiesCustomerOnly(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationSubmitted)

	d := step(t, e, s, ActionCancel, admin(), Payload{})
	require.Len(t, d.Notices, 1)
	assert.Equal(t, model.RoleCustomer, d.Notices[0].Recipient.Role)
}

func TestDecide_ReplayIsRejected(t *testing.T) {
	e := newTestEngine()
	s := advance(t, e, model.ApplicationOfferSent)
	before := *s
	before.Offers = append([]model.Offer(nil), s.Offers...)

	step(t, e, s, ActionAcceptOffer, customer(), Payload{})
	_, err := e.Decide(*s, Request{Action: ActionAcceptOffer, Actor: customer(), Now: testNow})
	assert.True(t, errors.Is(err, apperror.ErrIllegalTransition))

	// deciding on the old snapshot again is pure and yields the same plan
	d1, err := e.Decide(before, Request{Action: ActionAcceptOffer, Actor: customer(), Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationOfferAccepted, d1.To)
	assert.Equal(t, model.OfferSent, before.Offers[0].Status)
}

func TestCompleteContract(t *testing.T) {
	c := model.Contract{ID: uuid.New(), Status: model.ContractActive}

	_, err := CompleteContract(c, financier(), testNow)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	u, err := CompleteContract(c, admin(), testNow)
	require.NoError(t, err)
	assert.Equal(t, model.ContractCompleted, u.Patch.Status)
	assert.Equal(t, testNow, *u.Patch.CompletedAt)

	c.Status = model.ContractSigned
	_, err = CompleteContract(c, admin(), testNow)
	assert.True(t, errors.Is(err, apperror.ErrIllegalTransition))
}

func TestDeepLink(t *testing.T) {
	app := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	offer := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, "/customer/applications/"+app.String(),
		DeepLink(model.RoleCustomer, EntityRef{Type: model.EntityApplication, ID: app}))
	assert.Equal(t, "/financier/applications/"+app.String()+"/offers/"+offer.String(),
		DeepLink(model.RoleFinancier, EntityRef{Type: model.EntityOffer, ID: offer, Parent: app}))
	assert.Equal(t, "/admin/contracts/"+offer.String(),
		DeepLink(model.RoleAdmin, EntityRef{Type: model.EntityContract, ID: offer, Parent: app}))
}
