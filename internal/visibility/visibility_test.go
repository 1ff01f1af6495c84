package visibility

import (
	"context"
	"fmt"
	"testing"
	"time"

	"leaseflow/internal/model"
	"leaseflow/internal/repository"
	"leaseflow/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = Principal{UserID: uuid.New(), Role: model.RoleCustomer, Email: "alice@example.com", EmailVerified: true}
	bob   = Principal{UserID: uuid.New(), Role: model.RoleCustomer, Email: "bob@example.com"}
	fin   = Principal{UserID: uuid.New(), Role: model.RoleFinancier, Email: "fin@example.com", EmailVerified: true}
	fin2  = Principal{UserID: uuid.New(), Role: model.RoleFinancier, Email: "fin2@example.com", EmailVerified: true}
	root  = Principal{UserID: uuid.New(), Role: model.RoleAdmin, Email: "admin@example.com", EmailVerified: true}
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestCanSeeApplication(t *testing.T) {
	owned := model.Application{ID: uuid.New(), Status: model.ApplicationSubmitted, CustomerID: ptr(alice.UserID), ContactEmail: "alice@example.com"}
	intake := model.Application{ID: uuid.New(), Status: model.ApplicationDraft, ContactEmail: "ALICE@example.com"}
	bobIntake := model.Application{ID: uuid.New(), Status: model.ApplicationDraft, ContactEmail: "bob@example.com"}
	routed := model.Application{ID: uuid.New(), Status: model.ApplicationOfferSent, CustomerID: ptr(alice.UserID), FinancierID: ptr(fin.UserID)}
	// an owned application whose contact email matches someone else stays with its owner
	claimed := model.Application{ID: uuid.New(), Status: model.ApplicationSubmitted, CustomerID: ptr(uuid.New()), ContactEmail: "alice@example.com"}

	tests := []struct {
		name string
		p    Principal
		app  model.Application
		want bool
	}{
		{"owner", alice, owned, true},
		{"other customer", bob, owned, false},
		{"verified email fallback", alice, intake, true},
		{"unverified email fallback", bob, bobIntake, false},
		{"claimed by someone else", alice, claimed, false},
		{"routed financier", fin, routed, true},
		{"other financier", fin2, routed, false},
		{"financier before routing", fin, owned, false},
		{"admin", root, intake, true},
		{"unknown role", Principal{UserID: alice.UserID, Role: "GUEST"}, owned, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSeeApplication(tt.p, tt.app))
		})
	}
}

var sentAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestOffers_CustomerNeverSeesUnreleased(t *testing.T) {
	app := model.Application{ID: uuid.New(), Status: model.ApplicationOfferSent, CustomerID: ptr(alice.UserID), FinancierID: ptr(fin.UserID)}
	var offers []model.Offer
	for i := 0; i < 5; i++ {
		offers = append(offers,
			model.Offer{ID: uuid.New(), ApplicationID: app.ID, Status: model.OfferDraft, InternalNotes: "margin 2%"},
			model.Offer{ID: uuid.New(), ApplicationID: app.ID, Status: model.OfferPendingAdmin, InternalNotes: "margin 2%"},
		)
	}
	offers = append(offers,
		model.Offer{ID: uuid.New(), ApplicationID: app.ID, Status: model.OfferSent, InternalNotes: "margin 2%"},
		model.Offer{ID: uuid.New(), ApplicationID: app.ID, Status: model.OfferExpired, SentAt: &sentAt},
		model.Offer{ID: uuid.New(), ApplicationID: uuid.New(), Status: model.OfferSent},
	)

	seen := Offers(alice, app, offers)
	require.Len(t, seen, 2)
	for _, o := range seen {
		assert.True(t, o.Released())
		assert.Empty(t, o.InternalNotes)
	}

	finSeen := Offers(fin, app, offers)
	assert.Len(t, finSeen, 12)
	assert.Equal(t, "margin 2%", finSeen[0].InternalNotes)

	assert.Empty(t, Offers(bob, app, offers))
}

func TestOffers_ExpiredBeforeApprovalStaysHidden(t *testing.T) {
	app := model.Application{ID: uuid.New(), Status: model.ApplicationCancelled, CustomerID: ptr(alice.UserID), FinancierID: ptr(fin.UserID)}
	neverSent := model.Offer{ID: uuid.New(), ApplicationID: app.ID, Status: model.OfferExpired}
	superseded := model.Offer{ID: uuid.New(), ApplicationID: app.ID, Status: model.OfferExpired, SentAt: &sentAt}

	tests := []struct {
		name  string
		p     Principal
		offer model.Offer
		want  bool
	}{
		{"customer, expired from pending admin", alice, neverSent, false},
		{"customer, expired after sending", alice, superseded, true},
		{"financier, expired from pending admin", fin, neverSent, true},
		{"admin, expired from pending admin", root, neverSent, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSeeOffer(tt.p, app, tt.offer))
		})
	}
}

func TestContracts_CancelledDraftHiddenFromCustomer(t *testing.T) {
	app := model.Application{ID: uuid.New(), Status: model.ApplicationCancelled, CustomerID: ptr(alice.UserID), FinancierID: ptr(fin.UserID)}
	contracts := []model.Contract{
		{ID: uuid.New(), ApplicationID: app.ID, Status: model.ContractCancelled},
		{ID: uuid.New(), ApplicationID: app.ID, Status: model.ContractCancelled, SentAt: &sentAt},
	}
	seen := Contracts(alice, app, contracts)
	require.Len(t, seen, 1)
	assert.Equal(t, contracts[1].ID, seen[0].ID)
	assert.Len(t, Contracts(fin, app, contracts), 2)
}

func TestContracts_DraftHiddenFromCustomer(t *testing.T) {
	app := model.Application{ID: uuid.New(), Status: model.ApplicationOfferAccepted, CustomerID: ptr(alice.UserID), FinancierID: ptr(fin.UserID)}
	contracts := []model.Contract{
		{ID: uuid.New(), ApplicationID: app.ID, Status: model.ContractDraft},
		{ID: uuid.New(), ApplicationID: app.ID, Status: model.ContractSent, InternalNotes: "check collateral"},
	}

	seen := Contracts(alice, app, contracts)
	require.Len(t, seen, 1)
	assert.Equal(t, model.ContractSent, seen[0].Status)
	assert.Empty(t, seen[0].InternalNotes)
	assert.Len(t, Contracts(root, app, contracts), 2)

	req := model.ContractRequest{ID: uuid.New(), ContractID: contracts[1].ID}
	assert.True(t, CanSeeContractRequest(alice, app, contracts[1], req))
	assert.False(t, CanSeeContractRequest(alice, app, contracts[0], req))
	assert.False(t, CanSeeContractRequest(fin2, app, contracts[1], req))
}

func TestMessages(t *testing.T) {
	app := model.Application{ID: uuid.New(), Status: model.ApplicationInfoRequested, CustomerID: ptr(alice.UserID), FinancierID: ptr(fin.UserID)}
	msgs := []model.Message{
		{ID: uuid.New(), ApplicationID: app.ID, Body: "hello"},
		{ID: uuid.New(), ApplicationID: uuid.New(), Body: "elsewhere"},
	}
	assert.Len(t, Messages(alice, app, msgs), 1)
	assert.Len(t, Messages(fin, app, msgs), 1)
	assert.Empty(t, Messages(fin2, app, msgs))
}

func TestScope(t *testing.T) {
	base := repository.ApplicationFilter{Search: "oy", Page: 2}

	got := Scope(alice, base)
	assert.Equal(t, alice.UserID, *got.CustomerID)
	assert.Equal(t, "alice@example.com", got.CustomerEmail)
	assert.Equal(t, "oy", got.Search)
	assert.Equal(t, 2, got.Page)

	got = Scope(bob, base)
	assert.Empty(t, got.CustomerEmail)

	got = Scope(fin, repository.ApplicationFilter{})
	assert.Equal(t, fin.UserID, *got.FinancierID)
	assert.NotContains(t, got.Statuses, model.ApplicationSubmitted)
	assert.Contains(t, got.Statuses, model.ApplicationCancelled)

	got = Scope(fin, repository.ApplicationFilter{Statuses: []model.ApplicationStatus{model.ApplicationDraft}})
	assert.True(t, got.MatchNone)

	got = Scope(root, base)
	assert.Equal(t, base, got)

	got = Scope(Principal{Role: "GUEST"}, base)
	assert.True(t, got.MatchNone)
}

// Listing through Scope must select exactly the applications CanSeeApplication admits.
func TestScope_AgreesWithPredicate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	owners := []*uuid.UUID{nil, ptr(alice.UserID), ptr(bob.UserID)}
	financiers := []*uuid.UUID{nil, ptr(fin.UserID), ptr(fin2.UserID)}
	emails := []string{"alice@example.com", "bob@example.com", "carol@example.com"}

	n := 0
	for _, status := range model.AllApplicationStatuses {
		for _, owner := range owners {
			for _, f := range financiers {
				for _, email := range emails {
					if f != nil && !status.AtOrPast(model.ApplicationSubmittedToFinancier) {
						continue
					}
					n++
					app := &model.Application{
						ReferenceNumber: fmt.Sprintf("LEA-2025-%06d", n),
						Type:            model.ApplicationTypeLeasing,
						Status:          status,
						CustomerID:      owner,
						FinancierID:     f,
						ContactEmail:    email,
						CompanyName:     "Co",
						RequestedAmount: decimal.NewFromInt(1000),
					}
					require.NoError(t, store.Applications.Create(ctx, app))
				}
			}
		}
	}

	all, total, err := store.Applications.List(ctx, repository.ApplicationFilter{Limit: n})
	require.NoError(t, err)
	require.EqualValues(t, n, total)

	for _, p := range []Principal{alice, bob, fin, fin2, root} {
		want := map[uuid.UUID]bool{}
		for _, app := range all {
			if CanSeeApplication(p, app) {
				want[app.ID] = true
			}
		}
		got, _, err := store.Applications.List(ctx, Scope(p, repository.ApplicationFilter{Limit: n}))
		require.NoError(t, err)
		gotIDs := map[uuid.UUID]bool{}
		for _, app := range got {
			gotIDs[app.ID] = true
		}
		assert.Equal(t, want, gotIDs, "role %s %s", p.Role, p.Email)
	}
}
