// Package visibility decides which records a caller may see. Every function is a
// pure projection over already-loaded records.
package visibility

import (
	"strings"

	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
)

// Principal is the caller as re-read from the user store on this request.
type Principal struct {
	UserID        uuid.UUID
	Role          model.Role
	Email         string
	EmailVerified bool
}

func FromUser(u *model.User) Principal {
	return Principal{
		UserID:        u.ID,
		Role:          u.Role,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}

// CanSeeApplication: admins see everything, customers see what they own (or an
// unowned application whose contact email matches their verified email), financiers
// see applications routed to them.
func CanSeeApplication(p Principal, app model.Application) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCustomer:
		if app.CustomerID != nil {
			return *app.CustomerID == p.UserID
		}
		return p.EmailVerified && p.Email != "" && strings.EqualFold(app.ContactEmail, p.Email)
	case model.RoleFinancier:
		return app.FinancierID != nil && *app.FinancierID == p.UserID &&
			app.Status.AtOrPast(model.ApplicationSubmittedToFinancier)
	}
	return false
}

// CanSeeOffer hides offers an admin has not released from customers.
func CanSeeOffer(p Principal, app model.Application, o model.Offer) bool {
	if o.ApplicationID != app.ID || !CanSeeApplication(p, app) {
		return false
	}
	return p.Role != model.RoleCustomer || o.Released()
}

// CanSeeContract hides drafts, including drafts cancelled unsent, from customers.
func CanSeeContract(p Principal, app model.Application, c model.Contract) bool {
	if c.ApplicationID != app.ID || !CanSeeApplication(p, app) {
		return false
	}
	return p.Role != model.RoleCustomer || c.Released()
}

func CanSeeMessage(p Principal, app model.Application, m model.Message) bool {
	return m.ApplicationID == app.ID && CanSeeApplication(p, app)
}

func CanSeeContractRequest(p Principal, app model.Application, c model.Contract, r model.ContractRequest) bool {
	return r.ContractID == c.ID && CanSeeContract(p, app, c)
}

// financierStatuses are the statuses an application can have once routed.
var financierStatuses = func() []model.ApplicationStatus {
	var out []model.ApplicationStatus
	for _, s := range model.AllApplicationStatuses {
		if s.AtOrPast(model.ApplicationSubmittedToFinancier) {
			out = append(out, s)
		}
	}
	return out
}()

// Scope narrows a listing filter to what p may see. The returned filter selects
// exactly the applications for which CanSeeApplication holds.
func Scope(p Principal, f repository.ApplicationFilter) repository.ApplicationFilter {
	switch p.Role {
	case model.RoleAdmin:
		return f
	case model.RoleCustomer:
		id := p.UserID
		f.CustomerID = &id
		f.CustomerEmail = ""
		if p.EmailVerified {
			f.CustomerEmail = p.Email
		}
		f.FinancierID = nil
		return f
	case model.RoleFinancier:
		id := p.UserID
		f.CustomerID = nil
		f.CustomerEmail = ""
		f.FinancierID = &id
		f.Statuses = intersect(f.Statuses, financierStatuses)
		if len(f.Statuses) == 0 {
			f.MatchNone = true
		}
		return f
	}
	f.MatchNone = true
	return f
}

func intersect(requested, allowed []model.ApplicationStatus) []model.ApplicationStatus {
	if len(requested) == 0 {
		return append([]model.ApplicationStatus(nil), allowed...)
	}
	var out []model.ApplicationStatus
	for _, r := range requested {
		for _, a := range allowed {
			if r == a {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Offers returns the offers of app visible to p, redacted for p's role.
func Offers(p Principal, app model.Application, offers []model.Offer) []model.Offer {
	out := make([]model.Offer, 0, len(offers))
	for _, o := range offers {
		if CanSeeOffer(p, app, o) {
			out = append(out, RedactOffer(p, o))
		}
	}
	return out
}

func Contracts(p Principal, app model.Application, contracts []model.Contract) []model.Contract {
	out := make([]model.Contract, 0, len(contracts))
	for _, c := range contracts {
		if CanSeeContract(p, app, c) {
			out = append(out, RedactContract(p, c))
		}
	}
	return out
}

func Messages(p Principal, app model.Application, messages []model.Message) []model.Message {
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if CanSeeMessage(p, app, m) {
			out = append(out, m)
		}
	}
	return out
}

// RedactOffer strips internal notes for customers.
func RedactOffer(p Principal, o model.Offer) model.Offer {
	if p.Role == model.RoleCustomer {
		o.InternalNotes = ""
	}
	return o
}

func RedactContract(p Principal, c model.Contract) model.Contract {
	if p.Role == model.RoleCustomer {
		c.InternalNotes = ""
	}
	return c
}
