package workflow

import "leaseflow/internal/model"

type effect func(e *Engine, s Snapshot, req Request, d *Decision) error

type rule struct {
	to     model.ApplicationStatus
	effect effect
}

type key struct {
	from   model.ApplicationStatus
	role   model.Role
	action Action
}

// transitions is the authoritative table of legal (status, role, action) triples.
// Anything absent is an illegal transition.
var transitions = buildTable()

func buildTable() map[key]rule {
	t := make(map[key]rule)
	add := func(from []model.ApplicationStatus, roles []model.Role, action Action, to model.ApplicationStatus, fx effect) {
		for _, f := range from {
			for _, r := range roles {
				t[key{from: f, role: r, action: action}] = rule{to: to, effect: fx}
			}
		}
	}
	status := func(s ...model.ApplicationStatus) []model.ApplicationStatus { return s }
	role := func(r ...model.Role) []model.Role { return r }

	add(status(model.ApplicationDraft), role(model.RoleCustomer),
		ActionSubmit, model.ApplicationSubmitted, submit)
	add(status(model.ApplicationSubmitted), role(model.RoleAdmin),
		ActionRouteToFinancier, model.ApplicationSubmittedToFinancier, routeToFinancier)
	add(status(model.ApplicationSubmittedToFinancier), role(model.RoleFinancier),
		ActionRequestInfo, model.ApplicationInfoRequested, requestInfo)
	add(status(model.ApplicationInfoRequested), role(model.RoleCustomer),
		ActionRespondInfo, model.ApplicationSubmittedToFinancier, respondInfo)
	add(status(model.ApplicationSubmittedToFinancier, model.ApplicationInfoRequested), role(model.RoleFinancier),
		ActionCreateOffer, model.ApplicationOfferReceived, createOffer)
	add(status(model.ApplicationOfferReceived), role(model.RoleAdmin),
		ActionApproveOffer, model.ApplicationOfferSent, approveOffer)
	add(status(model.ApplicationOfferSent), role(model.RoleCustomer),
		ActionAcceptOffer, model.ApplicationOfferAccepted, acceptOffer)
	add(status(model.ApplicationOfferSent), role(model.RoleCustomer),
		ActionRejectOffer, model.ApplicationOfferRejected, rejectOffer)
	add(status(model.ApplicationOfferAccepted), role(model.RoleFinancier, model.RoleAdmin),
		ActionSendContract, model.ApplicationContractSent, sendContract)
	add(status(model.ApplicationContractSent), role(model.RoleCustomer),
		ActionSignContract, model.ApplicationSigned, signContract)
	add(status(model.ApplicationSigned), role(model.RoleAdmin),
		ActionClose, model.ApplicationClosed, closeApplication)

	var open []model.ApplicationStatus
	for _, s := range model.AllApplicationStatuses {
		if !s.IsTerminal() {
			open = append(open, s)
		}
	}
	add(open, role(model.RoleAdmin), ActionCancel, model.ApplicationCancelled, cancel)

	return t
}

// Allowed reports whether role may perform action on an application in status from.
func Allowed(from model.ApplicationStatus, role model.Role, action Action) bool {
	_, ok := transitions[key{from: from, role: role, action: action}]
	return ok
}

// AvailableActions lists what role may do next, in lifecycle order.
func AvailableActions(from model.ApplicationStatus, role model.Role) []Action {
	var out []Action
	for _, a := range AllActions {
		if Allowed(from, role, a) {
			out = append(out, a)
		}
	}
	return out
}

// Target returns the status an allowed transition leads to.
func Target(from model.ApplicationStatus, role model.Role, action Action) (model.ApplicationStatus, bool) {
	r, ok := transitions[key{from: from, role: role, action: action}]
	return r.to, ok
}
