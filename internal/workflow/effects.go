package workflow

import (
	"fmt"
	"strings"

	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func submit(_ *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application

	var missing []string
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	require("company_name", app.CompanyName)
	require("business_id", app.BusinessID)
	require("contact_email", app.ContactEmail)
	require("equipment_description", app.EquipmentDescription)
	if !app.RequestedAmount.IsPositive() {
		missing = append(missing, "requested_amount")
	}
	if _, err := model.ParseApplicationType(string(app.Type)); err != nil {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return validation("application is missing required fields", map[string]interface{}{"missing": missing})
	}

	now := req.Now
	d.Patch.SubmittedAt = &now
	if app.CustomerID == nil {
		// first submit by a customer matched on contact email links the identity
		id := req.Actor.UserID
		d.Patch.CustomerID = &id
	}
	return nil
}

func routeToFinancier(_ *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	p := req.Payload
	if p.FinancierID == nil {
		return validation("financier_id is required", nil)
	}
	f := s.Financier
	if f == nil || f.ID != *p.FinancierID || f.Role != model.RoleFinancier || !f.IsActive {
		return validation("financier_id does not name an active financier",
			map[string]interface{}{"financier_id": p.FinancierID.String()})
	}

	id := f.ID
	d.Patch.FinancierID = &id
	d.notify(model.RoleFinancier, &id, model.CategoryApplicationRouted, applicationRef(app),
		"New application assigned",
		fmt.Sprintf("Application %s from %s is waiting for your review.", app.ReferenceNumber, app.CompanyName))
	return nil
}

func requestInfo(e *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	p := req.Payload
	body := strings.TrimSpace(p.Message)
	if body == "" {
		return validation("message is required", nil)
	}

	for _, m := range s.Messages {
		if m.IsOpenInfoRequest() {
			d.ClosedInfoRequests = append(d.ClosedInfoRequests, m.ID)
		}
	}
	d.NewMessages = append(d.NewMessages, model.Message{
		ID:                 e.newID(),
		ApplicationID:      app.ID,
		SenderID:           req.Actor.UserID,
		SenderRole:         req.Actor.Role,
		Body:               body,
		IsInfoRequest:      true,
		RequestedDocuments: p.RequestedDocuments,
		Attachments:        p.Attachments,
	})
	d.notify(model.RoleCustomer, app.CustomerID, model.CategoryInfoRequested, applicationRef(app),
		"Additional information requested",
		fmt.Sprintf("The financier needs more information about application %s.", app.ReferenceNumber))
	return nil
}

func respondInfo(e *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	p := req.Payload
	if p.ReplyTo == nil {
		return validation("reply_to is required", nil)
	}

	var target *model.Message
	for i := range s.Messages {
		if s.Messages[i].ID == *p.ReplyTo {
			target = &s.Messages[i]
			break
		}
	}
	if target == nil || !target.IsOpenInfoRequest() {
		return validation("reply_to must reference an open info-request",
			map[string]interface{}{"reply_to": p.ReplyTo.String()})
	}

	body := strings.TrimSpace(p.Message)
	if body == "" && len(p.Attachments) == 0 {
		return validation("a reply needs a message or attachments", nil)
	}

	replyTo := target.ID
	d.ClosedInfoRequests = append(d.ClosedInfoRequests, target.ID)
	d.NewMessages = append(d.NewMessages, model.Message{
		ID:            e.newID(),
		ApplicationID: app.ID,
		SenderID:      req.Actor.UserID,
		SenderRole:    req.Actor.Role,
		Body:          body,
		ReplyTo:       &replyTo,
		Attachments:   p.Attachments,
	})
	d.notify(model.RoleFinancier, app.FinancierID, model.CategoryInfoProvided, applicationRef(app),
		"Customer replied",
		fmt.Sprintf("The customer answered your information request on application %s.", app.ReferenceNumber))
	return nil
}

func createOffer(e *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	terms := req.Payload.Offer
	if terms == nil {
		return validation("offer terms are required", nil)
	}
	if !terms.MonthlyPayment.IsPositive() {
		return validation("monthly_payment must be positive", nil)
	}
	if terms.TermMonths <= 0 {
		return validation("term_months must be positive", nil)
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"upfront_payment", terms.UpfrontPayment},
		{"residual_value", terms.ResidualValue},
		{"opening_fee", terms.OpeningFee},
		{"invoice_fee", terms.InvoiceFee},
	} {
		if f.value.IsNegative() {
			return validation(f.name+" must not be negative", nil)
		}
	}
	if terms.ValidUntil != nil && !terms.ValidUntil.After(req.Now) {
		return validation("valid_until must be in the future", nil)
	}

	// an offer answers any question still open
	for _, m := range s.Messages {
		if m.IsOpenInfoRequest() {
			d.ClosedInfoRequests = append(d.ClosedInfoRequests, m.ID)
		}
	}
	for _, o := range offersIn(s, model.OfferDraft, model.OfferPendingAdmin) {
		d.OfferUpdates = append(d.OfferUpdates, OfferUpdate{
			ID: o.ID, Expected: o.Status, Patch: repository.OfferPatch{Status: model.OfferExpired},
		})
	}

	offer := model.Offer{
		ID:               e.newID(),
		ApplicationID:    app.ID,
		FinancierID:      req.Actor.UserID,
		Status:           model.OfferPendingAdmin,
		MonthlyPayment:   terms.MonthlyPayment,
		UpfrontPayment:   terms.UpfrontPayment,
		ResidualValue:    terms.ResidualValue,
		TermMonths:       terms.TermMonths,
		OpeningFee:       terms.OpeningFee,
		InvoiceFee:       terms.InvoiceFee,
		InterestOrMargin: terms.InterestOrMargin,
		IncludedServices: terms.IncludedServices,
		NotesToCustomer:  terms.NotesToCustomer,
		InternalNotes:    terms.InternalNotes,
		ValidUntil:       terms.ValidUntil,
	}
	d.NewOffers = append(d.NewOffers, offer)
	d.notify(model.RoleAdmin, nil, model.CategoryOfferPending, offerRef(offer),
		"Offer awaiting approval",
		fmt.Sprintf("A new offer on application %s needs approval before the customer can see it.", app.ReferenceNumber))
	return nil
}

func approveOffer(_ *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	pending, err := single(offersIn(s, model.OfferPendingAdmin), offerID, req.Payload.OfferID, "offer awaiting approval")
	if err != nil {
		return err
	}

	for _, o := range offersIn(s, model.OfferSent) {
		d.OfferUpdates = append(d.OfferUpdates, OfferUpdate{
			ID: o.ID, Expected: model.OfferSent, Patch: repository.OfferPatch{Status: model.OfferExpired},
		})
	}
	now := req.Now
	d.OfferUpdates = append(d.OfferUpdates, OfferUpdate{
		ID: pending.ID, Expected: model.OfferPendingAdmin,
		Patch: repository.OfferPatch{Status: model.OfferSent, SentAt: &now},
	})
	d.notify(model.RoleCustomer, app.CustomerID, model.CategoryOfferAvailable, offerRef(pending),
		"Offer available",
		fmt.Sprintf("You have received a financing offer for application %s.", app.ReferenceNumber))
	return nil
}

func acceptOffer(_ *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	offer, err := single(offersIn(s, model.OfferSent), offerID, req.Payload.OfferID, "sent offer")
	if err != nil {
		return err
	}
	if offer.ValidUntil != nil && req.Now.After(*offer.ValidUntil) {
		return validation("offer has expired", map[string]interface{}{
			"offer_id":    offer.ID.String(),
			"valid_until": offer.ValidUntil.UTC(),
		})
	}

	now := req.Now
	d.OfferUpdates = append(d.OfferUpdates, OfferUpdate{
		ID: offer.ID, Expected: model.OfferSent,
		Patch: repository.OfferPatch{Status: model.OfferAccepted, RespondedAt: &now},
	})
	financier := offer.FinancierID
	body := fmt.Sprintf("%s accepted the offer on application %s.", app.CompanyName, app.ReferenceNumber)
	d.notify(model.RoleFinancier, &financier, model.CategoryOfferAccepted, offerRef(offer), "Offer accepted", body)
	d.notify(model.RoleAdmin, nil, model.CategoryOfferAccepted, offerRef(offer), "Offer accepted", body)
	return nil
}

func rejectOffer(_ *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	offer, err := single(offersIn(s, model.OfferSent), offerID, req.Payload.OfferID, "sent offer")
	if err != nil {
		return err
	}

	now := req.Now
	d.OfferUpdates = append(d.OfferUpdates, OfferUpdate{
		ID: offer.ID, Expected: model.OfferSent,
		Patch: repository.OfferPatch{Status: model.OfferRejected, RespondedAt: &now},
	})
	body := fmt.Sprintf("%s rejected the offer on application %s.", app.CompanyName, app.ReferenceNumber)
	if reason := strings.TrimSpace(req.Payload.Reason); reason != "" {
		body += " Reason: " + reason
	}
	financier := offer.FinancierID
	d.notify(model.RoleFinancier, &financier, model.CategoryOfferRejected, offerRef(offer), "Offer rejected", body)
	return nil
}

func sendContract(e *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	now := req.Now

	// With no id and no fresh terms the one prepared draft is sent. Drafts
	// not sent here are cancelled so none is left behind.
	drafts := contractsIn(s, model.ContractDraft)
	var sentID uuid.UUID
	switch {
	case req.Payload.ContractID != nil && req.Payload.Contract != nil:
		return validation("contract terms cannot be combined with contract_id", nil)
	case req.Payload.ContractID != nil, req.Payload.Contract == nil && len(drafts) > 0:
		draft, err := single(drafts, contractID, req.Payload.ContractID, "draft contract")
		if err != nil {
			return err
		}
		sentID = draft.ID
	}

	for _, c := range contractsIn(s, model.ContractSent) {
		d.ContractUpdates = append(d.ContractUpdates, ContractUpdate{
			ID: c.ID, Expected: model.ContractSent, Patch: repository.ContractPatch{Status: model.ContractCancelled},
		})
	}
	for _, c := range drafts {
		if c.ID == sentID {
			continue
		}
		d.ContractUpdates = append(d.ContractUpdates, ContractUpdate{
			ID: c.ID, Expected: model.ContractDraft, Patch: repository.ContractPatch{Status: model.ContractCancelled},
		})
	}

	if sentID != uuid.Nil {
		d.ContractUpdates = append(d.ContractUpdates, ContractUpdate{
			ID: sentID, Expected: model.ContractDraft,
			Patch: repository.ContractPatch{Status: model.ContractSent, SentAt: &now},
		})
	} else {
		c, err := e.buildContract(s, model.ContractSent, req.Payload.Contract)
		if err != nil {
			return err
		}
		c.SentAt = &now
		d.NewContracts = append(d.NewContracts, c)
		sentID = c.ID
	}

	d.notify(model.RoleCustomer, app.CustomerID, model.CategoryContractReady, contractRef(sentID, app.ID),
		"Contract ready for signature",
		fmt.Sprintf("The lease contract for application %s is ready for you to review and sign.", app.ReferenceNumber))
	return nil
}

func signContract(_ *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application
	c, err := single(contractsIn(s, model.ContractSent), contractID, req.Payload.ContractID, "sent contract")
	if err != nil {
		return err
	}
	signer := strings.TrimSpace(req.Payload.SignerName)
	if signer == "" {
		return validation("signer_name is required", nil)
	}

	now := req.Now
	d.ContractUpdates = append(d.ContractUpdates, ContractUpdate{
		ID: c.ID, Expected: model.ContractSent,
		Patch: repository.ContractPatch{Status: model.ContractSigned, SignedAt: &now, SignerName: signer},
	})
	body := fmt.Sprintf("Contract %s for application %s was signed by %s.", c.ContractNumber, app.ReferenceNumber, signer)
	financier := c.FinancierID
	d.notify(model.RoleFinancier, &financier, model.CategoryContractSigned, contractRef(c.ID, app.ID), "Contract signed", body)
	d.notify(model.RoleAdmin, nil, model.CategoryContractSigned, contractRef(c.ID, app.ID), "Contract signed", body)
	return nil
}

func closeApplication(_ *Engine, s Snapshot, req Request, d *Decision) error {
	c, err := single(contractsIn(s, model.ContractSigned), contractID, req.Payload.ContractID, "signed contract")
	if err != nil {
		return err
	}
	activatedAt := req.Now
	if req.Payload.ActivatedAt != nil {
		if req.Payload.ActivatedAt.IsZero() {
			return validation("activated_at must be a valid time", nil)
		}
		activatedAt = req.Payload.ActivatedAt.UTC()
	}

	d.ContractUpdates = append(d.ContractUpdates, ContractUpdate{
		ID: c.ID, Expected: model.ContractSigned,
		Patch: repository.ContractPatch{Status: model.ContractActive, ActivatedAt: &activatedAt},
	})
	return nil
}

func cancel(_ *Engine, s Snapshot, req Request, d *Decision) error {
	app := s.Application

	for _, o := range offersIn(s, model.OfferDraft, model.OfferPendingAdmin, model.OfferSent) {
		d.OfferUpdates = append(d.OfferUpdates, OfferUpdate{
			ID: o.ID, Expected: o.Status, Patch: repository.OfferPatch{Status: model.OfferExpired},
		})
	}
	for _, c := range contractsIn(s, model.ContractDraft, model.ContractSent, model.ContractSigned) {
		d.ContractUpdates = append(d.ContractUpdates, ContractUpdate{
			ID: c.ID, Expected: c.Status, Patch: repository.ContractPatch{Status: model.ContractCancelled},
		})
	}
	for _, m := range s.Messages {
		if m.IsOpenInfoRequest() {
			d.ClosedInfoRequests = append(d.ClosedInfoRequests, m.ID)
		}
	}

	body := fmt.Sprintf("Application %s has been cancelled.", app.ReferenceNumber)
	if reason := strings.TrimSpace(req.Payload.Reason); reason != "" {
		body += " Reason: " + reason
	}
	d.notify(model.RoleCustomer, app.CustomerID, model.CategoryApplicationCanceled, applicationRef(app), "Application cancelled", body)
	if app.FinancierID != nil {
		d.notify(model.RoleFinancier, app.FinancierID, model.CategoryApplicationCanceled, applicationRef(app), "Application cancelled", body)
	}
	return nil
}
