package workflow

import (
	"strings"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyFromApplication is the identity block of the applying company.
func PartyFromApplication(app model.Application) model.Party {
	return model.Party{
		CompanyName:   app.CompanyName,
		BusinessID:    app.BusinessID,
		Address:       app.StreetAddress,
		PostalCode:    app.PostalCode,
		City:          app.City,
		ContactPerson: app.ContactPerson,
		Email:         app.ContactEmail,
		Phone:         app.ContactPhone,
	}
}

// buildContract assembles a contract from the accepted offer and the application,
// then applies any explicit terms on top.
func (e *Engine) buildContract(s Snapshot, status model.ContractStatus, terms *ContractTerms) (model.Contract, error) {
	app := s.Application
	offer, err := single(offersIn(s, model.OfferAccepted), offerID, nil, "accepted offer")
	if err != nil {
		return model.Contract{}, err
	}
	if terms == nil {
		terms = &ContractTerms{}
	}

	financier := offer.FinancierID
	if app.FinancierID != nil {
		financier = *app.FinancierID
	}
	oid := offer.ID

	c := model.Contract{
		ID:                   e.newID(),
		ApplicationID:        app.ID,
		OfferID:              &oid,
		FinancierID:          financier,
		ContractNumber:       e.contractNumber(),
		Status:               status,
		Lessor:               terms.Lessor,
		Lessee:               PartyFromApplication(app),
		EquipmentDescription: app.EquipmentDescription,
		EquipmentValue:       app.RequestedAmount,
		MonthlyRent:          offer.MonthlyPayment,
		TermMonths:           offer.TermMonths,
		ResidualValue:        offer.ResidualValue,
		AdvancePayment:       offer.UpfrontPayment,
		ProcessingFee:        decimal.NewFromInt(model.DefaultProcessingFee),
		ArrangementFee:       decimal.NewFromInt(model.DefaultArrangementFee),
		MessageToCustomer:    terms.MessageToCustomer,
		InternalNotes:        terms.InternalNotes,
		DocumentRef:          terms.DocumentRef,
	}
	if app.Type == model.ApplicationTypeSaleLeaseback {
		// in a sale-leaseback the customer sells the equipment to the lessor
		c.Seller = c.Lessee
	}

	if terms.Lessee != nil {
		c.Lessee = *terms.Lessee
	}
	if terms.Seller != nil {
		c.Seller = *terms.Seller
	}
	if d := strings.TrimSpace(terms.EquipmentDescription); d != "" {
		c.EquipmentDescription = d
	}
	override := func(dst *decimal.Decimal, src *decimal.Decimal) {
		if src != nil {
			*dst = *src
		}
	}
	override(&c.EquipmentValue, terms.EquipmentValue)
	override(&c.MonthlyRent, terms.MonthlyRent)
	override(&c.ResidualValue, terms.ResidualValue)
	override(&c.AdvancePayment, terms.AdvancePayment)
	override(&c.ProcessingFee, terms.ProcessingFee)
	override(&c.ArrangementFee, terms.ArrangementFee)
	if terms.TermMonths != nil {
		c.TermMonths = *terms.TermMonths
	}
	if terms.TotalAmount != nil {
		c.TotalAmount = decimal.NewNullDecimal(*terms.TotalAmount)
	}

	if !c.MonthlyRent.IsPositive() {
		return model.Contract{}, validation("monthly_rent must be positive", nil)
	}
	if c.TermMonths <= 0 {
		return model.Contract{}, validation("term_months must be positive", nil)
	}
	for _, v := range []decimal.Decimal{c.EquipmentValue, c.ResidualValue, c.AdvancePayment, c.ProcessingFee, c.ArrangementFee} {
		if v.IsNegative() {
			return model.Contract{}, validation("contract amounts must not be negative", nil)
		}
	}
	if c.TotalAmount.Valid && !c.TotalAmount.Decimal.IsPositive() {
		return model.Contract{}, validation("total_amount must be positive", nil)
	}
	return c, nil
}

// DraftContract prepares a DRAFT contract for an application whose offer was accepted.
// The application keeps its status; the decision still carries From and To so the
// caller can guard the write on the status it read.
func (e *Engine) DraftContract(s Snapshot, actor Actor, terms *ContractTerms) (*Decision, error) {
	app := s.Application
	if actor.Role != model.RoleFinancier && actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only financiers and admins prepare contracts")
	}
	if app.Status != model.ApplicationOfferAccepted {
		return nil, apperror.IllegalTransition(model.EntityApplication, string(app.Status), string(actor.Role), string(ActionDraftContract))
	}

	d := &Decision{
		ID:            e.newID(),
		Action:        ActionDraftContract,
		Actor:         actor,
		ApplicationID: app.ID,
		From:          app.Status,
		To:            app.Status,
		Patch:         repository.ApplicationPatch{Status: app.Status},
	}
	c, err := e.buildContract(s, model.ContractDraft, terms)
	if err != nil {
		return nil, err
	}
	d.NewContracts = append(d.NewContracts, c)
	return d, nil
}

// CompleteContract ends an ACTIVE contract.
func CompleteContract(c model.Contract, actor Actor, now time.Time) (ContractUpdate, error) {
	if actor.Role != model.RoleAdmin {
		return ContractUpdate{}, apperror.Forbidden("only admins complete contracts")
	}
	if c.Status != model.ContractActive {
		return ContractUpdate{}, apperror.IllegalTransition(model.EntityContract, string(c.Status), string(actor.Role), "complete")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return ContractUpdate{
		ID:       c.ID,
		Expected: model.ContractActive,
		Patch:    repository.ContractPatch{Status: model.ContractCompleted, CompletedAt: &now},
	}, nil
}

// NewID hands out an id from the engine's generator for records created outside a transition.
func (e *Engine) NewID() uuid.UUID { return e.newID() }
