// Package workflow decides lifecycle transitions. It is pure: given a snapshot of
// an application and its children plus a requested action, it returns either a
// typed error or a Decision listing every mutation and notice to persist together.
package workflow

import (
	"fmt"
	"time"

	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionSubmit           Action = "submit"
	ActionRouteToFinancier Action = "route_to_financier"
	ActionRequestInfo      Action = "request_info"
	ActionRespondInfo      Action = "respond_info"
	ActionCreateOffer      Action = "create_offer"
	ActionApproveOffer     Action = "approve_offer"
	ActionAcceptOffer      Action = "accept_offer"
	ActionRejectOffer      Action = "reject_offer"
	ActionSendContract     Action = "send_contract"
	ActionSignContract     Action = "sign_contract"
	ActionClose            Action = "close"
	ActionCancel           Action = "cancel"

	// ActionDraftContract prepares a contract without moving the application.
	ActionDraftContract Action = "draft_contract"
)

// AllActions lists the application transitions in lifecycle order.
var AllActions = []Action{
	ActionSubmit,
	ActionRouteToFinancier,
	ActionRequestInfo,
	ActionRespondInfo,
	ActionCreateOffer,
	ActionApproveOffer,
	ActionAcceptOffer,
	ActionRejectOffer,
	ActionSendContract,
	ActionSignContract,
	ActionClose,
	ActionCancel,
}

func ParseAction(s string) (Action, error) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown transition %q", s)
}

// Actor is the caller as re-derived from the user store for this request.
type Actor struct {
	UserID uuid.UUID
	Role   model.Role
}

// Snapshot is everything the engine may look at for one application.
type Snapshot struct {
	Application model.Application
	Offers      []model.Offer
	Contracts   []model.Contract
	Messages    []model.Message
	// Financier is the user named by Payload.FinancierID, loaded for routing.
	Financier *model.User
}

type OfferTerms struct {
	MonthlyPayment   decimal.Decimal `json:"monthly_payment"`
	UpfrontPayment   decimal.Decimal `json:"upfront_payment"`
	ResidualValue    decimal.Decimal `json:"residual_value"`
	TermMonths       int             `json:"term_months"`
	OpeningFee       decimal.Decimal `json:"opening_fee"`
	InvoiceFee       decimal.Decimal `json:"invoice_fee"`
	InterestOrMargin string          `json:"interest_or_margin"`
	IncludedServices string          `json:"included_services"`
	NotesToCustomer  string          `json:"notes_to_customer"`
	InternalNotes    string          `json:"internal_notes"`
	ValidUntil       *time.Time      `json:"valid_until"`
}

// ContractTerms overrides the values a new contract otherwise takes from the
// application and its accepted offer.
type ContractTerms struct {
	Lessor               model.Party      `json:"lessor"`
	Lessee               *model.Party     `json:"lessee"`
	Seller               *model.Party     `json:"seller"`
	EquipmentDescription string           `json:"equipment_description"`
	EquipmentValue       *decimal.Decimal `json:"equipment_value"`
	MonthlyRent          *decimal.Decimal `json:"monthly_rent"`
	TermMonths           *int             `json:"term_months"`
	ResidualValue        *decimal.Decimal `json:"residual_value"`
	AdvancePayment       *decimal.Decimal `json:"advance_payment"`
	ProcessingFee        *decimal.Decimal `json:"processing_fee"`
	ArrangementFee       *decimal.Decimal `json:"arrangement_fee"`
	TotalAmount          *decimal.Decimal `json:"total_amount"`
	MessageToCustomer    string           `json:"message_to_customer"`
	InternalNotes        string           `json:"internal_notes"`
	DocumentRef          string           `json:"document_ref"`
}

// Payload carries the action-specific input. Each action reads only its own fields.
type Payload struct {
	FinancierID        *uuid.UUID     `json:"financier_id"`
	Message            string         `json:"message"`
	RequestedDocuments []string       `json:"requested_documents"`
	ReplyTo            *uuid.UUID     `json:"reply_to"`
	Attachments        []string       `json:"attachments"`
	Offer              *OfferTerms    `json:"offer"`
	OfferID            *uuid.UUID     `json:"offer_id"`
	Contract           *ContractTerms `json:"contract"`
	ContractID         *uuid.UUID     `json:"contract_id"`
	SignerName         string         `json:"signer_name"`
	ActivatedAt        *time.Time     `json:"activated_at"`
	Reason             string         `json:"reason"`
}

type Request struct {
	Action  Action
	Actor   Actor
	Payload Payload
	Now     time.Time
}

type OfferUpdate struct {
	ID       uuid.UUID
	Expected model.OfferStatus
	Patch    repository.OfferPatch
}

type ContractUpdate struct {
	ID       uuid.UUID
	Expected model.ContractStatus
	Patch    repository.ContractPatch
}

// Recipient addresses a notice. A nil UserID is resolved by the dispatcher:
// every active admin for RoleAdmin, the contact email's account for RoleCustomer.
type Recipient struct {
	Role   model.Role
	UserID *uuid.UUID
}

// EntityRef points at the record a notice is about. Parent is the application
// for offers and the contract for contract requests.
type EntityRef struct {
	Type   string
	ID     uuid.UUID
	Parent uuid.UUID
}

// Notice is a notification command emitted by a decision.
type Notice struct {
	DecisionID uuid.UUID
	SubjectID  uuid.UUID
	Action     Action
	Recipient  Recipient
	Category   model.NotificationCategory
	Title      string
	Body       string
	Ref        EntityRef
	Link       string
}

// Decision is the complete, atomic outcome of an allowed transition. Updates are
// ordered so that superseded children leave their active status before the new
// active child takes it.
type Decision struct {
	ID            uuid.UUID
	Action        Action
	Actor         Actor
	ApplicationID uuid.UUID
	From          model.ApplicationStatus
	To            model.ApplicationStatus
	Patch         repository.ApplicationPatch

	ClosedInfoRequests []uuid.UUID
	NewMessages        []model.Message
	OfferUpdates       []OfferUpdate
	NewOffers          []model.Offer
	ContractUpdates    []ContractUpdate
	NewContracts       []model.Contract
	Notices            []Notice
}

func (d *Decision) notify(role model.Role, userID *uuid.UUID, category model.NotificationCategory, ref EntityRef, title, body string) {
	var target *uuid.UUID
	if userID != nil {
		id := *userID
		target = &id
	}
	d.Notices = append(d.Notices, Notice{
		DecisionID: d.ID,
		SubjectID:  d.ApplicationID,
		Action:     d.Action,
		Recipient:  Recipient{Role: role, UserID: target},
		Category:   category,
		Title:      title,
		Body:       body,
		Ref:        ref,
		Link:       DeepLink(role, ref),
	})
}
