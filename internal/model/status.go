package model

import "fmt"

// Role is the closed set of actor roles.
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleFinancier Role = "FINANCIER"
	RoleAdmin     Role = "ADMIN"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCustomer, RoleFinancier, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type ApplicationType string

const (
	ApplicationTypeLeasing       ApplicationType = "LEASING"
	ApplicationTypeSaleLeaseback ApplicationType = "SALE_LEASEBACK"
)

func ParseApplicationType(s string) (ApplicationType, error) {
	switch t := ApplicationType(s); t {
	case ApplicationTypeLeasing, ApplicationTypeSaleLeaseback:
		return t, nil
	}
	return "", fmt.Errorf("unknown application type %q", s)
}

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	ApplicationDraft                ApplicationStatus = "DRAFT"
	ApplicationSubmitted            ApplicationStatus = "SUBMITTED"
	ApplicationSubmittedToFinancier ApplicationStatus = "SUBMITTED_TO_FINANCIER"
	ApplicationInfoRequested        ApplicationStatus = "INFO_REQUESTED"
	ApplicationOfferReceived        ApplicationStatus = "OFFER_RECEIVED"
	ApplicationOfferSent            ApplicationStatus = "OFFER_SENT"
	ApplicationOfferAccepted        ApplicationStatus = "OFFER_ACCEPTED"
	ApplicationOfferRejected        ApplicationStatus = "OFFER_REJECTED"
	ApplicationContractSent         ApplicationStatus = "CONTRACT_SENT"
	ApplicationSigned               ApplicationStatus = "SIGNED"
	ApplicationClosed               ApplicationStatus = "CLOSED"
	ApplicationCancelled            ApplicationStatus = "CANCELLED"
)

// causal order; OFFER_ACCEPTED and OFFER_REJECTED are siblings.
var applicationRank = map[ApplicationStatus]int{
	ApplicationDraft:                0,
	ApplicationSubmitted:            1,
	ApplicationSubmittedToFinancier: 2,
	ApplicationInfoRequested:        3,
	ApplicationOfferReceived:        4,
	ApplicationOfferSent:            5,
	ApplicationOfferAccepted:        6,
	ApplicationOfferRejected:        6,
	ApplicationContractSent:         7,
	ApplicationSigned:               8,
	ApplicationClosed:               9,
	ApplicationCancelled:            10,
}

// AllApplicationStatuses lists every status in causal order.
var AllApplicationStatuses = []ApplicationStatus{
	ApplicationDraft,
	ApplicationSubmitted,
	ApplicationSubmittedToFinancier,
	ApplicationInfoRequested,
	ApplicationOfferReceived,
	ApplicationOfferSent,
	ApplicationOfferAccepted,
	ApplicationOfferRejected,
	ApplicationContractSent,
	ApplicationSigned,
	ApplicationClosed,
	ApplicationCancelled,
}

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	if _, ok := applicationRank[st]; !ok {
		return "", fmt.Errorf("unknown application status %q", s)
	}
	return st, nil
}

// AtOrPast reports whether s is the same as, or causally after, other.
func (s ApplicationStatus) AtOrPast(other ApplicationStatus) bool {
	return applicationRank[s] >= applicationRank[other]
}

func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationClosed || s == ApplicationCancelled
}

type OfferStatus string

const (
	OfferDraft        OfferStatus = "DRAFT"
	OfferPendingAdmin OfferStatus = "PENDING_ADMIN"
	OfferSent         OfferStatus = "SENT"
	OfferAccepted     OfferStatus = "ACCEPTED"
	OfferRejected     OfferStatus = "REJECTED"
	OfferExpired      OfferStatus = "EXPIRED"
)

type ContractStatus string

const (
	ContractDraft     ContractStatus = "DRAFT"
	ContractSent      ContractStatus = "SENT"
	ContractSigned    ContractStatus = "SIGNED"
	ContractActive    ContractStatus = "ACTIVE"
	ContractCompleted ContractStatus = "COMPLETED"
	ContractCancelled ContractStatus = "CANCELLED"
)

type ContractRequestType string

const (
	ContractRequestEarlyPayoff  ContractRequestType = "EARLY_PAYOFF"
	ContractRequestAnnualReport ContractRequestType = "ANNUAL_REPORT"
	ContractRequestOther        ContractRequestType = "OTHER"
)

func ParseContractRequestType(s string) (ContractRequestType, error) {
	switch t := ContractRequestType(s); t {
	case ContractRequestEarlyPayoff, ContractRequestAnnualReport, ContractRequestOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown contract request type %q", s)
}

type ContractRequestStatus string

const (
	ContractRequestPending    ContractRequestStatus = "PENDING"
	ContractRequestProcessing ContractRequestStatus = "PROCESSING"
	ContractRequestCompleted  ContractRequestStatus = "COMPLETED"
	ContractRequestRejected   ContractRequestStatus = "REJECTED"
)
