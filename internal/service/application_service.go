package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"
	"leaseflow/internal/repository"
	"leaseflow/internal/visibility"
	"leaseflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateApplicationRequest struct {
	Type                 string          `json:"type"`
	ContactEmail         string          `json:"contact_email"`
	CompanyName          string          `json:"company_name"`
	BusinessID           string          `json:"business_id"`
	ContactPerson        string          `json:"contact_person"`
	ContactPhone         string          `json:"contact_phone"`
	StreetAddress        string          `json:"street_address"`
	PostalCode           string          `json:"postal_code"`
	City                 string          `json:"city"`
	EquipmentDescription string          `json:"equipment_description"`
	EquipmentSupplier    string          `json:"equipment_supplier"`
	RequestedAmount      decimal.Decimal `json:"requested_amount"`
	RequestedTermMonths  int             `json:"requested_term_months"`
	AdditionalInfo       string          `json:"additional_info"`
}

type ApplicationQuery struct {
	Statuses []model.ApplicationStatus
	Type     model.ApplicationType
	Search   string
	Page     int
	Limit    int
}

// ApplicationDetail is an application with what the caller may do next.
type ApplicationDetail struct {
	model.Application
	AvailableActions []workflow.Action `json:"available_actions"`
}

type PostMessageRequest struct {
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

// --- Interface ---

type ApplicationService interface {
	CreateApplication(ctx context.Context, p visibility.Principal, req CreateApplicationRequest) (*ApplicationDetail, error)
	CreatePublicApplication(ctx context.Context, req CreateApplicationRequest) (*model.Application, error)
	GetApplication(ctx context.Context, p visibility.Principal, id uuid.UUID) (*ApplicationDetail, error)
	ListApplications(ctx context.Context, p visibility.Principal, q ApplicationQuery) ([]ApplicationDetail, int64, error)
	ListOffers(ctx context.Context, p visibility.Principal, id uuid.UUID) ([]model.Offer, error)
	ListContracts(ctx context.Context, p visibility.Principal, id uuid.UUID) ([]model.Contract, error)
	ListMessages(ctx context.Context, p visibility.Principal, id uuid.UUID) ([]model.Message, error)
	PostMessage(ctx context.Context, p visibility.Principal, id uuid.UUID, req PostMessageRequest) (*model.Message, error)
	CreateContractDraft(ctx context.Context, p visibility.Principal, id uuid.UUID, terms *workflow.ContractTerms) (*model.Contract, error)
}

type applicationService struct {
	base
	// referenceSeq draws the numeric part of reference numbers.
	referenceSeq func() int
}

func NewApplicationService(deps Deps) ApplicationService {
	return &applicationService{
		base:         newBase(deps),
		referenceSeq: func() int { return rand.IntN(1_000_000) },
	}
}

// referenceAttempts bounds retries when a drawn reference number is taken.
const referenceAttempts = 5

func (s *applicationService) referenceNumber(t model.ApplicationType) string {
	prefix := "LEA"
	if t == model.ApplicationTypeSaleLeaseback {
		prefix = "SLB"
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, s.now().Year(), s.referenceSeq())
}

func (s *applicationService) newApplication(req CreateApplicationRequest) (*model.Application, error) {
	typ, err := model.ParseApplicationType(req.Type)
	if err != nil {
		return nil, apperror.Validation("invalid application type", map[string]interface{}{"type": req.Type})
	}
	if req.RequestedAmount.IsNegative() {
		return nil, apperror.Validation("requested_amount must not be negative", nil)
	}
	if req.RequestedTermMonths < 0 {
		return nil, apperror.Validation("requested_term_months must not be negative", nil)
	}
	return &model.Application{
		Type:                 typ,
		Status:               model.ApplicationDraft,
		ContactEmail:         strings.TrimSpace(req.ContactEmail),
		CompanyName:          req.CompanyName,
		BusinessID:           req.BusinessID,
		ContactPerson:        req.ContactPerson,
		ContactPhone:         req.ContactPhone,
		StreetAddress:        req.StreetAddress,
		PostalCode:           req.PostalCode,
		City:                 req.City,
		EquipmentDescription: req.EquipmentDescription,
		EquipmentSupplier:    req.EquipmentSupplier,
		RequestedAmount:      req.RequestedAmount,
		RequestedTermMonths:  req.RequestedTermMonths,
		AdditionalInfo:       req.AdditionalInfo,
	}, nil
}

// create inserts app with a fresh reference number. Each attempt is its own
// transaction so a collision does not poison the next try.
func (s *applicationService) create(ctx context.Context, actor uuid.UUID, app *model.Application) error {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		candidate := *app
		candidate.ReferenceNumber = s.referenceNumber(candidate.Type)
		err := s.store().Tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.store().Applications.Create(txCtx, &candidate); err != nil {
				return err
			}
			appID := candidate.ID
			return s.audit(txCtx, auditEntry{
				actor:         actor,
				action:        model.ActionCreateApplication,
				entityType:    model.EntityApplication,
				entityID:      candidate.ID,
				applicationID: &appID,
				to:            string(candidate.Status),
				details:       map[string]interface{}{"reference_number": candidate.ReferenceNumber},
			})
		})
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return fromRepo(err, model.EntityApplication, candidate.ID)
		}
		*app = candidate
		s.deps.Log.Info("Application created", map[string]interface{}{
			"application_id":   app.ID.String(),
			"reference_number": app.ReferenceNumber,
		})
		return nil
	}
	return apperror.Internal("could not allocate a reference number", repository.ErrConflict)
}

func (s *applicationService) CreateApplication(ctx context.Context, p visibility.Principal, req CreateApplicationRequest) (*ApplicationDetail, error) {
	if err := requireRole(p, model.RoleCustomer); err != nil {
		return nil, err
	}
	app, err := s.newApplication(req)
	if err != nil {
		return nil, err
	}
	if app.ContactEmail == "" {
		app.ContactEmail = p.Email
	}
	owner := p.UserID
	app.CustomerID = &owner

	if err := s.create(ctx, p.UserID, app); err != nil {
		return nil, err
	}
	return s.detail(p, *app), nil
}

// CreatePublicApplication records an intake form with no signed-in customer. The
// contact email is how a customer later finds and claims it.
func (s *applicationService) CreatePublicApplication(ctx context.Context, req CreateApplicationRequest) (*model.Application, error) {
	app, err := s.newApplication(req)
	if err != nil {
		return nil, err
	}
	if app.ContactEmail == "" {
		return nil, apperror.Validation("contact_email is required", map[string]interface{}{"missing": []string{"contact_email"}})
	}
	if err := s.create(ctx, uuid.Nil, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) detail(p visibility.Principal, app model.Application) *ApplicationDetail {
	return &ApplicationDetail{
		Application:      app,
		AvailableActions: workflow.AvailableActions(app.Status, p.Role),
	}
}

func (s *applicationService) GetApplication(ctx context.Context, p visibility.Principal, id uuid.UUID) (*ApplicationDetail, error) {
	app, err := s.loadApplication(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.detail(p, *app), nil
}

func (s *applicationService) ListApplications(ctx context.Context, p visibility.Principal, q ApplicationQuery) ([]ApplicationDetail, int64, error) {
	filter := visibility.Scope(p, repository.ApplicationFilter{
		Statuses: q.Statuses,
		Type:     q.Type,
		Search:   q.Search,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	apps, total, err := s.store().Applications.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.Internal("failed to list applications", err)
	}
	out := make([]ApplicationDetail, 0, len(apps))
	for _, a := range apps {
		out = append(out, *s.detail(p, a))
	}
	return out, total, nil
}

func (s *applicationService) ListOffers(ctx context.Context, p visibility.Principal, id uuid.UUID) ([]model.Offer, error) {
	app, err := s.loadApplication(ctx, p, id)
	if err != nil {
		return nil, err
	}
	offers, err := s.store().Offers.ListByApplication(ctx, id)
	if err != nil {
		return nil, fromRepo(err, model.EntityOffer, id)
	}
	visible := visibility.Offers(p, *app, offers)
	for i := range visible {
		visible[i] = visibility.RedactOffer(p, visible[i])
	}
	return visible, nil
}

func (s *applicationService) ListContracts(ctx context.Context, p visibility.Principal, id uuid.UUID) ([]model.Contract, error) {
	app, err := s.loadApplication(ctx, p, id)
	if err != nil {
		return nil, err
	}
	contracts, err := s.store().Contracts.ListByApplication(ctx, id)
	if err != nil {
		return nil, fromRepo(err, model.EntityContract, id)
	}
	visible := visibility.Contracts(p, *app, contracts)
	for i := range visible {
		visible[i] = visibility.RedactContract(p, visible[i])
	}
	return visible, nil
}

func (s *applicationService) ListMessages(ctx context.Context, p visibility.Principal, id uuid.UUID) ([]model.Message, error) {
	app, err := s.loadApplication(ctx, p, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store().Messages.ListByApplication(ctx, id)
	if err != nil {
		return nil, fromRepo(err, model.EntityMessage, id)
	}
	return visibility.Messages(p, *app, msgs), nil
}

// PostMessage appends a plain note. Info-requests and their replies only come
// from transitions.
func (s *applicationService) PostMessage(ctx context.Context, p visibility.Principal, id uuid.UUID, req PostMessageRequest) (*model.Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" && len(req.Attachments) == 0 {
		return nil, apperror.Validation("message body or attachments required", map[string]interface{}{"missing": []string{"body"}})
	}
	if _, err := s.loadApplication(ctx, p, id); err != nil {
		return nil, err
	}
	msg := &model.Message{
		ID:            s.deps.Engine.NewID(),
		ApplicationID: id,
		SenderID:      p.UserID,
		SenderRole:    p.Role,
		Body:          body,
		Attachments:   req.Attachments,
	}
	if err := s.store().Messages.Create(ctx, msg); err != nil {
		return nil, apperror.Internal("failed to store message", err)
	}
	return msg, nil
}

// CreateContractDraft prepares a DRAFT contract without moving the application.
// The write is still guarded on the status that was read.
func (s *applicationService) CreateContractDraft(ctx context.Context, p visibility.Principal, id uuid.UUID, terms *workflow.ContractTerms) (*model.Contract, error) {
	var created model.Contract
	err := s.store().Tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.loadApplication(txCtx, p, id)
		if err != nil {
			return err
		}
		snap := workflow.Snapshot{Application: *app}
		if snap.Offers, err = s.store().Offers.ListByApplication(txCtx, id); err != nil {
			return fromRepo(err, model.EntityOffer, id)
		}
		if snap.Contracts, err = s.store().Contracts.ListByApplication(txCtx, id); err != nil {
			return fromRepo(err, model.EntityContract, id)
		}
		d, err := s.deps.Engine.DraftContract(snap, actorOf(p), terms)
		if err != nil {
			return err
		}
		if err := s.apply(txCtx, d); err != nil {
			return err
		}
		created = d.NewContracts[0]
		appID := app.ID
		return s.audit(txCtx, auditEntry{
			actor:         p.UserID,
			action:        model.ActionCreateContractDraft,
			entityType:    model.EntityContract,
			entityID:      created.ID,
			applicationID: &appID,
			to:            string(created.Status),
			details: map[string]interface{}{
				"decision_id":     d.ID.String(),
				"contract_number": created.ContractNumber,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
