package workflow

import (
	"fmt"
	"strings"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
)

// Contract request actions. They run on their own machine, independent of the application.
const (
	ActionOpenRequest     Action = "open_request"
	ActionProcessRequest  Action = "process"
	ActionCompleteRequest Action = "complete"
	ActionRejectRequest   Action = "reject"
)

type requestKey struct {
	from   model.ContractRequestStatus
	action Action
}

var requestTransitions = map[requestKey]model.ContractRequestStatus{
	{model.ContractRequestPending, ActionProcessRequest}:     model.ContractRequestProcessing,
	{model.ContractRequestPending, ActionCompleteRequest}:    model.ContractRequestCompleted,
	{model.ContractRequestProcessing, ActionCompleteRequest}: model.ContractRequestCompleted,
	{model.ContractRequestPending, ActionRejectRequest}:      model.ContractRequestRejected,
	{model.ContractRequestProcessing, ActionRejectRequest}:   model.ContractRequestRejected,
}

func ParseRequestAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionProcessRequest, ActionCompleteRequest, ActionRejectRequest:
		return a, nil
	}
	return "", fmt.Errorf("unknown contract request action %q", s)
}

// RequestDecision is the outcome of opening or resolving a contract request.
// Created is set only when opening.
type RequestDecision struct {
	ID      uuid.UUID
	Action  Action
	Actor   Actor
	Created *model.ContractRequest
	// Update fields apply to an existing request.
	RequestID uuid.UUID
	From      model.ContractRequestStatus
	Patch     repository.ContractRequestPatch
	Notices   []Notice
}

func (d *RequestDecision) notify(subject uuid.UUID, role model.Role, userID *uuid.UUID, category model.NotificationCategory, ref EntityRef, title, body string) {
	var target *uuid.UUID
	if userID != nil {
		id := *userID
		target = &id
	}
	d.Notices = append(d.Notices, Notice{
		DecisionID: d.ID,
		SubjectID:  subject,
		Action:     d.Action,
		Recipient:  Recipient{Role: role, UserID: target},
		Category:   category,
		Title:      title,
		Body:       body,
		Ref:        ref,
		Link:       DeepLink(role, ref),
	})
}

func requestRef(r model.ContractRequest) EntityRef {
	return EntityRef{Type: model.EntityContractRequest, ID: r.ID, Parent: r.ContractID}
}

// OpenRequest lets a customer raise a request on one of their ACTIVE contracts.
func (e *Engine) OpenRequest(c model.Contract, actor Actor, typ model.ContractRequestType, message string) (*RequestDecision, error) {
	if actor.Role != model.RoleCustomer {
		return nil, apperror.Forbidden("only customers open contract requests")
	}
	if c.Status != model.ContractActive {
		return nil, apperror.IllegalTransition(model.EntityContract, string(c.Status), string(actor.Role), string(ActionOpenRequest))
	}
	if _, err := model.ParseContractRequestType(string(typ)); err != nil {
		return nil, validation(err.Error(), map[string]interface{}{"type": string(typ)})
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, validation("message is required", map[string]interface{}{"type": string(typ)})
	}

	req := model.ContractRequest{
		ID:         e.newID(),
		ContractID: c.ID,
		UserID:     actor.UserID,
		Type:       typ,
		Message:    message,
		Status:     model.ContractRequestPending,
	}
	d := &RequestDecision{ID: e.newID(), Action: ActionOpenRequest, Actor: actor, Created: &req}
	financier := c.FinancierID
	d.notify(c.ID, model.RoleFinancier, &financier, model.CategoryRequestReceived, requestRef(req),
		"New contract request",
		fmt.Sprintf("A %s request was opened on contract %s.", strings.ToLower(strings.ReplaceAll(string(typ), "_", " ")), c.ContractNumber))
	return d, nil
}

// ResolveRequest moves a contract request along its machine on behalf of a financier or admin.
func (e *Engine) ResolveRequest(r model.ContractRequest, actor Actor, action Action, response string, now time.Time) (*RequestDecision, error) {
	if actor.Role != model.RoleFinancier && actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only financiers and admins handle contract requests")
	}
	to, ok := requestTransitions[requestKey{from: r.Status, action: action}]
	if !ok {
		return nil, apperror.IllegalTransition(model.EntityContractRequest, string(r.Status), string(actor.Role), string(action))
	}
	response = strings.TrimSpace(response)
	if action == ActionCompleteRequest && response == "" {
		return nil, validation("response is required to complete a request", nil)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	d := &RequestDecision{
		ID:        e.newID(),
		Action:    action,
		Actor:     actor,
		RequestID: r.ID,
		From:      r.Status,
		Patch:     repository.ContractRequestPatch{Status: to, Response: response},
	}
	if to == model.ContractRequestProcessing {
		return d, nil
	}

	by := actor.UserID
	d.Patch.RespondedBy = &by
	d.Patch.RespondedAt = &now
	requester := r.UserID
	title := "Contract request completed"
	if to == model.ContractRequestRejected {
		title = "Contract request rejected"
	}
	body := title + "."
	if response != "" {
		body += " " + response
	}
	d.notify(r.ContractID, model.RoleCustomer, &requester, model.CategoryRequestAnswered, requestRef(r), title, body)
	return d, nil
}
