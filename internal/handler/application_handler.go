package handler

import (
	"net/http"
	"strings"

	"leaseflow/internal/logger"
	"leaseflow/internal/middleware"
	"leaseflow/internal/model"
	"leaseflow/internal/service"
	"leaseflow/internal/validation"
	"leaseflow/internal/workflow"
	"leaseflow/pkg/pagination"
	"leaseflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	applicationService service.ApplicationService
	lifecycleService   service.LifecycleService
	validator          *validation.Validator
	log                logger.Logger
}

func NewApplicationHandler(applicationService service.ApplicationService, lifecycleService service.LifecycleService, validator *validation.Validator, log logger.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
		lifecycleService:   lifecycleService,
		validator:          validator,
		log:                log,
	}
}

// RegisterRoutes expects router to be behind middleware.Auth.Authenticate.
func (h *ApplicationHandler) RegisterRoutes(router *gin.RouterGroup) {
	apps := router.Group("/api/applications")
	{
		apps.POST("", middleware.RequireRole(model.RoleCustomer), h.CreateApplication)
		apps.GET("", h.ListApplications)
		apps.GET("/:id", h.GetApplication)
		apps.POST("/:id/transitions/:action", h.RequestTransition)
		apps.GET("/:id/offers", h.ListOffers)
		apps.GET("/:id/contracts", h.ListContracts)
		apps.POST("/:id/contracts", middleware.RequireRole(model.RoleFinancier, model.RoleAdmin), h.CreateContractDraft)
		apps.GET("/:id/messages", h.ListMessages)
		apps.POST("/:id/messages", h.PostMessage)
	}
}

// CreateApplication opens a draft application owned by the caller
// @Summary      Create application
// @Description  Creates a DRAFT leasing or sale-leaseback application for the calling customer
// @Tags         applications
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateApplicationRequest  true  "Application"
// @Success      201      {object}  response.Response{data=service.ApplicationDetail}
// @Failure      422      {object}  response.Response
// @Router       /api/applications [post]
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req service.CreateApplicationRequest
	if !bindValidated(c, h.log, h.validator, &req, validation.SchemaApplication) {
		return
	}

	app, err := h.applicationService.CreateApplication(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, app))
}

// ListApplications returns the applications the caller may see
// @Summary      List applications
// @Description  Admins see all, customers their own, financiers those routed to them
// @Tags         applications
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Comma separated statuses"
// @Param        type    query     string  false  "LEASING or SALE_LEASEBACK"
// @Param        search  query     string  false  "Company name, business id or reference number"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/applications [get]
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	pg := pagination.Parse(c)
	q := service.ApplicationQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   pg.Page,
		Limit:  pg.Limit,
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, err := model.ParseApplicationStatus(strings.TrimSpace(s))
			if err != nil {
				badRequest(c, err.Error())
				return
			}
			q.Statuses = append(q.Statuses, status)
		}
	}
	if raw := c.Query("type"); raw != "" {
		typ, err := model.ParseApplicationType(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		q.Type = typ
	}

	apps, total, err := h.applicationService.ListApplications(c.Request.Context(), p, q)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pg.Wrap(apps, total)))
}

// GetApplication
// @Summary      Get application
// @Tags         applications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  response.Response{data=service.ApplicationDetail}
// @Failure      404  {object}  response.Response
// @Router       /api/applications/{id} [get]
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	app, err := h.applicationService.GetApplication(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, app))
}

// RequestTransition applies one lifecycle action to an application
// @Summary      Request transition
// @Description  Runs submit, route_to_financier, request_info, respond_info, create_offer, approve_offer,
// @Description  accept_offer, reject_offer, send_contract, sign_contract, close or cancel
// @Tags         applications
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string            true   "Application ID"
// @Param        action   path      string            true   "Transition name"
// @Param        payload  body      workflow.Payload  false  "Action-specific payload"
// @Success      200      {object}  response.Response{data=service.TransitionResult}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/applications/{id}/transitions/{action} [post]
func (h *ApplicationHandler) RequestTransition(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	action, err := workflow.ParseAction(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	if err := h.lifecycleService.CheckTransition(c.Request.Context(), p, id, action); err != nil {
		respondError(c, h.log, err)
		return
	}
	var payload workflow.Payload
	if !bindValidated(c, h.log, h.validator, &payload, string(action)) {
		return
	}

	res, err := h.lifecycleService.RequestTransition(c.Request.Context(), p, id, action, payload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListOffers
// @Summary      List offers of an application
// @Description  Customers only see offers an admin has released
// @Tags         applications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  response.Response{data=[]model.Offer}
// @Router       /api/applications/{id}/offers [get]
func (h *ApplicationHandler) ListOffers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	offers, err := h.applicationService.ListOffers(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, offers))
}

// ListContracts
// @Summary      List contracts of an application
// @Tags         applications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  response.Response{data=[]model.Contract}
// @Router       /api/applications/{id}/contracts [get]
func (h *ApplicationHandler) ListContracts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contracts, err := h.applicationService.ListContracts(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, contracts))
}

// CreateContractDraft prepares a contract without moving the application
// @Summary      Create contract draft
// @Tags         contracts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string            true   "Application ID"
// @Param        payload  body      workflow.Payload  false  "Contract terms under \"contract\""
// @Success      201      {object}  response.Response{data=model.Contract}
// @Failure      409      {object}  response.Response
// @Router       /api/applications/{id}/contracts [post]
func (h *ApplicationHandler) CreateContractDraft(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var payload workflow.Payload
	if !bindValidated(c, h.log, h.validator, &payload, validation.SchemaContractDraft) {
		return
	}

	contract, err := h.applicationService.CreateContractDraft(c.Request.Context(), p, id, payload.Contract)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, contract))
}

// ListMessages
// @Summary      List messages of an application
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  response.Response{data=[]model.Message}
// @Router       /api/applications/{id}/messages [get]
func (h *ApplicationHandler) ListMessages(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.applicationService.ListMessages(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, msgs))
}

// PostMessage appends a plain message to the application thread
// @Summary      Post message
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Application ID"
// @Param        payload  body      service.PostMessageRequest  true  "Message"
// @Success      201      {object}  response.Response{data=model.Message}
// @Router       /api/applications/{id}/messages [post]
func (h *ApplicationHandler) PostMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.PostMessageRequest
	if !bindValidated(c, h.log, h.validator, &req, validation.SchemaMessage) {
		return
	}

	msg, err := h.applicationService.PostMessage(c.Request.Context(), p, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, msg))
}
