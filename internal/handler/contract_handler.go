package handler

import (
	"net/http"

	"leaseflow/internal/logger"
	"leaseflow/internal/middleware"
	"leaseflow/internal/model"
	"leaseflow/internal/service"
	"leaseflow/internal/validation"
	"leaseflow/internal/workflow"
	"leaseflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

type ContractHandler struct {
	contractService service.ContractService
	validator       *validation.Validator
	log             logger.Logger
}

func NewContractHandler(contractService service.ContractService, validator *validation.Validator, log logger.Logger) *ContractHandler {
	return &ContractHandler{contractService: contractService, validator: validator, log: log}
}

func (h *ContractHandler) RegisterRoutes(router *gin.RouterGroup) {
	contracts := router.Group("/api/contracts")
	{
		contracts.GET("/:id", h.GetContract)
		contracts.POST("/:id/complete", middleware.RequireRole(model.RoleAdmin), h.CompleteContract)
		contracts.GET("/:id/timeline", h.GetTimeline)
		contracts.GET("/:id/schedule", h.Schedule)
		contracts.GET("/:id/requests", h.ListContractRequests)
		contracts.POST("/:id/requests", middleware.RequireRole(model.RoleCustomer), h.OpenContractRequest)
	}

	requests := router.Group("/api/contract-requests")
	{
		requests.POST("/:id/resolve", middleware.RequireRole(model.RoleFinancier, model.RoleAdmin), h.ResolveContractRequest)
	}
}

// GetContract
// @Summary      Get contract
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  response.Response{data=model.Contract}
// @Failure      404  {object}  response.Response
// @Router       /api/contracts/{id} [get]
func (h *ContractHandler) GetContract(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.contractService.GetContract(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, contract))
}

// CompleteContract marks an active contract completed
// @Summary      Complete contract
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  response.Response{data=model.Contract}
// @Failure      409  {object}  response.Response
// @Router       /api/contracts/{id}/complete [post]
func (h *ContractHandler) CompleteContract(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.contractService.CompleteContract(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, contract))
}

// GetTimeline reports payment progress
// @Summary      Contract timeline
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Contract ID"
// @Param        as_of  query     string  false  "RFC 3339 time or YYYY-MM-DD (default now)"
// @Success      200    {object}  response.Response{data=timeline.View}
// @Failure      422    {object}  response.Response
// @Router       /api/contracts/{id}/timeline [get]
func (h *ContractHandler) GetTimeline(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	asOf, err := parseTime(c.Query("as_of"))
	if err != nil {
		badRequest(c, "Invalid as_of")
		return
	}
	view, err := h.contractService.GetTimeline(c.Request.Context(), p, id, asOf)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// Schedule streams the monthly payment schedule as a JSON array
// @Summary      Contract payment schedule
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Contract ID"
// @Param        as_of  query     string  false  "RFC 3339 time or YYYY-MM-DD (default now)"
// @Success      200    {array}   timeline.Entry
// @Router       /api/contracts/{id}/schedule [get]
func (h *ContractHandler) Schedule(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	asOf, err := parseTime(c.Query("as_of"))
	if err != nil {
		badRequest(c, "Invalid as_of")
		return
	}
	seq, err := h.contractService.Schedule(c.Request.Context(), p, id, asOf)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "application/json; charset=utf-8")
	w := c.Writer
	_, _ = w.WriteString("[")
	first := true
	for entry := range seq {
		if c.Request.Context().Err() != nil {
			return
		}
		if !first {
			_, _ = w.WriteString(",")
		}
		first = false
		if err := (render.JSON{Data: entry}).Render(w); err != nil {
			h.log.WithError(err).Warn("Schedule stream aborted", map[string]interface{}{"contract_id": id.String()})
			return
		}
		w.Flush()
	}
	_, _ = w.WriteString("]")
}

// OpenContractRequest starts an early-payoff, annual-report or other request
// @Summary      Open contract request
// @Tags         contract-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Contract ID"
// @Param        payload  body      service.OpenContractRequestDTO  true  "Request"
// @Success      201      {object}  response.Response{data=model.ContractRequest}
// @Router       /api/contracts/{id}/requests [post]
func (h *ContractHandler) OpenContractRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.OpenContractRequestDTO
	if !bindValidated(c, h.log, h.validator, &req, validation.SchemaContractRequest) {
		return
	}
	created, err := h.contractService.OpenContractRequest(c.Request.Context(), p, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// ListContractRequests
// @Summary      List contract requests
// @Tags         contract-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  response.Response{data=[]model.ContractRequest}
// @Router       /api/contracts/{id}/requests [get]
func (h *ContractHandler) ListContractRequests(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reqs, err := h.contractService.ListContractRequests(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reqs))
}

type resolveContractRequestBody struct {
	Action   string `json:"action"`
	Response string `json:"response"`
}

// ResolveContractRequest processes, completes or rejects a request
// @Summary      Resolve contract request
// @Description  action is process, complete (response required) or reject
// @Tags         contract-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Contract request ID"
// @Param        payload  body      resolveContractRequestBody  true  "Resolution"
// @Success      200      {object}  response.Response{data=model.ContractRequest}
// @Failure      409      {object}  response.Response
// @Router       /api/contract-requests/{id}/resolve [post]
func (h *ContractHandler) ResolveContractRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body resolveContractRequestBody
	if !bindValidated(c, h.log, h.validator, &body, validation.SchemaContractRequestResolve) {
		return
	}
	resolved, err := h.contractService.ResolveContractRequest(c.Request.Context(), p, id,
		workflow.Action(body.Action), service.ResolveContractRequestDTO{Response: body.Response})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resolved))
}
