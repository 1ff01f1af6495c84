package handler

import (
	"net/http"

	"leaseflow/internal/logger"
	"leaseflow/internal/service"
	"leaseflow/internal/validation"
	"leaseflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the unauthenticated landing-page intake.
type PublicHandler struct {
	applicationService service.ApplicationService
	validator          *validation.Validator
	log                logger.Logger
}

func NewPublicHandler(applicationService service.ApplicationService, validator *validation.Validator, log logger.Logger) *PublicHandler {
	return &PublicHandler{applicationService: applicationService, validator: validator, log: log}
}

func (h *PublicHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/public/applications", h.CreateApplication)
}

// CreateApplication records an intake form as an unowned draft
// @Summary      Public application intake
// @Description  Creates a DRAFT application with no customer; a customer with the same verified email may claim it
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateApplicationRequest  true  "Application"
// @Success      201      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/public/applications [post]
func (h *PublicHandler) CreateApplication(c *gin.Context) {
	var req service.CreateApplicationRequest
	if !bindValidated(c, h.log, h.validator, &req, validation.SchemaApplication, validation.SchemaPublicApplication) {
		return
	}

	app, err := h.applicationService.CreatePublicApplication(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	// The intake form only learns its reference; the record itself needs a login.
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, map[string]interface{}{
		"id":               app.ID,
		"reference_number": app.ReferenceNumber,
		"status":           app.Status,
	}))
}
