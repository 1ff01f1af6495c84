package handler

import (
	"net/http"

	"leaseflow/internal/logger"
	"leaseflow/internal/middleware"
	"leaseflow/internal/model"
	"leaseflow/internal/service"
	"leaseflow/internal/validation"
	"leaseflow/pkg/pagination"
	"leaseflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	validator   *validation.Validator
	log         logger.Logger
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService, validator *validation.Validator, log logger.Logger) *UserHandler {
	return &UserHandler{userService: userService, validator: validator, log: log}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/me", h.GetMe)

	users := router.Group("/api/users")
	users.Use(middleware.RequireRole(model.RoleAdmin))
	{
		users.GET("", h.ListUsers)
		users.POST("", h.RegisterUser)
	}
}

// RegisterUser adds a user to the directory
// @Summary      Register user
// @Description  Maps an identity-provider email to a role. Admin only.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RegisterUserRequest  true  "User"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/users [post]
func (h *UserHandler) RegisterUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req service.RegisterUserRequest
	if !bindValidated(c, h.log, h.validator, &req, validation.SchemaUser) {
		return
	}

	user, err := h.userService.RegisterUser(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// GetMe returns the caller as currently stored
// @Summary      Get current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	user, err := h.userService.Me(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ListUsers handles GET /api/users and extracts pagination controls
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role   query     string  false  "CUSTOMER, FINANCIER or ADMIN"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var role model.Role
	if raw := c.Query("role"); raw != "" {
		r, err := model.ParseRole(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		role = r
	}
	pg := pagination.Parse(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), p, role, pg.Page, pg.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pg.Wrap(users, total)))
}
