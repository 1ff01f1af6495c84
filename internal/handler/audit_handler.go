package handler

import (
	"net/http"

	"leaseflow/internal/logger"
	"leaseflow/internal/middleware"
	"leaseflow/internal/model"
	"leaseflow/internal/service"
	"leaseflow/pkg/pagination"
	"leaseflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditHandler struct {
	auditService service.AuditService
	log          logger.Logger
}

func NewAuditHandler(auditService service.AuditService, log logger.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs lists audit entries, newest first
// @Summary      Get audit logs
// @Description  Optionally restricted to one application. Admin only.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        application_id  query     string  false  "Application ID"
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Number of items per page (default 20)"
// @Success      200             {object}  response.Response{data=response.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var appID *uuid.UUID
	if raw := c.Query("application_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid application_id")
			return
		}
		appID = &id
	}
	pg := pagination.Parse(c)

	logs, total, err := h.auditService.ListAuditTrail(c.Request.Context(), p, appID, pg.Page, pg.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pg.Wrap(logs, total)))
}
