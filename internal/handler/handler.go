package handler

import (
	"io"
	"net/http"
	"time"

	"leaseflow/internal/apperror"
	"leaseflow/internal/logger"
	"leaseflow/internal/middleware"
	"leaseflow/internal/validation"
	"leaseflow/internal/visibility"
	"leaseflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// maxBody caps request bodies read for schema validation.
const maxBody = 1 << 20

// respondError writes err in the response envelope. Hidden records are
// reported exactly like missing ones, and internal causes are never echoed.
func respondError(c *gin.Context, log logger.Logger, err error) {
	status := apperror.HTTPStatus(err)
	e, ok := apperror.As(err)
	if !ok {
		e = apperror.Internal("internal error", err)
	}

	switch e.Code {
	case apperror.CodeVisibilityDenied, apperror.CodeNotFound:
		c.JSON(status, response.Coded(status, string(apperror.CodeNotFound), e.Message, nil, false))
		return
	case apperror.CodeInternal:
		log.WithError(err).Error("Request failed", map[string]interface{}{"path": c.FullPath()})
		c.JSON(status, response.Coded(status, string(e.Code), "internal error", nil, true))
		return
	}
	c.JSON(status, response.Coded(status, string(e.Code), e.Message, e.Details, e.Retryable))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// principal returns the authenticated caller or answers 401.
func principal(c *gin.Context) (visibility.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
	}
	return p, ok
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// bindValidated checks the raw body against each named schema, then decodes it into dst.
func bindValidated(c *gin.Context, log logger.Logger, v *validation.Validator, dst interface{}, schemas ...string) bool {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		badRequest(c, "Failed to read request body")
		return false
	}
	for _, name := range schemas {
		if err := v.Validate(name, body); err != nil {
			respondError(c, log, err)
			return false
		}
	}
	if len(body) == 0 {
		return true
	}
	if err := binding.JSON.BindBody(body, dst); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// parseTime accepts RFC 3339 or a plain date. An empty value is the zero time.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
