package handler

import (
	"net/http"
	"time"

	"leaseflow/internal/logger"
	"leaseflow/internal/middleware"
	"leaseflow/internal/model"
	"leaseflow/internal/service"
	"leaseflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	log               logger.Logger
}

func NewStatisticsHandler(statisticsService service.StatisticsService, log logger.Logger) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, log: log}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("", middleware.RequireRole(model.RoleAdmin), h.GetStatistics)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Application, offer and contract counts per status plus requested and financed volume, bounded by creation time
// @Tags         statistics
// @Produce      json
// @Param        start_date query string false "Start date (RFC3339 or YYYY-MM-DD), default first day of this month"
// @Param        end_date   query string false "End date (RFC3339 or YYYY-MM-DD), default now"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      403 {object} response.Response
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	startDate, err := parseTime(c.Query("start_date"))
	if err != nil {
		badRequest(c, "invalid start_date format, expected RFC3339")
		return
	}
	endDate, err := parseTime(c.Query("end_date"))
	if err != nil {
		badRequest(c, "invalid end_date format, expected RFC3339")
		return
	}
	// A bare date as end bound covers the whole day.
	if raw := c.Query("end_date"); len(raw) == len(time.DateOnly) {
		endDate = endDate.Add(24*time.Hour - time.Nanosecond)
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), p, startDate, endDate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
