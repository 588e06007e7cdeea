package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

type scopeQuery struct {
	AssignedTo string `form:"assigned_to" binding:"omitempty,uuid"`
}

type trendsQuery struct {
	scopeQuery
	Days int `form:"days,default=30" binding:"min=7,max=365"`
}

// Overview returns task totals by status and priority
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	var q scopeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	overview, err := h.analyticsService.Overview(c.Request.Context(), q.AssignedTo)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(overview))
}

// Performance returns completion statistics per assignee
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	var q scopeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	rows, err := h.analyticsService.Performance(c.Request.Context(), q.AssignedTo)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(rows))
}

// Trends returns daily created and completed counts
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	var q trendsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	trends, err := h.analyticsService.Trends(c.Request.Context(), q.AssignedTo, q.Days)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(trends))
}

// Export downloads every live task as CSV
func (h *AnalyticsHandler) Export(c *gin.Context) {
	var q scopeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.analyticsService.ExportCSV(c.Request.Context(), q.AssignedTo, &buf); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="tasks_export.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
