package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/response"
)

type reportService interface {
	DailyReport(ctx context.Context, claims *models.JWTClaims, classroomID string, streamID *string, date *time.Time) (*models.DailyReport, error)
	YearSummary(ctx context.Context, yearID string) (*models.YearSummary, error)
}

// ReportHandler exposes attendance reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler builds the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Daily godoc
// @Summary Attendance breakdown of a classroom for one day
// @Tags Reports
// @Produce json
// @Param classroomId query string false "Classroom ID (teachers default to their own)"
// @Param streamId query string false "Stream ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /reports/daily [get]
func (h *ReportHandler) Daily(c *gin.Context) {
	date, err := parseDateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.DailyReport(c.Request.Context(), claimsFromContext(c), c.Query("classroomId"), optionalQuery(c, "streamId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// YearSummary godoc
// @Summary Per-classroom attendance totals for an academic year
// @Tags Reports
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /reports/academic-years/{id} [get]
func (h *ReportHandler) YearSummary(c *gin.Context) {
	summary, err := h.service.YearSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
