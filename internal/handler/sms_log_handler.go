package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
	"github.com/noah-isme/sma-attendance-api/pkg/response"
)

type smsLogService interface {
	SendManual(ctx context.Context, claims *models.JWTClaims, req dto.ManualSMSRequest) (*models.NotificationOutcome, error)
	Resend(ctx context.Context, claims *models.JWTClaims, id string) (*models.SMSLog, error)
	ListLogs(ctx context.Context, claims *models.JWTClaims, filter models.SMSLogFilter) ([]models.SMSLogRecord, *models.Pagination, error)
	Recent(ctx context.Context, claims *models.JWTClaims) ([]models.SMSLogRecord, error)
	DeleteLog(ctx context.Context, claims *models.JWTClaims, id string) error
}

// SMSLogHandler exposes parent notifications.
type SMSLogHandler struct {
	service smsLogService
}

// NewSMSLogHandler builds the handler.
func NewSMSLogHandler(service smsLogService) *SMSLogHandler {
	return &SMSLogHandler{service: service}
}

// List godoc
// @Summary List SMS logs
// @Tags SMS
// @Produce json
// @Param classroomId query string false "Classroom ID (admins only)"
// @Param studentId query string false "Student ID"
// @Param status query string false "sent or failed"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date, exclusive (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sms-logs [get]
func (h *SMSLogHandler) List(c *gin.Context) {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.SMSLogFilter{
		ClassroomID: c.Query("classroomId"),
		StudentID:   c.Query("studentId"),
		From:        from,
		To:          to,
		Page:        parseQueryInt(c, "page"),
		PageSize:    parseQueryInt(c, "pageSize"),
	}
	switch status := models.SMSStatus(c.Query("status")); status {
	case "":
	case models.SMSStatusSent, models.SMSStatusFailed:
		filter.Status = &status
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be sent or failed"))
		return
	}

	logs, pagination, err := h.service.ListLogs(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Recent godoc
// @Summary Latest SMS logs for the dashboard
// @Tags SMS
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sms-logs/recent [get]
func (h *SMSLogHandler) Recent(c *gin.Context) {
	logs, err := h.service.Recent(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Send godoc
// @Summary Send a custom SMS to a student's parent
// @Tags SMS
// @Accept json
// @Produce json
// @Param payload body dto.ManualSMSRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /sms-logs [post]
func (h *SMSLogHandler) Send(c *gin.Context) {
	var req dto.ManualSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sms payload"))
		return
	}
	outcome, err := h.service.SendManual(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, outcome)
}

// Resend godoc
// @Summary Resend a logged SMS
// @Tags SMS
// @Produce json
// @Param id path string true "SMS log ID"
// @Success 200 {object} response.Envelope
// @Router /sms-logs/{id}/resend [post]
func (h *SMSLogHandler) Resend(c *gin.Context) {
	log, err := h.service.Resend(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// Delete godoc
// @Summary Delete an SMS log
// @Tags SMS
// @Param id path string true "SMS log ID"
// @Success 204
// @Router /sms-logs/{id} [delete]
func (h *SMSLogHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteLog(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
