package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type smsLogServiceMock struct {
	filter    models.SMSLogFilter
	manual    dto.ManualSMSRequest
	resendErr error
	listCalls int
}

func (m *smsLogServiceMock) SendManual(ctx context.Context, claims *models.JWTClaims, req dto.ManualSMSRequest) (*models.NotificationOutcome, error) {
	m.manual = req
	return &models.NotificationOutcome{StudentID: req.StudentID, Outcome: models.NotificationSent}, nil
}

func (m *smsLogServiceMock) Resend(ctx context.Context, claims *models.JWTClaims, id string) (*models.SMSLog, error) {
	if m.resendErr != nil {
		return nil, m.resendErr
	}
	return &models.SMSLog{ID: id, Status: models.SMSStatusSent}, nil
}

func (m *smsLogServiceMock) ListLogs(ctx context.Context, claims *models.JWTClaims, filter models.SMSLogFilter) ([]models.SMSLogRecord, *models.Pagination, error) {
	m.listCalls++
	m.filter = filter
	return []models.SMSLogRecord{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *smsLogServiceMock) Recent(ctx context.Context, claims *models.JWTClaims) ([]models.SMSLogRecord, error) {
	return []models.SMSLogRecord{}, nil
}

func (m *smsLogServiceMock) DeleteLog(ctx context.Context, claims *models.JWTClaims, id string) error {
	return nil
}

func TestSMSLogHandlerListFilters(t *testing.T) {
	mockSvc := &smsLogServiceMock{}
	handler := NewSMSLogHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/sms-logs?studentId=s1&status=failed&from=2026-10-01&to=2026-10-15", "", adminCaller())
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", mockSvc.filter.StudentID)
	assert.Equal(t, models.SMSStatusFailed, *mockSvc.filter.Status)
	assert.Equal(t, "2026-10-01", mockSvc.filter.From.Format(dateLayout))
	assert.Equal(t, "2026-10-15", mockSvc.filter.To.Format(dateLayout))
}

func TestSMSLogHandlerListRejectsBadQuery(t *testing.T) {
	mockSvc := &smsLogServiceMock{}
	handler := NewSMSLogHandler(mockSvc)

	for _, target := range []string{"/sms-logs?status=queued", "/sms-logs?from=yesterday"} {
		c, w := newTestContext(http.MethodGet, target, "", adminCaller())
		handler.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	assert.Zero(t, mockSvc.listCalls)
}

func TestSMSLogHandlerSend(t *testing.T) {
	mockSvc := &smsLogServiceMock{}
	handler := NewSMSLogHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/sms-logs", `{"student_id":"s1","message":"Kikao cha wazazi kesho"}`, teacherCaller())
	handler.Send(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", mockSvc.manual.StudentID)
}

func TestSMSLogHandlerResendForbidden(t *testing.T) {
	handler := NewSMSLogHandler(&smsLogServiceMock{resendErr: appErrors.Clone(appErrors.ErrForbidden, "sms log belongs to another classroom")})

	c, w := newTestContext(http.MethodPost, "/sms-logs/l1/resend", "", teacherCaller())
	handler.Resend(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, decodeError(t, w))
}
