package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type studentServiceMock struct {
	registered *dto.RegisterStudentRequest
	parentFor  string
	filter     models.RosterFilter
	err        error
}

func (m *studentServiceMock) Register(ctx context.Context, req dto.RegisterStudentRequest) (*models.StudentDetail, error) {
	m.registered = &req
	if m.err != nil {
		return nil, m.err
	}
	return &models.StudentDetail{}, nil
}

func (m *studentServiceMock) AddParent(ctx context.Context, studentID string, req dto.ParentRequest) (*models.ParentProfile, error) {
	m.parentFor = studentID
	if m.err != nil {
		return nil, m.err
	}
	return &models.ParentProfile{}, nil
}

func (m *studentServiceMock) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.StudentDetail, error) {
	return &models.StudentDetail{}, m.err
}

func (m *studentServiceMock) List(ctx context.Context, claims *models.JWTClaims, filter models.RosterFilter) ([]models.StudentProfile, *models.Pagination, error) {
	m.filter = filter
	return []models.StudentProfile{}, &models.Pagination{Page: 1, PageSize: 25}, m.err
}

const registerPayload = `{"first_name":"Amina","last_name":"Juma","gender":"female","admission_number":"ADM-001","classroom_id":"c1",
"parent":{"first_name":"Halima","last_name":"Juma","phone_number":"0712345678"}}`

func TestStudentHandlerRegister(t *testing.T) {
	mockSvc := &studentServiceMock{}
	handler := NewStudentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/students", registerPayload, adminCaller())
	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mockSvc.registered)
	assert.Equal(t, "ADM-001", mockSvc.registered.AdmissionNumber)
	assert.Equal(t, "0712345678", mockSvc.registered.Parent.PhoneNumber)
}

func TestStudentHandlerRegisterErrors(t *testing.T) {
	handler := NewStudentHandler(&studentServiceMock{})
	c, w := newTestContext(http.MethodPost, "/students", `{"first_name":`, adminCaller())
	handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	handler = NewStudentHandler(&studentServiceMock{err: appErrors.Clone(appErrors.ErrInvalidPhone, "")})
	c, w = newTestContext(http.MethodPost, "/students", registerPayload, adminCaller())
	handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PHONE", decodeError(t, w))
}

func TestStudentHandlerAddParent(t *testing.T) {
	mockSvc := &studentServiceMock{}
	handler := NewStudentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/students/s1/parents", `{"first_name":"Ali","last_name":"Juma","phone_number":"+255712345678"}`, adminCaller())
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.AddParent(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", mockSvc.parentFor)
}

func TestStudentHandlerListPassesPaging(t *testing.T) {
	mockSvc := &studentServiceMock{}
	handler := NewStudentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/students?classroomId=c1&page=2&pageSize=10", "", adminCaller())
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", mockSvc.filter.ClassroomID)
	assert.Equal(t, 2, mockSvc.filter.Page)
	assert.Equal(t, 10, mockSvc.filter.PageSize)
}
