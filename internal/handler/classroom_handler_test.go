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

type classroomServiceMock struct {
	listYear   string
	assignedTo string
	assignReq  dto.AssignTeacherRequest
	err        error
}

func (m *classroomServiceMock) List(ctx context.Context, yearID string) ([]models.ClassroomDetail, error) {
	m.listYear = yearID
	return []models.ClassroomDetail{}, m.err
}

func (m *classroomServiceMock) Get(ctx context.Context, id string) (*models.Classroom, error) {
	return &models.Classroom{ID: id}, m.err
}

func (m *classroomServiceMock) Create(ctx context.Context, req dto.CreateClassroomRequest) (*models.Classroom, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Classroom{ID: "c1", Name: req.Name, YearID: req.YearID}, nil
}

func (m *classroomServiceMock) Rename(ctx context.Context, id string, req dto.RenameClassroomRequest) (*models.Classroom, error) {
	return &models.Classroom{ID: id, Name: req.Name}, m.err
}

func (m *classroomServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func (m *classroomServiceMock) ListStreams(ctx context.Context, classroomID string) ([]models.Stream, error) {
	return []models.Stream{}, m.err
}

func (m *classroomServiceMock) AddStream(ctx context.Context, classroomID string, req dto.CreateStreamRequest) (*models.Stream, error) {
	return &models.Stream{ID: "st1", Name: req.Name, ClassroomID: classroomID}, m.err
}

func (m *classroomServiceMock) AssignTeacher(ctx context.Context, teacherID string, req dto.AssignTeacherRequest) (*models.TeacherProfile, error) {
	m.assignedTo = teacherID
	m.assignReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.TeacherProfile{ID: teacherID}, nil
}

func TestClassroomHandlerListRequiresYear(t *testing.T) {
	mockSvc := &classroomServiceMock{}
	handler := NewClassroomHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/classrooms", "", adminCaller())
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodGet, "/classrooms?yearId=y1", "", adminCaller())
	handler.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "y1", mockSvc.listYear)
}

func TestClassroomHandlerAssignTeacher(t *testing.T) {
	mockSvc := &classroomServiceMock{}
	handler := NewClassroomHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/teachers/t1/assignment", `{"classroom_id":"c1","stream_id":"st1"}`, adminCaller())
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.AssignTeacher(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", mockSvc.assignedTo)
	assert.Equal(t, "c1", mockSvc.assignReq.ClassroomID)
	assert.Equal(t, "st1", *mockSvc.assignReq.StreamID)
}

func TestClassroomHandlerAssignTeacherStreamTaken(t *testing.T) {
	handler := NewClassroomHandler(&classroomServiceMock{err: appErrors.Clone(appErrors.ErrStreamTaken, "")})

	c, w := newTestContext(http.MethodPut, "/teachers/t2/assignment", `{"classroom_id":"c1","stream_id":"st1"}`, adminCaller())
	c.Params = gin.Params{{Key: "id", Value: "t2"}}
	handler.AssignTeacher(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STREAM_TAKEN", decodeError(t, w))
}

func TestClassroomHandlerDeleteInUse(t *testing.T) {
	handler := NewClassroomHandler(&classroomServiceMock{err: appErrors.Clone(appErrors.ErrInUse, "classroom has members")})

	c, w := newTestContext(http.MethodDelete, "/classrooms/c1", "", adminCaller())
	handler.Delete(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "IN_USE", decodeError(t, w))
}
