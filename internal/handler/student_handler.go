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

type studentService interface {
	Register(ctx context.Context, req dto.RegisterStudentRequest) (*models.StudentDetail, error)
	AddParent(ctx context.Context, studentID string, req dto.ParentRequest) (*models.ParentProfile, error)
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.StudentDetail, error)
	List(ctx context.Context, claims *models.JWTClaims, filter models.RosterFilter) ([]models.StudentProfile, *models.Pagination, error)
}

// StudentHandler exposes student registration and rosters.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler builds the handler.
func NewStudentHandler(service studentService) *StudentHandler {
	return &StudentHandler{service: service}
}

// List godoc
// @Summary List the active students of a classroom
// @Tags Students
// @Produce json
// @Param classroomId query string false "Classroom ID (admins only)"
// @Param streamId query string false "Stream ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.RosterFilter{
		ClassroomID: c.Query("classroomId"),
		StreamID:    optionalQuery(c, "streamId"),
		Page:        parseQueryInt(c, "page"),
		PageSize:    parseQueryInt(c, "pageSize"),
	}
	students, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get a student with their parents
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Register godoc
// @Summary Register a student with their first parent
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var req dto.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// AddParent godoc
// @Summary Attach another parent to a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.ParentRequest true "Parent payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/parents [post]
func (h *StudentHandler) AddParent(c *gin.Context) {
	var req dto.ParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid parent payload"))
		return
	}
	parent, err := h.service.AddParent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, parent)
}
