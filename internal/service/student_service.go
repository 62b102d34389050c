package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
	"github.com/noah-isme/sma-attendance-api/pkg/phone"
)

type studentRepository interface {
	Roster(ctx context.Context, filter models.RosterFilter) ([]models.StudentProfile, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	ExistsAdmission(ctx context.Context, admissionNumber string) (bool, error)
	Register(ctx context.Context, student *models.StudentProfile, parent *models.ParentProfile) error
	AddParent(ctx context.Context, parent *models.ParentProfile) error
	ListParents(ctx context.Context, studentID string) ([]models.ParentProfile, error)
}

type studentClassroomLookup interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	FindStream(ctx context.Context, id string) (*models.Stream, error)
}

type activeYearLookup interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindActive(ctx context.Context) (*models.AcademicYear, error)
}

// StudentService registers students and their parents.
type StudentService struct {
	students   studentRepository
	classrooms studentClassroomLookup
	years      activeYearLookup
	teachers   teacherLookup
	normalizer *phone.Normalizer
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(
	students studentRepository,
	classrooms studentClassroomLookup,
	years activeYearLookup,
	teachers teacherLookup,
	normalizer *phone.Normalizer,
	validate *validator.Validate,
	logger *zap.Logger,
) *StudentService {
	if normalizer == nil {
		normalizer = phone.Default
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:   students,
		classrooms: classrooms,
		years:      years,
		teachers:   teachers,
		normalizer: normalizer,
		validator:  validate,
		logger:     logger,
	}
}

// Register creates a student with their first parent. The academic year
// defaults to the active one.
func (s *StudentService) Register(ctx context.Context, req dto.RegisterStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	parent, err := s.parentFrom(req.Parent)
	if err != nil {
		return nil, err
	}

	admission := strings.TrimSpace(req.AdmissionNumber)
	exists, err := s.students.ExistsAdmission(ctx, admission)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check admission number")
	}
	if exists {
		return nil, admissionTaken()
	}

	year, err := s.resolveYear(ctx, req.AcademicYearID)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePlacement(ctx, req.ClassroomID, req.StreamID); err != nil {
		return nil, err
	}

	gender := strings.ToLower(req.Gender)
	classroomID := req.ClassroomID
	student := &models.StudentProfile{
		ClassroomID:     &classroomID,
		StreamID:        req.StreamID,
		AdmissionNumber: admission,
		AcademicYearID:  year.ID,
		Status:          models.StudentStatusActive,
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Gender:          &gender,
	}
	if err := s.students.Register(ctx, student, parent); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, admissionTaken()
		}
		return nil, appErrors.Internal(err, "failed to register student")
	}

	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.String("admission_number", admission))
	return &models.StudentDetail{StudentProfile: *student, Parents: []models.ParentProfile{*parent}}, nil
}

// AddParent attaches another parent to an existing student.
func (s *StudentService) AddParent(ctx context.Context, studentID string, req dto.ParentRequest) (*models.ParentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid parent payload")
	}
	if _, err := s.find(ctx, studentID); err != nil {
		return nil, err
	}
	parent, err := s.parentFrom(req)
	if err != nil {
		return nil, err
	}
	parent.StudentID = studentID
	if err := s.students.AddParent(ctx, parent); err != nil {
		return nil, appErrors.Internal(err, "failed to add parent")
	}
	return parent, nil
}

// Get returns a student with every parent. Teachers only see their own classroom.
func (s *StudentService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.StudentDetail, error) {
	scope, err := resolveScope(ctx, s.teachers, claims)
	if err != nil {
		return nil, err
	}
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.allows(student.ClassroomID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another classroom")
	}
	parents, err := s.students.ListParents(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load parents")
	}
	if parents == nil {
		parents = []models.ParentProfile{}
	}
	return &models.StudentDetail{StudentProfile: *student, Parents: parents}, nil
}

// List returns a roster page. Teachers are limited to their classroom and stream.
func (s *StudentService) List(ctx context.Context, claims *models.JWTClaims, filter models.RosterFilter) ([]models.StudentProfile, *models.Pagination, error) {
	scope, err := resolveScope(ctx, s.teachers, claims)
	if err != nil {
		return nil, nil, err
	}
	if !scope.admin {
		own := scope.classroomID()
		if own == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "teacher is not assigned to a classroom")
		}
		filter.ClassroomID = own
		filter.StreamID = scope.teacher.StreamID
	}
	if filter.ClassroomID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "classroom is required")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultRosterPageSize
	}

	students, total, err := s.students.Roster(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *StudentService) parentFrom(req dto.ParentRequest) (*models.ParentProfile, error) {
	normalized, err := s.normalizer.Normalize(req.PhoneNumber)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidPhone, "parent phone number is invalid")
	}
	return &models.ParentProfile{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		PhoneNumber: &normalized,
	}, nil
}

func (s *StudentService) resolveYear(ctx context.Context, id string) (*models.AcademicYear, error) {
	if id == "" {
		year, err := s.years.FindActive(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrInvalidState, "no active academic year")
			}
			return nil, appErrors.Internal(err, "failed to load active academic year")
		}
		return year, nil
	}
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Internal(err, "failed to load academic year")
	}
	return year, nil
}

func (s *StudentService) ensurePlacement(ctx context.Context, classroomID string, streamID *string) error {
	if _, err := s.classrooms.FindByID(ctx, classroomID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return appErrors.Internal(err, "failed to load classroom")
	}
	if streamID == nil {
		return nil
	}
	stream, err := s.classrooms.FindStream(ctx, *streamID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "stream not found")
		}
		return appErrors.Internal(err, "failed to load stream")
	}
	if stream.ClassroomID != classroomID {
		return appErrors.Clone(appErrors.ErrValidation, "stream does not belong to the classroom")
	}
	return nil
}

func (s *StudentService) find(ctx context.Context, id string) (*models.StudentProfile, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

func admissionTaken() error {
	return appErrors.Clone(appErrors.ErrConflict, "admission number already registered")
}
