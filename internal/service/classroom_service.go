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
)

type classroomRepository interface {
	ListByYear(ctx context.Context, yearID string) ([]models.ClassroomDetail, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ExistsByName(ctx context.Context, yearID, name, excludeID string) (bool, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Rename(ctx context.Context, id, name string) error
	CountMembers(ctx context.Context, id string) (int, int, error)
	Delete(ctx context.Context, id string) error
	ListStreams(ctx context.Context, classroomID string) ([]models.Stream, error)
	FindStream(ctx context.Context, id string) (*models.Stream, error)
	StreamExists(ctx context.Context, classroomID, name string) (bool, error)
	CreateStream(ctx context.Context, stream *models.Stream) error
}

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeacherProfile, error)
	StreamTaken(ctx context.Context, streamID, excludeTeacherID string) (bool, error)
	Assign(ctx context.Context, teacherID string, classroomID, streamID *string) error
}

// ClassroomService manages classrooms, streams and teacher placement.
type ClassroomService struct {
	classrooms classroomRepository
	years      reportYearRepository
	teachers   assignmentRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassroomService constructs the service.
func NewClassroomService(classrooms classroomRepository, years reportYearRepository, teachers assignmentRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{classrooms: classrooms, years: years, teachers: teachers, validator: validate, logger: logger}
}

// List returns the classrooms of a year.
func (s *ClassroomService) List(ctx context.Context, yearID string) ([]models.ClassroomDetail, error) {
	if _, err := s.year(ctx, yearID); err != nil {
		return nil, err
	}
	items, err := s.classrooms.ListByYear(ctx, yearID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classrooms")
	}
	if items == nil {
		items = []models.ClassroomDetail{}
	}
	return items, nil
}

// Get loads one classroom.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, err := s.classrooms.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Internal(err, "failed to load classroom")
	}
	return classroom, nil
}

// Create adds a classroom to an unlocked year. Names are unique per year.
func (s *ClassroomService) Create(ctx context.Context, req dto.CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	year, err := s.year(ctx, req.YearID)
	if err != nil {
		return nil, err
	}
	if year.IsLocked {
		return nil, appErrors.Clone(appErrors.ErrYearLocked, "cannot add classrooms to a locked academic year")
	}

	name := strings.TrimSpace(req.Name)
	if err := s.ensureName(ctx, year.ID, name, ""); err != nil {
		return nil, err
	}
	classroom := &models.Classroom{Name: name, YearID: year.ID}
	if err := s.classrooms.Create(ctx, classroom); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicateClassroom()
		}
		return nil, appErrors.Internal(err, "failed to create classroom")
	}
	return classroom, nil
}

// Rename changes the classroom name keeping it unique within its year.
func (s *ClassroomService) Rename(ctx context.Context, id string, req dto.RenameClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	classroom, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == classroom.Name {
		return classroom, nil
	}
	if err := s.ensureName(ctx, classroom.YearID, name, classroom.ID); err != nil {
		return nil, err
	}
	if err := s.classrooms.Rename(ctx, id, name); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicateClassroom()
		}
		return nil, appErrors.Internal(err, "failed to rename classroom")
	}
	classroom.Name = name
	return classroom, nil
}

// Delete removes an empty classroom.
func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	students, teachers, err := s.classrooms.CountMembers(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to check classroom members")
	}
	if students > 0 || teachers > 0 {
		return appErrors.Clone(appErrors.ErrInUse, "classroom has students or teachers assigned")
	}
	if err := s.classrooms.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrInUse, "classroom has students or teachers assigned")
		}
		return appErrors.Internal(err, "failed to delete classroom")
	}
	return nil
}

// ListStreams returns the streams of a classroom.
func (s *ClassroomService) ListStreams(ctx context.Context, classroomID string) ([]models.Stream, error) {
	if _, err := s.Get(ctx, classroomID); err != nil {
		return nil, err
	}
	streams, err := s.classrooms.ListStreams(ctx, classroomID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list streams")
	}
	if streams == nil {
		streams = []models.Stream{}
	}
	return streams, nil
}

// AddStream creates a stream with a name unique inside the classroom.
func (s *ClassroomService) AddStream(ctx context.Context, classroomID string, req dto.CreateStreamRequest) (*models.Stream, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stream payload")
	}
	if _, err := s.Get(ctx, classroomID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	exists, err := s.classrooms.StreamExists(ctx, classroomID, name)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check stream name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "stream name already exists in this classroom")
	}
	stream := &models.Stream{Name: name, ClassroomID: classroomID}
	if err := s.classrooms.CreateStream(ctx, stream); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "stream name already exists in this classroom")
		}
		return nil, appErrors.Internal(err, "failed to create stream")
	}
	return stream, nil
}

// AssignTeacher places a teacher in a classroom. A stream must belong to the
// classroom and may be held by one teacher only.
func (s *ClassroomService) AssignTeacher(ctx context.Context, teacherID string, req dto.AssignTeacherRequest) (*models.TeacherProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Internal(err, "failed to load teacher")
	}
	if _, err := s.Get(ctx, req.ClassroomID); err != nil {
		return nil, err
	}

	if req.StreamID != nil {
		if err := s.ensureStreamAvailable(ctx, teacher.ID, req.ClassroomID, *req.StreamID); err != nil {
			return nil, err
		}
	}

	classroomID := req.ClassroomID
	if err := s.teachers.Assign(ctx, teacher.ID, &classroomID, req.StreamID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Internal(err, "failed to assign teacher")
	}
	teacher.ClassroomID = &classroomID
	teacher.StreamID = req.StreamID
	s.logger.Info("teacher assigned",
		zap.String("teacher_id", teacher.ID), zap.String("classroom_id", classroomID))
	return teacher, nil
}

func (s *ClassroomService) ensureStreamAvailable(ctx context.Context, teacherID, classroomID, streamID string) error {
	stream, err := s.classrooms.FindStream(ctx, streamID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "stream not found")
		}
		return appErrors.Internal(err, "failed to load stream")
	}
	if stream.ClassroomID != classroomID {
		return appErrors.Clone(appErrors.ErrValidation, "stream does not belong to the classroom")
	}
	taken, err := s.teachers.StreamTaken(ctx, streamID, teacherID)
	if err != nil {
		return appErrors.Internal(err, "failed to check stream assignment")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrStreamTaken, "stream "+stream.Name+" already has a teacher")
	}
	return nil
}

func (s *ClassroomService) ensureName(ctx context.Context, yearID, name, excludeID string) error {
	exists, err := s.classrooms.ExistsByName(ctx, yearID, name, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check classroom name")
	}
	if exists {
		return duplicateClassroom()
	}
	return nil
}

func (s *ClassroomService) year(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Internal(err, "failed to load academic year")
	}
	return year, nil
}

func duplicateClassroom() error {
	return appErrors.Clone(appErrors.ErrConflict, "classroom name already exists in this academic year")
}
