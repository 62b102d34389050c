package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

const (
	dateLayout            = "2006-01-02"
	defaultRosterPageSize = 25
)

type rosterRepository interface {
	Roster(ctx context.Context, filter models.RosterFilter) ([]models.StudentProfile, int, error)
}

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, markedBy *string) (*models.Attendance, error)
	Delete(ctx context.Context, id string) error
	ListDay(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

type smsLogLookup interface {
	ExistsForDay(ctx context.Context, studentID string, start, end time.Time) (bool, error)
	ListForDay(ctx context.Context, studentID string, start, end time.Time) ([]models.SMSLog, error)
}

type absenceNotifier interface {
	NotifyAbsence(ctx context.Context, studentID string) models.NotificationOutcome
}

type reportInvalidator interface {
	InvalidateClassroom(ctx context.Context, classroomID string)
}

// AttendanceService is the daily attendance register.
type AttendanceService struct {
	students  rosterRepository
	records   attendanceRepository
	smsLogs   smsLogLookup
	teachers  teacherLookup
	notifier  absenceNotifier
	reports   reportInvalidator
	clock     clock.Clock
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	pageSize  int
}

// AttendanceServiceConfig wires the collaborators of AttendanceService.
type AttendanceServiceConfig struct {
	Students  rosterRepository
	Records   attendanceRepository
	SMSLogs   smsLogLookup
	Teachers  teacherLookup
	Notifier  absenceNotifier
	Reports   reportInvalidator
	Clock     clock.Clock
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	PageSize  int
}

// NewAttendanceService constructs the register.
func NewAttendanceService(cfg AttendanceServiceConfig) *AttendanceService {
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Validator == nil {
		cfg.Validator = NewValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultRosterPageSize
	}
	return &AttendanceService{
		students:  cfg.Students,
		records:   cfg.Records,
		smsLogs:   cfg.SMSLogs,
		teachers:  cfg.Teachers,
		notifier:  cfg.Notifier,
		reports:   cfg.Reports,
		clock:     cfg.Clock,
		metrics:   cfg.Metrics,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		pageSize:  cfg.PageSize,
	}
}

// MarkDay upserts one roster page for the calling teacher and returns the
// absent students that have not been notified on that day.
func (s *AttendanceService) MarkDay(ctx context.Context, claims *models.JWTClaims, req dto.MarkAttendanceRequest) (*dto.MarkDayResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	teacher, err := s.markingTeacher(ctx, claims)
	if err != nil {
		return nil, err
	}
	day, err := s.markableDay(req.Date)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	roster, total, err := s.students.Roster(ctx, models.RosterFilter{
		ClassroomID: *teacher.ClassroomID,
		StreamID:    teacher.StreamID,
		Page:        page,
		PageSize:    s.pageSize,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load roster")
	}

	dayStart, dayEnd := clock.DayBounds(day)
	result := &dto.MarkDayResult{
		Date:        day.Format(dateLayout),
		Records:     make([]models.Attendance, 0, len(roster)),
		NewlyAbsent: []string{},
		Pagination:  &models.Pagination{Page: page, PageSize: s.pageSize, TotalCount: total},
	}
	markedBy := teacher.ID
	for _, student := range roster {
		status, ok := req.Statuses[student.ID]
		if !ok || status == "" {
			status = models.AttendancePresent
		}

		stored, err := s.records.Upsert(ctx, &models.Attendance{
			StudentID: student.ID,
			Date:      day,
			Status:    status,
			MarkedBy:  &markedBy,
		})
		if err != nil {
			return nil, appErrors.Internal(err, fmt.Sprintf("failed to record attendance for %s", student.AdmissionNumber))
		}
		s.metrics.RecordAttendance(string(stored.Status))
		result.Records = append(result.Records, *stored)

		if stored.Status != models.AttendanceAbsent {
			continue
		}
		notified, err := s.smsLogs.ExistsForDay(ctx, student.ID, dayStart, dayEnd)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check sms logs")
		}
		if !notified {
			result.NewlyAbsent = append(result.NewlyAbsent, student.ID)
		}
	}

	s.invalidate(ctx, *teacher.ClassroomID)
	return result, nil
}

// Submit marks the page and notifies the parents of newly absent students.
// Notification problems become warnings; they never fail the submission.
func (s *AttendanceService) Submit(ctx context.Context, claims *models.JWTClaims, req dto.MarkAttendanceRequest) (*dto.SubmitAttendanceResult, error) {
	marked, err := s.MarkDay(ctx, claims, req)
	if err != nil {
		return nil, err
	}

	result := &dto.SubmitAttendanceResult{
		MarkDayResult: *marked,
		Notifications: make([]models.NotificationOutcome, 0, len(marked.NewlyAbsent)),
	}
	if s.notifier == nil {
		return result, nil
	}
	for _, studentID := range marked.NewlyAbsent {
		outcome := s.notifier.NotifyAbsence(ctx, studentID)
		result.Notifications = append(result.Notifications, outcome)
		if outcome.Outcome != models.NotificationSent || outcome.Error != "" {
			result.Warnings = append(result.Warnings, notificationWarning(outcome))
		}
	}
	return result, nil
}

// UpdateStatus edits one row. Rows dated before today are read-only.
func (s *AttendanceService) UpdateStatus(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	scope, record, err := s.loadScoped(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if s.isPast(record.Date) {
		return nil, pastDateLocked(record.Date)
	}

	var markedBy *string
	if scope.teacher != nil {
		markedBy = &scope.teacher.ID
	}
	stored, err := s.records.UpdateStatus(ctx, id, req.Status, markedBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance not found")
		}
		return nil, appErrors.Internal(err, "failed to update attendance")
	}
	s.metrics.RecordAttendance(string(stored.Status))
	if record.ClassroomID != nil {
		s.invalidate(ctx, *record.ClassroomID)
	}
	return stored, nil
}

// Delete removes one row. Rows dated before today are read-only.
func (s *AttendanceService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	_, record, err := s.loadScoped(ctx, claims, id)
	if err != nil {
		return err
	}
	if s.isPast(record.Date) {
		return pastDateLocked(record.Date)
	}
	if err := s.records.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete attendance")
	}
	if record.ClassroomID != nil {
		s.invalidate(ctx, *record.ClassroomID)
	}
	return nil
}

// Get returns a row with the SMS logs of that day and whether it is still editable.
func (s *AttendanceService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.AttendanceDetail, error) {
	_, record, err := s.loadScoped(ctx, claims, id)
	if err != nil {
		return nil, err
	}

	day := s.localDay(record.Date)
	start, end := clock.DayBounds(day)
	logs, err := s.smsLogs.ListForDay(ctx, record.StudentID, start, end)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load sms logs")
	}
	if logs == nil {
		logs = []models.SMSLog{}
	}
	return &models.AttendanceDetail{Record: *record, SMSLogs: logs, CanEdit: !s.isPast(record.Date)}, nil
}

// ListDay returns the rows of one day. Teachers only see their own classroom and stream.
func (s *AttendanceService) ListDay(ctx context.Context, claims *models.JWTClaims, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
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
	if filter.Date.IsZero() {
		filter.Date = clock.StartOfDay(s.clock.Now())
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = s.pageSize
	}

	rows, total, err := s.records.ListDay(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list attendance")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *AttendanceService) markingTeacher(ctx context.Context, claims *models.JWTClaims) (*models.TeacherProfile, error) {
	scope, err := resolveScope(ctx, s.teachers, claims)
	if err != nil {
		return nil, err
	}
	if scope.teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can mark attendance")
	}
	if scope.classroomID() == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "teacher is not assigned to a classroom")
	}
	return scope.teacher, nil
}

// markableDay parses raw in the school time zone. Only today may be written.
func (s *AttendanceService) markableDay(raw string) (time.Time, error) {
	now := s.clock.Now()
	today := clock.StartOfDay(now)
	if raw == "" {
		return today, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	switch {
	case day.Before(today):
		return time.Time{}, pastDateLocked(day)
	case day.After(today):
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "cannot mark attendance for a future date")
	}
	return day, nil
}

func (s *AttendanceService) loadScoped(ctx context.Context, claims *models.JWTClaims, id string) (*accessScope, *models.AttendanceRecord, error) {
	scope, err := resolveScope(ctx, s.teachers, claims)
	if err != nil {
		return nil, nil, err
	}
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attendance not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load attendance")
	}
	if !scope.allows(record.ClassroomID) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "attendance belongs to another classroom")
	}
	return scope, record, nil
}

// localDay reinterprets a stored calendar date as midnight in the school time zone.
func (s *AttendanceService) localDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.clock.Now().Location())
}

func (s *AttendanceService) isPast(date time.Time) bool {
	return s.localDay(date).Before(clock.StartOfDay(s.clock.Now()))
}

func (s *AttendanceService) invalidate(ctx context.Context, classroomID string) {
	if s.reports != nil {
		s.reports.InvalidateClassroom(ctx, classroomID)
	}
}

func pastDateLocked(day time.Time) error {
	return appErrors.Clone(appErrors.ErrPastDateLocked, fmt.Sprintf("attendance for %s is locked", day.Format(dateLayout)))
}

func notificationWarning(outcome models.NotificationOutcome) string {
	if outcome.Error != "" {
		return fmt.Sprintf("student %s: %s (%s)", outcome.StudentID, outcome.Outcome, outcome.Error)
	}
	return fmt.Sprintf("student %s: %s", outcome.StudentID, outcome.Outcome)
}
