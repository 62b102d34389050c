package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
	"github.com/noah-isme/sma-attendance-api/pkg/phone"
	"github.com/noah-isme/sma-attendance-api/pkg/sms"
)

const (
	absenceTemplate    = "HABARI MZAZI: Mtoto wako %s hajafika shuleni leo. Tafadhali wasiliana na mwalimu wa darasa kwa namba %s."
	missingContact     = "N/A"
	defaultSMSTimeout  = 10 * time.Second
	recentSMSLogsLimit = 10
)

type guardianRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FirstParent(ctx context.Context, studentID string) (*models.ParentProfile, error)
	FindParent(ctx context.Context, id string) (*models.ParentProfile, error)
}

type homeroomRepository interface {
	teacherLookup
	FirstForClassroom(ctx context.Context, classroomID string) (*models.TeacherProfile, error)
}

type smsLogRepository interface {
	Create(ctx context.Context, log *models.SMSLog) error
	FindByID(ctx context.Context, id string) (*models.SMSLogRecord, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
	List(ctx context.Context, filter models.SMSLogFilter) ([]models.SMSLogRecord, int, error)
	Delete(ctx context.Context, id string) error
}

// NotificationConfig holds gateway settings for outgoing messages.
type NotificationConfig struct {
	SenderID string
	Timeout  time.Duration
}

// NotificationService tells parents when their child is absent and keeps one log row per message.
type NotificationService struct {
	students   guardianRepository
	teachers   homeroomRepository
	logs       smsLogRepository
	gateway    sms.Gateway
	normalizer *phone.Normalizer
	clock      clock.Clock
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     NotificationConfig
}

// NewNotificationService constructs the notifier.
func NewNotificationService(
	students guardianRepository,
	teachers homeroomRepository,
	logs smsLogRepository,
	gateway sms.Gateway,
	normalizer *phone.Normalizer,
	clk clock.Clock,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config NotificationConfig,
) *NotificationService {
	if normalizer == nil {
		normalizer = phone.Default
	}
	if clk == nil {
		clk = clock.System{}
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultSMSTimeout
	}
	return &NotificationService{
		students:   students,
		teachers:   teachers,
		logs:       logs,
		gateway:    gateway,
		normalizer: normalizer,
		clock:      clk,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
	}
}

// AbsenceMessage renders the parent notification text.
func AbsenceMessage(studentName, teacherPhone string) string {
	if strings.TrimSpace(teacherPhone) == "" {
		teacherPhone = missingContact
	}
	return fmt.Sprintf(absenceTemplate, studentName, teacherPhone)
}

// NotifyAbsence messages the first parent of the student. It never returns an error:
// every problem is reported in the outcome.
func (s *NotificationService) NotifyAbsence(ctx context.Context, studentID string) models.NotificationOutcome {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Error("absence notification: student lookup failed", zap.String("student_id", studentID), zap.Error(err))
		outcome := models.NotificationOutcome{StudentID: studentID, Outcome: models.NotificationFailed, Error: "student lookup failed"}
		s.metrics.RecordNotification(outcome.Outcome)
		return outcome
	}
	return s.notify(ctx, student, AbsenceMessage(student.FullName(), s.homeroomContact(ctx, student)))
}

// SendManual sends a teacher-composed message. It is logged like an absence
// notification and therefore suppresses the automatic one for that day.
func (s *NotificationService) SendManual(ctx context.Context, claims *models.JWTClaims, req dto.ManualSMSRequest) (*models.NotificationOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sms payload")
	}
	scope, err := resolveScope(ctx, s.teachers, claims)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if !scope.allows(student.ClassroomID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another classroom")
	}

	outcome := s.notify(ctx, student, strings.TrimSpace(req.Message))
	switch outcome.Outcome {
	case models.NotificationNoParent:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no parent registered")
	case models.NotificationInvalidPhone:
		return nil, appErrors.Clone(appErrors.ErrInvalidPhone, "parent phone number is invalid")
	}
	return &outcome, nil
}

// Resend retries a logged message in place. The row reflects only the latest attempt;
// a failed retry keeps the previous timestamp.
func (s *NotificationService) Resend(ctx context.Context, claims *models.JWTClaims, id string) (*models.SMSLog, error) {
	record, err := s.scopedLog(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	log := record.SMSLog

	sendErr := s.resendTo(ctx, log)
	if sendErr != nil {
		s.logger.Warn("sms resend failed", zap.String("sms_log_id", id), zap.Error(sendErr))
		if err := s.logs.MarkFailed(ctx, id); err != nil {
			return nil, appErrors.Internal(err, "failed to update sms log")
		}
		log.Status = models.SMSStatusFailed
		s.metrics.RecordNotification(models.NotificationFailed)
		return &log, nil
	}

	now := s.clock.Now().UTC()
	if err := s.logs.MarkSent(ctx, id, now); err != nil {
		return nil, appErrors.Internal(err, "failed to update sms log")
	}
	log.Status = models.SMSStatusSent
	log.Timestamp = now
	s.metrics.RecordNotification(models.NotificationSent)
	return &log, nil
}

// ListLogs returns SMS logs visible to the caller.
func (s *NotificationService) ListLogs(ctx context.Context, claims *models.JWTClaims, filter models.SMSLogFilter) ([]models.SMSLogRecord, *models.Pagination, error) {
	scope, err := resolveScope(ctx, s.teachers, claims)
	if err != nil {
		return nil, nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if !scope.admin {
		own := scope.classroomID()
		if own == "" {
			return []models.SMSLogRecord{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
		}
		filter.ClassroomID = own
	}

	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list sms logs")
	}
	return logs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Recent returns the latest logs for the caller's dashboard.
func (s *NotificationService) Recent(ctx context.Context, claims *models.JWTClaims) ([]models.SMSLogRecord, error) {
	logs, _, err := s.ListLogs(ctx, claims, models.SMSLogFilter{Page: 1, PageSize: recentSMSLogsLimit})
	return logs, err
}

// DeleteLog removes a log row visible to the caller.
func (s *NotificationService) DeleteLog(ctx context.Context, claims *models.JWTClaims, id string) error {
	if _, err := s.scopedLog(ctx, claims, id); err != nil {
		return err
	}
	if err := s.logs.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete sms log")
	}
	return nil
}

func (s *NotificationService) notify(ctx context.Context, student *models.StudentProfile, message string) models.NotificationOutcome {
	outcome := models.NotificationOutcome{StudentID: student.ID}
	defer func() { s.metrics.RecordNotification(outcome.Outcome) }()

	parent, err := s.students.FirstParent(ctx, student.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("absence notification skipped: no parent", zap.String("student_id", student.ID))
			outcome.Outcome = models.NotificationNoParent
			return outcome
		}
		s.logger.Error("absence notification: parent lookup failed", zap.String("student_id", student.ID), zap.Error(err))
		outcome.Outcome = models.NotificationFailed
		outcome.Error = "parent lookup failed"
		return outcome
	}

	recipient, err := s.recipient(parent)
	if err != nil {
		s.logger.Warn("absence notification skipped: invalid parent phone",
			zap.String("student_id", student.ID), zap.String("parent_id", parent.ID))
		outcome.Outcome = models.NotificationInvalidPhone
		return outcome
	}

	status := models.SMSStatusSent
	if err := s.deliver(ctx, recipient, message); err != nil {
		s.logger.Warn("sms delivery failed", zap.String("student_id", student.ID), zap.Error(err))
		status = models.SMSStatusFailed
		outcome.Error = err.Error()
	}
	outcome.Outcome = string(status)

	entry := &models.SMSLog{
		StudentID: student.ID,
		ParentID:  parent.ID,
		Message:   message,
		Status:    status,
		Timestamp: s.clock.Now().UTC(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record sms log", zap.String("student_id", student.ID), zap.Error(err))
		outcome.Error = "failed to record sms log"
		return outcome
	}
	outcome.SMSLogID = &entry.ID
	return outcome
}

func (s *NotificationService) resendTo(ctx context.Context, log models.SMSLog) error {
	parent, err := s.students.FindParent(ctx, log.ParentID)
	if err != nil {
		return fmt.Errorf("load parent: %w", err)
	}
	recipient, err := s.recipient(parent)
	if err != nil {
		return err
	}
	return s.deliver(ctx, recipient, log.Message)
}

func (s *NotificationService) recipient(parent *models.ParentProfile) (string, error) {
	if parent.PhoneNumber == nil {
		return "", phone.ErrInvalidPhone
	}
	return s.normalizer.Normalize(*parent.PhoneNumber)
}

// deliver bounds the gateway call by the configured timeout.
func (s *NotificationService) deliver(ctx context.Context, recipient, message string) error {
	if s.gateway == nil {
		return fmt.Errorf("sms gateway not configured")
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	_, err := s.gateway.Send(sendCtx, recipient, message, s.config.SenderID)
	s.metrics.ObserveGateway(time.Since(start))
	return err
}

func (s *NotificationService) homeroomContact(ctx context.Context, student *models.StudentProfile) string {
	if student.ClassroomID == nil {
		return missingContact
	}
	teacher, err := s.teachers.FirstForClassroom(ctx, *student.ClassroomID)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("homeroom teacher lookup failed", zap.String("classroom_id", *student.ClassroomID), zap.Error(err))
		}
		return missingContact
	}
	if teacher.PhoneNumber == nil || strings.TrimSpace(*teacher.PhoneNumber) == "" {
		return missingContact
	}
	return *teacher.PhoneNumber
}

func (s *NotificationService) scopedLog(ctx context.Context, claims *models.JWTClaims, id string) (*models.SMSLogRecord, error) {
	scope, err := resolveScope(ctx, s.teachers, claims)
	if err != nil {
		return nil, err
	}
	record, err := s.logs.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sms log not found")
		}
		return nil, appErrors.Internal(err, "failed to load sms log")
	}
	if !scope.allows(record.ClassroomID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "sms log belongs to another classroom")
	}
	return record, nil
}
