package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

const dailyReportCachePrefix = "reports:daily"

type reportAttendanceRepository interface {
	StatusRows(ctx context.Context, classroomID string, streamID *string, date time.Time) ([]models.StatusRow, error)
	ClassroomTotals(ctx context.Context, yearID string) ([]models.ClassroomTotals, error)
}

type reportRosterRepository interface {
	CountRoster(ctx context.Context, classroomID string, streamID *string) (int, error)
}

type reportTeacherRepository interface {
	teacherLookup
	ListForClassroom(ctx context.Context, classroomID string) ([]models.TeacherProfile, error)
}

type reportYearRepository interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

// ReportService builds attendance summaries.
type ReportService struct {
	attendance reportAttendanceRepository
	students   reportRosterRepository
	teachers   reportTeacherRepository
	years      reportYearRepository
	cache      *CacheService
	clock      clock.Clock
	logger     *zap.Logger
}

// NewReportService constructs a report service. cache may be nil.
func NewReportService(
	attendance reportAttendanceRepository,
	students reportRosterRepository,
	teachers reportTeacherRepository,
	years reportYearRepository,
	cache *CacheService,
	clk clock.Clock,
	logger *zap.Logger,
) *ReportService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance: attendance,
		students:   students,
		teachers:   teachers,
		years:      years,
		cache:      cache,
		clock:      clk,
		logger:     logger,
	}
}

// SummarizeAttendance counts statuses overall and per gender. Each breakdown
// uses its own recorded count as denominator.
func SummarizeAttendance(rosterSize int, rows []models.StatusRow) models.AttendanceSummary {
	var overall, male, female statusCounter
	for _, row := range rows {
		overall.add(row.Status)
		if row.Gender == nil {
			continue
		}
		switch {
		case strings.EqualFold(*row.Gender, models.GenderMale):
			male.add(row.Status)
		case strings.EqualFold(*row.Gender, models.GenderFemale):
			female.add(row.Status)
		}
	}
	return models.AttendanceSummary{
		RosterSize: rosterSize,
		Overall:    overall.breakdown(),
		Male:       male.breakdown(),
		Female:     female.breakdown(),
	}
}

// statusCounter accumulates attendance statuses.
type statusCounter struct {
	Present int
	Absent  int
	Sick    int
}

func (c *statusCounter) add(status models.AttendanceStatus) {
	switch status {
	case models.AttendancePresent:
		c.Present++
	case models.AttendanceAbsent:
		c.Absent++
	case models.AttendanceSick:
		c.Sick++
	}
}

func (c statusCounter) breakdown() models.StatusBreakdown {
	recorded := c.Present + c.Absent + c.Sick
	return models.StatusBreakdown{
		Recorded:       recorded,
		Present:        c.Present,
		Absent:         c.Absent,
		Sick:           c.Sick,
		PresentPercent: percent(c.Present, recorded),
		AbsentPercent:  percent(c.Absent, recorded),
		SickPercent:    percent(c.Sick, recorded),
	}
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}

// DailyReport summarises a classroom on date (today when nil). Teachers may only
// report on their own classroom.
func (s *ReportService) DailyReport(ctx context.Context, claims *models.JWTClaims, classroomID string, streamID *string, date *time.Time) (*models.DailyReport, error) {
	scope, err := resolveScope(ctx, s.teachers, claims)
	if err != nil {
		return nil, err
	}
	if !scope.admin {
		own := scope.classroomID()
		if classroomID == "" {
			classroomID = own
		}
		if own == "" || classroomID != own {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "classroom belongs to another teacher")
		}
	}
	if classroomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroom is required")
	}

	day := clock.StartOfDay(s.clock.Now())
	if date != nil {
		day = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, day.Location())
	}

	key := dailyReportKey(classroomID, streamID, day)
	var cached models.DailyReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	roster, err := s.students.CountRoster(ctx, classroomID, streamID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count roster")
	}
	rows, err := s.attendance.StatusRows(ctx, classroomID, streamID, day)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}

	report := &models.DailyReport{
		ClassroomID:       classroomID,
		StreamID:          streamID,
		Date:              day,
		AttendanceSummary: SummarizeAttendance(roster, rows),
		GeneratedAt:       s.clock.Now(),
	}
	s.cache.Set(ctx, key, report, 0)
	return report, nil
}

// InvalidateClassroom drops cached daily reports of the classroom.
func (s *ReportService) InvalidateClassroom(ctx context.Context, classroomID string) {
	s.cache.Invalidate(ctx, fmt.Sprintf("%s:%s:*", dailyReportCachePrefix, classroomID))
}

// YearSummary aggregates all-time attendance per classroom of a year with the
// names of the assigned teachers.
func (s *ReportService) YearSummary(ctx context.Context, yearID string) (*models.YearSummary, error) {
	year, err := s.years.FindByID(ctx, yearID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Internal(err, "failed to load academic year")
	}

	totals, err := s.attendance.ClassroomTotals(ctx, yearID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to aggregate attendance")
	}

	summary := &models.YearSummary{Year: *year, Classrooms: make([]models.ClassroomSummary, 0, len(totals))}
	for _, row := range totals {
		teachers, err := s.teachers.ListForClassroom(ctx, row.ClassroomID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load teachers")
		}
		names := make([]string, 0, len(teachers))
		for _, t := range teachers {
			names = append(names, t.FullName())
		}
		counter := statusCounter{Present: row.Present, Absent: row.Absent, Sick: row.Sick}
		summary.Classrooms = append(summary.Classrooms, models.ClassroomSummary{
			ClassroomID: row.ClassroomID,
			Name:        row.Name,
			Teachers:    names,
			Attendance:  counter.breakdown(),
		})
	}
	return summary, nil
}

func dailyReportKey(classroomID string, streamID *string, day time.Time) string {
	stream := "all"
	if streamID != nil && *streamID != "" {
		stream = *streamID
	}
	return fmt.Sprintf("%s:%s:%s:%s", dailyReportCachePrefix, classroomID, stream, day.Format(dateLayout))
}
