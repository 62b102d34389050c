package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type rosterStub struct {
	students []models.StudentProfile
	filters  []models.RosterFilter
	err      error
}

func (s *rosterStub) Roster(ctx context.Context, filter models.RosterFilter) ([]models.StudentProfile, int, error) {
	s.filters = append(s.filters, filter)
	return s.students, len(s.students), s.err
}

// attendanceRepoStub enforces one row per (student, date).
type attendanceRepoStub struct {
	rows      map[string]*models.Attendance
	records   map[string]*models.AttendanceRecord
	upsertErr map[string]error
	deleted   []string
	listed    []models.AttendanceFilter
}

func newAttendanceRepoStub() *attendanceRepoStub {
	return &attendanceRepoStub{
		rows:      map[string]*models.Attendance{},
		records:   map[string]*models.AttendanceRecord{},
		upsertErr: map[string]error{},
	}
}

func (s *attendanceRepoStub) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	if err := s.upsertErr[record.StudentID]; err != nil {
		return nil, err
	}
	key := record.StudentID + "|" + record.Date.Format(dateLayout)
	if existing, ok := s.rows[key]; ok {
		existing.Status = record.Status
		existing.MarkedBy = record.MarkedBy
		c := *existing
		return &c, nil
	}
	stored := *record
	stored.ID = "a-" + key
	s.rows[key] = &stored
	c := stored
	return &c, nil
}

func (s *attendanceRepoStub) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	if r, ok := s.records[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *attendanceRepoStub) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, markedBy *string) (*models.Attendance, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	r.Status = status
	if markedBy != nil {
		r.MarkedBy = markedBy
	}
	c := r.Attendance
	return &c, nil
}

func (s *attendanceRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *attendanceRepoStub) ListDay(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	s.listed = append(s.listed, filter)
	return []models.AttendanceRecord{}, 0, nil
}

type smsLookupStub struct {
	notified map[string]bool
	logs     []models.SMSLog
}

func (s *smsLookupStub) ExistsForDay(ctx context.Context, studentID string, start, end time.Time) (bool, error) {
	return s.notified[studentID], nil
}

func (s *smsLookupStub) ListForDay(ctx context.Context, studentID string, start, end time.Time) ([]models.SMSLog, error) {
	return s.logs, nil
}

type notifierStub struct {
	outcomes map[string]models.NotificationOutcome
	calls    []string
}

func (s *notifierStub) NotifyAbsence(ctx context.Context, studentID string) models.NotificationOutcome {
	s.calls = append(s.calls, studentID)
	if o, ok := s.outcomes[studentID]; ok {
		return o
	}
	return models.NotificationOutcome{StudentID: studentID, Outcome: models.NotificationSent}
}

type invalidatorStub struct {
	classrooms []string
}

func (s *invalidatorStub) InvalidateClassroom(ctx context.Context, classroomID string) {
	s.classrooms = append(s.classrooms, classroomID)
}

type attendanceFixture struct {
	svc      *AttendanceService
	roster   *rosterStub
	records  *attendanceRepoStub
	sms      *smsLookupStub
	notifier *notifierStub
	reports  *invalidatorStub
}

const testToday = "2026-10-14"

func newAttendanceFixture(teacher *models.TeacherProfile) *attendanceFixture {
	f := &attendanceFixture{
		roster: &rosterStub{students: []models.StudentProfile{
			{ID: "s1", AdmissionNumber: "A001"},
			{ID: "s2", AdmissionNumber: "A002"},
			{ID: "s3", AdmissionNumber: "A003"},
		}},
		records:  newAttendanceRepoStub(),
		sms:      &smsLookupStub{notified: map[string]bool{}},
		notifier: &notifierStub{outcomes: map[string]models.NotificationOutcome{}},
		reports:  &invalidatorStub{},
	}
	f.svc = NewAttendanceService(AttendanceServiceConfig{
		Students: f.roster,
		Records:  f.records,
		SMSLogs:  f.sms,
		Teachers: teachersWith(teacher),
		Notifier: f.notifier,
		Reports:  f.reports,
		Clock:    fixedAt(2026, time.October, 14),
	})
	return f
}

func homeroomTeacher() *models.TeacherProfile {
	return &models.TeacherProfile{ID: "t1", UserID: "u1", ClassroomID: strPtr("c1")}
}

func TestMarkDayDefaultsToPresentAndReturnsNewlyAbsent(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())

	result, err := f.svc.MarkDay(context.Background(), teacherClaims("u1"), dto.MarkAttendanceRequest{
		Date:     testToday,
		Statuses: map[string]models.AttendanceStatus{"s2": models.AttendanceAbsent, "s3": models.AttendanceSick},
	})
	require.NoError(t, err)

	require.Len(t, result.Records, 3)
	assert.Equal(t, models.AttendancePresent, result.Records[0].Status)
	assert.Equal(t, models.AttendanceAbsent, result.Records[1].Status)
	assert.Equal(t, models.AttendanceSick, result.Records[2].Status)
	assert.Equal(t, "t1", *result.Records[0].MarkedBy)
	assert.Equal(t, []string{"s2"}, result.NewlyAbsent)
	assert.Equal(t, testToday, result.Date)
	assert.Equal(t, 3, result.Pagination.TotalCount)
	assert.Equal(t, []string{"c1"}, f.reports.classrooms)

	require.Len(t, f.roster.filters, 1)
	assert.Nil(t, f.roster.filters[0].StreamID)
	assert.Equal(t, 25, f.roster.filters[0].PageSize)
}

func TestMarkDayTwiceKeepsOneRowPerStudent(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())
	req := dto.MarkAttendanceRequest{Statuses: map[string]models.AttendanceStatus{"s1": models.AttendanceAbsent}}

	_, err := f.svc.MarkDay(context.Background(), teacherClaims("u1"), req)
	require.NoError(t, err)
	req.Statuses["s1"] = models.AttendancePresent
	result, err := f.svc.MarkDay(context.Background(), teacherClaims("u1"), req)
	require.NoError(t, err)

	assert.Len(t, f.records.rows, 3)
	assert.Equal(t, models.AttendancePresent, f.records.rows["s1|"+testToday].Status)
	assert.Empty(t, result.NewlyAbsent)
}

func TestMarkDaySkipsAlreadyNotifiedStudents(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())
	f.sms.notified["s1"] = true

	result, err := f.svc.MarkDay(context.Background(), teacherClaims("u1"), dto.MarkAttendanceRequest{
		Statuses: map[string]models.AttendanceStatus{"s1": models.AttendanceAbsent, "s2": models.AttendanceAbsent},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, result.NewlyAbsent)
}

func TestMarkDayFiltersByTeacherStream(t *testing.T) {
	teacher := homeroomTeacher()
	teacher.StreamID = strPtr("st1")
	f := newAttendanceFixture(teacher)

	_, err := f.svc.MarkDay(context.Background(), teacherClaims("u1"), dto.MarkAttendanceRequest{Page: 2})
	require.NoError(t, err)
	require.Len(t, f.roster.filters, 1)
	assert.Equal(t, "st1", *f.roster.filters[0].StreamID)
	assert.Equal(t, 2, f.roster.filters[0].Page)
}

func TestMarkDayRejectsOtherDays(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())

	_, err := f.svc.MarkDay(context.Background(), teacherClaims("u1"), dto.MarkAttendanceRequest{Date: "2026-10-13"})
	assert.ErrorIs(t, err, appErrors.ErrPastDateLocked)

	_, err = f.svc.MarkDay(context.Background(), teacherClaims("u1"), dto.MarkAttendanceRequest{Date: "2026-10-15"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.MarkDay(context.Background(), teacherClaims("u1"), dto.MarkAttendanceRequest{
		Statuses: map[string]models.AttendanceStatus{"s1": "late"},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.records.rows)
}

func TestMarkDayRequiresAssignedTeacher(t *testing.T) {
	f := newAttendanceFixture(&models.TeacherProfile{ID: "t9", UserID: "u9"})

	_, err := f.svc.MarkDay(context.Background(), teacherClaims("u9"), dto.MarkAttendanceRequest{})
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)

	_, err = f.svc.MarkDay(context.Background(), adminClaims(), dto.MarkAttendanceRequest{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestMarkDayStopsOnStorageFailure(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())
	f.records.upsertErr["s2"] = errors.New("connection reset")

	_, err := f.svc.MarkDay(context.Background(), teacherClaims("u1"), dto.MarkAttendanceRequest{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Len(t, f.records.rows, 1)
}

func TestSubmitNotifiesNewlyAbsentAndCollectsWarnings(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())
	f.notifier.outcomes["s3"] = models.NotificationOutcome{StudentID: "s3", Outcome: models.NotificationNoParent}

	result, err := f.svc.Submit(context.Background(), teacherClaims("u1"), dto.MarkAttendanceRequest{
		Statuses: map[string]models.AttendanceStatus{"s1": models.AttendanceAbsent, "s3": models.AttendanceAbsent},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s3"}, f.notifier.calls)
	require.Len(t, result.Notifications, 2)
	assert.Equal(t, models.NotificationSent, result.Notifications[0].Outcome)
	assert.Equal(t, []string{"student s3: no_parent"}, result.Warnings)
}

func attendanceRecord(id, classroomID string, date time.Time) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		Attendance:  models.Attendance{ID: id, StudentID: "s1", Date: date, Status: models.AttendancePresent},
		ClassroomID: strPtr(classroomID),
	}
}

func TestUpdateStatusPastDateLocked(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())
	f.records.records["old"] = attendanceRecord("old", "c1", time.Date(2026, time.October, 13, 0, 0, 0, 0, time.UTC))
	f.records.records["today"] = attendanceRecord("today", "c1", time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.UpdateStatus(context.Background(), teacherClaims("u1"), "old", dto.UpdateAttendanceRequest{Status: models.AttendanceAbsent})
	assert.ErrorIs(t, err, appErrors.ErrPastDateLocked)
	assert.Equal(t, models.AttendancePresent, f.records.records["old"].Status)

	updated, err := f.svc.UpdateStatus(context.Background(), teacherClaims("u1"), "today", dto.UpdateAttendanceRequest{Status: models.AttendanceSick})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceSick, updated.Status)
	assert.Equal(t, "t1", *updated.MarkedBy)
}

func TestUpdateStatusOtherClassroomForbidden(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())
	f.records.records["x"] = attendanceRecord("x", "c2", time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.UpdateStatus(context.Background(), teacherClaims("u1"), "x", dto.UpdateAttendanceRequest{Status: models.AttendanceSick})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.UpdateStatus(context.Background(), adminClaims(), "x", dto.UpdateAttendanceRequest{Status: models.AttendanceSick})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), adminClaims(), "missing", dto.UpdateAttendanceRequest{Status: models.AttendanceSick})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeleteAndGetRespectPastDates(t *testing.T) {
	f := newAttendanceFixture(homeroomTeacher())
	f.records.records["old"] = attendanceRecord("old", "c1", time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC))
	f.records.records["today"] = attendanceRecord("today", "c1", time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC))
	f.sms.logs = []models.SMSLog{{ID: "l1", StudentID: "s1", Status: models.SMSStatusSent}}

	err := f.svc.Delete(context.Background(), teacherClaims("u1"), "old")
	assert.ErrorIs(t, err, appErrors.ErrPastDateLocked)
	require.NoError(t, f.svc.Delete(context.Background(), teacherClaims("u1"), "today"))
	assert.Equal(t, []string{"today"}, f.records.deleted)

	detail, err := f.svc.Get(context.Background(), teacherClaims("u1"), "old")
	require.NoError(t, err)
	assert.False(t, detail.CanEdit)
	assert.Len(t, detail.SMSLogs, 1)

	detail, err = f.svc.Get(context.Background(), teacherClaims("u1"), "today")
	require.NoError(t, err)
	assert.True(t, detail.CanEdit)
}

func TestListDayScopesTeachers(t *testing.T) {
	teacher := homeroomTeacher()
	teacher.StreamID = strPtr("st1")
	f := newAttendanceFixture(teacher)

	_, page, err := f.svc.ListDay(context.Background(), teacherClaims("u1"), models.AttendanceFilter{ClassroomID: "c2"})
	require.NoError(t, err)
	require.Len(t, f.records.listed, 1)
	assert.Equal(t, "c1", f.records.listed[0].ClassroomID)
	assert.Equal(t, "st1", *f.records.listed[0].StreamID)
	assert.Equal(t, testToday, f.records.listed[0].Date.Format(dateLayout))
	assert.Equal(t, 1, page.Page)

	_, _, err = f.svc.ListDay(context.Background(), adminClaims(), models.AttendanceFilter{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
