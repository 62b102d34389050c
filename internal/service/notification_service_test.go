package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
	"github.com/noah-isme/sma-attendance-api/pkg/sms"
)

type guardianStub struct {
	students map[string]*models.StudentProfile
	parents  map[string]*models.ParentProfile
	first    map[string]string
}

func (s *guardianStub) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	if st, ok := s.students[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (s *guardianStub) FirstParent(ctx context.Context, studentID string) (*models.ParentProfile, error) {
	if id, ok := s.first[studentID]; ok {
		return s.parents[id], nil
	}
	return nil, sql.ErrNoRows
}

func (s *guardianStub) FindParent(ctx context.Context, id string) (*models.ParentProfile, error) {
	if p, ok := s.parents[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type smsLogRepoStub struct {
	logs    map[string]*models.SMSLogRecord
	created []models.SMSLog
	deleted []string
	filters []models.SMSLogFilter
}

func newSMSLogRepoStub() *smsLogRepoStub {
	return &smsLogRepoStub{logs: map[string]*models.SMSLogRecord{}}
}

func (s *smsLogRepoStub) Create(ctx context.Context, log *models.SMSLog) error {
	log.ID = fmt.Sprintf("log-%d", len(s.created)+1)
	s.created = append(s.created, *log)
	s.logs[log.ID] = &models.SMSLogRecord{SMSLog: *log}
	return nil
}

func (s *smsLogRepoStub) FindByID(ctx context.Context, id string) (*models.SMSLogRecord, error) {
	if r, ok := s.logs[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *smsLogRepoStub) MarkSent(ctx context.Context, id string, at time.Time) error {
	s.logs[id].Status = models.SMSStatusSent
	s.logs[id].Timestamp = at
	return nil
}

func (s *smsLogRepoStub) MarkFailed(ctx context.Context, id string) error {
	s.logs[id].Status = models.SMSStatusFailed
	return nil
}

func (s *smsLogRepoStub) List(ctx context.Context, filter models.SMSLogFilter) ([]models.SMSLogRecord, int, error) {
	s.filters = append(s.filters, filter)
	return []models.SMSLogRecord{}, 0, nil
}

func (s *smsLogRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type gatewayStub struct {
	err        error
	block      bool
	recipients []string
	messages   []string
	senders    []string
}

func (g *gatewayStub) Send(ctx context.Context, recipient, message, senderID string) (*sms.Response, error) {
	g.recipients = append(g.recipients, recipient)
	g.messages = append(g.messages, message)
	g.senders = append(g.senders, senderID)
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return &sms.Response{MessageID: "m1", Status: "Success"}, nil
}

type notificationFixture struct {
	svc      *NotificationService
	students *guardianStub
	logs     *smsLogRepoStub
	gateway  *gatewayStub
	teachers *teacherStub
}

var notifyNow = time.Date(2026, time.October, 14, 6, 0, 0, 0, time.UTC)

func newNotificationFixture() *notificationFixture {
	teachers := teachersWith(homeroomTeacher())
	teachers.homeroom = &models.TeacherProfile{ID: "t1", UserID: "u1", ClassroomID: strPtr("c1"), PhoneNumber: strPtr("+255711000111")}
	f := &notificationFixture{
		students: &guardianStub{
			students: map[string]*models.StudentProfile{
				"s1": {ID: "s1", FirstName: "Asha", LastName: "Juma", ClassroomID: strPtr("c1")},
				"s2": {ID: "s2", FirstName: "Baraka", LastName: "Mussa", ClassroomID: strPtr("c1")},
				"s3": {ID: "s3", FirstName: "Neema", LastName: "Ali", ClassroomID: strPtr("c1")},
				"s9": {ID: "s9", FirstName: "Other", LastName: "Class", ClassroomID: strPtr("c2")},
			},
			parents: map[string]*models.ParentProfile{
				"p1": {ID: "p1", StudentID: "s1", PhoneNumber: strPtr("0712 345 678")},
				"p3": {ID: "p3", StudentID: "s3", PhoneNumber: strPtr("12345")},
				"p9": {ID: "p9", StudentID: "s9", PhoneNumber: strPtr("0754000000")},
			},
			first: map[string]string{"s1": "p1", "s3": "p3", "s9": "p9"},
		},
		logs:     newSMSLogRepoStub(),
		gateway:  &gatewayStub{},
		teachers: teachers,
	}
	f.svc = NewNotificationService(f.students, f.teachers, f.logs, f.gateway, nil,
		clock.Fixed{At: notifyNow}, nil, nil, nil, NotificationConfig{SenderID: "School_SMS", Timeout: 50 * time.Millisecond})
	return f
}

func TestAbsenceMessage(t *testing.T) {
	assert.Equal(t,
		"HABARI MZAZI: Mtoto wako Asha Juma hajafika shuleni leo. Tafadhali wasiliana na mwalimu wa darasa kwa namba +255711000111.",
		AbsenceMessage("Asha Juma", "+255711000111"))
	assert.Contains(t, AbsenceMessage("Asha Juma", ""), "kwa namba N/A.")
}

func TestNotifyAbsenceSent(t *testing.T) {
	f := newNotificationFixture()

	outcome := f.svc.NotifyAbsence(context.Background(), "s1")
	assert.Equal(t, models.NotificationSent, outcome.Outcome)
	require.NotNil(t, outcome.SMSLogID)

	assert.Equal(t, []string{"+255712345678"}, f.gateway.recipients)
	assert.Equal(t, []string{"School_SMS"}, f.gateway.senders)
	assert.Equal(t, AbsenceMessage("Asha Juma", "+255711000111"), f.gateway.messages[0])

	require.Len(t, f.logs.created, 1)
	assert.Equal(t, models.SMSStatusSent, f.logs.created[0].Status)
	assert.Equal(t, "p1", f.logs.created[0].ParentID)
	assert.Equal(t, notifyNow, f.logs.created[0].Timestamp)
}

func TestNotifyAbsenceGatewayFailureIsLogged(t *testing.T) {
	f := newNotificationFixture()
	f.gateway.err = sms.ErrRejected

	outcome := f.svc.NotifyAbsence(context.Background(), "s1")
	assert.Equal(t, models.NotificationFailed, outcome.Outcome)
	assert.NotEmpty(t, outcome.Error)
	require.Len(t, f.logs.created, 1)
	assert.Equal(t, models.SMSStatusFailed, f.logs.created[0].Status)
}

func TestNotifyAbsenceTimeoutIsFailure(t *testing.T) {
	f := newNotificationFixture()
	f.gateway.block = true

	outcome := f.svc.NotifyAbsence(context.Background(), "s1")
	assert.Equal(t, models.NotificationFailed, outcome.Outcome)
	require.Len(t, f.logs.created, 1)
	assert.Equal(t, models.SMSStatusFailed, f.logs.created[0].Status)
}

func TestNotifyAbsenceWithoutParentOrValidPhone(t *testing.T) {
	f := newNotificationFixture()

	outcome := f.svc.NotifyAbsence(context.Background(), "s2")
	assert.Equal(t, models.NotificationNoParent, outcome.Outcome)

	outcome = f.svc.NotifyAbsence(context.Background(), "s3")
	assert.Equal(t, models.NotificationInvalidPhone, outcome.Outcome)

	assert.Empty(t, f.gateway.recipients)
	assert.Empty(t, f.logs.created)
}

func TestNotifyAbsenceWithoutHomeroomPhone(t *testing.T) {
	f := newNotificationFixture()
	f.teachers.homeroom = nil

	f.svc.NotifyAbsence(context.Background(), "s1")
	require.Len(t, f.gateway.messages, 1)
	assert.Contains(t, f.gateway.messages[0], "kwa namba N/A.")
}

func TestResendUpdatesInPlace(t *testing.T) {
	f := newNotificationFixture()
	old := time.Date(2026, time.October, 13, 7, 0, 0, 0, time.UTC)
	f.logs.logs["l1"] = &models.SMSLogRecord{
		SMSLog:      models.SMSLog{ID: "l1", StudentID: "s1", ParentID: "p1", Message: "hello", Status: models.SMSStatusFailed, Timestamp: old},
		ClassroomID: strPtr("c1"),
	}

	log, err := f.svc.Resend(context.Background(), teacherClaims("u1"), "l1")
	require.NoError(t, err)
	assert.Equal(t, models.SMSStatusSent, log.Status)
	assert.Equal(t, notifyNow, log.Timestamp)
	assert.Equal(t, []string{"hello"}, f.gateway.messages)
	assert.Empty(t, f.logs.created)

	f.gateway.err = errors.New("gateway down")
	f.logs.logs["l1"].Timestamp = old
	log, err = f.svc.Resend(context.Background(), teacherClaims("u1"), "l1")
	require.NoError(t, err)
	assert.Equal(t, models.SMSStatusFailed, log.Status)
	assert.Equal(t, old, f.logs.logs["l1"].Timestamp)
	assert.Equal(t, models.SMSStatusFailed, f.logs.logs["l1"].Status)
	assert.Empty(t, f.logs.created)
}

func TestResendScope(t *testing.T) {
	f := newNotificationFixture()
	f.logs.logs["l9"] = &models.SMSLogRecord{
		SMSLog:      models.SMSLog{ID: "l9", StudentID: "s9", ParentID: "p9", Message: "x"},
		ClassroomID: strPtr("c2"),
	}

	_, err := f.svc.Resend(context.Background(), teacherClaims("u1"), "l9")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Resend(context.Background(), adminClaims(), "l9")
	require.NoError(t, err)

	_, err = f.svc.Resend(context.Background(), adminClaims(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSendManual(t *testing.T) {
	f := newNotificationFixture()

	outcome, err := f.svc.SendManual(context.Background(), teacherClaims("u1"), dto.ManualSMSRequest{StudentID: "s1", Message: " Kikao cha wazazi Ijumaa "})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, outcome.Outcome)
	assert.Equal(t, []string{"Kikao cha wazazi Ijumaa"}, f.gateway.messages)
	require.Len(t, f.logs.created, 1)

	_, err = f.svc.SendManual(context.Background(), teacherClaims("u1"), dto.ManualSMSRequest{StudentID: "s2", Message: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.SendManual(context.Background(), teacherClaims("u1"), dto.ManualSMSRequest{StudentID: "s3", Message: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidPhone)

	_, err = f.svc.SendManual(context.Background(), teacherClaims("u1"), dto.ManualSMSRequest{StudentID: "s9", Message: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestListLogsScopesTeachers(t *testing.T) {
	f := newNotificationFixture()

	_, page, err := f.svc.ListLogs(context.Background(), teacherClaims("u1"), models.SMSLogFilter{ClassroomID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, "c1", f.logs.filters[0].ClassroomID)
	assert.Equal(t, 20, page.PageSize)

	_, err = f.svc.Recent(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 10, f.logs.filters[1].PageSize)
	assert.Equal(t, "", f.logs.filters[1].ClassroomID)
}

func TestDeleteLog(t *testing.T) {
	f := newNotificationFixture()
	f.logs.logs["l1"] = &models.SMSLogRecord{SMSLog: models.SMSLog{ID: "l1"}, ClassroomID: strPtr("c1")}

	require.NoError(t, f.svc.DeleteLog(context.Background(), teacherClaims("u1"), "l1"))
	assert.Equal(t, []string{"l1"}, f.logs.deleted)
	assert.ErrorIs(t, f.svc.DeleteLog(context.Background(), teacherClaims("u1"), "nope"), appErrors.ErrNotFound)
}
