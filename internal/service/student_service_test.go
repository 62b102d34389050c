package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type studentRepoStub struct {
	students   map[string]*models.StudentProfile
	admissions map[string]bool
	parents    []models.ParentProfile
	registered []*models.StudentProfile
	filters    []models.RosterFilter
}

func (s *studentRepoStub) Roster(ctx context.Context, filter models.RosterFilter) ([]models.StudentProfile, int, error) {
	s.filters = append(s.filters, filter)
	return []models.StudentProfile{}, 0, nil
}

func (s *studentRepoStub) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	if st, ok := s.students[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) ExistsAdmission(ctx context.Context, admissionNumber string) (bool, error) {
	return s.admissions[admissionNumber], nil
}

func (s *studentRepoStub) Register(ctx context.Context, student *models.StudentProfile, parent *models.ParentProfile) error {
	student.ID = "s-new"
	parent.ID = "p-new"
	parent.StudentID = student.ID
	s.registered = append(s.registered, student)
	return nil
}

func (s *studentRepoStub) AddParent(ctx context.Context, parent *models.ParentProfile) error {
	parent.ID = "p-extra"
	s.parents = append(s.parents, *parent)
	return nil
}

func (s *studentRepoStub) ListParents(ctx context.Context, studentID string) ([]models.ParentProfile, error) {
	return s.parents, nil
}

func newStudentFixture(years *yearRepoStub) (*StudentService, *studentRepoStub) {
	repo := &studentRepoStub{
		students:   map[string]*models.StudentProfile{"s1": {ID: "s1", ClassroomID: strPtr("c1")}},
		admissions: map[string]bool{"A001": true},
	}
	teacher := homeroomTeacher()
	teacher.StreamID = strPtr("st1")
	svc := NewStudentService(repo, newClassroomRepoStub(), years, teachersWith(teacher), nil, nil, nil)
	return svc, repo
}

func registration() dto.RegisterStudentRequest {
	return dto.RegisterStudentRequest{
		FirstName:       "Asha",
		LastName:        "Juma",
		Gender:          "female",
		AdmissionNumber: "A002",
		ClassroomID:     "c1",
		StreamID:        strPtr("st1"),
		Parent:          dto.ParentRequest{FirstName: "Juma", LastName: "Ali", PhoneNumber: "0712-345-678"},
	}
}

func TestRegisterStudentDefaultsToActiveYear(t *testing.T) {
	svc, repo := newStudentFixture(newYearRepoStub(yearAt("y1", 2026, true, false)))

	detail, err := svc.Register(context.Background(), registration())
	require.NoError(t, err)
	assert.Equal(t, "y1", detail.AcademicYearID)
	assert.Equal(t, models.StudentStatusActive, detail.Status)
	require.Len(t, detail.Parents, 1)
	assert.Equal(t, "+255712345678", *detail.Parents[0].PhoneNumber)
	assert.Len(t, repo.registered, 1)
}

func TestRegisterStudentRejections(t *testing.T) {
	svc, repo := newStudentFixture(newYearRepoStub())

	req := registration()
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)

	req.AdmissionNumber = "A001"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	req = registration()
	req.Parent.PhoneNumber = "0812345678"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrInvalidPhone)

	req = registration()
	req.Gender = "x"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Empty(t, repo.registered)
}

func TestRegisterStudentStreamMustBelongToClassroom(t *testing.T) {
	svc, _ := newStudentFixture(newYearRepoStub(yearAt("y1", 2026, true, false)))
	req := registration()
	req.StreamID = strPtr("st9")

	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAddParentAndGet(t *testing.T) {
	svc, _ := newStudentFixture(newYearRepoStub())

	parent, err := svc.AddParent(context.Background(), "s1", dto.ParentRequest{FirstName: "Mama", LastName: "Asha", PhoneNumber: "754000111"})
	require.NoError(t, err)
	assert.Equal(t, "+255754000111", *parent.PhoneNumber)
	assert.Equal(t, "s1", parent.StudentID)

	detail, err := svc.Get(context.Background(), teacherClaims("u1"), "s1")
	require.NoError(t, err)
	assert.Len(t, detail.Parents, 1)

	_, err = svc.AddParent(context.Background(), "nope", dto.ParentRequest{FirstName: "a", LastName: "b", PhoneNumber: "754000111"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestListStudentsScopesTeacher(t *testing.T) {
	svc, repo := newStudentFixture(newYearRepoStub())

	_, page, err := svc.List(context.Background(), teacherClaims("u1"), models.RosterFilter{ClassroomID: "c9"})
	require.NoError(t, err)
	assert.Equal(t, "c1", repo.filters[0].ClassroomID)
	assert.Equal(t, "st1", *repo.filters[0].StreamID)
	assert.Equal(t, 25, page.PageSize)
}
