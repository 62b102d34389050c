package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

var attendanceCols = []string{"id", "student_id", "date", "status", "marked_by", "created_at", "updated_at"}

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	eat := time.FixedZone("EAT", 3*3600)
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, eat)
	teacher := "t1"

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, date)")).
		WithArgs(sqlmock.AnyArg(), "s1", "2026-10-14", "absent", "t1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(attendanceCols).AddRow("a1", "s1", day, "absent", teacher, time.Now(), time.Now()))

	stored, err := repo.Upsert(context.Background(), &models.Attendance{StudentID: "s1", Date: day, Status: models.AttendanceAbsent, MarkedBy: &teacher})
	require.NoError(t, err)
	assert.Equal(t, "a1", stored.ID)
	assert.Equal(t, models.AttendanceAbsent, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStatusRowsWithStream(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	stream := "st1"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sp.classroom_id = $1 AND a.date = $2 AND sp.stream_id = $3")).
		WithArgs("c1", "2026-10-14", "st1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "gender"}).
			AddRow("present", "male").
			AddRow("absent", nil))

	rows, err := repo.StatusRows(context.Background(), "c1", &stream, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[1].Gender)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	cols := append(append([]string{}, attendanceCols...), "admission_number", "first_name", "last_name", "classroom_id", "stream_id")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sp.classroom_id = $1 AND a.date = $2 ORDER BY sp.admission_number ASC LIMIT 25 OFFSET 0")).
		WithArgs("c1", "2026-10-14").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a1", "s1", time.Now(), "present", nil, time.Now(), time.Now(), "ADM-1", "Asha", "Juma", "c1", nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance a JOIN student_profiles sp")).
		WithArgs("c1", "2026-10-14").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows, total, err := repo.ListDay(context.Background(), models.AttendanceFilter{ClassroomID: "c1", Date: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "ADM-1", rows[0].AdmissionNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryClassroomTotals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM classrooms c")).
		WithArgs("y1").
		WillReturnRows(sqlmock.NewRows([]string{"classroom_id", "name", "present", "absent", "sick"}).
			AddRow("c1", "Form One", 10, 2, 1))

	totals, err := repo.ClassroomTotals(context.Background(), "y1")
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 10, totals[0].Present)
	assert.NoError(t, mock.ExpectationsWereMet())
}
