package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var teacherCols = []string{"id", "user_id", "classroom_id", "stream_id", "created_at", "first_name", "last_name", "phone_number"}

func TestTeacherRepositoryFirstForClassroom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tp.classroom_id = $1 ORDER BY tp.created_at ASC, tp.id ASC LIMIT 1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(teacherCols).AddRow("t1", "u1", "c1", "st2", time.Now(), "Rehema", "Said", "0755000111"))

	teacher, err := repo.FirstForClassroom(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Rehema Said", teacher.FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryStreamTaken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teacher_profiles WHERE stream_id = $1 AND id <> $2 LIMIT 1")).
		WithArgs("st1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	taken, err := repo.StreamTaken(context.Background(), "st1", "t1")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryAssignMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	classroom := "c1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE teacher_profiles SET classroom_id = $2, stream_id = $3 WHERE id = $1")).
		WithArgs("missing", "c1", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Assign(context.Background(), "missing", &classroom, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
