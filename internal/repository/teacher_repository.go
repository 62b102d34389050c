package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

const teacherSelect = `SELECT tp.id, tp.user_id, tp.classroom_id, tp.stream_id, tp.created_at,
    u.first_name, u.last_name, u.phone_number
FROM teacher_profiles tp
JOIN users u ON u.id = tp.user_id`

// TeacherRepository reads teacher profiles and their class assignments.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new repository instance.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID loads a teacher profile.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherProfile, error) {
	var teacher models.TeacherProfile
	if err := r.db.GetContext(ctx, &teacher, teacherSelect+" WHERE tp.id = $1", id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByUserID loads the profile of an authenticated user.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	var teacher models.TeacherProfile
	if err := r.db.GetContext(ctx, &teacher, teacherSelect+" WHERE tp.user_id = $1", userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FirstForClassroom returns the earliest assigned teacher of a classroom regardless of stream.
func (r *TeacherRepository) FirstForClassroom(ctx context.Context, classroomID string) (*models.TeacherProfile, error) {
	var teacher models.TeacherProfile
	query := teacherSelect + " WHERE tp.classroom_id = $1 ORDER BY tp.created_at ASC, tp.id ASC LIMIT 1"
	if err := r.db.GetContext(ctx, &teacher, query, classroomID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListForClassroom returns every teacher of a classroom.
func (r *TeacherRepository) ListForClassroom(ctx context.Context, classroomID string) ([]models.TeacherProfile, error) {
	var teachers []models.TeacherProfile
	query := teacherSelect + " WHERE tp.classroom_id = $1 ORDER BY tp.created_at ASC, tp.id ASC"
	if err := r.db.SelectContext(ctx, &teachers, query, classroomID); err != nil {
		return nil, fmt.Errorf("list classroom teachers: %w", err)
	}
	return teachers, nil
}

// StreamTaken reports whether another teacher already holds the stream.
func (r *TeacherRepository) StreamTaken(ctx context.Context, streamID, excludeTeacherID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_profiles WHERE stream_id = $1 AND id <> $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, streamID, excludeTeacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check stream holder: %w", err)
	}
	return true, nil
}

// Assign sets the classroom and stream of a teacher.
func (r *TeacherRepository) Assign(ctx context.Context, teacherID string, classroomID, streamID *string) error {
	const query = `UPDATE teacher_profiles SET classroom_id = $2, stream_id = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, teacherID, classroomID, streamID)
	if err != nil {
		return fmt.Errorf("assign teacher: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
