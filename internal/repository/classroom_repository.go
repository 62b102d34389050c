package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// ClassroomRepository persists classrooms and their streams.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListByYear returns the classrooms of a year with membership counts.
func (r *ClassroomRepository) ListByYear(ctx context.Context, yearID string) ([]models.ClassroomDetail, error) {
	const query = `SELECT c.id, c.name, c.year_id, c.created_at,
    (SELECT COUNT(*) FROM student_profiles sp WHERE sp.classroom_id = c.id) AS student_count,
    (SELECT COUNT(*) FROM teacher_profiles tp WHERE tp.classroom_id = c.id) AS teacher_count,
    (SELECT COUNT(*) FROM streams s WHERE s.classroom_id = c.id) AS stream_count
FROM classrooms c
WHERE c.year_id = $1
ORDER BY c.name ASC`
	var items []models.ClassroomDetail
	if err := r.db.SelectContext(ctx, &items, query, yearID); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return items, nil
}

// FindByID loads a classroom.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, name, year_id, created_at FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// ExistsByName performs a case-insensitive name check within a year.
func (r *ClassroomRepository) ExistsByName(ctx context.Context, yearID, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM classrooms WHERE year_id = $1 AND LOWER(name) = LOWER($2)`
	args := []interface{}{yearID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check classroom name: %w", err)
	}
	return true, nil
}

// Create inserts a classroom.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classrooms (id, name, year_id, created_at) VALUES (:id, :name, :year_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Rename updates the classroom name.
func (r *ClassroomRepository) Rename(ctx context.Context, id, name string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE classrooms SET name = $2 WHERE id = $1`, id, name); err != nil {
		return fmt.Errorf("rename classroom: %w", err)
	}
	return nil
}

// CountMembers returns the number of students and teachers assigned to the classroom.
func (r *ClassroomRepository) CountMembers(ctx context.Context, id string) (int, int, error) {
	const query = `SELECT
    (SELECT COUNT(*) FROM student_profiles WHERE classroom_id = $1) AS students,
    (SELECT COUNT(*) FROM teacher_profiles WHERE classroom_id = $1) AS teachers`
	var counts struct {
		Students int `db:"students"`
		Teachers int `db:"teachers"`
	}
	if err := r.db.GetContext(ctx, &counts, query, id); err != nil {
		return 0, 0, fmt.Errorf("count classroom members: %w", err)
	}
	return counts.Students, counts.Teachers, nil
}

// Delete removes a classroom and its streams.
func (r *ClassroomRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete classroom: %w", err)
	}
	return nil
}

// ListStreams returns the streams of a classroom ordered by name.
func (r *ClassroomRepository) ListStreams(ctx context.Context, classroomID string) ([]models.Stream, error) {
	const query = `SELECT id, name, classroom_id, created_at FROM streams WHERE classroom_id = $1 ORDER BY name ASC`
	var streams []models.Stream
	if err := r.db.SelectContext(ctx, &streams, query, classroomID); err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	return streams, nil
}

// FindStream loads a stream.
func (r *ClassroomRepository) FindStream(ctx context.Context, id string) (*models.Stream, error) {
	const query = `SELECT id, name, classroom_id, created_at FROM streams WHERE id = $1`
	var stream models.Stream
	if err := r.db.GetContext(ctx, &stream, query, id); err != nil {
		return nil, err
	}
	return &stream, nil
}

// StreamExists performs a case-insensitive name check within a classroom.
func (r *ClassroomRepository) StreamExists(ctx context.Context, classroomID, name string) (bool, error) {
	const query = `SELECT 1 FROM streams WHERE classroom_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classroomID, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check stream name: %w", err)
	}
	return true, nil
}

// CreateStream inserts a stream.
func (r *ClassroomRepository) CreateStream(ctx context.Context, stream *models.Stream) error {
	if stream.ID == "" {
		stream.ID = uuid.NewString()
	}
	if stream.CreatedAt.IsZero() {
		stream.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO streams (id, name, classroom_id, created_at) VALUES (:id, :name, :classroom_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, stream); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}
