package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

const (
	dateLayout        = "2006-01-02"
	attendanceColumns = "id, student_id, date, status, marked_by, created_at, updated_at"
	attendanceRecord  = `SELECT a.id, a.student_id, a.date, a.status, a.marked_by, a.created_at, a.updated_at,
    sp.admission_number, u.first_name, u.last_name, sp.classroom_id, sp.stream_id
FROM attendance a
JOIN student_profiles sp ON sp.id = a.student_id
JOIN users u ON u.id = sp.user_id`
)

// AttendanceRepository persists daily attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes the (student, date) row; a second write for the same day replaces the status.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	query := `INSERT INTO attendance (id, student_id, date, status, marked_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns
	var stored models.Attendance
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentID, record.Date.Format(dateLayout), record.Status, record.MarkedBy, record.CreatedAt, record.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// FindByID loads one row with student metadata.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, attendanceRecord+" WHERE a.id = $1", id); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus changes the status of one row.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, markedBy *string) (*models.Attendance, error) {
	query := `UPDATE attendance SET status = $2, marked_by = COALESCE($3, marked_by), updated_at = $4 WHERE id = $1 RETURNING ` + attendanceColumns
	var stored models.Attendance
	if err := r.db.GetContext(ctx, &stored, query, id, status, markedBy, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Delete removes one row.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}

// ListDay returns the rows of a classroom for one date.
func (r *AttendanceRepository) ListDay(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where := "sp.classroom_id = $1 AND a.date = $2"
	args := []interface{}{filter.ClassroomID, filter.Date.Format(dateLayout)}
	if filter.StreamID != nil {
		where += fmt.Sprintf(" AND sp.stream_id = $%d", len(args)+1)
		args = append(args, *filter.StreamID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where += fmt.Sprintf(" AND a.status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 25
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s WHERE %s ORDER BY sp.admission_number ASC LIMIT %d OFFSET %d", attendanceRecord, where, size, offset)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM attendance a JOIN student_profiles sp ON sp.id = a.student_id WHERE " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// StatusRows returns the recorded statuses and genders for a classroom on a date.
func (r *AttendanceRepository) StatusRows(ctx context.Context, classroomID string, streamID *string, date time.Time) ([]models.StatusRow, error) {
	query := `SELECT a.status, u.gender
FROM attendance a
JOIN student_profiles sp ON sp.id = a.student_id
JOIN users u ON u.id = sp.user_id
WHERE sp.classroom_id = $1 AND a.date = $2`
	args := []interface{}{classroomID, date.Format(dateLayout)}
	if streamID != nil {
		query += " AND sp.stream_id = $3"
		args = append(args, *streamID)
	}
	var rows []models.StatusRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance status rows: %w", err)
	}
	return rows, nil
}

// ClassroomTotals returns all-time status counts per classroom of a year.
func (r *AttendanceRepository) ClassroomTotals(ctx context.Context, yearID string) ([]models.ClassroomTotals, error) {
	const query = `SELECT c.id AS classroom_id, c.name,
    COUNT(a.id) FILTER (WHERE a.status = 'present') AS present,
    COUNT(a.id) FILTER (WHERE a.status = 'absent') AS absent,
    COUNT(a.id) FILTER (WHERE a.status = 'sick') AS sick
FROM classrooms c
LEFT JOIN student_profiles sp ON sp.classroom_id = c.id
LEFT JOIN attendance a ON a.student_id = sp.id
WHERE c.year_id = $1
GROUP BY c.id, c.name
ORDER BY c.name ASC`
	var totals []models.ClassroomTotals
	if err := r.db.SelectContext(ctx, &totals, query, yearID); err != nil {
		return nil, fmt.Errorf("classroom attendance totals: %w", err)
	}
	return totals, nil
}
