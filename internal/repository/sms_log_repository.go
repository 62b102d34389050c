package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

const smsLogRecord = `SELECT l.id, l.student_id, l.parent_id, l.message, l.status, l.timestamp,
    su.first_name AS student_first_name, su.last_name AS student_last_name, sp.classroom_id,
    pu.phone_number AS parent_phone
FROM sms_logs l
JOIN student_profiles sp ON sp.id = l.student_id
JOIN users su ON su.id = sp.user_id
LEFT JOIN parent_profiles pp ON pp.id = l.parent_id
LEFT JOIN users pu ON pu.id = pp.user_id`

// SMSLogRepository persists SMS delivery logs.
type SMSLogRepository struct {
	db *sqlx.DB
}

// NewSMSLogRepository constructs the repository.
func NewSMSLogRepository(db *sqlx.DB) *SMSLogRepository {
	return &SMSLogRepository{db: db}
}

// Create inserts a log row.
func (r *SMSLogRepository) Create(ctx context.Context, log *models.SMSLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO sms_logs (id, student_id, parent_id, message, status, timestamp) VALUES (:id, :student_id, :parent_id, :message, :status, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create sms log: %w", err)
	}
	return nil
}

// ExistsForDay reports whether any log row exists for the student in [start, end).
func (r *SMSLogRepository) ExistsForDay(ctx context.Context, studentID string, start, end time.Time) (bool, error) {
	const query = `SELECT 1 FROM sms_logs WHERE student_id = $1 AND timestamp >= $2 AND timestamp < $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, start, end); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check sms log for day: %w", err)
	}
	return true, nil
}

// ListForDay returns a student's logs in [start, end).
func (r *SMSLogRepository) ListForDay(ctx context.Context, studentID string, start, end time.Time) ([]models.SMSLog, error) {
	const query = `SELECT id, student_id, parent_id, message, status, timestamp FROM sms_logs WHERE student_id = $1 AND timestamp >= $2 AND timestamp < $3 ORDER BY timestamp ASC`
	var logs []models.SMSLog
	if err := r.db.SelectContext(ctx, &logs, query, studentID, start, end); err != nil {
		return nil, fmt.Errorf("list sms logs for day: %w", err)
	}
	return logs, nil
}

// FindByID loads a log row with student and parent details.
func (r *SMSLogRepository) FindByID(ctx context.Context, id string) (*models.SMSLogRecord, error) {
	var record models.SMSLogRecord
	if err := r.db.GetContext(ctx, &record, smsLogRecord+" WHERE l.id = $1", id); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkSent records a successful attempt.
func (r *SMSLogRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE sms_logs SET status = $2, timestamp = $3 WHERE id = $1`, id, models.SMSStatusSent, at); err != nil {
		return fmt.Errorf("mark sms sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt and keeps the original timestamp.
func (r *SMSLogRepository) MarkFailed(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE sms_logs SET status = $2 WHERE id = $1`, id, models.SMSStatusFailed); err != nil {
		return fmt.Errorf("mark sms failed: %w", err)
	}
	return nil
}

// List returns log rows matching the filter, newest first.
func (r *SMSLogRepository) List(ctx context.Context, filter models.SMSLogFilter) ([]models.SMSLogRecord, int, error) {
	var conditions []string
	var args []interface{}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("sp.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("l.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("l.timestamp >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("l.timestamp < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s WHERE %s ORDER BY l.timestamp DESC LIMIT %d OFFSET %d", smsLogRecord, where, size, offset)
	var logs []models.SMSLogRecord
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sms logs: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM sms_logs l JOIN student_profiles sp ON sp.id = l.student_id WHERE " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sms logs: %w", err)
	}
	return logs, total, nil
}

// Delete removes a log row.
func (r *SMSLogRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sms_logs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete sms log: %w", err)
	}
	return nil
}
