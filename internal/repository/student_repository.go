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

const studentSelect = `SELECT sp.id, sp.user_id, sp.classroom_id, sp.stream_id, sp.admission_number,
    sp.academic_year_id, sp.status, sp.created_at, u.first_name, u.last_name, u.gender
FROM student_profiles sp
JOIN users u ON u.id = sp.user_id`

const parentSelect = `SELECT pp.id, pp.user_id, pp.student_id, pp.created_at, u.first_name, u.last_name, u.phone_number
FROM parent_profiles pp
JOIN users u ON u.id = pp.user_id`

// StudentRepository persists students and their parents.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Roster returns a page of active students ordered by admission number.
func (r *StudentRepository) Roster(ctx context.Context, filter models.RosterFilter) ([]models.StudentProfile, int, error) {
	where, args := rosterWhere(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 25
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s WHERE %s ORDER BY sp.admission_number ASC LIMIT %d OFFSET %d", studentSelect, where, size, offset)
	var students []models.StudentProfile
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list roster: %w", err)
	}

	total, err := r.countWhere(ctx, where, args)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// CountRoster counts active students of a classroom, optionally one stream.
func (r *StudentRepository) CountRoster(ctx context.Context, classroomID string, streamID *string) (int, error) {
	where, args := rosterWhere(models.RosterFilter{ClassroomID: classroomID, StreamID: streamID})
	return r.countWhere(ctx, where, args)
}

func (r *StudentRepository) countWhere(ctx context.Context, where string, args []interface{}) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM student_profiles sp WHERE "+where, args...); err != nil {
		return 0, fmt.Errorf("count roster: %w", err)
	}
	return total, nil
}

func rosterWhere(filter models.RosterFilter) (string, []interface{}) {
	where := "sp.classroom_id = $1 AND sp.status = $2"
	args := []interface{}{filter.ClassroomID, models.StudentStatusActive}
	if filter.StreamID != nil {
		where += " AND sp.stream_id = $3"
		args = append(args, *filter.StreamID)
	}
	return where, args
}

// FindByID loads a student profile.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	var student models.StudentProfile
	if err := r.db.GetContext(ctx, &student, studentSelect+" WHERE sp.id = $1", id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsAdmission reports whether the admission number is already used.
func (r *StudentRepository) ExistsAdmission(ctx context.Context, admissionNumber string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM student_profiles WHERE admission_number = $1 LIMIT 1`, admissionNumber); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admission number: %w", err)
	}
	return true, nil
}

// Register creates the student person, profile, parent person and parent profile together.
func (r *StudentRepository) Register(ctx context.Context, student *models.StudentProfile, parent *models.ParentProfile) (err error) {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.UserID == "" {
		student.UserID = uuid.NewString()
	}
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	student.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register student tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertUser(ctx, tx, models.User{
		ID:        student.UserID,
		FirstName: student.FirstName,
		LastName:  student.LastName,
		Gender:    student.Gender,
		Role:      models.RoleStudent,
	}); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO student_profiles (id, user_id, classroom_id, stream_id, admission_number, academic_year_id, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		student.ID, student.UserID, student.ClassroomID, student.StreamID, student.AdmissionNumber, student.AcademicYearID, student.Status, student.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert student profile: %w", err)
	}

	if parent != nil {
		parent.StudentID = student.ID
		if err = insertParent(ctx, tx, parent, now); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit register student tx: %w", err)
	}
	return nil
}

// AddParent attaches another parent to a student.
func (r *StudentRepository) AddParent(ctx context.Context, parent *models.ParentProfile) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add parent tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertParent(ctx, tx, parent, time.Now().UTC()); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit add parent tx: %w", err)
	}
	return nil
}

// FirstParent returns the earliest registered parent of a student.
func (r *StudentRepository) FirstParent(ctx context.Context, studentID string) (*models.ParentProfile, error) {
	var parent models.ParentProfile
	query := parentSelect + " WHERE pp.student_id = $1 ORDER BY pp.created_at ASC, pp.id ASC LIMIT 1"
	if err := r.db.GetContext(ctx, &parent, query, studentID); err != nil {
		return nil, err
	}
	return &parent, nil
}

// FindParent loads a parent profile.
func (r *StudentRepository) FindParent(ctx context.Context, id string) (*models.ParentProfile, error) {
	var parent models.ParentProfile
	if err := r.db.GetContext(ctx, &parent, parentSelect+" WHERE pp.id = $1", id); err != nil {
		return nil, err
	}
	return &parent, nil
}

// ListParents returns every parent of a student.
func (r *StudentRepository) ListParents(ctx context.Context, studentID string) ([]models.ParentProfile, error) {
	var parents []models.ParentProfile
	if err := r.db.SelectContext(ctx, &parents, parentSelect+" WHERE pp.student_id = $1 ORDER BY pp.created_at ASC, pp.id ASC", studentID); err != nil {
		return nil, fmt.Errorf("list parents: %w", err)
	}
	return parents, nil
}

func insertUser(ctx context.Context, tx *sqlx.Tx, user models.User) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, first_name, last_name, phone_number, gender, role) VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.FirstName, user.LastName, user.PhoneNumber, user.Gender, user.Role,
	); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func insertParent(ctx context.Context, tx *sqlx.Tx, parent *models.ParentProfile, now time.Time) error {
	if parent.ID == "" {
		parent.ID = uuid.NewString()
	}
	if parent.UserID == "" {
		parent.UserID = uuid.NewString()
	}
	parent.CreatedAt = now

	if err := insertUser(ctx, tx, models.User{
		ID:          parent.UserID,
		FirstName:   parent.FirstName,
		LastName:    parent.LastName,
		PhoneNumber: parent.PhoneNumber,
		Role:        models.RoleParent,
	}); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO parent_profiles (id, user_id, student_id, created_at) VALUES ($1, $2, $3, $4)`,
		parent.ID, parent.UserID, parent.StudentID, parent.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert parent profile: %w", err)
	}
	return nil
}
