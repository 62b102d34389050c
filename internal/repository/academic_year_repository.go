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

const academicYearColumns = "id, year_start, year_end, is_active, is_locked, created_at"

// AcademicYearRepository handles persistence for academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns every year, newest first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	query := "SELECT " + academicYearColumns + " FROM academic_years ORDER BY year_start DESC"
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID loads a year by identifier.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := "SELECT " + academicYearColumns + " FROM academic_years WHERE id = $1"
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindActive returns the active year.
func (r *AcademicYearRepository) FindActive(ctx context.Context) (*models.AcademicYear, error) {
	query := "SELECT " + academicYearColumns + " FROM academic_years WHERE is_active = TRUE LIMIT 1"
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindLatest returns the year with the highest start.
func (r *AcademicYearRepository) FindLatest(ctx context.Context) (*models.AcademicYear, error) {
	query := "SELECT " + academicYearColumns + " FROM academic_years ORDER BY year_start DESC LIMIT 1"
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query); err != nil {
		return nil, err
	}
	return &year, nil
}

// ExistsByRange checks whether a (start, end) pair is already stored.
func (r *AcademicYearRepository) ExistsByRange(ctx context.Context, start, end int, excludeID string) (bool, error) {
	query := "SELECT 1 FROM academic_years WHERE year_start = $1 AND year_end = $2"
	args := []interface{}{start, end}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check academic year uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a year. YearEnd is always derived from YearStart.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	prepareYear(year)
	const query = `INSERT INTO academic_years (id, year_start, year_end, is_active, is_locked, created_at) VALUES (:id, :year_start, :year_end, :is_active, :is_locked, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update saves the start year and locked flag. Activation goes through SetActive.
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	year.YearEnd = year.YearStart + 1
	const query = `UPDATE academic_years SET year_start = :year_start, year_end = :year_end, is_locked = :is_locked WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	return nil
}

// Deactivate clears the active flag on one year.
func (r *AcademicYearRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE academic_years SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deactivate academic year: %w", err)
	}
	return nil
}

// SetActive marks the provided year as active and deactivates the rest.
func (r *AcademicYearRepository) SetActive(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set active tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_active = FALSE WHERE is_active = TRUE AND id <> $1`, id); err != nil {
		return fmt.Errorf("deactivate other academic years: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_active = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("activate academic year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set active tx: %w", err)
	}
	return nil
}

// LockExpired deactivates and locks the active year when it ended before currentYear.
// It returns the locked year, or nil when nothing changed.
func (r *AcademicYearRepository) LockExpired(ctx context.Context, currentYear int) (*models.AcademicYear, error) {
	query := `UPDATE academic_years SET is_active = FALSE, is_locked = TRUE
WHERE is_active = TRUE AND is_locked = FALSE AND year_end < $1
RETURNING ` + academicYearColumns
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, currentYear); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lock expired academic year: %w", err)
	}
	return &year, nil
}

// Handoff locks the active year and inserts next as the new active year in one transaction.
func (r *AcademicYearRepository) Handoff(ctx context.Context, next *models.AcademicYear) (err error) {
	prepareYear(next)
	next.IsActive = true
	next.IsLocked = false

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin handoff tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_active = FALSE, is_locked = TRUE WHERE is_active = TRUE`); err != nil {
		return fmt.Errorf("lock active academic year: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO academic_years (id, year_start, year_end, is_active, is_locked, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		next.ID, next.YearStart, next.YearEnd, next.IsActive, next.IsLocked, next.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert academic year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit handoff tx: %w", err)
	}
	return nil
}

// CountReferences returns how many classrooms and student profiles point at the year.
func (r *AcademicYearRepository) CountReferences(ctx context.Context, id string) (int, error) {
	const query = `SELECT (SELECT COUNT(*) FROM classrooms WHERE year_id = $1) + (SELECT COUNT(*) FROM student_profiles WHERE academic_year_id = $1)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count academic year references: %w", err)
	}
	return count, nil
}

// Delete removes a year. Restricted foreign keys surface as *pq.Error.
func (r *AcademicYearRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_years WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete academic year: %w", err)
	}
	return nil
}

func prepareYear(year *models.AcademicYear) {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	if year.CreatedAt.IsZero() {
		year.CreatedAt = time.Now().UTC()
	}
	year.YearEnd = year.YearStart + 1
}
