package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/clock"
	"github.com/noah-isme/sma-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type academicYearRepository interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindLatest(ctx context.Context) (*models.AcademicYear, error)
	ExistsByRange(ctx context.Context, start, end int, excludeID string) (bool, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	Deactivate(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string) error
	LockExpired(ctx context.Context, currentYear int) (*models.AcademicYear, error)
	Handoff(ctx context.Context, next *models.AcademicYear) error
	CountReferences(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// AcademicYearService owns the academic year lifecycle: creation, activation, expiry locking and hand-off.
type AcademicYearService struct {
	repo      academicYearRepository
	clock     clock.Clock
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicYearService creates the lifecycle service.
func NewAcademicYearService(repo academicYearRepository, clk clock.Clock, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AcademicYearService {
	if clk == nil {
		clk = clock.System{}
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, clock: clk, metrics: metrics, validator: validate, logger: logger}
}

// List returns every academic year, newest first.
func (s *AcademicYearService) List(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list academic years")
	}
	return years, nil
}

// Get returns a year by ID.
func (s *AcademicYearService) Get(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Internal(err, "failed to load academic year")
	}
	return year, nil
}

// Create adds a year and optionally activates it.
func (s *AcademicYearService) Create(ctx context.Context, req dto.AcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if err := s.ensureUnique(ctx, req.YearStart, ""); err != nil {
		return nil, err
	}

	year := &models.AcademicYear{YearStart: req.YearStart}
	if err := s.repo.Create(ctx, year); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, alreadyExists(req.YearStart)
		}
		return nil, appErrors.Internal(err, "failed to create academic year")
	}

	if req.IsActive {
		if err := s.repo.SetActive(ctx, year.ID); err != nil {
			s.logger.Error("failed to activate academic year after create", zap.String("year_id", year.ID), zap.Error(err))
			return nil, appErrors.Internal(err, "failed to activate academic year")
		}
		year.IsActive = true
	}
	return year, nil
}

// Update changes the start year and the active flag.
func (s *AcademicYearService) Update(ctx context.Context, id string, req dto.AcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsActive && !year.IsActive && year.IsLocked {
		return nil, appErrors.Clone(appErrors.ErrYearLocked, fmt.Sprintf("academic year %s is locked", year.Label()))
	}
	if err := s.ensureUnique(ctx, req.YearStart, id); err != nil {
		return nil, err
	}

	year.YearStart = req.YearStart
	if err := s.repo.Update(ctx, year); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, alreadyExists(req.YearStart)
		}
		return nil, appErrors.Internal(err, "failed to update academic year")
	}

	switch {
	case req.IsActive && !year.IsActive:
		if err := s.repo.SetActive(ctx, year.ID); err != nil {
			return nil, appErrors.Internal(err, "failed to activate academic year")
		}
	case !req.IsActive && year.IsActive:
		if err := s.repo.Deactivate(ctx, year.ID); err != nil {
			return nil, appErrors.Internal(err, "failed to deactivate academic year")
		}
	}
	year.IsActive = req.IsActive
	return year, nil
}

// Activate makes id the only active year. Locked years cannot be activated.
func (s *AcademicYearService) Activate(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if year.IsLocked {
		return nil, appErrors.Clone(appErrors.ErrYearLocked, fmt.Sprintf("academic year %s is locked", year.Label()))
	}
	if err := s.repo.SetActive(ctx, id); err != nil {
		return nil, appErrors.Internal(err, "failed to activate academic year")
	}
	year.IsActive = true
	return year, nil
}

// AutoLockExpired locks the active year once its end year has passed in the school time zone.
// It is safe to call on every request; it returns the year it locked, if any.
func (s *AcademicYearService) AutoLockExpired(ctx context.Context) (*models.AcademicYear, error) {
	now := s.clock.Now()
	locked, err := s.repo.LockExpired(ctx, now.Year())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to lock expired academic year")
	}
	if locked != nil {
		s.metrics.RecordAutoLock()
		s.logger.Info("academic year locked after expiry",
			zap.String("year_id", locked.ID),
			zap.String("year", locked.Label()),
			zap.Time("expired_at", locked.ExpiresAt(now.Location())),
		)
	}
	return locked, nil
}

// Generate creates the next academic year and hands the active flag over to it.
func (s *AcademicYearService) Generate(ctx context.Context) (*models.AcademicYear, error) {
	currentYear := s.clock.Now().Year()

	start := currentYear
	latest, err := s.repo.FindLatest(ctx)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, appErrors.Internal(err, "failed to load latest academic year")
	case latest.YearStart >= currentYear:
		return nil, appErrors.Clone(appErrors.ErrBeyondCurrent,
			fmt.Sprintf("academic year %s already covers the current year %d", latest.Label(), currentYear))
	default:
		start = latest.YearStart + 1
	}

	if err := s.ensureUnique(ctx, start, ""); err != nil {
		return nil, err
	}

	next := &models.AcademicYear{YearStart: start}
	if err := s.repo.Handoff(ctx, next); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, alreadyExists(start)
		}
		return nil, appErrors.Internal(err, "failed to generate academic year")
	}
	s.logger.Info("academic year generated", zap.String("year_id", next.ID), zap.String("year", next.Label()))
	return next, nil
}

// Delete removes a year that nothing references.
func (s *AcademicYearService) Delete(ctx context.Context, id string) error {
	year, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to check academic year references")
	}
	if refs > 0 {
		return inUseYear(year)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return inUseYear(year)
		}
		return appErrors.Internal(err, "failed to delete academic year")
	}
	return nil
}

func (s *AcademicYearService) ensureUnique(ctx context.Context, start int, excludeID string) error {
	exists, err := s.repo.ExistsByRange(ctx, start, start+1, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check academic year uniqueness")
	}
	if exists {
		return alreadyExists(start)
	}
	return nil
}

func alreadyExists(start int) error {
	return appErrors.Clone(appErrors.ErrAlreadyExists, fmt.Sprintf("academic year %d/%d already exists", start, start+1))
}

func inUseYear(year *models.AcademicYear) error {
	return appErrors.Clone(appErrors.ErrInUse, fmt.Sprintf("academic year %s is in use by classrooms or students", year.Label()))
}
