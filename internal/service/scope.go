package service

import (
	"context"
	"database/sql"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type teacherLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error)
}

// accessScope is what the caller may see: everything for admins, one classroom for teachers.
type accessScope struct {
	admin   bool
	teacher *models.TeacherProfile
}

func resolveScope(ctx context.Context, teachers teacherLookup, claims *models.JWTClaims) (*accessScope, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleAdmin:
		return &accessScope{admin: true}, nil
	case models.RoleTeacher:
		teacher, err := teachers.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher profile not found")
			}
			return nil, appErrors.Internal(err, "failed to load teacher profile")
		}
		return &accessScope{teacher: teacher}, nil
	default:
		return nil, appErrors.ErrForbidden
	}
}

func (s *accessScope) classroomID() string {
	if s == nil || s.teacher == nil || s.teacher.ClassroomID == nil {
		return ""
	}
	return *s.teacher.ClassroomID
}

// allows reports whether a resource attached to classroomID is visible.
func (s *accessScope) allows(classroomID *string) bool {
	if s == nil {
		return false
	}
	if s.admin {
		return true
	}
	own := s.classroomID()
	return own != "" && classroomID != nil && *classroomID == own
}
