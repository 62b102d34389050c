package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

type expiredYearLocker interface {
	AutoLockExpired(ctx context.Context) (*models.AcademicYear, error)
}

// AutoLock locks an expired active academic year before the request is handled.
// Failures are logged and never block the request.
func AutoLock(locker expiredYearLocker, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if locker != nil {
			if _, err := locker.AutoLockExpired(c.Request.Context()); err != nil {
				logger.Warn("academic year auto-lock failed", zap.Error(err))
			}
		}
		c.Next()
	}
}
