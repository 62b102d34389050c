package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	tokens []string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.tokens = append(v.tokens, token)
	return v.claims, v.err
}

type lockerStub struct {
	calls int
	err   error
}

func (l *lockerStub) AutoLockExpired(ctx context.Context) (*models.AcademicYear, error) {
	l.calls++
	return nil, l.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/protected", handlers...)
	return r
}

func perform(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	validator := &validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}}
	r := newRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Token abc").Code)
	assert.Equal(t, http.StatusOK, perform(r, "Bearer abc").Code)
	assert.Equal(t, []string{"abc"}, validator.tokens)

	validator.err = appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer abc").Code)
}

func TestRequireRoles(t *testing.T) {
	validator := &validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}}
	r := newRouter(JWT(validator), RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, perform(r, "Bearer t").Code)

	validator.claims = &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}
	assert.Equal(t, http.StatusOK, perform(r, "Bearer t").Code)

	unauthenticated := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, perform(unauthenticated, "").Code)
}

func TestAutoLockNeverBlocks(t *testing.T) {
	locker := &lockerStub{err: errors.New("db down")}
	r := newRouter(AutoLock(locker, nil))

	assert.Equal(t, http.StatusOK, perform(r, "").Code)
	assert.Equal(t, 1, locker.calls)

	assert.Equal(t, http.StatusOK, perform(newRouter(AutoLock(nil, nil)), "").Code)
}

func TestMetricsObservesRequests(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics))
	assert.Equal(t, http.StatusOK, perform(r, "").Code)

	assert.Equal(t, 1, countRequests(t, metrics, "/protected"))
	assert.Equal(t, http.StatusOK, perform(newRouter(Metrics(nil)), "").Code)
}

func TestMetricsUnmatchedAndSkipped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/students/s1", "/attendance/a9", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, 2, countRequests(t, metrics, unmatchedRoute))
	assert.Equal(t, 0, countRequests(t, metrics, "/metrics"))
}

func countRequests(t *testing.T, metrics *service.MetricsService, route string) int {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	total := 0
	for _, f := range families {
		if f.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "path" && label.GetValue() == route {
					total += int(m.GetCounter().GetValue())
				}
			}
		}
	}
	return total
}
