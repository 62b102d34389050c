package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-attendance-api/api/swagger"
	"github.com/noah-isme/sma-attendance-api/internal/handler"
	"github.com/noah-isme/sma-attendance-api/internal/middleware"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/repository"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/cache"
	"github.com/noah-isme/sma-attendance-api/pkg/clock"
	"github.com/noah-isme/sma-attendance-api/pkg/config"
	"github.com/noah-isme/sma-attendance-api/pkg/database"
	"github.com/noah-isme/sma-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-attendance-api/pkg/phone"
	"github.com/noah-isme/sma-attendance-api/pkg/sms"
)

// @title SMA Attendance API
// @version 1.0.0
// @description Daily attendance register, parent SMS notifications and academic year lifecycle
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

type handlers struct {
	years      *handler.AcademicYearHandler
	attendance *handler.AttendanceHandler
	smsLogs    *handler.SMSLogHandler
	reports    *handler.ReportHandler
	classrooms *handler.ClassroomHandler
	students   *handler.StudentHandler
	metrics    *handler.MetricsHandler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	gateway, err := sms.New(cfg.SMS, logr)
	if err != nil {
		logr.Fatal("failed to init sms gateway", zap.Error(err))
	}

	yearRepo := repository.NewAcademicYearRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	smsLogRepo := repository.NewSMSLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	validate := service.NewValidator()
	clk := clock.System{Location: cfg.Attendance.Location()}
	normalizer := phone.New(cfg.SMS.CountryCode, cfg.SMS.MobilePrefixes)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})
	yearSvc := service.NewAcademicYearService(yearRepo, clk, metricsSvc, validate, logr)
	reportSvc := service.NewReportService(attendanceRepo, studentRepo, teacherRepo, yearRepo, cacheSvc, clk, logr)
	notificationSvc := service.NewNotificationService(studentRepo, teacherRepo, smsLogRepo, gateway, normalizer, clk, metricsSvc, validate, logr,
		service.NotificationConfig{SenderID: cfg.SMS.SenderID, Timeout: cfg.SMS.Timeout})
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceConfig{
		Students:  studentRepo,
		Records:   attendanceRepo,
		SMSLogs:   smsLogRepo,
		Teachers:  teacherRepo,
		Notifier:  notificationSvc,
		Reports:   reportSvc,
		Clock:     clk,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
		PageSize:  cfg.Attendance.PageSize,
	})
	classroomSvc := service.NewClassroomService(classroomRepo, yearRepo, teacherRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classroomRepo, yearRepo, teacherRepo, normalizer, validate, logr)

	h := handlers{
		years:      handler.NewAcademicYearHandler(yearSvc),
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		smsLogs:    handler.NewSMSLogHandler(notificationSvc),
		reports:    handler.NewReportHandler(reportSvc),
		classrooms: handler.NewClassroomHandler(classroomSvc),
		students:   handler.NewStudentHandler(studentSvc),
		metrics:    handler.NewMetricsHandler(metricsSvc, db),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health"))

	r.GET("/health", h.metrics.Health)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	registerRoutes(api, h, middleware.AutoLock(yearSvc, logr))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	case sig := <-shutdown:
		logr.Info("shutdown started", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logr.Error("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
		}
	}
}

func registerRoutes(api *gin.RouterGroup, h handlers, autoLock gin.HandlerFunc) {
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	admin := middleware.RequireRoles(models.RoleAdmin)

	years := api.Group("/academic-years", autoLock)
	years.GET("", staff, h.years.List)
	years.GET("/:id", staff, h.years.Get)
	years.POST("", admin, h.years.Create)
	years.POST("/generate", admin, h.years.Generate)
	years.PUT("/:id", admin, h.years.Update)
	years.POST("/:id/activate", admin, h.years.Activate)
	years.DELETE("/:id", admin, h.years.Delete)

	attendance := api.Group("/attendance", autoLock, staff)
	attendance.GET("", h.attendance.List)
	attendance.POST("/mark", h.attendance.Mark)
	attendance.POST("/submit", h.attendance.Submit)
	attendance.GET("/:id", h.attendance.Get)
	attendance.PATCH("/:id", h.attendance.Update)
	attendance.DELETE("/:id", h.attendance.Delete)

	smsLogs := api.Group("/sms-logs", staff)
	smsLogs.GET("", h.smsLogs.List)
	smsLogs.GET("/recent", h.smsLogs.Recent)
	smsLogs.POST("", h.smsLogs.Send)
	smsLogs.POST("/:id/resend", h.smsLogs.Resend)
	smsLogs.DELETE("/:id", h.smsLogs.Delete)

	reports := api.Group("/reports", staff)
	reports.GET("/daily", h.reports.Daily)
	reports.GET("/academic-years/:id", admin, h.reports.YearSummary)

	classrooms := api.Group("/classrooms")
	classrooms.GET("", staff, h.classrooms.List)
	classrooms.GET("/:id", staff, h.classrooms.Get)
	classrooms.POST("", admin, h.classrooms.Create)
	classrooms.PATCH("/:id", admin, h.classrooms.Rename)
	classrooms.DELETE("/:id", admin, h.classrooms.Delete)
	classrooms.GET("/:id/streams", staff, h.classrooms.ListStreams)
	classrooms.POST("/:id/streams", admin, h.classrooms.AddStream)
	api.PUT("/teachers/:id/assignment", admin, h.classrooms.AssignTeacher)

	students := api.Group("/students", staff)
	students.GET("", h.students.List)
	students.GET("/:id", h.students.Get)
	students.POST("", admin, h.students.Register)
	students.POST("/:id/parents", admin, h.students.AddParent)
}
