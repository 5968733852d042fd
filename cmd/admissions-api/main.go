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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/nu-admissions-api/api/swagger"
	"github.com/noah-isme/nu-admissions-api/internal/handler"
	"github.com/noah-isme/nu-admissions-api/internal/middleware"
	"github.com/noah-isme/nu-admissions-api/internal/repository"
	"github.com/noah-isme/nu-admissions-api/internal/service"
	"github.com/noah-isme/nu-admissions-api/pkg/cache"
	"github.com/noah-isme/nu-admissions-api/pkg/config"
	"github.com/noah-isme/nu-admissions-api/pkg/database"
	"github.com/noah-isme/nu-admissions-api/pkg/export"
	"github.com/noah-isme/nu-admissions-api/pkg/jobs"
	"github.com/noah-isme/nu-admissions-api/pkg/logger"
	"github.com/noah-isme/nu-admissions-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/nu-admissions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/nu-admissions-api/pkg/middleware/requestid"
)

// @title NU Admissions API
// @version 1.0.0
// @description Admission approval and identifier issuance
// @BasePath /
// @schemes http

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
	defer db.Close()

	if cfg.Database.MigrationsAuto {
		if err := database.Migrate(context.Background(), db.DB); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied")
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, permission cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Admissions.PermissionCacheTTL, logr, redisClient != nil)
	validate := validator.New()
	uow := service.NewSQLUnitOfWork(db)
	users := repository.NewUserRepository(db)

	notifications := newNotificationService(cfg, metricsSvc, logr)
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var queue *jobs.Queue
	if cfg.Notifications.Enabled {
		queue = jobs.NewQueue("admission-notices", notifications.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
		notifications.AttachQueue(queue)
		queue.Start(rootCtx)
	}

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	permissionSvc := service.NewPermissionService(uow, users, cacheSvc, cfg.Admissions.PermissionCacheTTL, validate, logr)
	permissionSvc.ResetCache(rootCtx)

	approvalSvc := service.NewApprovalService(uow, service.NewIdentifierGenerator(logr), notifications, metricsSvc, validate, logr,
		service.ApprovalConfig{DefaultAdmissionFee: cfg.Admissions.DefaultAdmissionFee})
	applicationSvc := service.NewApplicationService(uow, validate, logr)
	documentSvc := service.NewDocumentService(uow, validate, logr)
	settingsSvc := service.NewSettingsService(uow, validate, logr)
	studentSvc := service.NewStudentService(uow, export.NewIDCardRenderer(), logr, service.StudentConfig{
		InstitutionName: cfg.IDCard.InstitutionName,
		ValidityYears:   cfg.IDCard.ValidityYears,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	ops := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	})
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Applications: handler.NewApplicationHandler(applicationSvc, approvalSvc),
		Documents:    handler.NewDocumentHandler(documentSvc),
		Settings:     handler.NewSettingsHandler(settingsSvc),
		Students:     handler.NewStudentHandler(studentSvc),
		Permissions:  handler.NewPermissionHandler(permissionSvc),
	}, middleware.JWT(authSvc), middleware.ResolveActor(permissionSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
}

// newNotificationService falls back to log-only notices when SMTP is not configured.
func newNotificationService(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) *service.NotificationService {
	smtp, err := mailer.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		if !errors.Is(err, mailer.ErrNotConfigured) {
			logr.Warn("smtp mailer unavailable", zap.Error(err))
		}
		logr.Info("admission notices will be logged, not mailed")
		return service.NewNotificationService(nil, metrics, logr)
	}
	return service.NewNotificationService(smtp, metrics, logr)
}
