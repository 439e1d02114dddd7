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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-portal-api/api/swagger"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/cache"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/database"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/requestid"
)

// @title Campus Portal API
// @version 1.0.0
// @description Attendance, forums, grades and meetings for students and faculty.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Redis backs the lookup cache and the rate limiter; without it both are disabled.
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache and rate limiting", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	forumRepo := repository.NewForumRepository(db)
	performanceRepo := repository.NewPerformanceRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	eventRepo := repository.NewEventRepository(db)

	var (
		cacheStore  service.CacheRepository
		rateLimiter *service.RateLimitService
	)
	if redisClient != nil {
		cacheStore = repository.NewCacheRepository(redisClient, "campus:cache:", logr)
		rateLimiter = service.NewRateLimitService(repository.NewRateLimitRepository(redisClient, "campus:ratelimit:"), cfg.RateLimit.PerMinute, time.Minute, metrics, logr)
	}
	cacheSvc := service.NewCacheService(cacheStore, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	auditSvc := service.NewAuditService(auditRepo, jobs.QueueConfig{
		Workers:      cfg.Audit.Workers,
		BufferSize:   256,
		MaxRetries:   cfg.Audit.Retries,
		RetryDelay:   500 * time.Millisecond,
		DrainTimeout: 5 * time.Second,
		Logger:       logr,
	}, metrics, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	userSvc := service.NewUserService(userRepo, cacheSvc, metrics, auditSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, auditSvc, userSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, userRepo, userSvc, metrics, validate, logr)
	forumSvc := service.NewForumService(forumRepo, userSvc, auditSvc, metrics, validate, logr)
	gradeSvc := service.NewGradeService(performanceRepo, userRepo, userSvc, cacheSvc, auditSvc, validate, logr)
	meetingSvc := service.NewMeetingService(meetingRepo, auditSvc, cfg.Meetings.BaseURL, validate, logr)
	eventSvc := service.NewEventService(eventRepo, cacheSvc, metrics, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Routes{
		Tokens:     authSvc,
		Audit:      auditSvc,
		RateLimit:  rateLimiter,
		Auth:       handler.NewAuthHandler(authSvc),
		Users:      handler.NewUserHandler(userSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Forums:     handler.NewForumHandler(forumSvc),
		Grades:     handler.NewGradeHandler(gradeSvc),
		Meetings:   handler.NewMeetingHandler(meetingSvc),
		Events:     handler.NewEventHandler(eventSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
