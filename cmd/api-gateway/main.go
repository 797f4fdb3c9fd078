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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Student section recommendations and institutional block planning
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

	settings, err := service.NewTimetableSettings(cfg.Timetable)
	if err != nil {
		logr.Fatal("invalid timetable configuration", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Recommendation.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, recommendation cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	catalogRepo := repository.NewCatalogRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	planRepo := repository.NewPlanRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Recommendation.CacheTTL, logr, cfg.Recommendation.CacheEnabled && redisClient != nil)
	recommendationSvc := service.NewRecommendationService(catalogRepo, facultyRepo, cacheSvc, metricsSvc, validate, logr, settings)
	plannerSvc := service.NewPlannerService(facultyRepo, planRepo, db, metricsSvc, validate, logr, settings, service.PlannerConfig{ProposalTTL: cfg.Planner.ProposalTTL})

	worker := service.NewRecommendationWorker(recommendationSvc, metricsSvc, logr)
	warmupQueue := jobs.NewQueue("recommendation-warmup", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Warmup.Workers,
		MaxRetries: cfg.Warmup.Retries,
		Logger:     logr,
	})
	warmupSvc := service.NewWarmupService(warmupQueue, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	warmupQueue.Start(ctx)
	defer warmupQueue.Stop()

	recommendationHandler := handler.NewRecommendationHandler(recommendationSvc, warmupSvc, logr)
	plannerHandler := handler.NewPlannerHandler(plannerSvc, logr)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, warmupQueue, map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ready(ctx, db) },
		"redis": func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return cache.Ready(ctx, redisClient)
		},
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	studentGuard := []gin.HandlerFunc{}
	plannerGuard := []gin.HandlerFunc{}
	if cfg.JWT.AuthEnabled {
		tokens := service.NewTokenService(cfg.JWT.Secret)
		auth := internalmiddleware.JWT(tokens)
		studentGuard = append(studentGuard, auth, internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), internalmiddleware.Self))
		plannerGuard = append(plannerGuard, auth, internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	} else {
		logr.Warn("authentication disabled; all routes are public")
	}

	students := api.Group("/students", studentGuard...)
	students.POST("/:id/recommendations", recommendationHandler.Recommend)

	admin := api.Group("", plannerGuard...)
	admin.POST("/recommendations/warmup", internalmiddleware.Audit(logr, "WARMUP", "recommendations"), recommendationHandler.Warmup)

	planner := admin.Group("/planner")
	planner.POST("/generate", plannerHandler.Generate)
	planner.POST("/save", internalmiddleware.Audit(logr, "SAVE", "timetable_plan"), plannerHandler.Save)
	planner.GET("/plans", plannerHandler.List)
	planner.GET("/plans/:id/assignments", plannerHandler.Assignments)
	planner.GET("/proposals/:id/export", plannerHandler.Export)

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

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
