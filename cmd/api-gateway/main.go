package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/momentum-lms-api/api/swagger"
	"github.com/noah-isme/momentum-lms-api/internal/handler"
	"github.com/noah-isme/momentum-lms-api/internal/middleware"
	"github.com/noah-isme/momentum-lms-api/internal/models"
	"github.com/noah-isme/momentum-lms-api/internal/repository"
	"github.com/noah-isme/momentum-lms-api/internal/service"
	"github.com/noah-isme/momentum-lms-api/pkg/cache"
	"github.com/noah-isme/momentum-lms-api/pkg/config"
	"github.com/noah-isme/momentum-lms-api/pkg/database"
	"github.com/noah-isme/momentum-lms-api/pkg/jobs"
	"github.com/noah-isme/momentum-lms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/momentum-lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/momentum-lms-api/pkg/middleware/requestid"
	"github.com/noah-isme/momentum-lms-api/pkg/push"
	"github.com/noah-isme/momentum-lms-api/pkg/storage"
)

// @title Momentum LMS API
// @version 1.0.0
// @description Learning management backend for the Momentum tutoring platform
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	doubtRepo := repository.NewDoubtRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	evaluator := service.NewAccessEvaluator(service.ParseTagMatchPolicy(cfg.Access.TagPolicy))

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)

	pushQueueCfg := jobs.QueueConfig{
		Workers:    cfg.Push.Workers,
		BufferSize: cfg.Push.BufferSize,
		Logger:     logr,
	}
	var notificationSvc *service.NotificationService
	if cfg.Push.Enabled {
		notificationSvc = service.NewNotificationService(notificationRepo, userRepo, evaluator, push.NewClient(cfg.Push.Timeout), cfg.Push.Title, logr, pushQueueCfg)
	} else {
		notificationSvc = service.NewNotificationService(notificationRepo, userRepo, evaluator, nil, cfg.Push.Title, logr, pushQueueCfg)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "momentum-lms",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	resourceSvc := service.NewResourceService(resourceRepo, userRepo, evaluator, notificationSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, submissionRepo, userRepo, evaluator, notificationSvc, validate, logr)
	doubtSvc := service.NewDoubtService(doubtRepo, assignmentRepo, resourceRepo, userRepo, evaluator, notificationSvc, validate, logr)
	leadSvc := service.NewLeadService(leadRepo, notificationSvc, validate, logr)
	performanceSvc := service.NewPerformanceService(submissionRepo, assignmentRepo, userRepo, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, cfg.Analytics.CacheTTL, logr)

	notificationSvc.Queue().Start(ctx)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(exportRepo, leadRepo, userRepo, submissionRepo, fileStore, signer, service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		}, validate, logr, jobs.QueueConfig{
			Workers:    1,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.Queue().Start(ctx)
		go exportSvc.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	resourceHandler := handler.NewResourceHandler(resourceSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	doubtHandler := handler.NewDoubtHandler(doubtSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	leadHandler := handler.NewLeadHandler(leadSvc)
	performanceHandler := handler.NewPerformanceHandler(performanceSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
		authed.GET("/students", userHandler.Students)
		authed.GET("/teachers", userHandler.Teachers)
	}

	leads := r.Group("/api/leads")
	{
		// Public intake forms; the pipeline itself is admin-only.
		leads.POST("/contact", leadHandler.Contact)
		leads.POST("/enroll", leadHandler.Enroll)

		adminLeads := leads.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		adminLeads.GET("", leadHandler.List)
		adminLeads.PUT("/:id/status", middleware.Audit(userRepo, "lead.status", "lead"), leadHandler.UpdateStatus)
		adminLeads.DELETE("/:id", middleware.Audit(userRepo, "lead.delete", "lead"), leadHandler.Delete)
	}

	notifications := r.Group("/api/notifications", middleware.JWT(authSvc))
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
		notifications.POST("/subscribe", notificationHandler.Subscribe)
		notifications.POST("/unsubscribe", notificationHandler.Unsubscribe)
	}

	v1 := r.Group(cfg.APIPrefix, middleware.JWT(authSvc))
	{
		v1.PUT("/profile", userHandler.UpdateProfile)

		resources := v1.Group("/resources")
		{
			resources.GET("", resourceHandler.List)
			resources.GET("/assignments", resourceHandler.Assignments)
			resources.GET("/:id", resourceHandler.Get)
			resources.POST("/:id/track-download", resourceHandler.Download)
			resources.POST("/:id/track-view", resourceHandler.TrackView)

			staff := resources.Group("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
			staff.POST("/upload", resourceHandler.Create)
			staff.GET("/my-uploads", resourceHandler.MyUploads)
			staff.PUT("/:id", resourceHandler.Update)
			staff.DELETE("/:id", resourceHandler.Delete)
		}

		assignments := v1.Group("/assignments")
		{
			assignments.GET("", assignmentHandler.List)
			assignments.GET("/:id", assignmentHandler.Get)

			students := assignments.Group("", middleware.RequireRoles(models.RoleStudent))
			students.POST("/:id/submit", assignmentHandler.Submit)
			students.DELETE("/:id/submit", assignmentHandler.Revoke)

			staff := assignments.Group("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
			staff.POST("/upload", assignmentHandler.Create)
			staff.GET("/created", assignmentHandler.Created)
			staff.PUT("/:id", assignmentHandler.Update)
			staff.DELETE("/:id", assignmentHandler.Delete)
			staff.GET("/:id/submissions", assignmentHandler.Submissions)
			staff.POST("/submissions/:id/grade", assignmentHandler.Grade)
		}

		performance := v1.Group("/performance")
		{
			performance.GET("/stats", performanceHandler.Stats)
			performance.GET("/results", performanceHandler.Results)
			performance.GET("/leaderboard/:assignmentId", performanceHandler.Leaderboard)
		}

		doubts := v1.Group("/doubts")
		{
			doubts.POST("", middleware.RequireRoles(models.RoleStudent), doubtHandler.Create)
			doubts.GET("/my", middleware.RequireRoles(models.RoleStudent), doubtHandler.My)
			doubts.GET("/assigned", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), doubtHandler.Assigned)
			doubts.POST("/:id/reply", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), doubtHandler.Reply)
		}

		admin := v1.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.GET("/users/:id", userHandler.Get)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)
			admin.GET("/users/:id/access-tags", userHandler.GetAccessTags)
			admin.POST("/users/:id/access-tags", userHandler.UpdateAccessTags)
		}

		analytics := v1.Group("/analytics", middleware.RequireRoles(models.RoleAdmin))
		{
			analytics.GET("/dashboard", analyticsHandler.Dashboard)
			analytics.GET("/system", analyticsHandler.System)
		}

		if exportSvc != nil {
			exportHandler := handler.NewExportHandler(exportSvc)
			exports := v1.Group("/exports", middleware.RequireRoles(models.RoleAdmin))
			{
				exports.POST("", middleware.Audit(userRepo, "export.create", "export"), exportHandler.Create)
				exports.GET("", exportHandler.List)
				exports.GET("/:id", exportHandler.Get)
			}
			// Downloads bypass JWT; the signed token is the credential.
			r.GET(cfg.APIPrefix+"/exports/download", exportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}

	notificationSvc.Queue().Stop()
	if exportSvc != nil {
		exportSvc.Queue().Stop()
	}
}
