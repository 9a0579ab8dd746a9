package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/grouptable/grouptable-api/api/swagger"
	"github.com/grouptable/grouptable-api/internal/handler"
	"github.com/grouptable/grouptable-api/internal/middleware"
	"github.com/grouptable/grouptable-api/internal/models"
	"github.com/grouptable/grouptable-api/internal/repository"
	"github.com/grouptable/grouptable-api/internal/service"
	"github.com/grouptable/grouptable-api/pkg/cache"
	"github.com/grouptable/grouptable-api/pkg/config"
	"github.com/grouptable/grouptable-api/pkg/database"
	"github.com/grouptable/grouptable-api/pkg/logger"
	corsmiddleware "github.com/grouptable/grouptable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/grouptable/grouptable-api/pkg/middleware/requestid"
)

// @title GroupTable API
// @version 1.0.0
// @description Classroom gamification backend
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()

	adminRepo := repository.NewAdminRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	criteriaRepo := repository.NewCriteriaRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(adminRepo, teacherRepo, tokenRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	teacherSvc := service.NewTeacherService(teacherRepo, adminRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, groupRepo, validate, logr)
	moduleSvc := service.NewModuleService(moduleRepo, groupRepo, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, moduleRepo, validate, logr)
	criteriaSvc := service.NewCriteriaService(criteriaRepo, moduleRepo, validate, logr)
	leaderboardSvc := service.NewLeaderboardService(gradeRepo, groupRepo, moduleRepo, redisClient, cfg.Leaderboard.CacheTTL, metricsSvc, logr)
	gradeSvc := service.NewGradeService(gradeRepo, lessonRepo, moduleRepo, criteriaRepo, studentRepo, leaderboardSvc, metricsSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	groupHandler := handler.NewGroupHandler(groupSvc, studentSvc)
	moduleHandler := handler.NewModuleHandler(moduleSvc, leaderboardSvc, cfg.Exports.Enabled)
	lessonHandler := handler.NewLessonHandler(lessonSvc, gradeSvc)
	criteriaHandler := handler.NewCriteriaHandler(criteriaSvc)
	publicHandler := handler.NewPublicHandler(groupSvc, moduleSvc, leaderboardSvc, cfg.Exports.Enabled)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.RegisterAdmin)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/teachers", teacherHandler.List)
		admin.POST("/teachers", teacherHandler.Create)
		admin.PUT("/teachers/:id", teacherHandler.Update)
		admin.DELETE("/teachers/:id", teacherHandler.Delete)
		admin.POST("/teachers/:id/reset-password", teacherHandler.ResetPassword)
		admin.GET("/teachers/:id/stats", teacherHandler.Stats)
	}

	teacher := api.Group("/teacher", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
	{
		teacher.GET("/groups", groupHandler.List)
		teacher.POST("/groups", groupHandler.Create)
		teacher.GET("/groups/:id", groupHandler.Get)
		teacher.POST("/groups/:id/finish", groupHandler.Finish)
		teacher.DELETE("/groups/:id", groupHandler.Delete)
		teacher.GET("/groups/:id/students", groupHandler.ListStudents)
		teacher.POST("/groups/:id/students", groupHandler.CreateStudent)
		teacher.DELETE("/students/:id", groupHandler.DeleteStudent)

		teacher.GET("/groups/:id/modules", moduleHandler.List)
		teacher.POST("/groups/:id/modules", moduleHandler.Create)
		teacher.GET("/modules/:id", moduleHandler.Get)
		teacher.POST("/modules/:id/finish", moduleHandler.Finish)
		teacher.DELETE("/modules/:id", moduleHandler.Delete)
		teacher.GET("/modules/:id/leaderboard", moduleHandler.Leaderboard)
		teacher.GET("/modules/:id/leaderboard/export", moduleHandler.ExportLeaderboard)

		teacher.GET("/modules/:id/lessons", lessonHandler.List)
		teacher.POST("/modules/:id/lessons", lessonHandler.Create)
		teacher.POST("/lessons/:id/finish", lessonHandler.Finish)
		teacher.DELETE("/lessons/:id", lessonHandler.Delete)
		teacher.POST("/lessons/:id/grades", lessonHandler.SubmitGrade)
		teacher.GET("/lessons/:id/grades", lessonHandler.ListGrades)

		teacher.GET("/modules/:id/criteria", criteriaHandler.List)
		teacher.POST("/modules/:id/criteria", criteriaHandler.Create)
		teacher.PUT("/criteria/:id", criteriaHandler.Update)
		teacher.DELETE("/criteria/:id", criteriaHandler.Delete)
	}

	public := api.Group("/public")
	{
		public.GET("/groups/:code", publicHandler.Group)
		public.GET("/groups/:code/modules", publicHandler.Modules)
		public.GET("/groups/:code/modules/:id/leaderboard", publicHandler.ModuleLeaderboard)
		public.GET("/groups/:code/leaderboard", publicHandler.Leaderboard)
		public.GET("/groups/:code/leaderboard/export", publicHandler.ExportLeaderboard)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
