package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushub/timetable-api/api/swagger"
	"github.com/campushub/timetable-api/internal/handler"
	"github.com/campushub/timetable-api/internal/middleware"
	"github.com/campushub/timetable-api/internal/repository"
	"github.com/campushub/timetable-api/internal/service"
	"github.com/campushub/timetable-api/pkg/cache"
	"github.com/campushub/timetable-api/pkg/config"
	"github.com/campushub/timetable-api/pkg/database"
	"github.com/campushub/timetable-api/pkg/logger"
	corsmiddleware "github.com/campushub/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Classroom registry and timetable scheduling service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, list cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	scheduleRepo := repository.NewScheduleRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	courses := repository.NewCourseDirectory(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	timetableSvc := service.NewTimetableService(scheduleRepo, classroomRepo, courses, cacheRepo, cfg.Timetable.ListCacheTTL, metrics, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, scheduleRepo, validate, logr)
	exportSvc := service.NewExportService(timetableSvc, classroomSvc, nil, nil, logr)

	scheduleHandler := handler.NewScheduleHandler(timetableSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		classrooms := api.Group("/classrooms")
		{
			classrooms.GET("", classroomHandler.List)
			classrooms.POST("", classroomHandler.Create)
			classrooms.GET("/:id", classroomHandler.Get)
			classrooms.PUT("/:id", classroomHandler.Update)
			classrooms.DELETE("/:id", classroomHandler.Delete)
			classrooms.POST("/:id/restore", classroomHandler.Restore)
			classrooms.GET("/:id/schedules", scheduleHandler.ByClassroom)
			if cfg.Export.Enabled {
				classrooms.GET("/:id/timetable/export", exportHandler.ClassroomWeek)
			}
		}

		schedules := api.Group("/schedules")
		{
			schedules.GET("", scheduleHandler.List)
			schedules.POST("", scheduleHandler.Create)
			schedules.GET("/:id", scheduleHandler.Get)
			schedules.PUT("/:id", scheduleHandler.Update)
			schedules.DELETE("/:id", scheduleHandler.Delete)
			schedules.POST("/:id/restore", scheduleHandler.Restore)
		}

		api.GET("/courses/:id/schedules", scheduleHandler.ByCourse)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
