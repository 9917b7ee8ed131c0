package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	authclient "github.com/distrischool/student-service/internal/client/auth"
	"github.com/distrischool/student-service/internal/events"
	"github.com/distrischool/student-service/internal/handler"
	"github.com/distrischool/student-service/internal/middleware"
	"github.com/distrischool/student-service/internal/repository"
	"github.com/distrischool/student-service/internal/service"
	"github.com/distrischool/student-service/pkg/cache"
	"github.com/distrischool/student-service/pkg/config"
	"github.com/distrischool/student-service/pkg/database"
	"github.com/distrischool/student-service/pkg/logger"
	corsmiddleware "github.com/distrischool/student-service/pkg/middleware/cors"
	reqidmiddleware "github.com/distrischool/student-service/pkg/middleware/requestid"
)

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	cacheEnabled := cfg.Cache.Enabled
	var cacheRepo service.CacheRepository
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
			cacheEnabled = false
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheEnabled)

	producer, err := events.NewProducer(cfg.Kafka.Brokers, metricsSvc, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to kafka", "error", err)
	}
	defer producer.Close()

	consumer, err := events.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.GroupID,
		[]string{cfg.Kafka.Topics.StudentCreated, cfg.Kafka.Topics.StudentStatusChanged},
		metricsSvc,
		logr,
	)
	if err != nil {
		logr.Sugar().Fatalw("failed to join kafka consumer group", "error", err)
	}
	defer consumer.Close()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go consumer.Run(consumerCtx)

	studentRepo := repository.NewStudentRepository(db)
	authClient := authclient.NewClient(cfg.AuthService, logr)
	validate := validator.New()

	studentSvc := service.NewStudentService(
		studentRepo,
		service.NewRegistrationNumberGenerator(studentRepo),
		authClient,
		cacheSvc,
		producer,
		metricsSvc,
		cfg.Kafka.Topics,
		validate,
		logr,
	)
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret}, logr)
	studentHandler := handler.NewStudentHandler(studentSvc)

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
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	students := api.Group("/students", middleware.JWT(authSvc))
	{
		students.POST("", studentHandler.Create)
		students.GET("", studentHandler.List)
		students.GET("/search", studentHandler.Search)
		students.GET("/statistics", studentHandler.Statistics)
		students.GET("/registration/:registrationNumber", studentHandler.GetByRegistrationNumber)
		students.GET("/count/status/:status", studentHandler.CountByStatus)
		students.GET("/count/course/:course", studentHandler.CountByCourse)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", studentHandler.Update)
		students.PATCH("/:id/status", studentHandler.ChangeStatus)
		students.DELETE("/:id", studentHandler.Delete)
		students.POST("/:id/restore", studentHandler.Restore)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
