package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/pixelforge/intake-api/api/swagger"
	"github.com/pixelforge/intake-api/internal/handler"
	"github.com/pixelforge/intake-api/internal/middleware"
	"github.com/pixelforge/intake-api/internal/repository"
	"github.com/pixelforge/intake-api/internal/service"
	"github.com/pixelforge/intake-api/pkg/cache"
	"github.com/pixelforge/intake-api/pkg/config"
	"github.com/pixelforge/intake-api/pkg/database"
	"github.com/pixelforge/intake-api/pkg/jobs"
	"github.com/pixelforge/intake-api/pkg/logger"
	"github.com/pixelforge/intake-api/pkg/mailer"
	corsmiddleware "github.com/pixelforge/intake-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pixelforge/intake-api/pkg/middleware/requestid"
	"github.com/pixelforge/intake-api/pkg/storage"
)

// @title Pixelforge Intake API
// @version 1.0.0
// @description Service request intake and fulfillment tracking
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
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	metrics.ObserveDBPool(db.Stats)

	// Redis is optional: without it the dashboard snapshot is recomputed on
	// every call.
	var cacheRepo *repository.CacheRepository
	if cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			sugar.Warnw("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Dashboard.CacheTTL, logr, false)
	}

	deliverableStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init deliverable storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	mailClient := mailer.New(cfg.Mailer, logr)

	retryQueue := jobs.NewQueue(
		"status-emails",
		service.StatusEmailRetryHandler(mailClient, metrics, cfg.Mailer.Timeout),
		jobs.QueueConfig{
			Workers:    cfg.Mailer.RetryWorkers,
			MaxRetries: cfg.Mailer.MaxRetries,
			RetryDelay: cfg.Mailer.RetryDelay,
			Logger:     logr,
		},
	)
	retryQueue.Start(context.Background())
	defer retryQueue.Stop()

	requestRepo := repository.NewRequestRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	userRepo := repository.NewUserRepository(db)

	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, cfg.JWT, logr, validate)
	catalogSvc := service.NewCatalogService(catalogRepo, validate)
	requestSvc := service.NewRequestService(service.RequestServiceParams{
		Repo:     requestRepo,
		Catalog:  catalogRepo,
		Gateway:  mailClient,
		Retry:    retryQueue,
		Storage:  deliverableStore,
		Signer:   signer,
		Cache:    cacheSvc,
		Metrics:  metrics,
		Logger:   logr,
		Validate: validate,
		Config: service.RequestServiceConfig{
			NotifyTimeout:    cfg.Mailer.Timeout,
			SignedURLPath:    cfg.APIPrefix + "/deliverables/download",
			MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
			AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
		},
	})

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(requestRepo, cfg.Exports.MaxRows)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requestHandler := handler.NewRequestHandler(requestSvc, nil, deliverableStore, signer)
	if exportSvc != nil {
		requestHandler = handler.NewRequestHandler(requestSvc, exportSvc, deliverableStore, signer)
	}
	routes := handler.Routes{
		Requests: requestHandler,
		Catalog:  handler.NewCatalogHandler(catalogSvc),
		Auth:     handler.NewAuthHandler(authSvc),
		Metrics:  handler.NewMetricsHandler(metrics),
		AuthMW:   middleware.JWT(authSvc),
	}
	routes.Register(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	sugar.Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		sugar.Fatalw("server failed", "error", err)
	}
}
