package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sentinelstack/apigateway/internal/config"
	"github.com/sentinelstack/apigateway/internal/handler"
	"github.com/sentinelstack/apigateway/internal/handler/middleware"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/sentinelstack/apigateway/internal/service"
	"github.com/sentinelstack/apigateway/internal/storage/memstorage"
	"github.com/sentinelstack/apigateway/internal/storage/postgres"
	redisstore "github.com/sentinelstack/apigateway/internal/storage/redis"
	"github.com/sentinelstack/apigateway/internal/worker"
	"github.com/sentinelstack/apigateway/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Paths that bypass both authentication and rate limiting: credential
// issuance, health and docs.
var exemptPaths = []string{
	"/api/auth/login",
	"/healthz",
	"/metrics",
	"/docs",
}

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := redisstore.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	apiKeyRepo := postgres.NewAPIKeyRepository(dbPool, appLogger)
	quotaRepo := postgres.NewQuotaPolicyRepository(dbPool, appLogger)
	requestRepo := postgres.NewRequestRepository(dbPool, appLogger)
	userRepoMock := memstorage.NewUserRepositoryMock()
	windowCounter := redisstore.NewWindowCounter(redisClient, cfg.RateLimit.CounterTimeout)

	authService, err := service.NewAuthService(userRepoMock, &cfg.Auth, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to initialize auth service: %v", err)
	}
	apiKeyService, err := service.NewAPIKeyService(apiKeyRepo, &cfg.Hashing, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to initialize api key service: %v", err)
	}
	rateLimitService := service.NewRateLimitService(quotaRepo, windowCounter, appLogger)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	healthHandler := handler.NewHealthHandler(dbPool, redisClient, appLogger)
	authHandler := handler.NewAuthHandler(authService, appLogger)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, appLogger)
	rateLimitHandler := handler.NewRateLimitHandler(rateLimitService, appLogger)

	errorMiddleware := middleware.ErrorHandlerMiddleware(appLogger)
	authenticate := middleware.Authenticate(authService, apiKeyService, appLogger)
	requireAuth := middleware.RequireAuth(appLogger)
	admissionGate := middleware.NewAdmissionGate(rateLimitService, exemptPaths, appLogger)
	requestLogger := middleware.RequestLogger(asynqClient, appLogger)

	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		appLogger.Error(logMsg, zap.Stack("stack"))

		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))

	corsConfig := cors.Config{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-API-Key",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))
	router.Use(errorMiddleware)

	// Admission order is part of the contract: identity first, then the
	// gate, then audit logging. A request the gate denies is never seen
	// by the audit middleware or any handler.
	router.Use(authenticate)
	router.Use(admissionGate.Handler())
	router.Use(requestLogger)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
	}

	api := router.Group("/api")
	{
		keyRoutes := api.Group("/keys")
		keyRoutes.Use(requireAuth)
		{
			keyRoutes.POST("", apiKeyHandler.Create)
			keyRoutes.GET("", apiKeyHandler.List)
			keyRoutes.DELETE("/:id", apiKeyHandler.Revoke)
		}
		rateLimitRoutes := api.Group("/rate-limits")
		{
			rateLimitRoutes.GET("/default", rateLimitHandler.Default)

			rateLimitRoutes.Use(requireAuth)

			rateLimitRoutes.GET("", rateLimitHandler.Get)
			rateLimitRoutes.PUT("", rateLimitHandler.Update)
		}
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, requestRepo, apiKeyRepo, appLogger); err != nil {
			sugarLogger.Error("Asynq worker failed", zap.Error(err))
			return fmt.Errorf("asynq worker error: %w", err)
		}
		sugarLogger.Info("Asynq workers finished gracefully.")
		return nil
	})

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else if errors.Is(waitErr, http.ErrServerClosed) {
			sugarLogger.Info("Shutdown reason: HTTP server closed normally.")
		} else {
			sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Application shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Application exiting now.")
}
