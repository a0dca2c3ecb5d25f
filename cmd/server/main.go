package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/config"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/handlers"
	"github.com/staffhub/shift-engine/internal/middleware"
	"github.com/staffhub/shift-engine/internal/services"
	"github.com/staffhub/shift-engine/internal/utils"
	"github.com/staffhub/shift-engine/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting shift engine")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	loc := cfg.Scheduling.Location()

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Repositories
	shiftRepo := database.NewShiftRepository(db)
	workerRepo := database.NewWorkerRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)
	notificationRepo := database.NewNotificationRepository(db)
	performanceRepo := database.NewPerformanceRepository(db)

	// Subscription snapshots, cached in Redis when enabled
	redisClient := connectRedis(cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	subscriptions := services.NewCachedSubscriptionSource(subscriptionRepo, redisClient, cfg.Redis.SubscriptionTTL, logger)

	// Notifications always land in the inbox; the queue fans out to email/push
	sinks := services.MultiSink{services.NewStoreNotificationSink(notificationRepo)}
	if cfg.RabbitMQ.Enabled {
		queueSink, err := services.NewQueueNotificationSink(cfg.RabbitMQ.URL, cfg.RabbitMQ.NotificationQueue)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unavailable, notifications limited to the in-app inbox")
		} else {
			defer queueSink.Close()
			sinks = append(sinks, queueSink)
			logger.WithField("queue", cfg.RabbitMQ.NotificationQueue).Info("Publishing notifications to RabbitMQ")
		}
	}
	notifier := services.NewNotificationDispatcher(sinks, logger)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	lifecycle := services.NewShiftLifecycleService(shiftRepo, workerRepo, notifier, services.ShiftLifecycleConfig{
		Location:              loc,
		CompletionRadiusMiles: cfg.Scheduling.CompletionRadiusMiles,
		MaxSignatureBytes:     cfg.Scheduling.MaxSignatureBytes,
	}, logger)
	recurring := services.NewRecurringShiftService(lifecycle, cfg.Scheduling.MaxRecurringOccurrences)
	performance := services.NewPerformanceService(shiftRepo, performanceRepo, logger)
	usage := services.NewUsageService(shiftRepo, subscriptions, loc)
	autoAssign := services.NewAutoAssignService(shiftRepo, workerRepo, subscriptions, lifecycle, loc, logger)
	principals := services.NewPrincipalResolver(workerRepo, subscriptions)
	auditService := services.NewAuditService(db)

	// A nil *AuditService must not reach the handler interface
	var audit handlers.AuditLogger
	if cfg.Security.EnableAuditLog {
		audit = auditService
	}

	cronCfg := services.DefaultCronConfig()
	cronCfg.AutoAssignEnabled = cfg.Scheduling.AutoAssignEnabled
	if cfg.Scheduling.AutoAssignSchedule != "" {
		cronCfg.AutoAssignSchedule = cfg.Scheduling.AutoAssignSchedule
	}
	var warmCache *services.CachedSubscriptionSource
	if redisClient != nil {
		warmCache = subscriptions
	}
	cronService := services.NewCronService(cronCfg, autoAssign, warmCache, subscriptionRepo, auditService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	api := handlers.Router{
		Shifts:        handlers.NewShiftHandler(lifecycle, recurring, audit, logger),
		Performance:   handlers.NewPerformanceHandler(performance, audit, logger),
		Usage:         handlers.NewUsageHandler(usage, logger),
		Notifications: handlers.NewNotificationHandler(notificationRepo, logger),
		Admin:         handlers.NewAdminHandler(cronService, logger),
	}
	api.Register(router.Group("/api/v1"),
		middleware.AuthMiddleware(jwtService, logger),
		middleware.PrincipalMiddleware(principals, logger),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// connectRedis returns nil when the cache is disabled or unreachable; the
// subscription source then reads straight from the database
func connectRedis(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).WithField("addr", cfg.Addr).Warn("Redis unavailable, subscription cache disabled")
		_ = client.Close()
		return nil
	}

	logger.WithField("addr", cfg.Addr).Info("Subscription cache connected")
	return client
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         utils.ClientIP(c),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": utils.UserAgent(c),
		}

		if p, ok := middleware.GetPrincipal(c); ok {
			fields["user_id"] = p.UserID
			fields["role"] = p.Role
			if p.AgencyID != nil {
				fields["agency_id"] = p.AgencyID.String()
			}
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
