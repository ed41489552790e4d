package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/farmstead/farmbook/pkg/access"
	"github.com/farmstead/farmbook/pkg/api"
	"github.com/farmstead/farmbook/pkg/audit"
	"github.com/farmstead/farmbook/pkg/config"
	"github.com/farmstead/farmbook/pkg/middleware"
	"github.com/farmstead/farmbook/pkg/observability"
	"github.com/farmstead/farmbook/pkg/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := storage.Open(cfg.Database.Driver(), cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.WithFields(logrus.Fields{"backend": cfg.Database.Backend}).Info("Database connected")

	dialect := access.DialectSQLite
	if cfg.Database.Backend == "postgres" {
		dialect = access.DialectPostgres
	}
	ctx := context.Background()
	if err := access.RunMigrations(ctx, db, dialect); err != nil {
		log.Fatalf("Access migrations failed: %v", err)
	}
	if err := storage.RunMigrations(ctx, db, dialect); err != nil {
		log.Fatalf("Storage migrations failed: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	var registry *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisURL,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		rateLimiter = middleware.NewRateLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, time.Minute)
		if err := rateLimiter.HealthCheck(ctx); err != nil {
			log.WithError(err).Warn("Redis unreachable; rate limiter will fail open")
		} else {
			log.WithFields(logrus.Fields{"rpm": cfg.RateLimit.RequestsPerMinute}).Info("Rate limiting enabled")
		}
	}

	auditLogger, err := audit.NewLogger(db)
	if err != nil {
		log.Fatalf("Failed to initialize audit log: %v", err)
	}

	store := storage.NewStore(db)
	server := api.NewServer(api.Options{
		Store:       store,
		Logger:      logger,
		Metrics:     metrics,
		Registry:    registry,
		RateLimiter: rateLimiter,
		Audit:       auditLogger,
	})

	// Sweep expired invitations hourly
	invitations := access.NewInvitations(db)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		removed, err := invitations.CleanupExpiredInvitations(context.Background())
		if err != nil {
			log.WithError(err).Error("Invitation cleanup failed")
			return
		}
		if removed > 0 {
			log.WithFields(logrus.Fields{"removed": removed}).Info("Expired invitations removed")
		}
	}); err != nil {
		log.Fatalf("Failed to schedule invitation cleanup: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": addr}).Info("Starting farmbook server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
