package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/marketbay/audit-api/internal/config"
	"github.com/marketbay/audit-api/internal/database"
	"github.com/marketbay/audit-api/internal/handler"
	"github.com/marketbay/audit-api/internal/middleware"
	"github.com/marketbay/audit-api/internal/observability"
	"github.com/marketbay/audit-api/internal/repository"
	"github.com/marketbay/audit-api/internal/router"
	"github.com/marketbay/audit-api/internal/scheduler"
	"github.com/marketbay/audit-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	observability.RegisterMetrics()

	validate := validator.New(validator.WithRequiredStructEnabled())

	ledgerRepo := repository.NewLedgerRepository(db)
	insightRepo := repository.NewInsightRepository(db)
	otpRepo := repository.NewOTPRepository(db)

	ledgerService := service.NewLedgerService(ledgerRepo, validate, logger)
	insightService := service.NewInsightService(ledgerRepo, insightRepo, logger)
	healthService := service.NewHealthService(ledgerRepo, insightService, redisClient, cfg.AnalyticsCacheTTL, logger)
	retentionService := service.NewRetentionService(ledgerRepo, otpRepo, ledgerService, service.RetentionConfig{
		RetentionDays: cfg.RetentionDays,
		PurgeDays:     cfg.PurgeDays,
		OTPUsedBuffer: cfg.OTPUsedBuffer,
	}, logger)

	var jobs *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		jobs = scheduler.New(retentionService, logger)
		if err := jobs.Start(); err != nil {
			log.Fatalf("failed to start retention scheduler: %v", err)
		}
	}

	ledgerHandler := handler.NewLedgerHandler(ledgerService, logger)
	insightHandler := handler.NewInsightHandler(insightService, logger)
	analyticsHandler := handler.NewAnalyticsHandler(healthService, ledgerService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		LedgerHandler:    ledgerHandler,
		InsightHandler:   insightHandler,
		AnalyticsHandler: analyticsHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, jobs)
}

func waitForShutdown(app *fiber.App, jobs *scheduler.Scheduler) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	if jobs != nil {
		jobs.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
