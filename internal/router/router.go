package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/marketbay/audit-api/internal/config"
	"github.com/marketbay/audit-api/internal/handler"
	"github.com/marketbay/audit-api/internal/middleware"
	"github.com/marketbay/audit-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	LedgerHandler    *handler.LedgerHandler
	InsightHandler   *handler.InsightHandler
	AnalyticsHandler *handler.AnalyticsHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	privileged := middleware.RequirePrivileged()

	if deps.LedgerHandler != nil {
		ledger := api.Group("/audit-records", jwtMiddleware)
		deps.LedgerHandler.Register(ledger, privileged)
	}

	if deps.InsightHandler != nil {
		insights := api.Group("/audit-insights", jwtMiddleware)
		deps.InsightHandler.Register(insights, privileged)
	}

	if deps.AnalyticsHandler != nil {
		analytics := api.Group("/audit-analytics", jwtMiddleware,
			middleware.RateLimit("audit_analytics", 30, time.Minute))
		deps.AnalyticsHandler.Register(analytics, privileged)
	}
}
