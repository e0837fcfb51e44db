package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/marketbay/audit-api/internal/service"
	"github.com/marketbay/audit-api/internal/utils"
)

// AnalyticsHandler exposes the audit analytics dashboard endpoints.
type AnalyticsHandler struct {
	health service.HealthService
	ledger service.LedgerService
	logger zerolog.Logger
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(health service.HealthService, ledger service.LedgerService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		health: health,
		ledger: ledger,
		logger: logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AnalyticsHandler) Register(router fiber.Router, privileged fiber.Handler) {
	router.Get("", h.analyze)
	router.Get("/actor-trend", privileged, h.actorTrend)
}

func (h *AnalyticsHandler) analyze(c *fiber.Ctx) error {
	windowDays, err := parseQueryInt(c, "window_days")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid window_days")
	}

	result, err := h.health.Analyze(c.Context(), capabilityFromContext(c), windowDays)
	if err != nil {
		h.logger.Error().Err(err).Msg("analytics pass failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "analytics pass failed")
	}

	return utils.SendSuccess(c, "analytics generated", result)
}

func (h *AnalyticsHandler) actorTrend(c *fiber.Ctx) error {
	days, err := parseQueryInt(c, "days")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid days")
	}

	result, err := h.ledger.ActorTrend(c.Context(), capabilityFromContext(c), days)
	if err != nil {
		if errors.Is(err, service.ErrNotPermitted) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		h.logger.Error().Err(err).Msg("failed to build actor trend")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build actor trend")
	}

	return utils.SendSuccess(c, "actor trend retrieved", result)
}
