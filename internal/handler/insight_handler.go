package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/marketbay/audit-api/internal/dto"
	"github.com/marketbay/audit-api/internal/service"
	"github.com/marketbay/audit-api/internal/utils"
)

// InsightHandler exposes the stored risk insight endpoints.
type InsightHandler struct {
	service service.InsightService
	logger  zerolog.Logger
}

// NewInsightHandler constructs the handler.
func NewInsightHandler(service service.InsightService, logger zerolog.Logger) *InsightHandler {
	return &InsightHandler{
		service: service,
		logger:  logger.With().Str("component", "insight_handler").Logger(),
	}
}

// Register attaches routes.
func (h *InsightHandler) Register(router fiber.Router, privileged fiber.Handler) {
	router.Get("", h.list)
	router.Post("/:id/seen", h.markSeen)
	router.Post("/:id/archive", privileged, h.archive)
}

func (h *InsightHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	seen, err := parseQueryBool(c, "seen")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid seen")
	}
	archived, err := parseQueryBool(c, "archived")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid archived")
	}

	req := dto.InsightListRequest{
		Page:     page,
		PageSize: pageSize,
		Severity: c.Query("severity"),
		Type:     c.Query("type"),
		Seen:     seen,
		Archived: archived,
	}

	result, err := h.service.List(c.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list insights")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list insights")
	}

	return utils.SendSuccess(c, "insights retrieved", result)
}

func (h *InsightHandler) markSeen(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	changed, err := h.service.MarkSeen(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrInsightNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "insight not found")
		}
		h.logger.Error().Err(err).Uint("insight_id", id).Msg("failed to mark insight seen")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark insight seen")
	}

	if !changed {
		return utils.SendSuccess(c, "already seen", fiber.Map{"status": "already_seen"})
	}
	return utils.SendSuccess(c, "insight seen", fiber.Map{"status": "seen"})
}

func (h *InsightHandler) archive(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Archive(c.Context(), capabilityFromContext(c), id); err != nil {
		switch {
		case errors.Is(err, service.ErrInsightNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "insight not found")
		case errors.Is(err, service.ErrNotPermitted):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		h.logger.Error().Err(err).Uint("insight_id", id).Msg("failed to archive insight")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to archive insight")
	}

	return utils.SendSuccess(c, "insight archived", fiber.Map{"status": "archived"})
}
