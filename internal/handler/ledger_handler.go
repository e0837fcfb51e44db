package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/marketbay/audit-api/internal/dto"
	"github.com/marketbay/audit-api/internal/service"
	"github.com/marketbay/audit-api/internal/utils"
)

// LedgerHandler exposes the activity ledger endpoints.
type LedgerHandler struct {
	service service.LedgerService
	logger  zerolog.Logger
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(service service.LedgerService, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		logger:  logger.With().Str("component", "ledger_handler").Logger(),
	}
}

// Register attaches routes.
func (h *LedgerHandler) Register(router fiber.Router, privileged fiber.Handler) {
	router.Post("", h.append)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/archive", h.archive)
	router.Post("/:id/unarchive", privileged, h.unarchive)
	router.Post("/archive-bulk", privileged, h.bulkArchive)
}

func (h *LedgerHandler) append(c *fiber.Ctx) error {
	var req dto.LedgerAppendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.service.Append(c.Context(), actorFromContext(c), req)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid append payload")
		}
		h.logger.Error().Err(err).Msg("failed to append ledger record")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to append ledger record")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "record appended", record)
}

func (h *LedgerHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	isBulk, err := parseQueryBool(c, "is_bulk")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid is_bulk")
	}
	archived, err := parseQueryBool(c, "archived")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid archived")
	}
	adminID, err := parseQueryUint(c, "admin_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid admin_id")
	}
	targetUserID, err := parseQueryUint(c, "target_user_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid target_user_id")
	}
	from, err := parseQueryDate(c, "from_date")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid from_date")
	}
	to, err := parseQueryDate(c, "to_date")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid to_date")
	}

	req := dto.LedgerListRequest{
		Page:         page,
		PageSize:     pageSize,
		Action:       c.Query("action"),
		Severity:     c.Query("severity"),
		ActorType:    c.Query("actor_type"),
		IsBulk:       isBulk,
		Archived:     archived,
		AdminID:      adminID,
		TargetUserID: targetUserID,
		From:         from,
		To:           to,
	}

	result, err := h.service.List(c.Context(), capabilityFromContext(c), req)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid list filters")
		}
		h.logger.Error().Err(err).Msg("failed to list ledger records")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list ledger records")
	}

	return utils.SendSuccess(c, "ledger records retrieved", result)
}

func (h *LedgerHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.Get(c.Context(), capabilityFromContext(c), id)
	if err != nil {
		if errors.Is(err, service.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "ledger record not found")
		}
		h.logger.Error().Err(err).Uint("record_id", id).Msg("failed to fetch ledger record")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch ledger record")
	}

	return utils.SendSuccess(c, "ledger record retrieved", record)
}

func (h *LedgerHandler) archive(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	changed, err := h.service.Archive(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "ledger record not found")
		}
		h.logger.Error().Err(err).Uint("record_id", id).Msg("failed to archive ledger record")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to archive ledger record")
	}

	if !changed {
		return utils.SendSuccess(c, "already archived", fiber.Map{"status": "already_archived"})
	}
	return utils.SendSuccess(c, "record archived", fiber.Map{"status": "archived"})
}

func (h *LedgerHandler) unarchive(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	changed, err := h.service.Unarchive(c.Context(), capabilityFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "ledger record not found")
		case errors.Is(err, service.ErrNotPermitted):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		h.logger.Error().Err(err).Uint("record_id", id).Msg("failed to unarchive ledger record")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to unarchive ledger record")
	}

	if !changed {
		return utils.SendSuccess(c, "already active", fiber.Map{"status": "already_active"})
	}
	return utils.SendSuccess(c, "record unarchived", fiber.Map{"status": "unarchived"})
}

func (h *LedgerHandler) bulkArchive(c *fiber.Ctx) error {
	var req dto.BulkArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	archived, err := h.service.BulkArchive(c.Context(), capabilityFromContext(c), req)
	if err != nil {
		var validationErrs validator.ValidationErrors
		switch {
		case errors.As(err, &validationErrs):
			return utils.SendError(c, fiber.StatusBadRequest, "no records selected")
		case errors.Is(err, service.ErrNotPermitted):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		h.logger.Error().Err(err).Msg("failed to bulk archive ledger records")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to bulk archive ledger records")
	}

	if archived == 0 {
		return utils.SendSuccess(c, "nothing to archive", fiber.Map{"status": "nothing_to_archive"})
	}
	return utils.SendSuccess(c, "records archived", fiber.Map{"status": "archived", "count": archived})
}
