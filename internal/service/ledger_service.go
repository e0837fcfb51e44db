package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/marketbay/audit-api/internal/dto"
	"github.com/marketbay/audit-api/internal/models"
	"github.com/marketbay/audit-api/internal/observability"
	"github.com/marketbay/audit-api/internal/repository"
)

// ErrRecordNotFound indicates the requested ledger record does not exist.
var ErrRecordNotFound = errors.New("activity record not found")

// ErrNotPermitted indicates the caller lacks the capability the operation
// requires.
var ErrNotPermitted = errors.New("operation requires a privileged actor")

// Capability is the explicit privilege token passed into gated operations.
// Privilege decisions are made by the identity layer; the ledger only checks
// the capability it was handed.
type Capability struct {
	Privileged bool
}

// ActorContext identifies the authenticated actor appending to the ledger,
// including the origin context recorded for admin-originated actions.
type ActorContext struct {
	AdminID   uint
	IPAddress string
	UserAgent string
}

// severityByAction maps well-known administrative actions to their severity.
// Unlisted actions default to LOW.
var severityByAction = map[string]string{
	"Locked user account":   models.SeverityHigh,
	"Disabled user account": models.SeverityHigh,

	"Unlocked user account": models.SeverityMedium,
	"Enabled user account":  models.SeverityMedium,

	"Archived audit record":       models.SeverityLow,
	"Unarchived audit record":     models.SeverityLow,
	"Bulk archived audit records": models.SeverityLow,

	"Admin login":  models.SeverityLow,
	"Admin logout": models.SeverityLow,
}

// SystemRecorder appends system-originated summary entries to the ledger.
// The retention scheduler logs its own sweeps through this.
type SystemRecorder interface {
	RecordSystem(ctx context.Context, action, severity, reason string, isBulk bool) error
}

// LedgerService exposes the append-only activity ledger.
type LedgerService interface {
	SystemRecorder
	Append(ctx context.Context, actor ActorContext, req dto.LedgerAppendRequest) (dto.LedgerRecordResponse, error)
	Get(ctx context.Context, capability Capability, id uint) (dto.LedgerRecordResponse, error)
	Archive(ctx context.Context, id uint) (bool, error)
	Unarchive(ctx context.Context, capability Capability, id uint) (bool, error)
	BulkArchive(ctx context.Context, capability Capability, req dto.BulkArchiveRequest) (int64, error)
	List(ctx context.Context, capability Capability, req dto.LedgerListRequest) (dto.LedgerListResponse, error)
	Metrics(ctx context.Context, capability Capability) (repository.LedgerMetrics, error)
	ActorTrend(ctx context.Context, capability Capability, days int) (dto.ActorTrendResponse, error)
}

type ledgerService struct {
	repo      repository.LedgerRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLedgerService constructs the ledger service.
func NewLedgerService(repo repository.LedgerRepository, validate *validator.Validate, logger zerolog.Logger) LedgerService {
	return &ledgerService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "ledger_service").Logger(),
		now:       time.Now,
	}
}

func (s *ledgerService) Append(ctx context.Context, actor ActorContext, req dto.LedgerAppendRequest) (dto.LedgerRecordResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LedgerRecordResponse{}, err
	}

	action := strings.TrimSpace(s.sanitizer.Sanitize(req.Action))
	if action == "" {
		return dto.LedgerRecordResponse{}, fmt.Errorf("action is required")
	}

	actorType := req.ActorType
	if actorType != models.ActorAdmin && actorType != models.ActorSystem {
		actorType = models.ActorSystem
	}
	if actorType == models.ActorAdmin && actor.AdminID == 0 {
		return dto.LedgerRecordResponse{}, fmt.Errorf("admin actions require an authenticated admin")
	}

	severity := req.Severity
	if severity == "" {
		severity = severityForAction(action)
	}

	record := models.ActivityRecord{
		Action:       action,
		Severity:     severity,
		Reason:       strings.TrimSpace(s.sanitizer.Sanitize(req.Reason)),
		ActorType:    actorType,
		IsBulk:       req.IsBulk,
		TargetUserID: req.TargetUserID,
		Metadata:     sanitizeMetadata(req.Metadata),
		CreatedAt:    s.now().UTC(),
	}

	// Origin context is only attributed to admin-originated actions.
	if actorType == models.ActorAdmin {
		adminID := actor.AdminID
		record.AdminID = &adminID
		record.IPAddress = actor.IPAddress
		record.UserAgent = actor.UserAgent
	}

	if err := s.repo.Append(ctx, &record); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to append ledger record")
		return dto.LedgerRecordResponse{}, fmt.Errorf("append ledger record: %w", err)
	}

	observability.LedgerAppends().WithLabelValues(record.ActorType, record.Severity).Inc()

	return dto.NewLedgerRecordResponse(record), nil
}

// RecordSystem appends a system-originated entry. No admin attribution, no
// origin context.
func (s *ledgerService) RecordSystem(ctx context.Context, action, severity, reason string, isBulk bool) error {
	if severity == "" {
		severity = models.SeverityLow
	}

	record := models.ActivityRecord{
		Action:    action,
		Severity:  severity,
		Reason:    reason,
		ActorType: models.ActorSystem,
		IsBulk:    isBulk,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Append(ctx, &record); err != nil {
		return fmt.Errorf("append system record: %w", err)
	}

	observability.LedgerAppends().WithLabelValues(models.ActorSystem, severity).Inc()
	return nil
}

func (s *ledgerService) Get(ctx context.Context, capability Capability, id uint) (dto.LedgerRecordResponse, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LedgerRecordResponse{}, ErrRecordNotFound
		}
		return dto.LedgerRecordResponse{}, err
	}

	if !capability.Privileged && (record.ActorType != models.ActorAdmin || record.IsBulk) {
		return dto.LedgerRecordResponse{}, ErrRecordNotFound
	}

	return dto.NewLedgerRecordResponse(record), nil
}

// Archive soft-retires a single record. Archiving an already archived record
// reports no change and is not an error.
func (s *ledgerService) Archive(ctx context.Context, id uint) (bool, error) {
	changed, err := s.repo.SetArchived(ctx, id, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrRecordNotFound
		}
		return false, err
	}
	return changed, nil
}

func (s *ledgerService) Unarchive(ctx context.Context, capability Capability, id uint) (bool, error) {
	if !capability.Privileged {
		return false, ErrNotPermitted
	}

	changed, err := s.repo.SetArchived(ctx, id, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrRecordNotFound
		}
		return false, err
	}
	return changed, nil
}

func (s *ledgerService) BulkArchive(ctx context.Context, capability Capability, req dto.BulkArchiveRequest) (int64, error) {
	if !capability.Privileged {
		return 0, ErrNotPermitted
	}
	if err := s.validator.Struct(req); err != nil {
		return 0, err
	}

	archived, err := s.repo.SetArchivedBulk(ctx, req.RecordIDs)
	if err != nil {
		return 0, err
	}
	if archived == 0 {
		return 0, nil
	}

	if err := s.RecordSystem(ctx,
		"Bulk archived audit records",
		models.SeverityLow,
		fmt.Sprintf("Bulk archived %d records", archived),
		true,
	); err != nil {
		// The archive itself succeeded; a failed summary entry must not undo
		// it, only surface on the operator channel.
		s.logger.Error().Err(err).Msg("failed to record bulk archive summary")
	}

	return archived, nil
}

func (s *ledgerService) List(ctx context.Context, capability Capability, req dto.LedgerListRequest) (dto.LedgerListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LedgerListResponse{}, err
	}

	filter := repository.LedgerFilter{
		Page:         req.Page,
		PageSize:     req.PageSize,
		Action:       strings.TrimSpace(req.Action),
		Severity:     req.Severity,
		ActorType:    req.ActorType,
		IsBulk:       req.IsBulk,
		Archived:     req.Archived,
		AdminID:      req.AdminID,
		TargetUserID: req.TargetUserID,
		CreatedFrom:  req.From,
		CreatedTo:    req.To,
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	records, total, err := s.repo.List(ctx, s.scope(capability), filter)
	if err != nil {
		return dto.LedgerListResponse{}, err
	}

	items := make([]dto.LedgerRecordResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewLedgerRecordResponse(record))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   filter.PageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}

	return dto.LedgerListResponse{Items: items, Pagination: pagination}, nil
}

func (s *ledgerService) Metrics(ctx context.Context, capability Capability) (repository.LedgerMetrics, error) {
	return s.repo.Metrics(ctx, s.scope(capability), s.now().UTC())
}

func (s *ledgerService) ActorTrend(ctx context.Context, capability Capability, days int) (dto.ActorTrendResponse, error) {
	if !capability.Privileged {
		return dto.ActorTrendResponse{}, ErrNotPermitted
	}
	if days <= 0 {
		days = 7
	}

	from := s.now().UTC().AddDate(0, 0, -days)
	rows, err := s.repo.ActorTrend(ctx, from)
	if err != nil {
		return dto.ActorTrendResponse{}, err
	}

	type dayCounts struct {
		admin  int64
		system int64
	}

	order := make([]string, 0)
	byDay := make(map[string]*dayCounts)
	for _, row := range rows {
		counts, ok := byDay[row.Day]
		if !ok {
			counts = &dayCounts{}
			byDay[row.Day] = counts
			order = append(order, row.Day)
		}
		switch row.ActorType {
		case models.ActorAdmin:
			counts.admin = row.Count
		case models.ActorSystem:
			counts.system = row.Count
		}
	}

	response := dto.ActorTrendResponse{
		Labels: order,
		Admin:  make([]int64, 0, len(order)),
		System: make([]int64, 0, len(order)),
	}
	for _, day := range order {
		response.Admin = append(response.Admin, byDay[day].admin)
		response.System = append(response.System, byDay[day].system)
	}

	return response, nil
}

func (s *ledgerService) scope(capability Capability) repository.Scope {
	return repository.Scope{RestrictToAdmin: !capability.Privileged}
}

func severityForAction(action string) string {
	if severity, ok := severityByAction[action]; ok {
		return severity
	}
	return models.SeverityLow
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if len(metadata) == 0 {
		return nil
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
