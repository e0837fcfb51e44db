package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/marketbay/audit-api/internal/dto"
	"github.com/marketbay/audit-api/internal/models"
	"github.com/marketbay/audit-api/internal/observability"
	"github.com/marketbay/audit-api/internal/repository"
)

// Overall health colours reported by the analytics pass.
const (
	HealthGreen  = "GREEN"
	HealthYellow = "YELLOW"
)

// HealthService runs the full analytics pass: window counts, trend
// classification, confidence scoring, governance evaluation, insight
// generation and the compliance report.
type HealthService interface {
	Analyze(ctx context.Context, capability Capability, windowDays int) (dto.AnalyticsResponse, error)
}

type healthService struct {
	ledger   repository.LedgerRepository
	insights InsightService
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewHealthService constructs the analytics service.
func NewHealthService(ledger repository.LedgerRepository, insights InsightService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) HealthService {
	return &healthService{
		ledger:   ledger,
		insights: insights,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "health_service").Logger(),
		now:      time.Now,
	}
}

func (s *healthService) Analyze(ctx context.Context, capability Capability, windowDays int) (dto.AnalyticsResponse, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	cacheKey := fmt.Sprintf("audit:analytics:%d:privileged=%t", windowDays, capability.Privileged)
	tracer := otel.Tracer("github.com/marketbay/audit-api/internal/service/health")
	ctx, span := tracer.Start(ctx, "analytics.pass")
	span.SetAttributes(
		attribute.Int("analytics.window_days", windowDays),
		attribute.Bool("analytics.privileged", capability.Privileged),
	)
	defer span.End()

	start := s.now()
	defer func() {
		observability.AnalyticsDuration().Observe(time.Since(start).Seconds())
	}()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.AnalyticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
			span.RecordError(err)
		}
	}

	scope := repository.Scope{RestrictToAdmin: !capability.Privileged}
	now := s.now().UTC()

	admin, err := s.categoryHealth(ctx, scope, now, repository.CountFilter{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "admin_category_failed")
		return dto.AnalyticsResponse{}, err
	}

	bulk, err := s.categoryHealth(ctx, scope, now, repository.CountFilter{BulkOnly: true})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk_category_failed")
		return dto.AnalyticsResponse{}, err
	}

	automation, err := s.categoryHealth(ctx, scope, now, repository.CountFilter{ActorType: models.ActorSystem})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "automation_category_failed")
		return dto.AnalyticsResponse{}, err
	}

	overall := HealthGreen
	if admin.Status == TrendRepeated || admin.Status == TrendTrending || bulk.Status == TrendRepeated {
		overall = HealthYellow
	}

	stored, err := s.insights.Generate(ctx, capability, windowDays)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insight_generation_failed")
		return dto.AnalyticsResponse{}, err
	}
	span.SetAttributes(attribute.Int("analytics.insights_stored", stored))

	activeInsights, err := s.insights.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		return dto.AnalyticsResponse{}, err
	}

	metrics, err := s.ledger.Metrics(ctx, scope, now)
	if err != nil {
		span.RecordError(err)
		return dto.AnalyticsResponse{}, err
	}

	response := dto.AnalyticsResponse{
		Metrics:          metrics,
		AdminActivity:    admin,
		BulkActivity:     bulk,
		Automation:       automation,
		OverallHealth:    overall,
		Insights:         activeInsights,
		ComplianceReport: BuildComplianceReport(now, overall, admin, bulk, automation),
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

// categoryHealth counts the last 24 hours against the previous 24 hours for
// one category slice and runs it through the trend, confidence and
// governance stages. Both windows are real queries; no synthesized
// baselines.
func (s *healthService) categoryHealth(ctx context.Context, scope repository.Scope, now time.Time, base repository.CountFilter) (dto.CategoryHealth, error) {
	last24h := now.Add(-24 * time.Hour)
	prev24h := last24h.Add(-24 * time.Hour)

	current := base
	current.From = &last24h

	previous := base
	previous.From = &prev24h
	previous.To = &last24h

	currentCount, err := s.ledger.Count(ctx, scope, current)
	if err != nil {
		return dto.CategoryHealth{}, err
	}
	previousCount, err := s.ledger.Count(ctx, scope, previous)
	if err != nil {
		return dto.CategoryHealth{}, err
	}

	trend := ClassifyTrend(previousCount, currentCount)
	confidence := Confidence(trend)

	return dto.CategoryHealth{
		Count:      currentCount,
		Status:     trend,
		Confidence: confidence,
		Governance: EvaluateGovernance(trend, confidence),
	}, nil
}
