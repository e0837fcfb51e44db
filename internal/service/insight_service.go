package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/marketbay/audit-api/internal/dto"
	"github.com/marketbay/audit-api/internal/models"
	"github.com/marketbay/audit-api/internal/observability"
	"github.com/marketbay/audit-api/internal/repository"
)

// ErrInsightNotFound indicates the requested insight does not exist.
var ErrInsightNotFound = errors.New("insight not found")

// windowStats carries every window-scoped count the detectors consume. It is
// assembled once per analytics pass so each detector stays a pure function.
type windowStats struct {
	Days int

	Total  int64
	High   int64
	Admin  int64
	System int64
	Bulk   int64

	PrevTotal  int64
	PrevHigh   int64
	PrevAdmin  int64
	PrevSystem int64

	HighPct   int
	AdminPct  int
	SystemPct int

	HighByActor  []repository.ActorCount
	ActionCounts []repository.ActionCount
}

// observation is a single detector finding before recommendation mapping.
type observation struct {
	Level      string // danger | warning | info | success
	Icon       string
	Type       string
	Text       string
	Confidence int
}

// detector inspects the window statistics and emits zero or more findings.
type detector func(stats windowStats) []observation

// detectorPipeline is the ordered list of heuristics run on every analytics
// pass. Order matters only for presentation; each detector is independent.
var detectorPipeline = []detector{
	detectHighSeverityTrend,
	detectBulkBurst,
	detectAutomationHealth,
	detectAdminGrowth,
	detectActivitySpike,
	detectHighSeverityShare,
	detectAdminShare,
	detectHighSeverityDominance,
	detectRepeatedActions,
}

func detectHighSeverityTrend(stats windowStats) []observation {
	if stats.PrevHigh <= 0 {
		return nil
	}

	change := Growth(stats.PrevHigh, stats.High)
	if change >= 30 {
		return []observation{{
			Level: "danger",
			Icon:  "alert-triangle",
			Type:  models.InsightSecurity,
			Text: fmt.Sprintf(
				"High severity actions increased by %d%% in last %d days. If this trend continues, security risk may increase.",
				change, stats.Days,
			),
			Confidence: Confidence(ClassifyTrend(stats.PrevHigh, stats.High)),
		}}
	}

	// The decrease branch needs the unclamped value: the dampened Growth
	// never goes negative.
	if signedGrowth(stats.PrevHigh, stats.High) <= -25 {
		return []observation{{
			Level:      "success",
			Icon:       "check-circle",
			Type:       models.InsightImprovement,
			Text:       "High severity actions reduced compared to previous period",
			Confidence: Confidence(TrendStable),
		}}
	}

	return nil
}

func detectBulkBurst(stats windowStats) []observation {
	if stats.Bulk < 3 {
		return nil
	}
	return []observation{{
		Level:      "warning",
		Icon:       "layers",
		Type:       models.InsightOperational,
		Text:       fmt.Sprintf("%d bulk admin actions detected recently", stats.Bulk),
		Confidence: Confidence(TrendIncreased),
	}}
}

func detectAutomationHealth(stats windowStats) []observation {
	if stats.System == 0 {
		return []observation{{
			Level:      "info",
			Icon:       "info",
			Type:       models.InsightAutomation,
			Text:       "No automated system activity detected in current period",
			Confidence: Confidence(TrendStable),
		}}
	}

	growth := Growth(stats.PrevSystem, stats.System)
	if growth <= 5 {
		return []observation{{
			Level: "success",
			Icon:  "cpu",
			Type:  models.InsightAutomation,
			Text: fmt.Sprintf(
				"System automation operating normally (%d%% of total activity, %d%% change)",
				stats.SystemPct, growth,
			),
			Confidence: Confidence(ClassifyTrend(stats.PrevSystem, stats.System)),
		}}
	}

	return []observation{{
		Level: "warning",
		Icon:  "cpu",
		Type:  models.InsightAutomation,
		Text: fmt.Sprintf(
			"System automation activity changed by %d%%. Monitor automation stability.",
			growth,
		),
		Confidence: Confidence(ClassifyTrend(stats.PrevSystem, stats.System)),
	}}
}

func detectAdminGrowth(stats windowStats) []observation {
	growth := Growth(stats.PrevAdmin, stats.Admin)
	if growth < 35 {
		return nil
	}
	return []observation{{
		Level: "warning",
		Icon:  "shield",
		Type:  models.InsightSecurity,
		Text: fmt.Sprintf(
			"Admin activity increased by %d%%. Unusual admin behavior may require review.",
			growth,
		),
		Confidence: Confidence(ClassifyTrend(stats.PrevAdmin, stats.Admin)),
	}}
}

func detectActivitySpike(stats windowStats) []observation {
	if stats.PrevTotal <= 0 {
		return nil
	}
	spike := Growth(stats.PrevTotal, stats.Total)
	if spike < 40 {
		return nil
	}
	return []observation{{
		Level:      "danger",
		Icon:       "trending-up",
		Type:       models.InsightOperational,
		Text:       fmt.Sprintf("Audit activity spiked by %d%% compared to previous period", spike),
		Confidence: Confidence(ClassifyTrend(stats.PrevTotal, stats.Total)),
	}}
}

func detectHighSeverityShare(stats windowStats) []observation {
	if stats.HighPct < 15 {
		return nil
	}
	return []observation{{
		Level:      "danger",
		Icon:       "percent",
		Type:       models.InsightSecurity,
		Text:       fmt.Sprintf("High severity actions form %d%% of total audit activity", stats.HighPct),
		Confidence: Confidence(TrendRepeated),
	}}
}

func detectAdminShare(stats windowStats) []observation {
	if stats.AdminPct < 70 {
		return nil
	}
	return []observation{{
		Level:      "warning",
		Icon:       "user",
		Type:       models.InsightSecurity,
		Text:       fmt.Sprintf("Admin actions account for %d%% of total activity", stats.AdminPct),
		Confidence: Confidence(TrendIncreased),
	}}
}

func detectHighSeverityDominance(stats windowStats) []observation {
	if stats.High == 0 {
		return nil
	}

	var findings []observation
	for _, row := range stats.HighByActor {
		pct := roundPct(row.Count, stats.High)
		if pct < 60 {
			continue
		}
		findings = append(findings, observation{
			Level: "danger",
			Icon:  "users",
			Type:  models.InsightSecurity,
			Text: fmt.Sprintf(
				"%s actions account for %d%% of HIGH severity events (%d out of %d)",
				capitalize(row.ActorType), pct, row.Count, stats.High,
			),
			Confidence: Confidence(TrendRepeated),
		})
	}
	return findings
}

func detectRepeatedActions(stats windowStats) []observation {
	var findings []observation
	for _, row := range stats.ActionCounts {
		if row.Count < 10 {
			continue
		}
		findings = append(findings, observation{
			Level:      "warning",
			Icon:       "repeat",
			Type:       models.InsightOperational,
			Text:       fmt.Sprintf("Bulk '%s' actions detected (%d times)", row.Action, row.Count),
			Confidence: Confidence(TrendRepeated),
		})
	}
	return findings
}

// recommendationFor maps an observation to its advisory action, keyed on
// phrase matching against the observation text.
func recommendationFor(level, text string) string {
	lower := strings.ToLower(text)

	switch {
	case level == "danger" && strings.Contains(lower, "high severity"):
		return "Review recent high-severity admin actions and validate permissions."
	case strings.Contains(lower, "bulk"):
		return "Verify bulk operations and ensure proper approvals are documented."
	case strings.Contains(lower, "admin activity increased") || strings.Contains(lower, "unusual admin behavior"):
		return "Audit recent admin actions and consider access review."
	case strings.Contains(lower, "system automation"):
		return "No immediate action required. Continue monitoring automation health."
	case strings.Contains(lower, "spiked") || strings.Contains(lower, "trend continues"):
		return "Investigate recent activity spike and prepare operational capacity."
	default:
		return "Monitor this insight and review logs if the pattern continues."
	}
}

// severityForLevel maps a detector level to the stored insight severity.
func severityForLevel(level string) string {
	switch level {
	case "danger":
		return models.InsightSeverityHigh
	case "warning":
		return models.InsightSeverityMedium
	default:
		return models.InsightSeverityInfo
	}
}

// InsightService generates, stores and manages deduplicated risk insights.
type InsightService interface {
	Generate(ctx context.Context, capability Capability, windowDays int) (int, error)
	MarkSeen(ctx context.Context, id uint) (bool, error)
	Archive(ctx context.Context, capability Capability, id uint) error
	List(ctx context.Context, req dto.InsightListRequest) (dto.InsightListResponse, error)
	ListActive(ctx context.Context) ([]dto.InsightResponse, error)
}

type insightService struct {
	ledger   repository.LedgerRepository
	insights repository.InsightRepository
	logger   zerolog.Logger
	now      func() time.Time
}

// NewInsightService constructs the insight service.
func NewInsightService(ledger repository.LedgerRepository, insights repository.InsightRepository, logger zerolog.Logger) InsightService {
	return &insightService{
		ledger:   ledger,
		insights: insights,
		logger:   logger.With().Str("component", "insight_service").Logger(),
		now:      time.Now,
	}
}

// Generate runs the detector pipeline over the caller-scoped activity window
// and persists any observation whose message has not been stored before. It
// returns the number of newly stored insights.
func (s *insightService) Generate(ctx context.Context, capability Capability, windowDays int) (int, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	scope := repository.Scope{RestrictToAdmin: !capability.Privileged}
	stats, err := s.collectStats(ctx, scope, windowDays)
	if err != nil {
		return 0, fmt.Errorf("collect window stats: %w", err)
	}

	var findings []observation
	for _, detect := range detectorPipeline {
		findings = append(findings, detect(stats)...)
	}

	stored := 0
	generatedAt := s.now().UTC()
	for _, finding := range findings {
		insight := models.RiskInsight{
			InsightType:    finding.Type,
			Severity:       severityForLevel(finding.Level),
			Message:        finding.Text,
			Recommendation: recommendationFor(finding.Level, finding.Text),
			Confidence:     float64(finding.Confidence),
			GeneratedAt:    generatedAt,
		}

		created, err := s.insights.Upsert(ctx, &insight)
		if err != nil {
			return stored, fmt.Errorf("store insight: %w", err)
		}
		if created {
			stored++
			observability.InsightsStored().Inc()
		}
	}

	s.logger.Debug().
		Int("detected", len(findings)).
		Int("stored", stored).
		Int("window_days", windowDays).
		Msg("insight generation pass completed")

	return stored, nil
}

func (s *insightService) collectStats(ctx context.Context, scope repository.Scope, days int) (windowStats, error) {
	now := s.now().UTC()
	start := now.AddDate(0, 0, -days)
	prevStart := start.AddDate(0, 0, -days)

	stats := windowStats{Days: days}

	current := repository.CountFilter{From: &start}
	previous := repository.CountFilter{From: &prevStart, To: &start}

	var err error
	if stats.Total, err = s.ledger.Count(ctx, scope, current); err != nil {
		return windowStats{}, err
	}
	if stats.High, err = s.ledger.Count(ctx, scope, withSeverity(current, models.SeverityHigh)); err != nil {
		return windowStats{}, err
	}
	if stats.Admin, err = s.ledger.Count(ctx, scope, withActor(current, models.ActorAdmin)); err != nil {
		return windowStats{}, err
	}
	if stats.System, err = s.ledger.Count(ctx, scope, withActor(current, models.ActorSystem)); err != nil {
		return windowStats{}, err
	}
	if stats.Bulk, err = s.ledger.Count(ctx, scope, withBulk(current)); err != nil {
		return windowStats{}, err
	}

	if stats.PrevTotal, err = s.ledger.Count(ctx, scope, previous); err != nil {
		return windowStats{}, err
	}
	if stats.PrevHigh, err = s.ledger.Count(ctx, scope, withSeverity(previous, models.SeverityHigh)); err != nil {
		return windowStats{}, err
	}
	if stats.PrevAdmin, err = s.ledger.Count(ctx, scope, withActor(previous, models.ActorAdmin)); err != nil {
		return windowStats{}, err
	}
	if stats.PrevSystem, err = s.ledger.Count(ctx, scope, withActor(previous, models.ActorSystem)); err != nil {
		return windowStats{}, err
	}

	if stats.Total > 0 {
		stats.HighPct = roundPct(stats.High, stats.Total)
		stats.AdminPct = roundPct(stats.Admin, stats.Total)
		stats.SystemPct = roundPct(stats.System, stats.Total)
	}

	if stats.HighByActor, err = s.ledger.HighSeverityByActor(ctx, scope, start); err != nil {
		return windowStats{}, err
	}
	if stats.ActionCounts, err = s.ledger.ActionCounts(ctx, scope, start); err != nil {
		return windowStats{}, err
	}

	return stats, nil
}

// MarkSeen flips the seen flag. Marking an already seen insight reports no
// change and is not an error.
func (s *insightService) MarkSeen(ctx context.Context, id uint) (bool, error) {
	changed, err := s.insights.MarkSeen(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrInsightNotFound
		}
		return false, err
	}
	return changed, nil
}

// Archive retires an insight from the active feed. One-way: there is no
// unarchive path in normal operation.
func (s *insightService) Archive(ctx context.Context, capability Capability, id uint) error {
	if !capability.Privileged {
		return ErrNotPermitted
	}

	if err := s.insights.Archive(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInsightNotFound
		}
		return err
	}
	return nil
}

func (s *insightService) List(ctx context.Context, req dto.InsightListRequest) (dto.InsightListResponse, error) {
	filter := repository.InsightFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Severity: req.Severity,
		Type:     req.Type,
		Seen:     req.Seen,
		Archived: req.Archived,
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	insights, total, err := s.insights.List(ctx, filter)
	if err != nil {
		return dto.InsightListResponse{}, err
	}

	items := make([]dto.InsightResponse, 0, len(insights))
	for _, insight := range insights {
		items = append(items, dto.NewInsightResponse(insight))
	}

	return dto.InsightListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       maxInt(req.Page, 1),
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
		},
	}, nil
}

func (s *insightService) ListActive(ctx context.Context) ([]dto.InsightResponse, error) {
	insights, err := s.insights.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]dto.InsightResponse, 0, len(insights))
	for _, insight := range insights {
		items = append(items, dto.NewInsightResponse(insight))
	}
	return items, nil
}

func withSeverity(filter repository.CountFilter, severity string) repository.CountFilter {
	filter.Severity = severity
	return filter
}

func withActor(filter repository.CountFilter, actorType string) repository.CountFilter {
	filter.ActorType = actorType
	return filter
}

func withBulk(filter repository.CountFilter) repository.CountFilter {
	filter.BulkOnly = true
	return filter
}

// signedGrowth is the unclamped growth percentage used where decreases are
// meaningful.
func signedGrowth(previous, current int64) int {
	if previous <= 0 {
		return 0
	}
	return int(math.Round((float64(current-previous) / float64(previous)) * 100))
}

func roundPct(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round((float64(part) / float64(total)) * 100))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
