package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/marketbay/audit-api/internal/models"
)

// InsightFilter narrows insight list queries.
type InsightFilter struct {
	Page     int
	PageSize int
	Severity string
	Type     string
	Seen     *bool
	Archived *bool
}

// InsightRepository persists generated risk insights. Deduplication happens
// at insert time: Upsert keeps the ledger of observations free of repeated
// messages without ever mutating an existing row.
type InsightRepository interface {
	Upsert(ctx context.Context, insight *models.RiskInsight) (bool, error)
	FindByID(ctx context.Context, id uint) (models.RiskInsight, error)
	MarkSeen(ctx context.Context, id uint) (bool, error)
	Archive(ctx context.Context, id uint) error
	List(ctx context.Context, filter InsightFilter) ([]models.RiskInsight, int64, error)
	ListActive(ctx context.Context) ([]models.RiskInsight, error)
}

type insightRepository struct {
	db *gorm.DB
}

// NewInsightRepository constructs the insight repository.
func NewInsightRepository(db *gorm.DB) InsightRepository {
	return &insightRepository{db: db}
}

// Upsert stores the insight unless a live row already carries the identical
// message. It reports whether a new row was created.
func (r *insightRepository) Upsert(ctx context.Context, insight *models.RiskInsight) (bool, error) {
	var existing models.RiskInsight
	err := r.db.WithContext(ctx).
		Where("message = ?", insight.Message).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := r.db.WithContext(ctx).Create(insight).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *insightRepository) FindByID(ctx context.Context, id uint) (models.RiskInsight, error) {
	var insight models.RiskInsight
	err := r.db.WithContext(ctx).First(&insight, id).Error
	return insight, err
}

// MarkSeen flips the seen flag and reports whether a change occurred.
func (r *insightRepository) MarkSeen(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RiskInsight{}).
		Where("id = ? AND is_seen = ?", id, false).
		Update("is_seen", true)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RiskInsight{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}

func (r *insightRepository) Archive(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.RiskInsight{}).
		Where("id = ?", id).
		Update("is_archived", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *insightRepository) List(ctx context.Context, filter InsightFilter) ([]models.RiskInsight, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RiskInsight{})

	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Type != "" {
		query = query.Where("insight_type = ?", filter.Type)
	}
	if filter.Seen != nil {
		query = query.Where("is_seen = ?", *filter.Seen)
	}
	if filter.Archived != nil {
		query = query.Where("is_archived = ?", *filter.Archived)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var insights []models.RiskInsight
	if err := query.Order("generated_at DESC").Find(&insights).Error; err != nil {
		return nil, 0, err
	}

	return insights, total, nil
}

func (r *insightRepository) ListActive(ctx context.Context) ([]models.RiskInsight, error) {
	var insights []models.RiskInsight
	err := r.db.WithContext(ctx).
		Where("is_archived = ?", false).
		Order("generated_at DESC").
		Find(&insights).Error
	return insights, err
}
