package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marketbay/audit-api/internal/models"
)

func TestInsightRepositoryUpsertDeduplicatesByMessage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInsightRepository(db)

	first := models.RiskInsight{
		InsightType: models.InsightSecurity,
		Severity:    models.InsightSeverityHigh,
		Message:     "3 high-severity events in the last 24h",
		Confidence:  95,
		GeneratedAt: time.Now().UTC(),
	}
	created, err := repo.Upsert(context.Background(), &first)
	require.NoError(t, err)
	require.True(t, created)

	duplicate := models.RiskInsight{
		InsightType: models.InsightSecurity,
		Severity:    models.InsightSeverityHigh,
		Message:     "3 high-severity events in the last 24h",
		Confidence:  95,
		GeneratedAt: time.Now().UTC(),
	}
	created, err = repo.Upsert(context.Background(), &duplicate)
	require.NoError(t, err)
	require.False(t, created)

	different := models.RiskInsight{
		InsightType: models.InsightSecurity,
		Severity:    models.InsightSeverityHigh,
		Message:     "4 high-severity events in the last 24h",
		Confidence:  95,
		GeneratedAt: time.Now().UTC(),
	}
	created, err = repo.Upsert(context.Background(), &different)
	require.NoError(t, err)
	require.True(t, created)

	insights, total, err := repo.List(context.Background(), InsightFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, insights, 2)
}

func TestInsightRepositoryMarkSeenIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInsightRepository(db)

	insight := models.RiskInsight{
		InsightType: models.InsightOperational,
		Severity:    models.InsightSeverityInfo,
		Message:     "Operations running smoothly",
		GeneratedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&insight).Error)

	changed, err := repo.MarkSeen(context.Background(), insight.ID)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.MarkSeen(context.Background(), insight.ID)
	require.NoError(t, err)
	require.False(t, changed)

	_, err = repo.MarkSeen(context.Background(), 9999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInsightRepositoryListActiveExcludesArchived(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInsightRepository(db)

	active := models.RiskInsight{InsightType: models.InsightSecurity, Severity: models.InsightSeverityHigh, Message: "active one", GeneratedAt: time.Now().UTC()}
	archived := models.RiskInsight{InsightType: models.InsightSecurity, Severity: models.InsightSeverityHigh, Message: "archived one", GeneratedAt: time.Now().UTC().Add(-time.Hour)}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&archived).Error)

	require.NoError(t, repo.Archive(context.Background(), archived.ID))
	require.ErrorIs(t, repo.Archive(context.Background(), 9999), gorm.ErrRecordNotFound)

	insights, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, insights, 1)
	require.Equal(t, "active one", insights[0].Message)
}
