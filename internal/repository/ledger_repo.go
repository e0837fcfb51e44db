package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/marketbay/audit-api/internal/models"
)

// LedgerFilter narrows ledger list queries.
type LedgerFilter struct {
	Page         int
	PageSize     int
	Action       string // substring match
	Severity     string
	ActorType    string
	IsBulk       *bool
	Archived     *bool
	AdminID      *uint
	TargetUserID *uint
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// Scope narrows every ledger read performed on behalf of a caller.
// Non-privileged callers only see non-bulk admin activity.
type Scope struct {
	RestrictToAdmin bool
}

// CountFilter selects the slice of the ledger counted by Count.
type CountFilter struct {
	Severity  string
	ActorType string
	BulkOnly  bool
	From      *time.Time
	To        *time.Time
}

// ActionCount is one row of the per-action frequency breakdown.
type ActionCount struct {
	Action string
	Count  int64
}

// ActorCount is one row of a per-actor-kind breakdown.
type ActorCount struct {
	ActorType string
	Count     int64
}

// ActorTrendRow is one day of the admin-versus-system activity series.
type ActorTrendRow struct {
	Day       string
	ActorType string
	Count     int64
}

// LedgerMetrics summarises the ledger for the dashboard header.
type LedgerMetrics struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Archived int64 `json:"archived"`
	High     int64 `json:"high"`
	System   int64 `json:"system"`
	Last24h  int64 `json:"last_24h"`
}

// LedgerRepository persists the append-only activity ledger. Append and the
// archived-flag writes are the only mutations it exposes; Update and Delete
// exist for the retention sweep and validate the immutability and
// archived-only-deletion invariants before anything reaches storage.
type LedgerRepository interface {
	Append(ctx context.Context, record *models.ActivityRecord) error
	FindByID(ctx context.Context, id uint) (models.ActivityRecord, error)
	SetArchived(ctx context.Context, id uint, archived bool) (bool, error)
	SetArchivedBulk(ctx context.Context, ids []uint) (int64, error)
	Update(ctx context.Context, id uint, changes map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, scope Scope, filter LedgerFilter) ([]models.ActivityRecord, int64, error)
	Count(ctx context.Context, scope Scope, filter CountFilter) (int64, error)
	HighSeverityByActor(ctx context.Context, scope Scope, from time.Time) ([]ActorCount, error)
	ActionCounts(ctx context.Context, scope Scope, from time.Time) ([]ActionCount, error)
	Metrics(ctx context.Context, scope Scope, now time.Time) (LedgerMetrics, error)
	ActorTrend(ctx context.Context, from time.Time) ([]ActorTrendRow, error)
	ArchiveExpired(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeArchived(ctx context.Context, cutoff time.Time) (int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository constructs the ledger repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, record *models.ActivityRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *ledgerRepository) FindByID(ctx context.Context, id uint) (models.ActivityRecord, error) {
	var record models.ActivityRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	return record, err
}

// SetArchived flips the archived flag and reports whether a change occurred.
// Flipping to the current value is a no-op success, never an error.
func (r *ledgerRepository) SetArchived(ctx context.Context, id uint, archived bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ActivityRecord{}).
		Where("id = ? AND is_archived = ?", id, !archived).
		Update("is_archived", archived)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Nothing flipped: distinguish "already in that state" from "missing".
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ActivityRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}

func (r *ledgerRepository) SetArchivedBulk(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.ActivityRecord{}).
		Where("id IN ? AND is_archived = ?", ids, false).
		Update("is_archived", true)
	return result.RowsAffected, result.Error
}

// allowedLedgerColumns is the pre-commit allow-list consulted by Update.
var allowedLedgerColumns = map[string]struct{}{
	"is_archived": {},
}

// Update applies a column-level change set after validating it against the
// immutability allow-list. The check runs before the write is issued so a
// rejected change set never reaches storage.
func (r *ledgerRepository) Update(ctx context.Context, id uint, changes map[string]interface{}) error {
	for column := range changes {
		if _, ok := allowedLedgerColumns[column]; !ok {
			return models.ErrRecordImmutable
		}
	}
	if len(changes) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Model(&models.ActivityRecord{}).
		Where("id = ?", id).
		Updates(changes).Error
}

// Delete removes a single record, permitted only once it has been archived.
func (r *ledgerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.ActivityRecord
		if err := tx.First(&record, id).Error; err != nil {
			return err
		}
		if !record.IsArchived {
			return models.ErrRecordProtected
		}
		return tx.Delete(&record).Error
	})
}

func applyScope(query *gorm.DB, scope Scope) *gorm.DB {
	if scope.RestrictToAdmin {
		query = query.Where("actor_type = ? AND is_bulk = ?", models.ActorAdmin, false)
	}
	return query
}

func (r *ledgerRepository) List(ctx context.Context, scope Scope, filter LedgerFilter) ([]models.ActivityRecord, int64, error) {
	query := applyScope(r.db.WithContext(ctx).Model(&models.ActivityRecord{}), scope)

	if filter.Action != "" {
		query = query.Where("action LIKE ?", "%"+filter.Action+"%")
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ActorType != "" {
		query = query.Where("actor_type = ?", filter.ActorType)
	}
	if filter.IsBulk != nil {
		query = query.Where("is_bulk = ?", *filter.IsBulk)
	}
	if filter.Archived != nil {
		query = query.Where("is_archived = ?", *filter.Archived)
	}
	if filter.AdminID != nil {
		query = query.Where("admin_id = ?", *filter.AdminID)
	}
	if filter.TargetUserID != nil {
		query = query.Where("target_user_id = ?", *filter.TargetUserID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", *filter.CreatedTo)
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

	var records []models.ActivityRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *ledgerRepository) Count(ctx context.Context, scope Scope, filter CountFilter) (int64, error) {
	query := applyScope(r.db.WithContext(ctx).Model(&models.ActivityRecord{}), scope)

	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ActorType != "" {
		query = query.Where("actor_type = ?", filter.ActorType)
	}
	if filter.BulkOnly {
		query = query.Where("is_bulk = ?", true)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *ledgerRepository) HighSeverityByActor(ctx context.Context, scope Scope, from time.Time) ([]ActorCount, error) {
	var rows []ActorCount
	query := applyScope(r.db.WithContext(ctx).Model(&models.ActivityRecord{}), scope)
	err := query.
		Select("actor_type, COUNT(id) AS count").
		Where("severity = ? AND created_at >= ?", models.SeverityHigh, from).
		Group("actor_type").
		Scan(&rows).Error
	return rows, err
}

func (r *ledgerRepository) ActionCounts(ctx context.Context, scope Scope, from time.Time) ([]ActionCount, error) {
	var rows []ActionCount
	query := applyScope(r.db.WithContext(ctx).Model(&models.ActivityRecord{}), scope)
	err := query.
		Select("action, COUNT(id) AS count").
		Where("created_at >= ?", from).
		Group("action").
		Scan(&rows).Error
	return rows, err
}

func (r *ledgerRepository) Metrics(ctx context.Context, scope Scope, now time.Time) (LedgerMetrics, error) {
	var metrics LedgerMetrics

	base := func() *gorm.DB {
		return applyScope(r.db.WithContext(ctx).Model(&models.ActivityRecord{}), scope)
	}

	if err := base().Count(&metrics.Total).Error; err != nil {
		return LedgerMetrics{}, err
	}
	if err := base().Where("is_archived = ?", false).Count(&metrics.Active).Error; err != nil {
		return LedgerMetrics{}, err
	}
	if err := base().Where("is_archived = ?", true).Count(&metrics.Archived).Error; err != nil {
		return LedgerMetrics{}, err
	}
	if err := base().Where("severity = ?", models.SeverityHigh).Count(&metrics.High).Error; err != nil {
		return LedgerMetrics{}, err
	}
	if err := base().Where("actor_type = ?", models.ActorSystem).Count(&metrics.System).Error; err != nil {
		return LedgerMetrics{}, err
	}
	if err := base().Where("created_at >= ?", now.Add(-24*time.Hour)).Count(&metrics.Last24h).Error; err != nil {
		return LedgerMetrics{}, err
	}

	return metrics, nil
}

func (r *ledgerRepository) ActorTrend(ctx context.Context, from time.Time) ([]ActorTrendRow, error) {
	var rows []ActorTrendRow
	err := r.db.WithContext(ctx).Model(&models.ActivityRecord{}).
		Select("DATE(created_at) AS day, actor_type, COUNT(id) AS count").
		Where("created_at >= ?", from).
		Group("DATE(created_at), actor_type").
		Order("DATE(created_at)").
		Scan(&rows).Error
	return rows, err
}

// ArchiveExpired flips every record past the retention cutoff in one batch.
// HIGH severity and system-originated entries are deliberately excluded from
// automatic retirement.
func (r *ledgerRepository) ArchiveExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ActivityRecord{}).
		Where("created_at < ? AND is_archived = ? AND severity <> ? AND actor_type <> ?",
			cutoff, false, models.SeverityHigh, models.ActorSystem).
		Update("is_archived", true)
	return result.RowsAffected, result.Error
}

// PurgeArchived permanently removes archived records older than the purge
// cutoff. Records are deleted one by one inside a single transaction so the
// archived-only invariant is re-validated per row and a failure rolls back
// the whole run.
func (r *ledgerRepository) PurgeArchived(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expired []models.ActivityRecord
		if err := tx.
			Where("is_archived = ? AND created_at < ?", true, cutoff).
			Find(&expired).Error; err != nil {
			return err
		}

		for i := range expired {
			if !expired[i].IsArchived {
				return models.ErrRecordProtected
			}
			if err := tx.Delete(&expired[i]).Error; err != nil {
				return err
			}
		}

		purged = int64(len(expired))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}
