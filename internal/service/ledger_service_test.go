package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marketbay/audit-api/internal/dto"
	"github.com/marketbay/audit-api/internal/models"
	"github.com/marketbay/audit-api/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ActivityRecord{}, &models.RiskInsight{}, &models.OTP{}))
	return db
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestLedgerServiceAppendMapsSeverityFromAction(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLedgerService(repository.NewLedgerRepository(db), newTestValidator(), testLogger())

	actor := ActorContext{AdminID: 7, IPAddress: "203.0.113.9", UserAgent: "audit-cli/1.0"}
	record, err := svc.Append(context.Background(), actor, dto.LedgerAppendRequest{
		Action:    "Locked user account",
		ActorType: models.ActorAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, models.SeverityHigh, record.Severity)
	require.Regexp(t, `^AL-[0-9A-F]{10}$`, record.RecordRef)
	require.NotNil(t, record.AdminID)
	require.Equal(t, uint(7), *record.AdminID)
	require.Equal(t, "203.0.113.9", record.IPAddress)
	require.Equal(t, "audit-cli/1.0", record.UserAgent)

	record, err = svc.Append(context.Background(), actor, dto.LedgerAppendRequest{
		Action:    "Unlocked user account",
		ActorType: models.ActorAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, models.SeverityMedium, record.Severity)

	record, err = svc.Append(context.Background(), actor, dto.LedgerAppendRequest{
		Action:    "Viewed dashboard",
		ActorType: models.ActorAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, models.SeverityLow, record.Severity)

	// Explicit severity wins over the action mapping.
	record, err = svc.Append(context.Background(), actor, dto.LedgerAppendRequest{
		Action:    "Locked user account",
		Severity:  models.SeverityCritical,
		ActorType: models.ActorAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, models.SeverityCritical, record.Severity)
}

func TestLedgerServiceAppendMasksSensitiveMetadata(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLedgerService(repository.NewLedgerRepository(db), newTestValidator(), testLogger())

	record, err := svc.Append(context.Background(), ActorContext{AdminID: 1}, dto.LedgerAppendRequest{
		Action:    "Reset user password",
		ActorType: models.ActorAdmin,
		Metadata: map[string]interface{}{
			"new_password": "hunter2",
			"api_token":    "abc123",
			"ClientSecret": "xyz",
			"target":       "user-42",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", record.Metadata["new_password"])
	require.Equal(t, "***", record.Metadata["api_token"])
	require.Equal(t, "***", record.Metadata["ClientSecret"])
	require.Equal(t, "user-42", record.Metadata["target"])
}

func TestLedgerServiceAppendRequiresAdminAttribution(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLedgerService(repository.NewLedgerRepository(db), newTestValidator(), testLogger())

	_, err := svc.Append(context.Background(), ActorContext{}, dto.LedgerAppendRequest{
		Action:    "Locked user account",
		ActorType: models.ActorAdmin,
	})
	require.Error(t, err)

	// Validation rejects malformed payloads before anything is written.
	_, err = svc.Append(context.Background(), ActorContext{AdminID: 1}, dto.LedgerAppendRequest{
		Action:    "x",
		ActorType: models.ActorAdmin,
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.ActivityRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestLedgerServiceRecordSystemSkipsOriginContext(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLedgerService(repository.NewLedgerRepository(db), newTestValidator(), testLogger())

	require.NoError(t, svc.RecordSystem(context.Background(), "System cleanup: expired OTPs", "", "Removed 3 expired/used OTP records", true))

	var record models.ActivityRecord
	require.NoError(t, db.First(&record).Error)
	require.Equal(t, models.ActorSystem, record.ActorType)
	require.Equal(t, models.SeverityLow, record.Severity)
	require.True(t, record.IsBulk)
	require.Nil(t, record.AdminID)
	require.Empty(t, record.IPAddress)
	require.Empty(t, record.UserAgent)
}

func TestLedgerServiceGetHidesRestrictedRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLedgerRepository(db)
	svc := NewLedgerService(repo, newTestValidator(), testLogger())

	systemRecord := models.ActivityRecord{Action: "Auto archived audit records (retention policy)", Severity: models.SeverityLow, ActorType: models.ActorSystem, IsBulk: true}
	require.NoError(t, db.Create(&systemRecord).Error)

	_, err := svc.Get(context.Background(), Capability{}, systemRecord.ID)
	require.ErrorIs(t, err, ErrRecordNotFound)

	record, err := svc.Get(context.Background(), Capability{Privileged: true}, systemRecord.ID)
	require.NoError(t, err)
	require.Equal(t, systemRecord.ID, record.ID)

	_, err = svc.Get(context.Background(), Capability{Privileged: true}, 9999)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLedgerServiceBulkArchiveRequiresPrivilege(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLedgerService(repository.NewLedgerRepository(db), newTestValidator(), testLogger())

	_, err := svc.BulkArchive(context.Background(), Capability{}, dto.BulkArchiveRequest{RecordIDs: []uint{1}})
	require.ErrorIs(t, err, ErrNotPermitted)

	_, err = svc.Unarchive(context.Background(), Capability{}, 1)
	require.ErrorIs(t, err, ErrNotPermitted)

	_, err = svc.ActorTrend(context.Background(), Capability{}, 7)
	require.ErrorIs(t, err, ErrNotPermitted)
}

func TestLedgerServiceBulkArchiveWritesSummaryRecord(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLedgerService(repository.NewLedgerRepository(db), newTestValidator(), testLogger())

	ids := make([]uint, 0, 3)
	for i := 0; i < 3; i++ {
		record := models.ActivityRecord{Action: "Admin login", Severity: models.SeverityLow, ActorType: models.ActorAdmin}
		require.NoError(t, db.Create(&record).Error)
		ids = append(ids, record.ID)
	}

	archived, err := svc.BulkArchive(context.Background(), Capability{Privileged: true}, dto.BulkArchiveRequest{RecordIDs: ids})
	require.NoError(t, err)
	require.Equal(t, int64(3), archived)

	var summary models.ActivityRecord
	require.NoError(t, db.Where("action = ?", "Bulk archived audit records").First(&summary).Error)
	require.Equal(t, models.ActorSystem, summary.ActorType)
	require.True(t, summary.IsBulk)
	require.Equal(t, "Bulk archived 3 records", summary.Reason)

	// Re-archiving already archived records changes nothing and writes no
	// second summary.
	archived, err = svc.BulkArchive(context.Background(), Capability{Privileged: true}, dto.BulkArchiveRequest{RecordIDs: ids})
	require.NoError(t, err)
	require.Zero(t, archived)

	var summaries int64
	require.NoError(t, db.Model(&models.ActivityRecord{}).Where("action = ?", "Bulk archived audit records").Count(&summaries).Error)
	require.Equal(t, int64(1), summaries)
}

func TestLedgerServiceListScopesToCapability(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLedgerService(repository.NewLedgerRepository(db), newTestValidator(), testLogger())

	adminID := uint(1)
	records := []models.ActivityRecord{
		{Action: "Admin login", Severity: models.SeverityLow, ActorType: models.ActorAdmin, AdminID: &adminID},
		{Action: "Bulk archived audit records", Severity: models.SeverityLow, ActorType: models.ActorAdmin, AdminID: &adminID, IsBulk: true},
		{Action: "Auto archived audit records (retention policy)", Severity: models.SeverityLow, ActorType: models.ActorSystem, IsBulk: true},
	}
	for i := range records {
		require.NoError(t, db.Create(&records[i]).Error)
	}

	response, err := svc.List(context.Background(), Capability{Privileged: true}, dto.LedgerListRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(3), response.Pagination.TotalItems)
	require.Equal(t, 20, response.Pagination.PageSize)

	response, err = svc.List(context.Background(), Capability{}, dto.LedgerListRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), response.Pagination.TotalItems)
	require.Equal(t, "Admin login", response.Items[0].Action)
}

func TestLedgerServiceActorTrendGroupsByDay(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLedgerRepository(db)
	svc := NewLedgerService(repo, newTestValidator(), testLogger()).(*ledgerService)

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	seed := []models.ActivityRecord{
		{Action: "Admin login", Severity: models.SeverityLow, ActorType: models.ActorAdmin, CreatedAt: now.AddDate(0, 0, -2)},
		{Action: "Admin login", Severity: models.SeverityLow, ActorType: models.ActorAdmin, CreatedAt: now.AddDate(0, 0, -2).Add(time.Hour)},
		{Action: "System cleanup: expired OTPs", Severity: models.SeverityLow, ActorType: models.ActorSystem, CreatedAt: now.AddDate(0, 0, -1)},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	trend, err := svc.ActorTrend(context.Background(), Capability{Privileged: true}, 7)
	require.NoError(t, err)
	require.Len(t, trend.Labels, 2)
	require.Equal(t, []int64{2, 0}, trend.Admin)
	require.Equal(t, []int64{0, 1}, trend.System)
}
