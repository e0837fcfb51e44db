package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marketbay/audit-api/internal/middleware"
	"github.com/marketbay/audit-api/internal/models"
	"github.com/marketbay/audit-api/internal/repository"
	"github.com/marketbay/audit-api/internal/service"
)

// stubAuth stands in for JWTProtected: it binds a fixed actor to the request.
func stubAuth(adminID uint, privileged bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("admin_id", adminID)
		c.Locals("privileged", privileged)
		return c.Next()
	}
}

func newLedgerApp(t *testing.T, adminID uint, privileged bool) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ActivityRecord{}))

	svc := service.NewLedgerService(
		repository.NewLedgerRepository(db),
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)

	app := fiber.New()
	group := app.Group("/audit-records", stubAuth(adminID, privileged))
	NewLedgerHandler(svc, zerolog.Nop()).Register(group, middleware.RequirePrivileged())

	return app, db
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var payload struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Data
}

func TestLedgerHandlerAppend(t *testing.T) {
	app, db := newLedgerApp(t, 7, false)

	resp := postJSON(t, app, "/audit-records", map[string]interface{}{
		"action":     "Locked user account",
		"actor_type": "admin",
		"reason":     "Too many failed logins",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	data := decodeData(t, resp)
	require.Equal(t, "HIGH", data["severity"])
	require.Regexp(t, `^AL-[0-9A-F]{10}$`, data["record_ref"])

	var record models.ActivityRecord
	require.NoError(t, db.First(&record).Error)
	require.NotNil(t, record.AdminID)
	require.Equal(t, uint(7), *record.AdminID)

	// Malformed payloads are rejected before anything is written.
	resp = postJSON(t, app, "/audit-records", map[string]interface{}{"action": "x"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLedgerHandlerArchiveStatuses(t *testing.T) {
	app, db := newLedgerApp(t, 7, false)

	record := models.ActivityRecord{Action: "Admin login", Severity: models.SeverityLow, ActorType: models.ActorAdmin}
	require.NoError(t, db.Create(&record).Error)

	resp := postJSON(t, app, fmt.Sprintf("/audit-records/%d/archive", record.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "archived", decodeData(t, resp)["status"])

	resp = postJSON(t, app, fmt.Sprintf("/audit-records/%d/archive", record.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "already_archived", decodeData(t, resp)["status"])

	resp = postJSON(t, app, "/audit-records/9999/archive", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLedgerHandlerPrivilegedRoutes(t *testing.T) {
	app, db := newLedgerApp(t, 7, false)

	record := models.ActivityRecord{Action: "Admin login", Severity: models.SeverityLow, ActorType: models.ActorAdmin, IsArchived: true}
	require.NoError(t, db.Create(&record).Error)

	resp := postJSON(t, app, fmt.Sprintf("/audit-records/%d/unarchive", record.ID), nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, app, "/audit-records/archive-bulk", map[string]interface{}{"record_ids": []uint{record.ID}})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	superApp, superDB := newLedgerApp(t, 7, true)
	archived := models.ActivityRecord{Action: "Admin login", Severity: models.SeverityLow, ActorType: models.ActorAdmin, IsArchived: true}
	require.NoError(t, superDB.Create(&archived).Error)

	resp = postJSON(t, superApp, fmt.Sprintf("/audit-records/%d/unarchive", archived.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "unarchived", decodeData(t, resp)["status"])
}

func TestLedgerHandlerGetScopesToCapability(t *testing.T) {
	app, db := newLedgerApp(t, 7, false)

	system := models.ActivityRecord{Action: "System cleanup: expired OTPs", Severity: models.SeverityLow, ActorType: models.ActorSystem}
	require.NoError(t, db.Create(&system).Error)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/audit-records/%d", system.ID), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
