package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"o2d-backend/internal/models"
	"o2d-backend/internal/testutil"
)

func TestWriteLog_NilDB(t *testing.T) {
	assert.NoError(t, WriteLog(context.Background(), nil, LogOptions{Action: models.AuditActionUpdate}))
}

func TestListAuditLogsHandler_NotConfigured(t *testing.T) {
	app := fiber.New()
	app.Get("/audit-logs", ListAuditLogsHandler(nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWriteAndList(t *testing.T) {
	db := testutil.OpenDB(t, &models.AuditLog{})
	ctx := context.Background()

	require.NoError(t, WriteLog(ctx, db, LogOptions{
		UserID:     "ravi",
		UserName:   "Ravi",
		EntityType: "FMS",
		EntityID:   12,
		Action:     models.AuditActionUpdate,
		After:      []any{"", "2025-08-19"},
	}))
	require.NoError(t, WriteLog(ctx, db, LogOptions{
		UserID:     "admin",
		EntityType: "Complaint-Form",
		EntityID:   3,
		Action:     models.AuditActionCreate,
	}))

	logs, err := List(ctx, db, Query{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Complaint-Form", logs[0].EntityType)
	assert.Equal(t, "null", logs[0].AfterData)

	app := fiber.New()
	app.Get("/audit-logs", ListAuditLogsHandler(db))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs?sheet=FMS", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []AuditLogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, 12, out[0].EntityID)
	assert.JSONEq(t, `["","2025-08-19"]`, out[0].AfterData)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs?row=x", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
