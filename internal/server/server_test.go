package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"waffle-pos-backend/internal/audit"
	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/cashregister"
	"waffle-pos-backend/internal/config"
	"waffle-pos-backend/internal/repository/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Metrics.Enabled = true
	require.NoError(t, cfg.Validate())

	store := memory.NewStore()
	auditSvc := audit.NewService(store.Audit)
	return NewApp(Deps{
		Config:   cfg,
		Store:    store,
		Provider: auth.NewJWTProvider(cfg.Auth.JWTSecret, time.Hour),
		Audit:    auditSvc,
		Shifts:   cashregister.NewService(store.Shifts, auditSvc),
	})
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, fiber.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestErrorBody(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/api/shifts/current", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "missing Authorization header", body["error"])
}

func TestEndToEndShift(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodPost, "/api/auth/register-admin", "", map[string]string{
		"name": "Boss", "email": "boss@waffle.test", "password": "boss-pass-1",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body := call(t, app, http.MethodPost, "/api/auth/register-admin", "", map[string]string{
		"name": "Other", "email": "other@waffle.test", "password": "other-pass-1",
	})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.NotEmpty(t, body["error"])

	adminToken := login(t, app, "boss@waffle.test", "boss-pass-1")

	status, _ = call(t, app, http.MethodPost, "/api/admin/users", adminToken, map[string]string{
		"name": "Ana", "email": "ana@waffle.test", "password": "cashier-pass",
	})
	require.Equal(t, fiber.StatusCreated, status)

	cashierToken := login(t, app, "ana@waffle.test", "cashier-pass")

	status, _ = call(t, app, http.MethodGet, "/api/admin/users", cashierToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = call(t, app, http.MethodPost, "/api/shifts/open", cashierToken, map[string]string{
		"opening_cash_amount": "50000",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	shiftID, _ := body["id"].(string)
	require.NotEmpty(t, shiftID)

	status, body = call(t, app, http.MethodPost, "/api/order-events", cashierToken, map[string]any{
		"order_id": "order-1", "type": "completed", "total": "15000", "tip": "1000", "payment_method": "cash",
	})
	require.Equal(t, fiber.StatusCreated, status, body)

	status, body = call(t, app, http.MethodPost, "/api/shifts/"+shiftID+"/close", cashierToken, map[string]string{
		"closing_cash_amount": "65000",
	})
	require.Equal(t, fiber.StatusOK, status, body)

	status, body = call(t, app, http.MethodGet, "/api/shifts/"+shiftID, cashierToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "closed", body["status"])
	assert.Equal(t, "65000", body["expected_cash"])

	status, body = call(t, app, http.MethodGet, "/api/dashboard/sales-chart?period=daily&count=1", cashierToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	grand, _ := body["grand_totals"].(map[string]any)
	assert.Equal(t, "15000", grand["sales"])

	status, _ = call(t, app, http.MethodGet, "/api/audit-logs", cashierToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = call(t, app, http.MethodGet, "/api/audit-logs", adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
}
