package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"waffle-pos-backend/internal/audit"
	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"
	"waffle-pos-backend/internal/repository/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boss = models.Identity{UserID: "admin-1", Name: "Boss", Role: models.RoleAdmin}

func newAdminApp(t *testing.T) (*fiber.App, *auth.JWTProvider, repository.AuditRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	auditRepo := memory.NewAuditRepository()
	provider := auth.NewJWTProvider("0123456789abcdef0123456789abcdef", time.Hour)

	app := fiber.New()
	admin := app.Group("/api/admin", auth.JWTMiddleware(provider), auth.RequireRole(models.RoleAdmin))
	admin.Post("/users", CreateUserHandler(users, audit.NewService(auditRepo)))
	admin.Get("/users", ListUsersHandler(users))
	admin.Get("/users/:id", GetUserHandler(users))
	return app, provider, auditRepo
}

func request(t *testing.T, app *fiber.App, provider *auth.JWTProvider, who models.Identity, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, err := provider.Issue(who)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestCreateAndListUsers(t *testing.T) {
	app, provider, auditRepo := newAdminApp(t)

	resp := request(t, app, provider, boss, http.MethodPost, "/api/admin/users", CreateUserRequest{
		Name: "Ana", Email: "Ana@Waffle.test", Password: "secret-pass",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "ana@waffle.test", created.Email)
	assert.Equal(t, models.RoleCashier, created.Role)

	resp = request(t, app, provider, boss, http.MethodPost, "/api/admin/users", CreateUserRequest{
		Name: "Ana Again", Email: "ana@waffle.test", Password: "secret-pass",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = request(t, app, provider, boss, http.MethodPost, "/api/admin/users", CreateUserRequest{
		Name: "Mia", Email: "mia@waffle.test", Password: "secret-pass", Role: "owner",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = request(t, app, provider, boss, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)

	resp = request(t, app, provider, boss, http.MethodGet, "/api/admin/users/"+created.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = request(t, app, provider, boss, http.MethodGet, "/api/admin/users/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	logs, err := auditRepo.List(context.Background(), repository.AuditFilter{EntityType: "user"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, created.ID, logs[0].EntityID)
	assert.NotContains(t, logs[0].AfterData, "password")
}

func TestUserRoutes_AdminOnly(t *testing.T) {
	app, provider, _ := newAdminApp(t)
	manager := models.Identity{UserID: "manager-1", Name: "Mia", Role: models.RoleManager}

	resp := request(t, app, provider, manager, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
