package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"waffle-pos-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL())
	assert.True(t, cfg.UsesDefaultDSN())

	methods, err := cfg.TrackedMethods()
	require.NoError(t, err)
	assert.Equal(t, models.PaymentMethods, methods)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
http_port: "9090"
storage:
  backend: postgres
database:
  dsn: postgres://pos@db/pos
auth:
  jwt_secret: `+testSecret+`
  token_ttl_hours: 4
ledger:
  tracked_payment_methods: [cash, credit_card]
  stale_shift_after_hours: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://pos@db/pos", cfg.Database.DSN)
	assert.Equal(t, 4*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 10*time.Hour, cfg.StaleShiftAfter())

	methods, err := cfg.TrackedMethods()
	require.NoError(t, err)
	assert.Equal(t, []models.PaymentMethod{models.PaymentCash, models.PaymentCreditCard}, methods)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
http_port = "7070"

[storage]
backend = "firestore"
firestore_project = "waffle-dev"

[auth]
jwt_secret = "`+testSecret+`"

[metrics]
enabled = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, BackendFirestore, cfg.Storage.Backend)
	assert.Equal(t, "waffle-dev", cfg.Storage.FirestoreProject)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "http_port: \"9090\"\nauth:\n  jwt_secret: "+testSecret+"\n")
	t.Setenv("HTTP_PORT", "6060")
	t.Setenv("TRACKED_PAYMENT_METHODS", "cash, online")
	t.Setenv("METRICS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "6060", cfg.HTTPPort)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"cash", "online"}, cfg.Ledger.TrackedPaymentMethods)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }},
		{"firestore without project", func(c *Config) { c.Storage.Backend = BackendFirestore }},
		{"unknown tracked method", func(c *Config) { c.Ledger.TrackedPaymentMethods = []string{"cash", "barter"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.JWTSecret = testSecret
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "config.ini", "x=1")
	_, err := Load(path)
	assert.Error(t, err)
}
