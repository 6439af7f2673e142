package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"waffle-pos-backend/internal/models"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type Config struct {
	HTTPPort    string `yaml:"http_port" toml:"http_port"`
	CORSOrigins string `yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`

	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Ledger   LedgerConfig   `yaml:"ledger" toml:"ledger"`
}

type StorageConfig struct {
	Backend          string `yaml:"backend" toml:"backend"` // memory | postgres | firestore
	FirestoreProject string `yaml:"firestore_project" toml:"firestore_project"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret" toml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours" toml:"token_ttl_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // json | console
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

type LedgerConfig struct {
	// TrackedPaymentMethods are the keys folded into the per-method sales
	// breakdown. Sales in other recognized methods land in UntrackedSales.
	TrackedPaymentMethods []string `yaml:"tracked_payment_methods" toml:"tracked_payment_methods"`
	StaleShiftAfterHours  int      `yaml:"stale_shift_after_hours" toml:"stale_shift_after_hours"`
	StaleShiftSchedule    string   `yaml:"stale_shift_schedule" toml:"stale_shift_schedule"`
}

const defaultDSN = "host=localhost user=postgres password=postgres dbname=waffle_pos port=5432 sslmode=disable"

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	methods := make([]string, 0, len(models.PaymentMethods))
	for _, m := range models.PaymentMethods {
		methods = append(methods, string(m))
	}
	return &Config{
		HTTPPort:    "8080",
		CORSOrigins: "http://localhost:5173",
		Storage:     StorageConfig{Backend: BackendMemory},
		Database:    DatabaseConfig{DSN: defaultDSN},
		Auth:        AuthConfig{TokenTTLHours: 12},
		Log:         LogConfig{Level: "info", Format: "console"},
		Ledger: LedgerConfig{
			TrackedPaymentMethods: methods,
			StaleShiftAfterHours:  14,
			StaleShiftSchedule:    "0 */15 * * * *",
		},
	}
}

// Load builds the config from defaults, an optional YAML or TOML file, and
// environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
		}
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) overrideWithEnv() {
	if v := os.Getenv("HTTP_PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSOrigins = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("FIRESTORE_PROJECT"); v != "" {
		c.Storage.FirestoreProject = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("TRACKED_PAYMENT_METHODS"); v != "" {
		parts := strings.Split(v, ",")
		c.Ledger.TrackedPaymentMethods = c.Ledger.TrackedPaymentMethods[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				c.Ledger.TrackedPaymentMethods = append(c.Ledger.TrackedPaymentMethods, p)
			}
		}
	}
}

// Validate checks required values and fills derived defaults.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("http port is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 12
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for the postgres backend")
		}
	case BackendFirestore:
		if c.Storage.FirestoreProject == "" {
			return fmt.Errorf("firestore project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if _, err := c.TrackedMethods(); err != nil {
		return err
	}
	if c.Ledger.StaleShiftAfterHours <= 0 {
		c.Ledger.StaleShiftAfterHours = 14
	}
	if c.Ledger.StaleShiftSchedule == "" {
		c.Ledger.StaleShiftSchedule = "0 */15 * * * *"
	}
	return nil
}

// TrackedMethods parses the configured tracked payment methods.
func (c *Config) TrackedMethods() ([]models.PaymentMethod, error) {
	out := make([]models.PaymentMethod, 0, len(c.Ledger.TrackedPaymentMethods))
	for _, s := range c.Ledger.TrackedPaymentMethods {
		m, err := models.ParsePaymentMethod(s)
		if err != nil {
			return nil, fmt.Errorf("tracked payment methods: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c *Config) StaleShiftAfter() time.Duration {
	return time.Duration(c.Ledger.StaleShiftAfterHours) * time.Hour
}

// UsesDefaultDSN is true when the postgres DSN was never overridden.
func (c *Config) UsesDefaultDSN() bool {
	return c.Database.DSN == defaultDSN
}
