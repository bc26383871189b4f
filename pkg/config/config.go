// Package config loads data-terminal configuration from config.yaml with
// environment variable overrides. Secrets only come from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the data-terminal control plane.
// Environment variables always override YAML values.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Auth configuration
	Auth AuthConfig `yaml:"auth"`

	// Config-store database (PostgreSQL). Tenant stores are provisioned on the
	// same server, one database per project.
	Database DatabaseConfig `yaml:"database"`

	// Tenant store naming and provisioning
	Tenant TenantConfig `yaml:"tenant"`

	// External pipeline execution engine
	Engine EngineConfig `yaml:"engine"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	// CookieName is the cookie carrying the signed token.
	CookieName string `yaml:"cookie_name" env:"AUTH_COOKIE_NAME" env-default:"token"`

	// Secret signs and verifies tokens (HS256). Must come from the environment.
	Secret string `yaml:"-" env:"AUTH_JWT_SECRET"`

	// EncryptionKey seals datasource connection configs at rest. Optional;
	// when unset, configs are stored in plaintext.
	EncryptionKey string `yaml:"-" env:"CONFIG_ENCRYPTION_KEY"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the config store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"terminal"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"data_terminal"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// TenantConfig holds tenant store naming and sizing.
type TenantConfig struct {
	// Prefix forms tenant database names as <prefix>_<project_code>.
	Prefix string `yaml:"prefix" env:"TENANT_PREFIX" env-default:"df"`

	// PoolMaxConns bounds each tenant store's connection pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"TENANT_POOL_MAX_CONNS" env-default:"10"`

	// MigrationsPath points at the tenant store migration files.
	MigrationsPath string `yaml:"migrations_path" env:"TENANT_MIGRATIONS_PATH" env-default:"migrations/tenant"`
}

// EngineConfig holds the execution engine endpoint settings.
type EngineConfig struct {
	// BaseURL is the data-engine base URL, e.g. "http://data-engine:8081".
	BaseURL string `yaml:"base_url" env:"ENGINE_BASE_URL" env-default:"http://localhost:8081"`

	// Timeout bounds every engine call.
	Timeout time.Duration `yaml:"timeout" env:"ENGINE_TIMEOUT" env-default:"30s"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set")
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string for the config store.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ConnectionStringFor returns a connection string for a named database on the
// same server as the config store. Used when provisioning tenant stores.
func (c *DatabaseConfig) ConnectionStringFor(database string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, database, c.SSLMode,
	)
}
