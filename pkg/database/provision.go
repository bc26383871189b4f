package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/config"
	"github.com/hww/data-terminal/pkg/logging"
	"github.com/hww/data-terminal/pkg/retry"
)

// Provisioner prepares and attaches tenant stores.
type Provisioner interface {
	// Provision creates the project's physical store, migrates it to the
	// current schema and registers its pool. Idempotent: re-provisioning an
	// existing store only re-applies pending migrations.
	Provision(ctx context.Context, projectCode string) (string, error)

	// Attach opens and registers the pool for an already-provisioned store.
	// Used at startup to re-populate the registry.
	Attach(ctx context.Context, projectCode string) (string, error)
}

// StoreProvisioner provisions per-project PostgreSQL databases on the same
// server as the config store.
type StoreProvisioner struct {
	configDB *DB
	registry *Registry
	dbCfg    *config.DatabaseConfig
	tenant   *config.TenantConfig
	logger   *zap.Logger
}

// NewStoreProvisioner creates a provisioner bound to the config store server.
func NewStoreProvisioner(configDB *DB, registry *Registry, dbCfg *config.DatabaseConfig, tenant *config.TenantConfig, logger *zap.Logger) *StoreProvisioner {
	return &StoreProvisioner{
		configDB: configDB,
		registry: registry,
		dbCfg:    dbCfg,
		tenant:   tenant,
		logger:   logger,
	}
}

// Provision creates the tenant database if absent, runs tenant migrations
// and registers the pool under the tenant key.
func (p *StoreProvisioner) Provision(ctx context.Context, projectCode string) (string, error) {
	key := TenantKey(p.tenant.Prefix, projectCode)

	if err := p.createDatabase(ctx, key); err != nil {
		return "", err
	}

	if err := p.migrate(key); err != nil {
		return "", err
	}

	if err := p.register(ctx, key); err != nil {
		return "", err
	}

	p.logger.Info("Provisioned tenant store",
		zap.String("project_code", projectCode),
		zap.String("tenant_key", key))
	return key, nil
}

// Attach opens the pool for an existing tenant store and registers it.
func (p *StoreProvisioner) Attach(ctx context.Context, projectCode string) (string, error) {
	key := TenantKey(p.tenant.Prefix, projectCode)
	if p.registry.Has(key) {
		return key, nil
	}
	if err := p.register(ctx, key); err != nil {
		return "", err
	}
	return key, nil
}

// createDatabase issues CREATE DATABASE on the config store connection.
// PostgreSQL has no CREATE DATABASE IF NOT EXISTS, so an existing database
// is detected first.
func (p *StoreProvisioner) createDatabase(ctx context.Context, name string) error {
	var exists bool
	err := p.configDB.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check tenant database: %w", err)
	}
	if exists {
		return nil
	}

	// CREATE DATABASE cannot be parameterized; the name is a derived
	// identifier, quoted defensively.
	_, err = p.configDB.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{name}.Sanitize()))
	if err != nil {
		p.logger.Error("Failed to create tenant database",
			zap.String("tenant_key", name),
			zap.String("error", logging.SanitizeError(err)))
		return fmt.Errorf("failed to create tenant database %s: %w", name, err)
	}
	return nil
}

func (p *StoreProvisioner) migrate(name string) error {
	sqlDB, err := sql.Open("pgx", p.dbCfg.ConnectionStringFor(name))
	if err != nil {
		return fmt.Errorf("failed to open tenant database for migration: %w", err)
	}
	defer sqlDB.Close()

	return RunMigrations(sqlDB, p.tenant.MigrationsPath, p.logger)
}

func (p *StoreProvisioner) register(ctx context.Context, key string) error {
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*DB, error) {
		return NewConnection(ctx, &Config{
			URL:            p.dbCfg.ConnectionStringFor(key),
			MaxConnections: p.tenant.PoolMaxConns,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to connect tenant store %s: %w", key, err)
	}

	// Lost registration race: another request already attached this tenant.
	if !p.registry.Register(key, db) {
		db.Close()
	}
	return nil
}

var _ Provisioner = (*StoreProvisioner)(nil)
