package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/auth"
	"github.com/hww/data-terminal/pkg/config"
	"github.com/hww/data-terminal/pkg/crypto"
	"github.com/hww/data-terminal/pkg/database"
	"github.com/hww/data-terminal/pkg/engine"
	"github.com/hww/data-terminal/pkg/handlers"
	"github.com/hww/data-terminal/pkg/logging"
	"github.com/hww/data-terminal/pkg/middleware"
	"github.com/hww/data-terminal/pkg/repositories"
	"github.com/hww/data-terminal/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

// ConfigMigrationsPath points at the config store migration files.
const ConfigMigrationsPath = "migrations/config"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("engine", cfg.Engine.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Config store: connect, migrate, register.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	if err := database.RunMigrations(migrationDB, ConfigMigrationsPath, logger); err != nil {
		return err
	}
	if err := migrationDB.Close(); err != nil {
		return err
	}

	configDB, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}

	registry := database.NewRegistry()
	registry.Register(database.ConfigKey, configDB)
	defer registry.Close()

	provisioner := database.NewStoreProvisioner(configDB, registry, &cfg.Database, &cfg.Tenant, logger)

	// Repositories and services.
	projectRepo := repositories.NewProjectRepository(registry, logger)
	resourceRepo := repositories.NewResourceRepository(registry, logger)
	datasourceRepo := repositories.NewDataSourceRepository(registry, logger)
	taskRepo := repositories.NewCollectTaskRepository(registry, logger)

	var encryptor *crypto.ConnectionEncryptor
	if cfg.Auth.EncryptionKey != "" {
		encryptor, err = crypto.NewConnectionEncryptor(cfg.Auth.EncryptionKey)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("CONFIG_ENCRYPTION_KEY not set, connection configs stored in plaintext")
	}

	engineClient := engine.NewClient(cfg.Engine.BaseURL, cfg.Engine.Timeout, logger)

	projectService := services.NewProjectService(projectRepo, provisioner, logger)
	resourceService := services.NewResourceService(resourceRepo, cfg.Tenant.Prefix, logger)
	datasourceService := services.NewDataSourceService(datasourceRepo, encryptor, cfg.Tenant.Prefix, logger)
	collectionService := services.NewCollectionService(taskRepo, datasourceRepo, resourceRepo, engineClient, cfg.Tenant.Prefix, logger)

	// Re-attach tenant stores for projects provisioned in earlier runs.
	if err := projectService.ReattachStores(ctx); err != nil {
		return err
	}

	// HTTP surface.
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(cfg.Auth.CookieName, []byte(cfg.Auth.Secret)), logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg.Version).RegisterRoutes(mux)
	handlers.NewProjectHandler(projectService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewResourceHandler(resourceService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewDataSourceHandler(datasourceService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewCollectionHandler(collectionService, logger).RegisterRoutes(mux, authMiddleware)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("data-terminal listening",
			zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
