package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/api"
	"github.com/inboxpilot/folderengine/internal/app"
	"github.com/inboxpilot/folderengine/internal/app/maintenance"
	iauth "github.com/inboxpilot/folderengine/internal/auth"
	"github.com/inboxpilot/folderengine/internal/database"
	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/services"
	"github.com/inboxpilot/folderengine/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("folderengine-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	vaultKey, err := app.VaultKey(cfg)
	if err != nil {
		return err
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	tokens, err := iauth.NewServiceTokenService(iauth.ServiceTokenConfig{
		Secret: cfg.Auth.ServiceToken.Secret,
		Issuer: cfg.Auth.ServiceToken.Issuer,
	})
	if err != nil {
		return fmt.Errorf("initialise token service: %w", err)
	}

	registry := mailprovider.NewDefaultRegistry()

	profileSvc, err := services.NewProfileService(db, registry, vaultKey)
	if err != nil {
		return fmt.Errorf("initialise profile service: %w", err)
	}

	adapters, err := services.NewAdapterFactory(db, registry, cfg.Providers.Settings(), vaultKey)
	if err != nil {
		return fmt.Errorf("initialise adapter factory: %w", err)
	}

	reconcileSvc, err := services.NewReconcileService(db, adapters, profileSvc)
	if err != nil {
		return fmt.Errorf("initialise reconcile service: %w", err)
	}

	provisionSvc, err := services.NewProvisioningService(db, adapters, profileSvc, reconcileSvc)
	if err != nil {
		return fmt.Errorf("initialise provisioning service: %w", err)
	}

	coverageSvc, err := services.NewCoverageService(db, profileSvc)
	if err != nil {
		return fmt.Errorf("initialise coverage service: %w", err)
	}

	routingSvc, err := services.NewRoutingService(db, profileSvc)
	if err != nil {
		return fmt.Errorf("initialise routing service: %w", err)
	}

	var reconciler *maintenance.Reconciler
	if cfg.Reconcile.Enabled {
		reconciler = maintenance.NewReconciler(reconcileSvc, maintenance.WithSchedule(cfg.Reconcile.Schedule))
		if err := reconciler.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() {
			<-reconciler.Stop().Done()
		}()
	}

	router, err := api.NewRouter(cfg, tokens, api.Services{
		Profiles:    profileSvc,
		Provisioner: provisionSvc,
		Reconciler:  reconcileSvc,
		Coverage:    coverageSvc,
		Routing:     routingSvc,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.ServiceToken.Secret = strings.TrimSpace(cfg.Auth.ServiceToken.Secret)
	if cfg.Auth.ServiceToken.Secret == "" {
		return errors.New("auth.service_token.secret must be configured")
	}

	cfg.Vault.EncryptionKey = strings.TrimSpace(cfg.Vault.EncryptionKey)
	if cfg.Vault.EncryptionKey == "" {
		return errors.New("vault.encryption_key must be configured")
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := database.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}

	switch strings.ToLower(cfg.Database.Driver) {
	case "postgres", "postgresql":
		dbCfg.Host = cfg.Database.Postgres.Host
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = cfg.Database.Postgres.Database
		dbCfg.User = cfg.Database.Postgres.Username
		dbCfg.Password = cfg.Database.Postgres.Password
	case "mysql":
		dbCfg.Host = cfg.Database.MySQL.Host
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = cfg.Database.MySQL.Database
		dbCfg.User = cfg.Database.MySQL.Username
		dbCfg.Password = cfg.Database.MySQL.Password
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAll(db); err != nil {
		return nil, err
	}

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("acquire database handle for close", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
