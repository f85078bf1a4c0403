package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/warden/internal/rbac/http"
	"github.com/aussiebroadwan/warden/internal/rbac/service"
	"github.com/aussiebroadwan/warden/internal/rbac/store"
	"github.com/aussiebroadwan/warden/internal/rbac/store/drivers/sqlite"
	"github.com/aussiebroadwan/warden/pkg/cryptox"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	generatedPasswordLength = 20
)

// Application encapsulates the RBAC service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	keys        *Keys
	hasher      cryptox.Argon2Hasher
	revocations *httpapi.SessionRevocations
	events      *service.Dispatcher

	housekeeping *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialised, the
// database migrated and, when enabled, seeded.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "warden",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.Argon2Hasher{Pepper: pepper}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keys, err := InitKeys(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keys = keys

	ctx := slogx.WithContext(context.Background(), app.logger)
	if err := app.seed(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.revocations = httpapi.NewSessionRevocations(cfg.AccessTokenTTL)
	app.events = &service.Dispatcher{Sessions: app.revocations}
	app.housekeeping = service.NewHousekeepingService(app.logger, cfg.HousekeepingInterval,
		service.HousekeepingTask{Name: "session_revocations", Run: app.revocations.Prune},
	)

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("warden starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeeping.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down warden...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("warden stopped")
	return nil
}

// initDatabase opens the database and applies migrations.
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// seed writes the initial roles, permissions, menus and administrator into
// an empty database. Without a configured password one is generated and
// logged once.
func (app *Application) seed(ctx context.Context) error {
	if !app.cfg.Seed {
		return nil
	}

	password := app.cfg.AdminPassword
	generated := password == ""
	if generated {
		var err error
		if password, err = cryptox.GeneratePassword(generatedPasswordLength); err != nil {
			return fmt.Errorf("failed to generate admin password: %w", err)
		}
	}

	seeder := &service.Seeder{
		Store:         app.db,
		Hasher:        app.hasher,
		AdminUsername: app.cfg.AdminUsername,
		AdminEmail:    app.cfg.AdminEmail,
		AdminPassword: password,
	}
	seeded, err := seeder.Seed(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	if seeded && generated {
		app.logger.Warn("generated initial admin password; change it after the first sign in",
			"username", app.cfg.AdminUsername,
			"password", password,
		)
	}
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys.KeySet,
		app.keys.Verifier,
		app.revocations,
		BuildVersion,
		app.cfg.IsDevelopment(),
		app.db,
		app.logger,
	)

	router.AuthService = &service.AuthService{
		Store:  app.db,
		Hasher: app.hasher,
		Tokens: service.JWTIssuer{
			Signer:   app.keys.Signer,
			Issuer:   app.cfg.Issuer,
			Audience: app.cfg.Audience,
			TTL:      app.cfg.AccessTokenTTL,
		},
	}
	router.AccountService = &service.AccountService{Store: app.db, Hasher: app.hasher, Events: app.events}
	router.UserCommands = &service.UserCommands{Store: app.db, Hasher: app.hasher, Events: app.events}
	router.RoleCommands = &service.RoleCommands{Store: app.db, Events: app.events}
	router.RolePermissionCommands = &service.RolePermissionCommands{Store: app.db, Events: app.events}
	router.PermissionCommands = &service.PermissionCommands{Store: app.db, Events: app.events}
	router.MenuCommands = &service.MenuCommands{Store: app.db, Events: app.events}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
