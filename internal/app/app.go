package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tailortalk/server/internal/booking"
	httpapi "github.com/tailortalk/server/internal/http"
	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/internal/store/drivers/sqlite"
	"github.com/tailortalk/server/pkg/cryptox"
	"github.com/tailortalk/server/pkg/jwtx"
	"github.com/tailortalk/server/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the booking server with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	cipher *cryptox.Cipher
	tokens *jwtx.Codec
	locks  *service.UserLocks

	credentialService   *service.CredentialService
	sessionService      *service.SessionService
	flowService         *service.FlowService
	gateway             *service.AuthGateway
	housekeepingService *service.HousekeepingService
	calendar            *booking.Client

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tailortalk",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" || cfg.GoogleRedirectURL == "" {
		return nil, errors.New("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL must be set")
	}

	if err := app.initCrypto(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("tailortalk server starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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
	app.logger.Info("shutting down tailortalk server...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("tailortalk server stopped")
	return nil
}

// initCrypto derives the credential cipher and the session-token signing key
// from the master secret. Without a configured master secret a random one is
// generated, which makes both stored credentials and issued tokens unusable
// after a restart; fine for dev, refused in prod.
func (app *Application) initCrypto() error {
	secret := []byte(app.cfg.MasterKey)
	if len(secret) == 0 {
		if app.cfg.Env == "prod" {
			return errors.New("AUTH_MASTER_KEY must be set in prod")
		}

		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
		app.logger.Warn("AUTH_MASTER_KEY not set, using ephemeral key; stored credentials will not survive a restart")
	}

	cipher, err := cryptox.NewCipher(secret)
	if err != nil {
		return fmt.Errorf("failed to initialize credential cipher: %w", err)
	}
	app.cipher = cipher

	seed, err := cryptox.DeriveKey(secret, "session-token-signing", 32)
	if err != nil {
		return fmt.Errorf("failed to derive signing seed: %w", err)
	}

	tokens, err := jwtx.NewCodec(seed, app.cfg.Issuer, app.cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize session token codec: %w", err)
	}
	app.tokens = tokens

	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.locks = &service.UserLocks{}

	app.credentialService = &service.CredentialService{
		Store:  app.db,
		Cipher: app.cipher,
		Locks:  app.locks,
	}

	app.sessionService = &service.SessionService{
		Store:     app.db,
		Locks:     app.locks,
		TTL:       app.cfg.SessionTTL,
		Retention: app.cfg.SessionRetention,
	}

	app.flowService = &service.FlowService{
		Store:       app.db,
		Credentials: app.credentialService,
		Sessions:    app.sessionService,
		Locks:       app.locks,
		OAuth: oauth2.Config{
			ClientID:     app.cfg.GoogleClientID,
			ClientSecret: app.cfg.GoogleClientSecret,
			RedirectURL:  app.cfg.GoogleRedirectURL,
			Scopes:       service.GoogleScopes,
			Endpoint:     google.Endpoint,
		},
		Identity:        service.GoogleIdentity{},
		StateTTL:        app.cfg.FlowStateTTL,
		RefreshMargin:   app.cfg.TokenRefreshMargin,
		ProviderTimeout: app.cfg.ProviderTimeout,
	}

	app.gateway = &service.AuthGateway{
		Credentials:     app.credentialService,
		Sessions:        app.sessionService,
		Flow:            app.flowService,
		Locks:           app.locks,
		RevokeURL:       service.GoogleRevokeURL,
		ProviderTimeout: app.cfg.ProviderTimeout,
	}

	app.calendar = &booking.Client{Gateway: app.gateway}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.sessionService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the router and HTTP server.
func (app *Application) initHTTP() {
	app.router = (&httpapi.Router{
		Mux:         http.NewServeMux(),
		Logger:      app.logger,
		Store:       app.db,
		Flow:        app.flowService,
		Gateway:     app.gateway,
		Credentials: app.credentialService,
		Sessions:    app.sessionService,
		Calendar:    app.calendar,
		Tokens:      app.tokens,
	}).ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
