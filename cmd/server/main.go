package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/config"
	"github.com/diewo77/go-bloodbank/internal/dashboard"
	"github.com/diewo77/go-bloodbank/internal/db"
	"github.com/diewo77/go-bloodbank/internal/handlers"
	"github.com/diewo77/go-bloodbank/internal/live"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/refresh"
	"github.com/diewo77/go-bloodbank/internal/services"
	"github.com/diewo77/go-bloodbank/internal/store"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

// sessionPurgeInterval is how often expired console sessions are deleted.
const sessionPurgeInterval = time.Hour

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *seedOnlyFlag {
		cfg.Database.Seed = true
	}
	dbConn, err := db.ConnectAndMigrate(ctx, cfg.Database, db.Options{})
	if err != nil {
		log.Fatalf("Failed to prepare database: %v", err)
	}
	if *migrateOnlyFlag || *seedOnlyFlag {
		log.Println("Database ready")
		return
	}

	appHandler, shutdown := buildApp(ctx, cfg, dbConn, &http.Client{Timeout: cfg.Backend.Timeout})
	defer shutdown()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      appHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (dev=%v, backend=%s)", cfg.Server.Port, cfg.App.Dev, cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// buildApp wires stores, services, the live hub and handlers. The returned
// func stops every background task.
func buildApp(ctx context.Context, cfg *config.Config, dbConn *gorm.DB, httpClient *http.Client) (*App, func()) {
	if cfg.Session.Secret != "" {
		auth.SetSecret(cfg.Session.Secret)
	} else {
		slog.Warn("session.secret not set, using the development secret")
	}

	api := backend.New(cfg.Backend.BaseURL, httpClient)
	sessions := store.NewSessions(dbConn, store.NewSealer(auth.Secret()), cfg.Session.TTL)
	thresholds := store.NewThresholds(dbConn)
	audit := store.NewAudit(dbConn)

	authGate := policy.NewAuthGate(5 * time.Minute)
	requests := services.NewRequestService(nil, authGate, audit, nil)
	accounts := services.NewAccountService(api, sessions, authGate)
	admin := services.NewAdminService(authGate, sessions, audit)
	auth.SetSessionResolver(accounts.Principal)

	builder := &dashboard.Builder{Thresholds: thresholds, Broadcasts: requests.Broadcasts()}
	registry := refresh.NewRegistry()
	hub := live.NewHub(ctx, api, builder, registry, live.Options{
		Interval:         cfg.Refresh.Interval,
		LivenessInterval: cfg.Refresh.LivenessInterval,
		LogoutDelay:      cfg.Refresh.LogoutDelay,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
	})
	hub.OnTerminate = func(ctx context.Context, sessionID, reason string) {
		if err := accounts.EndSession(ctx, sessionID, reason); err != nil {
			slog.ErrorContext(ctx, "ending session failed", "session_id", sessionID, "err", err)
		}
	}
	accounts.SetSessionEnder(hub)
	admin.SetSessionEnder(hub)

	purge := refresh.Start(ctx, "session-purge", sessionPurgeInterval, func(ctx context.Context) error {
		n, err := sessions.PurgeExpired(ctx)
		if n > 0 {
			slog.InfoContext(ctx, "expired sessions purged", "count", n)
		}
		return err
	})

	base := &handlers.Base{API: api, Accounts: accounts, Live: hub, LogoutDelay: cfg.Refresh.LogoutDelay}
	app := NewApp(&RouterConfig{
		AuthGate:       authGate,
		Health:         handlers.NewHealthHandler(dbConn),
		Auth:           handlers.NewAuthHandler(base),
		Dashboard:      handlers.NewDashboardHandler(base, builder),
		Requests:       handlers.NewRequestHandler(base, requests),
		Inventory:      handlers.NewInventoryHandler(base, services.NewInventoryService(authGate, thresholds, audit), services.NewThresholdService(authGate, thresholds, audit)),
		Admin:          handlers.NewAdminHandler(base, admin, services.NewAuditService(authGate, audit)),
		Live:           hub,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	return app, func() {
		purge.Stop()
		registry.StopAll()
	}
}

// setupLogging installs the default slog logger.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(cfg.Log.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}
