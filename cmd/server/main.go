// G-School Connect - classroom device monitoring control plane
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/G-districts/Gschool-connect/internal/api"
	"github.com/G-districts/Gschool-connect/internal/config"
	"github.com/G-districts/Gschool-connect/internal/control"
	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/events"
	"github.com/G-districts/Gschool-connect/internal/middleware"
	"github.com/G-districts/Gschool-connect/internal/scene"
	"github.com/G-districts/Gschool-connect/internal/scope"
	signalrelay "github.com/G-districts/Gschool-connect/internal/signal"
	"github.com/G-districts/Gschool-connect/internal/store"
	"github.com/G-districts/Gschool-connect/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	secret := cfg.JWTSecret
	if secret == "" {
		// Development only; Validate rejects an empty secret in production.
		secret = "dev-secret"
		slog.Warn("JWT_SECRET not set, using development secret")
	}

	// Initialize stores.
	docs, err := store.NewFileDocumentStore(cfg.StatePath)
	if err != nil {
		slog.Error("Failed to initialize state document store", "error", err)
		os.Exit(1)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	scenes, err := scene.NewStore(cfg.ScenesDir)
	if err != nil {
		slog.Error("Failed to initialize scene store", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	hub := events.NewHub(cfg.FrontendURL, cfg.IsDevelopment())
	svc := control.New(docs, repo, scenes, hub)
	relay := signalrelay.NewRelay()

	// Seed a default admin account on first boot so the console is reachable.
	if user, err := repo.GetUser(context.Background(), "admin@gdistrict.org"); err == nil && user == nil {
		if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
			if err := repo.UpsertUser(context.Background(), &domain.User{
				Email: "admin@gdistrict.org", Password: pw, Role: domain.RoleAdmin,
			}); err != nil {
				slog.Error("Failed to seed admin account", "error", err)
				os.Exit(1)
			}
			slog.Info("Seeded admin account", "email", "admin@gdistrict.org")
		}
	}

	handler := api.NewHandler(svc, repo, scenes, relay, secret, cfg.JWTIssuer, cfg.TokenTTL)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(scope.Middleware(docs))

	handler.RegisterRoutes(r)

	// Teacher dashboard event feed.
	r.Get("/ws/events", hub.ServeHTTP)

	// Serve embedded console (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket event feed needs long-lived writes
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
