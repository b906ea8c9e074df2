// main is the entry point of the graduation announcement service.
//
// STARTUP SEQUENCE:
//  1. Load configuration (.env, then a YAML file, then env overrides)
//  2. Initialise the logger
//  3. Build the student directory (in memory, or an ephemeral SQLite copy)
//  4. Build the message generator (Gemini, or fallback-only without a key)
//  5. Register all HTTP routes
//  6. Start the HTTP server in a separate goroutine
//  7. Block until an OS signal arrives, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/graduation-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/graduation-api
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

	"github.com/aanand-mishra/graduation-api/internal/config"
	"github.com/aanand-mishra/graduation-api/internal/generator"
	"github.com/aanand-mishra/graduation-api/internal/http/router"
	"github.com/aanand-mishra/graduation-api/internal/lookup"
	"github.com/aanand-mishra/graduation-api/internal/session"
	"github.com/aanand-mishra/graduation-api/internal/storage"
	"github.com/aanand-mishra/graduation-api/internal/storage/memory"
	"github.com/aanand-mishra/graduation-api/internal/storage/sqlite"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// Handlers log through the slog package functions, so the configured
	// logger also becomes the default.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting graduation-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	// ── 3. Initialise Storage (Student Directory) ─────────────────────────
	store, closeStore, err := setupStorage(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	students, err := store.GetStudents()
	if err != nil {
		log.Error("failed to read student directory",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("storage initialised",
		slog.String("backend", cfg.Storage),
		slog.Int("students", len(students)))

	// ── 4. Message Generator ──────────────────────────────────────────────
	// Without an API key every lookup still succeeds, with the canned text.
	var model generator.Model = generator.Unavailable{}
	gemini, err := generator.NewGemini(context.Background(), cfg.GenAI)
	switch {
	case err == nil:
		model = gemini
		log.Info("message generator ready", slog.String("model", cfg.GenAI.Model))
	case errors.Is(err, generator.ErrModelUnavailable):
		log.Warn("no GEMINI_API_KEY set, messages will use fallback text")
	default:
		log.Error("failed to create gemini client, messages will use fallback text",
			slog.String("error", err.Error()))
	}
	gen := generator.New(model, cfg.GenAI.Timeout, log)

	// ── 5. Sessions and Routes ────────────────────────────────────────────
	// Every browser session gets its own lookup controller.
	sessions := session.New(cfg.Lookup.SessionTTL, func() *lookup.Controller {
		return lookup.New(store, gen, cfg.Lookup.Delay, log)
	})

	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: router.New(store, sessions),

		// WriteTimeout must cover the lookup delay plus the model call
		// for POST /api/lookup?wait=true.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Lookup.Delay + cfg.GenAI.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// setupStorage builds the directory backend named in cfg.Storage, seeded
// from the static student list. The returned func releases it.
func setupStorage(cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		db, err := sqlite.New(cfg, storage.SeedStudents())
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return memory.NewSeeded(), func() {}, nil
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
