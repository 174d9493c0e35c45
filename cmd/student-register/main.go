// main is the entry point of the student-register application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open (and set up) the SQLite database
//  4. Wire repository → filter engine → view model
//  5. Tail the filtered student stream to the log
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Tear down: close the view model, then the store, then exit
//
// This binary is the process host. The actual screen (widgets, layout,
// input handling) is supplied by whatever UI embeds internal/view; when
// run standalone the "screen" is the structured log, which makes the
// whole data path observable from a terminal:
//
//	go run ./cmd/student-register --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/student-register
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aanand-mishra/student-register/internal/config"
	"github.com/aanand-mishra/student-register/internal/repository"
	"github.com/aanand-mishra/student-register/internal/storage/sqlite"
	"github.com/aanand-mishra/student-register/internal/view"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad reads the YAML config and exits if anything is wrong.
	// The name "Must" signals: if this returns, config is guaranteed valid.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// slog is Go's structured logger (stdlib since Go 1.21). Structured
	// logging writes key=value pairs rather than plain strings, making
	// logs easy to filter/search in tools like Loki or Datadog.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log) // internal packages log through slog's default

	log.Info("starting student-register",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	// ── 3. Initialise Storage (Database) ──────────────────────────────────
	// sqlite.New opens the SQLite file and creates the students table.
	// The store is constructed exactly once, here, and handed down — it
	// is owned by main for the life of the process, not reached through
	// any package-level global.
	store, err := sqlite.New(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1) // non-zero exit code signals failure to the OS / CI system
	}

	log.Info("storage initialised",
		slog.String("path", cfg.StoragePath))

	// ── 4. Wire the Data Path ─────────────────────────────────────────────
	// store → repository → (live stream) → filter engine → view model.
	// Each layer only sees the one below it; only main sees all of them.
	repo := repository.New(store)
	students := view.New(repo, log)

	// ── 5. Tail the Filtered Stream ───────────────────────────────────────
	// Standing in for the screen: log each emitted list. The channel is
	// depth 1 / replay-latest, so this loop always shows the newest
	// state even if it falls behind momentarily.
	go func() {
		for list := range students.Students() {
			log.Info("student list updated", slog.Int("count", len(list)))
		}
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	// Buffered channel of size 1 so we don't miss the signal if main is
	// briefly busy. os.Interrupt = Ctrl+C; SIGTERM = `kill` / container
	// orchestrators.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping...")

	// ── 7. Tear Down ──────────────────────────────────────────────────────
	// Close the view first (waits for in-flight mutations, stops the
	// engine), then the store (closes remaining subscriptions and the
	// database handle).
	students.Close()
	if err := store.Close(); err != nil {
		log.Error("failed to close storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
//
//	JSON logs are easy to ingest by log aggregators (Loki, CloudWatch, etc.)
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo, // INFO and above in production
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug, // more verbose in staging
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug, // all levels in development
			}),
		)
	}
}
