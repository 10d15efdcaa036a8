package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mopihu/pyhabot/app/api"
	"github.com/mopihu/pyhabot/app/cfg"
	"github.com/mopihu/pyhabot/app/commands"
	"github.com/mopihu/pyhabot/app/config"
	"github.com/mopihu/pyhabot/app/database"
	"github.com/mopihu/pyhabot/app/integration"
	"github.com/mopihu/pyhabot/app/monitor"
	"github.com/mopihu/pyhabot/app/notify"
	"github.com/mopihu/pyhabot/app/scraper"
)

func main() {
	// A .env file is optional; real environment variables win either way.
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was requested.
		return
	}

	logLevel := slog.LevelInfo
	if c.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting pyhabot", "version", c.Version, "integration", c.Integration)

	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		slog.Error("Failed to create data directory", "path", c.DataDir, "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(filepath.Join(c.DataDir, "pyhabot.db"))
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	settings, err := config.NewStore(c.DataDir)
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	watchRepo := database.NewWatchRepository(db)
	adRepo := database.NewAdRepository(db)

	chat, err := integration.New(c)
	if err != nil {
		slog.Error("Failed to initialize chat integration", "error", err)
		os.Exit(1)
	}

	client := scraper.NewClient()
	parser := scraper.NewParser()
	reconciler := monitor.NewReconciler(watchRepo, adRepo)
	notifier := notify.NewNotifier(chat, &http.Client{Timeout: 30 * time.Second})
	scheduler := monitor.NewScheduler(settings, watchRepo, client, parser, reconciler, notifier)

	handler := commands.NewHandler(settings, watchRepo, adRepo, scheduler, chat)
	chat.OnMessage(handler.HandleMessage)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Start(ctx)

	go func() {
		if err := chat.Run(ctx); err != nil {
			slog.Error("Chat integration stopped", "error", err)
		}
		stop()
	}()

	apiHandler := api.NewHandler(watchRepo, adRepo)
	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(apiHandler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP status server", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		slog.Error("HTTP server failed", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
