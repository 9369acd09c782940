package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/trailguard/trailguard/internal/api"
	"github.com/trailguard/trailguard/internal/audit"
	"github.com/trailguard/trailguard/internal/config"
	"github.com/trailguard/trailguard/internal/ingest"
	"github.com/trailguard/trailguard/internal/metrics"
	"github.com/trailguard/trailguard/internal/notify"
	"github.com/trailguard/trailguard/internal/policy"
	"github.com/trailguard/trailguard/internal/store"
	"github.com/trailguard/trailguard/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to .env file with channel credentials; missing file is ignored")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("trailguard-server starting", "config", *configPath)

	// Credentials live in the environment; a .env file is a convenience for
	// local runs and may be absent in production.
	if err := godotenv.Load(*envPath); err != nil {
		slog.Info("no .env file loaded", "path", *envPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"db_path", cfg.Server.Database.Path,
		"dispatch_workers", cfg.Server.Dispatch.Workers,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Evidence store, the system's source of truth.
	st, err := store.Open(cfg.Server.Database.Path)
	if err != nil {
		slog.Error("failed to open evidence store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	// Append-only audit side-channel.
	auditLog, err := audit.Open(cfg.Server.Audit.Path)
	if err != nil {
		slog.Error("failed to open audit log", "err", err)
		os.Exit(1)
	}
	defer auditLog.Close()

	// Dashboard feed: broadcasts alerts to connected WebSocket clients.
	hub := ws.New()
	go hub.Run(ctx)

	// Severity policy and notification channels.
	pol := policy.New(policy.FromStrings(cfg.Server.SeverityActions))
	dispatcher := notify.NewDispatcher(
		pol,
		notify.NewWebhook(cfg.Server.Webhook.URL()),
		notify.NewEmail(cfg.Server.Email, cfg.Server.Admin.Emails),
		notify.NewSMS(cfg.Server.SMS, cfg.Server.Admin.Phones),
		hub,
	)

	// Background dispatch pool keeps third-party network calls off the
	// ingestion path.
	pool := notify.NewPool(dispatcher, cfg.Server.Dispatch.Workers, cfg.Server.Dispatch.QueueSize)
	go pool.Run(ctx)

	svc := ingest.New(st, auditLog, pool)

	apiHandler := api.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		api.New(svc, st),
	)

	httpMux := http.NewServeMux()
	httpMux.Handle("/process-alerts", apiHandler)
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/ws/alerts", hub)
	httpMux.Handle("/metrics", metrics.Handler())

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("trailguard-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
