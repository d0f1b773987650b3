package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	dlhttp "github.com/doclens/doclens/internal/adapter/http"
	"github.com/doclens/doclens/internal/adapter/mcp"
	dlnats "github.com/doclens/doclens/internal/adapter/nats"
	"github.com/doclens/doclens/internal/adapter/natskv"
	"github.com/doclens/doclens/internal/adapter/openai"
	dlotel "github.com/doclens/doclens/internal/adapter/otel"
	"github.com/doclens/doclens/internal/adapter/postgres"
	"github.com/doclens/doclens/internal/adapter/ristretto"
	"github.com/doclens/doclens/internal/adapter/tiered"
	"github.com/doclens/doclens/internal/adapter/websearch"
	"github.com/doclens/doclens/internal/adapter/ws"
	"github.com/doclens/doclens/internal/config"
	"github.com/doclens/doclens/internal/logger"
	"github.com/doclens/doclens/internal/middleware"
	"github.com/doclens/doclens/internal/port/cache"
	"github.com/doclens/doclens/internal/port/web"
	"github.com/doclens/doclens/internal/service"
)

func main() {
	var err error
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "admin":
			err = runAdmin(os.Args[2:])
		case "ingest":
			err = runIngest(os.Args[2:])
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\nUsage: doclens [admin|ingest]\n", os.Args[1])
			os.Exit(2)
		}
	} else {
		err = run()
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"approval_timeout", cfg.Approval.Timeout,
	)

	ctx := context.Background()

	// --- Telemetry ---
	var metrics *dlotel.Metrics
	if cfg.Telemetry.Enabled {
		shutdown, err := dlotel.Init(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("otel shutdown failed", "error", err)
			}
		}()
		metrics, err = dlotel.NewMetrics()
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	store := postgres.NewStore(pool)

	local, err := ristretto.New(cfg.Cache.MaxSizeMB * 1024 * 1024)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer local.Close()

	bus, err := dlnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = bus.Close() }()

	var pageCache cache.Cache = local
	if cfg.Cache.Shared {
		kv, err := bus.KeyValue(ctx, "doclens-cache", cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("shared cache: %w", err)
		}
		pageCache = tiered.New(local, natskv.New(kv), cfg.Cache.TTL)
		slog.Info("shared cache enabled", "bucket", "doclens-cache")
	}

	// --- Event fan-out ---
	hub := ws.NewHub()
	stopBridge, err := ws.Bridge(ctx, bus, hub)
	if err != nil {
		return fmt.Errorf("ws bridge: %w", err)
	}
	defer stopBridge()

	// --- Agent stack ---
	client := openai.New(cfg.Model, log)

	var searcher web.Searcher
	if cfg.Search.GoogleAPIKey != "" {
		searcher = websearch.NewGoogleSearcher(cfg.Search.GoogleAPIKey, cfg.Search.GoogleCSEID, nil)
	} else {
		slog.Warn("internet search disabled, no google api key configured")
	}
	fetcher := websearch.NewPageFetcher(nil)

	builder := service.NewBuilder(service.BuilderOptions{
		Config:   *cfg,
		Client:   client,
		Store:    store,
		Cache:    pageCache,
		Searcher: searcher,
		Fetcher:  fetcher,
		Bus:      bus,
		Metrics:  metrics,
		Logger:   log,
	})
	sessions := service.NewSessions(builder, bus, nil, log)

	// --- MCP ---
	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "doclens",
			Version: "0.1.0",
		}, mcp.ServerDeps{
			Sessions:  sessions,
			Documents: store,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mcpSrv.Stop(stopCtx)
		}()
	}

	// --- HTTP ---
	handlers := dlhttp.NewHandlers(sessions, store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(dlhttp.Logger)
	r.Use(dlhttp.SecurityHeaders)
	r.Use(dlhttp.CORS(cfg.Server.CORSOrigin))
	if cfg.Telemetry.Enabled {
		r.Use(dlotel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(middleware.APIKey(cfg.Server.APIKeyHash))

	dlhttp.MountRoutes(r, handlers, hub.HandleWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
