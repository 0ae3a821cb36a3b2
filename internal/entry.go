// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/kanbo/internal/api"
	"github.com/starford/kanbo/internal/boardservice"
	"github.com/starford/kanbo/internal/layout"
	"github.com/starford/kanbo/internal/mcpserver"
	"github.com/starford/kanbo/internal/metrics"
	"github.com/starford/kanbo/internal/storage"
	"github.com/starford/kanbo/internal/store"
)

var errConfigRequired = errors.New("config is required")

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("layouts_path", cfg.Layouts.Path),
		slog.String("sqlite_driver", cfg.SQLite.Driver),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	db, layouts, err := openStore(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Build board service and API router.
	svc := boardservice.NewService(db, m, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := db.ListBoards(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start layout watcher.
	if cfg.Layouts.Watch {
		g.Go(func() error {
			watchLayouts(gCtx, db, layouts, cfg.Layouts.Path, m, logger)
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tool surface on stdin/stdout. Logs go to stderr so
// they never interleave with the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	m := metrics.New(prometheus.NewRegistry())
	db, layouts, err := openStore(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Layouts.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go watchLayouts(watchCtx, db, layouts, cfg.Layouts.Path, m, logger)
	}

	svc := boardservice.NewService(db, m, logger)
	logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// newLogger builds the JSON logger with UTC RFC3339Nano timestamps.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}))
}

// openStore opens the database and applies the layouts directory to it.
func openStore(ctx context.Context, cfg *Config, m *metrics.Metrics, logger *slog.Logger) (*store.DB, *storage.FS, error) {
	if err := os.MkdirAll(cfg.Layouts.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create layouts dir: %w", err)
	}
	layouts, err := storage.NewFS(cfg.Layouts.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init layouts storage: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Driver, cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	applied, err := layout.Sync(ctx, db, layouts, logger)
	if err != nil {
		logger.Warn("initial layout sync failed", slog.String("error", err.Error()))
	}
	for range applied {
		m.IncrementLayoutsApplied()
	}
	logger.Info("Layouts synced", slog.Int("applied", len(applied)))
	return db, layouts, nil
}

func watchLayouts(ctx context.Context, db store.BoardStore, layouts storage.Provider, root string, m *metrics.Metrics, logger *slog.Logger) {
	err := layout.Watch(ctx, db, layouts, root, logger, func(string) {
		m.IncrementLayoutsApplied()
	})
	if err != nil {
		logger.Error("layout watcher failed", slog.String("error", err.Error()))
	}
}
