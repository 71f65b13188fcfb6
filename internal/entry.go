// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/taskvault/internal/api"
	"github.com/starford/taskvault/internal/mcpserver"
	"github.com/starford/taskvault/internal/reconciler"
	"github.com/starford/taskvault/internal/scheduler"
	"github.com/starford/taskvault/internal/searchindex"
	"github.com/starford/taskvault/internal/sse"
	"github.com/starford/taskvault/internal/storage"
	"github.com/starford/taskvault/internal/todoistclient"
)

// Run starts the application with the given options: an SQLite-backed
// search index fed off the vault, an HTTP API fronting the scheduler and
// index, and an fsnotify watcher that requests runs on vault edits. The
// stdio MCP server is started separately, by RunMCP.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Sync.CompletedFolder, cfg.Sync.DeletedFolder)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := searchindex.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init search index: %w", err)
	}
	defer db.Close()

	reconcilerCfg := cfg.ReconcilerConfig()

	if err := searchindex.Sync(db, store, reconcilerCfg.Names, logger); err != nil {
		logger.Warn("initial search index sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker()
	defer broker.Close()

	client := todoistclient.New(cfg.Todoist.Token, cfg.Todoist.BaseURL, cfg.Todoist.Timeout)

	runFn := func(ctx context.Context) (reconciler.Summary, error) {
		broker.PublishPhase("reconcile_start")
		sum, runErr := reconciler.Run(ctx, client, store, reconcilerCfg)
		if syncErr := searchindex.Sync(db, store, reconcilerCfg.Names, logger); syncErr != nil {
			logger.Warn("search index sync after run failed", slog.String("error", syncErr.Error()))
		}
		for _, id := range sum.Duplicates {
			broker.PublishWarning("duplicate_remote_id", id)
		}
		for _, c := range sum.Cycles {
			broker.PublishWarning("parent_chain_cycle", c)
		}
		broker.PublishDone(sum)
		if runErr != nil {
			logger.Info("reconciliation run finished", slog.Any("summary", sum), slog.String("error", runErr.Error()))
		} else {
			logger.Info("reconciliation run finished", slog.Any("summary", sum))
		}
		return sum, runErr
	}

	sched := scheduler.New(runFn, logger)

	svc := api.NewService(sched, db)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := scheduler.Watch(gCtx, cfg.Vault.Path, cfg.Sync.PollInterval, sched, logger); err != nil {
			logger.Error("vault watcher error", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("context cancelled, initiating shutdown")
		}

		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped successfully")
	return nil
}

// RunSync performs a single, synchronous reconciliation pass and returns
// its summary, for the CLI's one-shot `sync` subcommand.
func RunSync(ctx context.Context, opts ...Option) (reconciler.Summary, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return reconciler.Summary{}, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return reconciler.Summary{}, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Sync.CompletedFolder, cfg.Sync.DeletedFolder)
	if err != nil {
		return reconciler.Summary{}, fmt.Errorf("init storage: %w", err)
	}

	db, err := searchindex.Open(cfg.Index.Path)
	if err != nil {
		return reconciler.Summary{}, fmt.Errorf("init search index: %w", err)
	}
	defer db.Close()

	client := todoistclient.New(cfg.Todoist.Token, cfg.Todoist.BaseURL, cfg.Todoist.Timeout)
	var runStore reconciler.Store = store
	if app.dryRun {
		logger.Info("dry run: no vault mutation will be persisted")
		runStore = reconciler.NewDryRunStore(store)
	}
	sum, runErr := reconciler.Run(ctx, client, runStore, cfg.ReconcilerConfig())
	if !app.dryRun {
		if syncErr := searchindex.Sync(db, store, cfg.ReconcilerConfig().Names, logger); syncErr != nil {
			logger.Warn("search index sync after run failed", slog.String("error", syncErr.Error()))
		}
	}
	if runErr != nil {
		logger.Info("reconciliation run finished", slog.Any("summary", sum), slog.Bool("dry_run", app.dryRun), slog.String("error", runErr.Error()))
	} else {
		logger.Info("reconciliation run finished", slog.Any("summary", sum), slog.Bool("dry_run", app.dryRun))
	}
	return sum, runErr
}

// RunMCP serves the MCP tool set over stdio, backed by a scheduler whose
// runs drive the same reconciler.Run used by Run and RunSync.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Sync.CompletedFolder, cfg.Sync.DeletedFolder)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := searchindex.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init search index: %w", err)
	}
	defer db.Close()

	reconcilerCfg := cfg.ReconcilerConfig()

	if err := searchindex.Sync(db, store, reconcilerCfg.Names, logger); err != nil {
		logger.Warn("initial search index sync failed", slog.String("error", err.Error()))
	}

	client := todoistclient.New(cfg.Todoist.Token, cfg.Todoist.BaseURL, cfg.Todoist.Timeout)
	runFn := func(ctx context.Context) (reconciler.Summary, error) {
		sum, runErr := reconciler.Run(ctx, client, store, reconcilerCfg)
		if syncErr := searchindex.Sync(db, store, reconcilerCfg.Names, logger); syncErr != nil {
			logger.Warn("search index sync after run failed", slog.String("error", syncErr.Error()))
		}
		return sum, runErr
	}
	sched := scheduler.New(runFn, logger)

	return mcpserver.New(sched, db).ServeStdio()
}
