// Package app wires configuration, sources, the engine and the HTTP
// handler into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valyala/fasthttp"

	"portfolio-engine/internal/binschema"
	"portfolio-engine/internal/cache"
	"portfolio-engine/internal/config"
	"portfolio-engine/internal/engine"
	"portfolio-engine/internal/handler"
	"portfolio-engine/internal/interaction"
	"portfolio-engine/internal/observability"
	"portfolio-engine/internal/session"
	"portfolio-engine/internal/source"
	"portfolio-engine/internal/source/remote"
	"portfolio-engine/internal/source/sqlite"
	"portfolio-engine/internal/store"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config   config.Config
	Metrics  *observability.Metrics
	Source   source.Source
	Store    *store.Store
	Engine   *engine.Engine
	Sessions *session.Manager
	Handler  *handler.Handler

	closers []func() error
}

// New builds every component from cfg. Nothing is loaded until Load or
// Serve is called.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	a := &App{Config: cfg, Metrics: metrics}

	schemas, err := binschema.LoadFile(cfg.BinSchemaPath)
	if err != nil {
		return nil, fmt.Errorf("load bin schemas: %w", err)
	}

	if a.Source, err = a.openSource(); err != nil {
		return nil, err
	}

	a.Store = store.New(metrics)
	a.Engine = engine.New(schemas, a.openCache(ctx), metrics)
	a.Sessions = session.NewManager(a.Store, interaction.NewController(a.Engine), cfg.SessionTTL, metrics)
	a.Handler = handler.New(handler.Options{
		Sessions: a.Sessions,
		Store:    a.Store,
		Notes:    a.Source,
		Metrics:  metrics,
		Reload:   a.Load,
	})
	return a, nil
}

func (a *App) openSource() (source.Source, error) {
	if a.Config.UsesAPI() {
		slog.Info("using remote API source", "base_url", a.Config.APIBaseURL)
		return remote.New(a.Config.APIBaseURL, a.Config.FetchTimeout), nil
	}
	db, err := sqlite.Open(a.Config.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	slog.Info("using snapshot source", "path", a.Config.SnapshotPath)
	return db, nil
}

// openCache prefers Redis when configured and reachable, and falls back
// to the in-process cache otherwise.
func (a *App) openCache(ctx context.Context) cache.Cache {
	if a.Config.RedisAddr == "" {
		return cache.NewMemory(a.Config.CacheSize)
	}
	r := cache.NewRedis(a.Config.RedisAddr, a.Config.CacheTTL)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		slog.Warn("redis unavailable, using in-memory memo", "addr", a.Config.RedisAddr, "error", err)
		_ = r.Close()
		return cache.NewMemory(a.Config.CacheSize)
	}
	a.closers = append(a.closers, r.Close)
	slog.Info("using redis memo", "addr", a.Config.RedisAddr, "ttl", a.Config.CacheTTL)
	return r
}

// Load refreshes the store from the source.
func (a *App) Load(ctx context.Context) store.LoadReport {
	loadCtx, cancel := context.WithTimeout(ctx, 2*a.Config.FetchTimeout)
	defer cancel()
	return a.Store.Load(loadCtx, a.Source)
}

func (a *App) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Load(ctx).Err(); err != nil {
				slog.Warn("periodic refresh incomplete", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Serve loads the store, starts background loops and serves HTTP until
// ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// the initial load runs in the background; sessions render empty
	// dashboards until it lands
	go func() {
		if err := a.Load(ctx).Err(); err != nil {
			slog.Warn("initial load incomplete", "error", err)
		}
	}()
	if a.Config.RefreshInterval > 0 {
		go a.refreshLoop(ctx, a.Config.RefreshInterval)
	}
	a.Sessions.Start(0)
	defer a.Sessions.Stop()

	server := &fasthttp.Server{
		Handler:      a.Handler.Handle,
		Name:         "portfolio-engine",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("portfolio engine listening", "addr", a.Config.Addr())
		errCh <- server.ListenAndServe(a.Config.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
