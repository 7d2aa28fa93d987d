// Package main is the entry point for the quote presenter service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/clients"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/clients/images"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/clipboard"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/view"
	"github.com/jsamuelsen/quote-presenter/internal/app"
	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/platform/config"
	"github.com/jsamuelsen/quote-presenter/internal/platform/logging"
	"github.com/jsamuelsen/quote-presenter/internal/platform/metrics"
	"github.com/jsamuelsen/quote-presenter/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", err))
		}
	}()

	catalog, err := buildCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}

	loader, err := newImageLoader("image-host", cfg.ImageLoader, catalog, logger)
	if err != nil {
		return err
	}

	// The audit gets its own client so its checks never trip the breaker
	// that guards presenter backgrounds.
	auditLoader, err := newImageLoader("image-audit", cfg.ImageLoader, catalog, logger)
	if err != nil {
		return err
	}

	newClipboard, sharedClipboard, err := clipboardFactory(cfg.Clipboard)
	if err != nil {
		return fmt.Errorf("creating clipboard: %w", err)
	}

	observer := metrics.NewPresenter(prometheus.DefaultRegisterer)

	sessions := app.NewSessions(app.SessionsConfig{
		Catalog:      catalog,
		ImageLoader:  loader,
		NewRenderer:  func() ports.ViewRenderer { return view.NewRenderer(cfg.Presenter.CopyLabel) },
		NewClipboard: newClipboard,
		Settings: app.PresenterSettings{
			CopiedLabel:      cfg.Presenter.CopiedLabel,
			CopiedFor:        cfg.Presenter.CopiedFor,
			CopyFailedNotice: cfg.Presenter.CopyFailedNotice,
			PulseScale:       cfg.Presenter.PulseScale,
			PulseFor:         cfg.Presenter.PulseFor,
		},
		Observer:      observer,
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		MaxSessions:   cfg.Session.MaxSessions,
		Logger:        logger,
	})

	audit := app.NewImageAudit(app.ImageAuditConfig{
		Catalog:     catalog,
		ImageLoader: auditLoader,
		Concurrency: cfg.ImageLoader.AuditConcurrency,
		Timeout:     cfg.ImageLoader.AuditTimeout,
		CacheFor:    cfg.ImageLoader.AuditCacheFor,
		Logger:      logger,
	})

	healthRegistry := ports.NewHealthRegistry()
	if err := healthRegistry.Register(sessions); err != nil {
		return fmt.Errorf("registering session health check: %w", err)
	}
	if sharedClipboard != nil {
		if err := healthRegistry.Register(sharedClipboard); err != nil {
			return fmt.Errorf("registering clipboard health check: %w", err)
		}
	}
	// A failing image host degrades readiness without failing it.
	if err := healthRegistry.RegisterOptional(loader); err != nil {
		return fmt.Errorf("registering image loader health check: %w", err)
	}

	cookie := middleware.SessionConfig{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.CookieSecure,
		MaxAge:     cfg.Session.IdleTimeout,
	}

	server := http.New(&cfg.Server, logger)

	err = http.SetupRouter(server.Engine(), http.RouterConfig{
		ServiceName: cfg.App.Name,
		Timeout:     cfg.Server.RequestTimeout,
		Health: handlers.NewHealthHandler(healthRegistry,
			handlers.NewBuildInfo(Version, Commit, BuildTime), prometheus.DefaultGatherer),
		Catalog: handlers.NewCatalogHandler(catalog, audit),
		Session: handlers.NewSessionHandler(sessions, cookie),
		Page: handlers.NewPageHandler(handlers.PageSettings{
			CopiedFor: cfg.Presenter.CopiedFor,
			PulseFor:  cfg.Presenter.PulseFor,
		}),
		Sessions: sessions,
		Cookie:   cookie,
	})
	if err != nil {
		return fmt.Errorf("setting up router: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return sessions.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

// newImageLoader builds an image loader over its own resilient client, so
// each loader has a separate circuit breaker.
func newImageLoader(name string, cfg config.ImageLoaderConfig, catalog *domain.Catalog, logger *slog.Logger) (*images.Loader, error) {
	client, err := clients.New(&clients.Config{
		ServiceName: name,
		Timeout:     cfg.Timeout,
		UserAgent:   cfg.UserAgent,
		Retry:       cfg.Retry,
		Circuit:     cfg.CircuitBreaker,
		Transport:   cfg.Transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", name, err)
	}

	return images.NewLoader(images.LoaderConfig{
		Client:   client,
		MaxBytes: cfg.MaxBytes,
		ProbeURL: catalog.Fallback().String(),
		Logger:   logger,
	}), nil
}

// buildCatalog overlays the configured quotes and images on the built-in ones.
func buildCatalog(cfg config.CatalogConfig) (*domain.Catalog, error) {
	quotes := domain.DefaultQuotes()
	if len(cfg.Quotes) > 0 {
		quotes = make([]domain.Quote, len(cfg.Quotes))
		for i, q := range cfg.Quotes {
			quotes[i] = domain.Quote{Text: q.Text, Author: q.Author}
		}
	}

	imgs := domain.DefaultImages()
	if len(cfg.Images) > 0 {
		imgs = make([]domain.ImageRef, len(cfg.Images))
		for i, u := range cfg.Images {
			imgs[i] = domain.ImageRef(u)
		}
	}

	fallback := domain.DefaultFallbackImage
	if cfg.FallbackImage != "" {
		fallback = domain.ImageRef(cfg.FallbackImage)
	}

	return domain.NewCatalog(quotes, imgs, fallback)
}

// clipboardFactory returns the per-session clipboard constructor. The file
// clipboard is shared by every session and is also returned for health checks.
func clipboardFactory(cfg config.ClipboardConfig) (func(string) (ports.Clipboard, error), *clipboard.File, error) {
	switch cfg.Kind {
	case "file":
		f, err := clipboard.NewFile(cfg.Path, cfg.MaxBytes)
		if err != nil {
			return nil, nil, err
		}

		return func(string) (ports.Clipboard, error) { return f, nil }, f, nil
	default:
		return func(string) (ports.Clipboard, error) {
			return clipboard.NewMemory(clipboard.MemoryConfig{History: cfg.History, MaxBytes: cfg.MaxBytes}), nil
		}, nil, nil
	}
}
