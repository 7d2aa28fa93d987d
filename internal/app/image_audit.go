package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

// Image audit defaults.
const (
	DefaultAuditConcurrency = 4
	DefaultAuditTimeout     = 30 * time.Second
)

// ImageStatus is the probe result for one image URL.
type ImageStatus struct {
	URL      string        `json:"url"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// AuditReport summarizes an image catalog audit.
type AuditReport struct {
	// Images holds one entry per distinct catalog URL, in catalog order.
	Images []ImageStatus `json:"images"`

	// Fallback is the probe result for the default image.
	Fallback ImageStatus `json:"fallback"`

	Total      int `json:"total"`
	Distinct   int `json:"distinct"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// ImageAuditConfig configures an ImageAudit.
type ImageAuditConfig struct {
	Catalog     *domain.Catalog
	ImageLoader ports.ImageLoader

	// Concurrency bounds parallel probes. Defaults to DefaultAuditConcurrency.
	Concurrency int

	// Timeout bounds one audit. Defaults to DefaultAuditTimeout.
	Timeout time.Duration

	// CacheFor serves the last report to callers for this long instead of
	// probing again. Zero disables the cache.
	CacheFor time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// ImageAudit probes every image in the catalog. The catalog repeats some
// URLs on purpose (to weight the random pick), so each URL is probed once.
// Concurrent callers share one audit, and a recent report is reused.
type ImageAudit struct {
	catalog     *domain.Catalog
	loader      ports.ImageLoader
	concurrency int
	timeout     time.Duration
	cacheFor    time.Duration
	now         func() time.Time
	logger      *slog.Logger

	flight singleflight.Group

	mu     sync.Mutex
	last   *AuditReport
	lastAt time.Time
}

// NewImageAudit creates an image auditor.
// Panics if Catalog or ImageLoader is nil.
func NewImageAudit(cfg ImageAuditConfig) *ImageAudit {
	if cfg.Catalog == nil {
		panic("ImageAudit: Catalog is required")
	}
	if cfg.ImageLoader == nil {
		panic("ImageAudit: ImageLoader is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultAuditConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAuditTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &ImageAudit{
		catalog:     cfg.Catalog,
		loader:      cfg.ImageLoader,
		concurrency: cfg.Concurrency,
		timeout:     cfg.Timeout,
		cacheFor:    cfg.CacheFor,
		now:         cfg.Now,
		logger:      cfg.Logger.With(slog.String("component", "app.ImageAudit")),
	}
}

// Run probes the distinct catalog images and the fallback image, or returns
// the last report while it is younger than CacheFor. Probe failures are
// reported in the result; an error is returned only when ctx or the audit
// timeout ends the audit early.
func (a *ImageAudit) Run(ctx context.Context) (*AuditReport, error) {
	if report, ok := a.cached(); ok {
		return report, nil
	}

	v, err, _ := a.flight.Do("audit", func() (any, error) {
		if report, ok := a.cached(); ok {
			return report, nil
		}

		auditCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		report, err := a.audit(auditCtx)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		a.last, a.lastAt = report, a.now()
		a.mu.Unlock()

		return report, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*AuditReport), nil
}

func (a *ImageAudit) cached() (*AuditReport, bool) {
	if a.cacheFor <= 0 {
		return nil, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.last == nil || a.now().Sub(a.lastAt) >= a.cacheFor {
		return nil, false
	}

	return a.last, true
}

func (a *ImageAudit) audit(ctx context.Context) (*AuditReport, error) {
	images := a.catalog.Images()

	seen := mapset.NewThreadUnsafeSet[domain.ImageRef]()
	distinct := make([]domain.ImageRef, 0, len(images))
	for _, img := range images {
		if seen.Add(img) {
			distinct = append(distinct, img)
		}
	}

	report := &AuditReport{
		Images:     make([]ImageStatus, len(distinct)),
		Total:      len(images),
		Distinct:   len(distinct),
		Duplicates: len(images) - len(distinct),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	var mu sync.Mutex

	for i, img := range distinct {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			status := a.probe(gctx, img)

			mu.Lock()
			defer mu.Unlock()

			report.Images[i] = status
			if !status.OK {
				report.Failed++
			}

			return nil
		})
	}

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}

		report.Fallback = a.probe(gctx, a.catalog.Fallback())

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("image audit interrupted: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("image audit interrupted: %w", err)
	}

	a.logger.InfoContext(ctx, "image audit finished",
		slog.Int("distinct", report.Distinct),
		slog.Int("failed", report.Failed),
		slog.Bool("fallback_ok", report.Fallback.OK),
	)

	return report, nil
}

func (a *ImageAudit) probe(ctx context.Context, img domain.ImageRef) ImageStatus {
	start := time.Now()
	err := a.loader.TryLoad(ctx, img.String())

	status := ImageStatus{
		URL:      img.String(),
		OK:       err == nil,
		Duration: time.Since(start),
	}
	if err != nil {
		status.Error = err.Error()
		a.logger.WarnContext(ctx, "image probe failed",
			slog.String("url", img.String()),
			slog.Any("error", err),
		)
	}

	return status
}
