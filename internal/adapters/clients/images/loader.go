// Package images probes background images over HTTP.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/clients"
	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/platform/logging"
)

// DefaultMaxBytes caps how much of an image body a probe reads.
const DefaultMaxBytes = 8 << 20

// LoaderConfig contains configuration for the image loader.
type LoaderConfig struct {
	// Client performs the requests. Its BaseURL is unused since catalog
	// images are absolute URLs.
	Client *clients.Client

	// MaxBytes rejects images larger than this. Defaults to DefaultMaxBytes.
	MaxBytes int64

	// ProbeURL is fetched by the health check, normally the fallback image.
	ProbeURL string

	Logger *slog.Logger
}

// Loader implements ports.ImageLoader by downloading the image the way a
// browser would before swapping it in.
type Loader struct {
	client   *clients.Client
	maxBytes int64
	probeURL string
	logger   *slog.Logger
}

// NewLoader creates an image loader.
// Panics if Client is nil.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Client == nil {
		panic("images.Loader: Client is required")
	}

	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader{
		client:   cfg.Client,
		maxBytes: cfg.MaxBytes,
		probeURL: cfg.ProbeURL,
		logger:   logger.With(slog.String("component", "images.Loader")),
	}
}

// TryLoad fetches url and checks that it is a complete image.
// Every failure is a *domain.ImageLoadError.
func (l *Loader) TryLoad(ctx context.Context, url string) error {
	ref := domain.ImageRef(url)
	l.logger.Log(ctx, logging.LevelTrace, "loading image", slog.String("url", url))

	resp, err := l.client.Get(ctx, url)
	if err != nil {
		return domain.NewImageLoadError(ref, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.NewImageLoadError(ref, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	if ct := resp.Header.Get("Content-Type"); !isImage(ct) {
		return domain.NewImageLoadError(ref, fmt.Sprintf("unexpected content type %q", ct))
	}

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return domain.NewImageLoadError(ref, fmt.Sprintf("reading body: %v", err))
	}
	if n > l.maxBytes {
		return domain.NewImageLoadError(ref, fmt.Sprintf("image exceeds %d bytes", l.maxBytes))
	}
	if n == 0 {
		return domain.NewImageLoadError(ref, "empty body")
	}

	l.logger.Log(ctx, logging.LevelTrace, "image loaded",
		slog.String("url", url),
		slog.Int64("bytes", n),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (l *Loader) Name() string {
	return "image-loader"
}

// Check implements ports.HealthChecker by loading the probe image.
func (l *Loader) Check(ctx context.Context) error {
	if l.probeURL == "" {
		return nil
	}

	if err := l.TryLoad(ctx, l.probeURL); err != nil {
		return domain.NewUnavailableError("image-host", err.Error())
	}

	return nil
}

func isImage(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return strings.HasPrefix(mediaType, "image/")
}
