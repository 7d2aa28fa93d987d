//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/clients"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/clients/images"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/clipboard"
	internalhttp "github.com/jsamuelsen/quote-presenter/internal/adapters/http"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/view"
	"github.com/jsamuelsen/quote-presenter/internal/app"
	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/mocks"
	"github.com/jsamuelsen/quote-presenter/internal/platform/config"
	"github.com/jsamuelsen/quote-presenter/internal/platform/metrics"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Catalog used by every integration test. Image 0 loads, image 1 is missing.
var testQuotes = []domain.Quote{
	{Text: "Stay hungry, stay foolish.", Author: "Steve Jobs"},
	{Text: "Well done is better than well said.", Author: "Benjamin Franklin"},
	{Text: "Simplicity is the soul of efficiency.", Author: "Austin Freeman"},
}

// jpegBytes is enough of a JPEG for the loader, which only checks type and size.
var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 128)...)

// newImageHost serves /ok/* as JPEGs, /slow/* after a delay and 404s the rest.
// hits counts requests per path.
func newImageHost(hits *sync.Map) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			n, _ := hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
			n.(*atomic.Int32).Add(1)
		}

		switch {
		case strings.HasPrefix(r.URL.Path, "/ok/"):
		case strings.HasPrefix(r.URL.Path, "/slow/"):
			time.Sleep(100 * time.Millisecond)
		default:
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegBytes)
	}))
}

// pickQueue feeds the presenter's random picks. An empty queue picks 0.
type pickQueue struct {
	mu    sync.Mutex
	picks []int
}

func (q *pickQueue) Push(picks ...int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.picks = append(q.picks, picks...)
}

func (q *pickQueue) Pick(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.picks) == 0 {
		return 0
	}

	v := q.picks[0]
	q.picks = q.picks[1:]

	return v % n
}

// switchClipboard is a memory clipboard that rejects writes while fail is set.
type switchClipboard struct {
	*clipboard.Memory
	fail *atomic.Bool
}

func (c switchClipboard) Write(ctx context.Context, text string) error {
	if c.fail.Load() {
		return domain.NewClipboardWriteError("permission denied")
	}

	return c.Memory.Write(ctx, text)
}

type harness struct {
	imageHost *httptest.Server
	server    *httptest.Server
	client    *http.Client

	sessions      *app.Sessions
	scheduler     *mocks.Scheduler
	picks         *pickQueue
	clipboardFail *atomic.Bool
	registry      *prometheus.Registry
}

// newHarness runs the full router in-process against a local image host.
func newHarness() (*harness, error) {
	h := &harness{
		imageHost:     newImageHost(nil),
		scheduler:     mocks.NewScheduler(),
		picks:         &pickQueue{},
		clipboardFail: &atomic.Bool{},
		registry:      prometheus.NewRegistry(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalog, err := domain.NewCatalog(testQuotes,
		[]domain.ImageRef{
			domain.ImageRef(h.imageHost.URL + "/ok/1.jpg"),
			domain.ImageRef(h.imageHost.URL + "/missing/2.jpg"),
		},
		domain.ImageRef(h.imageHost.URL+"/ok/fallback.jpg"),
	)
	if err != nil {
		return nil, err
	}

	imageClient, err := clients.New(imageClientConfig())
	if err != nil {
		return nil, err
	}

	loader := images.NewLoader(images.LoaderConfig{
		Client:   imageClient,
		ProbeURL: catalog.Fallback().String(),
		Logger:   logger,
	})

	h.sessions = app.NewSessions(app.SessionsConfig{
		Catalog:     catalog,
		ImageLoader: loader,
		NewRenderer: func() ports.ViewRenderer { return view.NewRenderer("") },
		NewClipboard: func(string) (ports.Clipboard, error) {
			return switchClipboard{Memory: clipboard.NewMemory(clipboard.MemoryConfig{}), fail: h.clipboardFail}, nil
		},
		Scheduler: h.scheduler,
		Picker:    h.picks.Pick,
		Observer:  metrics.NewPresenter(h.registry),
		Logger:    logger,
	})

	registry := ports.NewHealthRegistry()
	if err := registry.Register(h.sessions); err != nil {
		return nil, err
	}
	if err := registry.RegisterOptional(loader); err != nil {
		return nil, err
	}

	cookie := middleware.SessionConfig{CookieName: "quote_session"}

	engine := gin.New()
	err = internalhttp.SetupRouter(engine, internalhttp.RouterConfig{
		ServiceName: "quote-presenter-it",
		Timeout:     5 * time.Second,
		Health:      handlers.NewHealthHandler(registry, handlers.NewBuildInfo("it", "none", "now"), h.registry),
		Catalog: handlers.NewCatalogHandler(catalog, app.NewImageAudit(app.ImageAuditConfig{
			Catalog: catalog, ImageLoader: loader, Logger: logger,
		})),
		Session:  handlers.NewSessionHandler(h.sessions, cookie),
		Page:     handlers.NewPageHandler(handlers.PageSettings{}),
		Sessions: h.sessions,
		Cookie:   cookie,
	})
	if err != nil {
		return nil, err
	}

	h.server = httptest.NewServer(engine)

	h.client, err = newJarClient()
	if err != nil {
		return nil, err
	}

	return h, nil
}

// newJarClient returns a client that keeps its own session cookie.
func newJarClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &http.Client{Jar: jar, Timeout: 10 * time.Second}, nil
}

func imageClientConfig() *clients.Config {
	return &clients.Config{
		ServiceName: "image-host",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   50,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 1,
		},
	}
}

// do sends a request with the harness cookie jar and returns status and body.
func (h *harness) do(ctx context.Context, method, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.server.URL+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading body: %w", err)
	}

	return resp.StatusCode, body, nil
}

func (h *harness) Close() {
	h.server.Close()
	h.imageHost.Close()
}
