package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/clipboard"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/view"
	"github.com/jsamuelsen/quote-presenter/internal/app"
	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/mocks"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

const (
	testImage    domain.ImageRef = "https://img.example/one.jpg"
	testFallback domain.ImageRef = "https://img.example/fallback.jpg"
)

func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()

	c, err := domain.NewCatalog(
		[]domain.Quote{
			{Text: "Stay hungry, stay foolish.", Author: "Steve Jobs"},
			{Text: "Simplicity is the soul of efficiency.", Author: "Austin Freeman"},
		},
		[]domain.ImageRef{testImage},
		testFallback,
	)
	require.NoError(t, err)

	return c
}

type sessionFixture struct {
	sessions  *app.Sessions
	loader    *mocks.MockImageLoader
	scheduler *mocks.Scheduler
	router    *gin.Engine
}

// newSessionFixture wires real sessions to a router. newClipboard may be nil
// for a per-session in-memory clipboard.
func newSessionFixture(t *testing.T, newClipboard func(string) (ports.Clipboard, error)) *sessionFixture {
	t.Helper()

	if newClipboard == nil {
		newClipboard = func(string) (ports.Clipboard, error) {
			return clipboard.NewMemory(clipboard.MemoryConfig{}), nil
		}
	}

	loader := mocks.NewMockImageLoader(t)
	scheduler := mocks.NewScheduler()

	sessions := app.NewSessions(app.SessionsConfig{
		Catalog:      testCatalog(t),
		ImageLoader:  loader,
		NewRenderer:  func() ports.ViewRenderer { return view.NewRenderer("") },
		NewClipboard: newClipboard,
		Scheduler:    scheduler,
		Picker:       func(int) int { return 0 },
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	cookie := middleware.SessionConfig{CookieName: "quote_session"}

	r := gin.New()
	grp := r.Group("/api/v1/session", middleware.Session(sessions, cookie))
	NewSessionHandler(sessions, cookie).RegisterRoutes(grp)

	return &sessionFixture{sessions: sessions, loader: loader, scheduler: scheduler, router: r}
}

func (f *sessionFixture) do(method, path, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if sessionID != "" {
		req.Header.Set(middleware.HeaderSessionID, sessionID)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	return w
}

// start opens a session and waits for its first background to settle.
func (f *sessionFixture) start(t *testing.T) string {
	t.Helper()

	w := f.do(http.MethodPost, "/api/v1/session/next?wait=true", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	id := w.Header().Get(middleware.HeaderSessionID)
	require.NotEmpty(t, id)

	return id
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

func TestSessionHandler_View_StartsSession(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.loader.EXPECT().TryLoad(mock.Anything, testImage.String()).Return(nil).Maybe()

	w := f.do(http.MethodGet, "/api/v1/session", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.ViewResponse](t, w)

	assert.Equal(t, w.Header().Get(middleware.HeaderSessionID), resp.SessionID)
	assert.Equal(t, `"Stay hungry, stay foolish."`, resp.View.QuoteText)
	assert.Equal(t, "- Steve Jobs", resp.View.Author)
	assert.Equal(t, 0, resp.View.LikeCount)
	assert.Equal(t, app.DefaultCopyLabel, resp.View.CopyLabel)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "quote_session="+resp.SessionID)
	assert.Equal(t, 1, f.sessions.Len())
}

func TestSessionHandler_Next(t *testing.T) {
	tests := []struct {
		name           string
		loadErr        error
		wantBackground string
		wantImage      domain.ImageRef
		wantTransition bool
	}{
		{
			name:           "image loads",
			wantBackground: BackgroundLoaded,
			wantImage:      testImage,
			wantTransition: true,
		},
		{
			name:           "image fails and fallback applies",
			loadErr:        domain.NewImageLoadError(testImage, "status 404"),
			wantBackground: BackgroundFallback,
			wantImage:      testFallback,
		},
		{
			name:           "non-domain loader error still falls back",
			loadErr:        errors.New("dial tcp: connection refused"),
			wantBackground: BackgroundFallback,
			wantImage:      testFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t, nil)
			f.loader.EXPECT().TryLoad(mock.Anything, testImage.String()).Return(tt.loadErr)

			w := f.do(http.MethodPost, "/api/v1/session/next?wait=true", "")

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decode[dto.NextQuoteResponse](t, w)

			assert.Equal(t, tt.wantBackground, resp.Background)
			assert.Equal(t, tt.wantImage.String(), resp.View.Background)
			assert.Equal(t, tt.wantTransition, resp.View.BackgroundTransition)
			assert.Equal(t, 0, resp.View.LikeCount)
		})
	}
}

func TestSessionHandler_Next_WithoutWait(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

	id := f.start(t)

	w := f.do(http.MethodPost, "/api/v1/session/next", id)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.NextQuoteResponse](t, w)

	assert.Equal(t, id, resp.SessionID)
	assert.Empty(t, resp.Background)
	assert.NotEmpty(t, resp.View.QuoteText)
}

func TestSessionHandler_Next_InvalidWait(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

	w := f.do(http.MethodPost, "/api/v1/session/next?wait=sometimes", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Like(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

	id := f.start(t)

	for want := 1; want <= 3; want++ {
		w := f.do(http.MethodPost, "/api/v1/session/like", id)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.LikeResponse](t, w)

		assert.True(t, resp.Accepted)
		assert.Equal(t, want, resp.Likes)
		assert.Equal(t, want, resp.View.LikeCount)
		assert.InDelta(t, app.DefaultPulseScale, resp.View.Scales[ports.ElementLikeButton], 0.0001)
	}

	f.scheduler.Advance(app.DefaultPulseFor)

	resp := decode[dto.ViewResponse](t, f.do(http.MethodGet, "/api/v1/session", id))
	assert.NotContains(t, resp.View.Scales, ports.ElementLikeButton)

	// A new quote resets the counter.
	resp = decode[dto.ViewResponse](t, f.do(http.MethodPost, "/api/v1/session/next?wait=true", id))
	assert.Equal(t, 0, resp.View.LikeCount)
}

func TestSessionHandler_Copy_Wait(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

	id := f.start(t)

	w := f.do(http.MethodPost, "/api/v1/session/copy?wait=true", id)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.CopyResponse](t, w)

	assert.True(t, resp.Started)
	assert.True(t, resp.Copied)
	assert.False(t, resp.Pending)
	assert.Equal(t, `"Stay hungry, stay foolish." - Steve Jobs`, resp.Text)
	assert.Equal(t, app.DefaultCopiedLabel, resp.View.CopyLabel)

	f.scheduler.Advance(app.DefaultCopiedFor)

	view := decode[dto.ViewResponse](t, f.do(http.MethodGet, "/api/v1/session", id))
	assert.Equal(t, app.DefaultCopyLabel, view.View.CopyLabel)

	clip := decode[dto.ClipboardResponse](t, f.do(http.MethodGet, "/api/v1/session/clipboard", id))
	assert.Equal(t, resp.Text, clip.Text)
	assert.Equal(t, []string{resp.Text}, clip.History)
}

func TestSessionHandler_Copy_WithoutWait(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

	id := f.start(t)

	w := f.do(http.MethodPost, "/api/v1/session/copy", id)

	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decode[dto.CopyResponse](t, w)

	assert.True(t, resp.Started)
	assert.True(t, resp.Pending)
	assert.False(t, resp.Copied)
}

func TestSessionHandler_Copy_ClipboardFails(t *testing.T) {
	f := newSessionFixture(t, func(string) (ports.Clipboard, error) {
		cb := mocks.NewMockClipboard(t)
		cb.EXPECT().Write(mock.Anything, mock.Anything).
			Return(domain.NewClipboardWriteError("permission denied")).Maybe()

		return cb, nil
	})
	f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

	id := f.start(t)

	w := f.do(http.MethodPost, "/api/v1/session/copy?wait=true", id)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.CopyResponse](t, w)

	assert.True(t, resp.Started)
	assert.False(t, resp.Copied)
	assert.Empty(t, resp.Text)
	assert.Equal(t, app.DefaultCopyFailedNotice, resp.Error)
	assert.Equal(t, app.DefaultCopyLabel, resp.View.CopyLabel, "label is untouched on failure")
	assert.Equal(t, uint64(1), resp.View.NoticeSeq)
}

func TestSessionHandler_Clipboard(t *testing.T) {
	t.Run("nothing copied yet", func(t *testing.T) {
		f := newSessionFixture(t, nil)
		f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

		id := f.start(t)
		w := f.do(http.MethodGet, "/api/v1/session/clipboard", id)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("write-only clipboard", func(t *testing.T) {
		f := newSessionFixture(t, func(string) (ports.Clipboard, error) {
			return mocks.NewMockClipboard(t), nil
		})
		f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

		id := f.start(t)
		w := f.do(http.MethodGet, "/api/v1/session/clipboard", id)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("shared file clipboard is not readable per session", func(t *testing.T) {
		shared, err := clipboard.NewFile(filepath.Join(t.TempDir(), "clipboard.txt"), 0)
		require.NoError(t, err)

		f := newSessionFixture(t, func(string) (ports.Clipboard, error) { return shared, nil })
		f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

		alice := f.start(t)
		bob := f.start(t)
		require.NotEqual(t, alice, bob)

		w := f.do(http.MethodPost, "/api/v1/session/copy?wait=true", alice)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		copied := decode[dto.CopyResponse](t, w)
		assert.True(t, copied.Copied)
		assert.Equal(t, `"Stay hungry, stay foolish." - Steve Jobs`, copied.Text)

		w = f.do(http.MethodGet, "/api/v1/session/clipboard", bob)
		assert.Equal(t, http.StatusNotFound, w.Code, "another session's copy must not leak")

		text, ok := shared.Contents()
		require.True(t, ok)
		assert.Equal(t, copied.Text, text)
	})
}

func TestSessionHandler_End(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

	id := f.start(t)
	require.Equal(t, 1, f.sessions.Len())

	w := f.do(http.MethodDelete, "/api/v1/session", id)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "quote_session=;")
	assert.Equal(t, 0, f.sessions.Len())
}

func TestSessionHandler_SessionLimit(t *testing.T) {
	loader := mocks.NewMockImageLoader(t)
	loader.EXPECT().TryLoad(mock.Anything, mock.Anything).Return(nil).Maybe()

	sessions := app.NewSessions(app.SessionsConfig{
		Catalog:     testCatalog(t),
		ImageLoader: loader,
		NewRenderer: func() ports.ViewRenderer { return view.NewRenderer("") },
		NewClipboard: func(string) (ports.Clipboard, error) {
			return clipboard.NewMemory(clipboard.MemoryConfig{}), nil
		},
		Scheduler:   mocks.NewScheduler(),
		MaxSessions: 1,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	r := gin.New()
	grp := r.Group("/api/v1/session", middleware.Session(sessions, middleware.SessionConfig{}))
	NewSessionHandler(sessions, middleware.SessionConfig{}).RegisterRoutes(grp)

	first := get(r, "/api/v1/session")
	require.Equal(t, http.StatusOK, first.Code)

	second := get(r, "/api/v1/session")
	assert.Equal(t, http.StatusServiceUnavailable, second.Code)
	assert.Contains(t, second.Body.String(), dto.ErrorCodeUnavailable)
}

// slowLoader accepts every image after delay.
type slowLoader struct {
	delay time.Duration
}

func (l slowLoader) TryLoad(context.Context, string) error {
	time.Sleep(l.delay)
	return nil
}

// newDeadlineRouter serves the session routes behind a request deadline,
// over a loader slower or faster than that deadline. Quote picks alternate
// between the two catalog quotes, starting with the first.
func newDeadlineRouter(t *testing.T, loadDelay, timeout time.Duration) *gin.Engine {
	t.Helper()

	picks := 0
	sessions := app.NewSessions(app.SessionsConfig{
		Catalog:     testCatalog(t),
		ImageLoader: slowLoader{delay: loadDelay},
		NewRenderer: func() ports.ViewRenderer { return view.NewRenderer("") },
		NewClipboard: func(string) (ports.Clipboard, error) {
			return clipboard.NewMemory(clipboard.MemoryConfig{}), nil
		},
		Scheduler: mocks.NewScheduler(),
		// Each NextQuote picks a quote then an image.
		Picker: func(n int) int {
			i := picks / 2
			picks++
			return i % n
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	cookie := middleware.SessionConfig{CookieName: "quote_session"}

	r := gin.New()
	r.Use(middleware.Timeout(timeout))
	grp := r.Group("/api/v1/session", middleware.Session(sessions, cookie))
	NewSessionHandler(sessions, cookie).RegisterRoutes(grp)

	return r
}

func TestSessionHandler_Next_DeadlineStillShowsNewQuote(t *testing.T) {
	r := newDeadlineRouter(t, 300*time.Millisecond, 100*time.Millisecond)

	start := time.Now()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/session/next?wait=true", nil))
	elapsed := time.Since(start)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Less(t, elapsed, 300*time.Millisecond, "must not wait for the image check")

	resp := decode[dto.NextQuoteResponse](t, w)
	assert.Equal(t, BackgroundPending, resp.Background)
	assert.Equal(t, `"Simplicity is the soul of efficiency."`, resp.View.QuoteText)
	assert.Equal(t, "- Austin Freeman", resp.View.Author)
	assert.Equal(t, 0, resp.View.LikeCount)
	assert.Empty(t, resp.View.Background)
}

func TestSessionHandler_Copy_DeadlineReportsPending(t *testing.T) {
	f := newSessionFixture(t, func(string) (ports.Clipboard, error) {
		return blockingClipboard{}, nil
	})
	f.loader.EXPECT().TryLoad(mock.Anything, testImage.String()).Return(nil).Maybe()

	r := gin.New()
	r.Use(middleware.Timeout(50 * time.Millisecond))
	r.Any("/*path", gin.WrapH(f.router))

	id := f.start(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/copy?wait=true", nil)
	req.Header.Set(middleware.HeaderSessionID, id)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp := decode[dto.CopyResponse](t, w)
	assert.True(t, resp.Started)
	assert.True(t, resp.Pending)
}

// blockingClipboard finishes its writes well after any test deadline.
type blockingClipboard struct{}

func (blockingClipboard) Write(context.Context, string) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func TestSessionHandler_Background(t *testing.T) {
	r := newDeadlineRouter(t, 20*time.Millisecond, 5*time.Second)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/session/next", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	next := decode[dto.NextQuoteResponse](t, w)
	assert.Empty(t, next.Background)
	assert.Equal(t, "- Austin Freeman", next.View.Author)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/background", nil)
	req.Header.Set(middleware.HeaderSessionID, next.SessionID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.NextQuoteResponse](t, w)
	assert.Equal(t, BackgroundLoaded, resp.Background)
	assert.Equal(t, testImage.String(), resp.View.Background)
	assert.True(t, resp.View.BackgroundTransition)
	assert.Equal(t, "- Austin Freeman", resp.View.Author)
}

func TestSessionHandler_Background_Deadline(t *testing.T) {
	r := newDeadlineRouter(t, 300*time.Millisecond, 50*time.Millisecond)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/session/background", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.NextQuoteResponse](t, w)
	assert.Equal(t, BackgroundPending, resp.Background)
	assert.Equal(t, "- Steve Jobs", resp.View.Author)
}
