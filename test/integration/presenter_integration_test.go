//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/dto"
)

func startHarness(t *testing.T) *harness {
	t.Helper()

	h, err := newHarness()
	require.NoError(t, err)
	t.Cleanup(h.Close)

	return h
}

func doJSON[T any](t *testing.T, h *harness, method, path string) T {
	t.Helper()

	status, body, err := h.do(context.Background(), method, path)
	require.NoError(t, err)
	require.Less(t, status, http.StatusBadRequest, string(body))

	var v T
	require.NoError(t, json.Unmarshal(body, &v))

	return v
}

// TestPresenter_ConcurrentLikes verifies no like is lost when one session
// is liked from many requests at once.
func TestPresenter_ConcurrentLikes(t *testing.T) {
	h := startHarness(t)
	doJSON[dto.ViewResponse](t, h, http.MethodGet, "/api/v1/session")

	const likes = 40
	var wg sync.WaitGroup

	for range likes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := h.do(context.Background(), http.MethodPost, "/api/v1/session/like")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view := doJSON[dto.ViewResponse](t, h, http.MethodGet, "/api/v1/session")
	assert.Equal(t, likes, view.View.LikeCount)
}

// TestPresenter_ConcurrentNextQuotes verifies the last background applied
// belongs to a quote that was actually requested, and that every request
// settles as loaded, fallback or superseded.
func TestPresenter_ConcurrentNextQuotes(t *testing.T) {
	h := startHarness(t)
	doJSON[dto.ViewResponse](t, h, http.MethodGet, "/api/v1/session")

	const requests = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[string]int{}
	)

	for range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()

			resp := doJSON[dto.NextQuoteResponse](t, h, http.MethodPost, "/api/v1/session/next?wait=true")

			mu.Lock()
			outcomes[resp.Background]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	total := 0
	for outcome, n := range outcomes {
		assert.Contains(t, []string{"loaded", "fallback", "superseded"}, outcome)
		total += n
	}
	assert.Equal(t, requests, total)

	view := doJSON[dto.ViewResponse](t, h, http.MethodGet, "/api/v1/session")
	assert.NotEmpty(t, view.View.Background)
	assert.Equal(t, 0, view.View.LikeCount)
}

// TestPresenter_SessionsAreIsolated verifies two visitors never share state.
func TestPresenter_SessionsAreIsolated(t *testing.T) {
	alice := startHarness(t)

	bob := *alice
	bobJar, err := newJarClient()
	require.NoError(t, err)
	bob.client = bobJar

	doJSON[dto.ViewResponse](t, alice, http.MethodGet, "/api/v1/session")
	doJSON[dto.ViewResponse](t, &bob, http.MethodGet, "/api/v1/session")

	doJSON[dto.LikeResponse](t, alice, http.MethodPost, "/api/v1/session/like")
	doJSON[dto.LikeResponse](t, alice, http.MethodPost, "/api/v1/session/like")

	a := doJSON[dto.ViewResponse](t, alice, http.MethodGet, "/api/v1/session")
	b := doJSON[dto.ViewResponse](t, &bob, http.MethodGet, "/api/v1/session")

	assert.NotEqual(t, a.SessionID, b.SessionID)
	assert.Equal(t, 2, a.View.LikeCount)
	assert.Equal(t, 0, b.View.LikeCount)
	assert.Equal(t, 2, alice.sessions.Len())
}

// TestPresenter_MetricsFollowActions verifies the presenter counters.
func TestPresenter_MetricsFollowActions(t *testing.T) {
	h := startHarness(t)

	doJSON[dto.ViewResponse](t, h, http.MethodGet, "/api/v1/session")
	doJSON[dto.LikeResponse](t, h, http.MethodPost, "/api/v1/session/like")
	doJSON[dto.CopyResponse](t, h, http.MethodPost, "/api/v1/session/copy?wait=true")

	h.clipboardFail.Store(true)
	doJSON[dto.CopyResponse](t, h, http.MethodPost, "/api/v1/session/copy?wait=true")

	status, body, err := h.do(context.Background(), http.MethodGet, "/-/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	text := string(body)
	assert.Contains(t, text, "quote_presenter_likes_total 1")
	assert.Contains(t, text, `quote_presenter_copies_total{result="ok"} 1`)
	assert.Contains(t, text, `quote_presenter_copies_total{result="failed"} 1`)
	assert.Contains(t, text, "quote_presenter_active_sessions 1")

	n, err := testutil.GatherAndCount(h.registry, "quote_presenter_quotes_shown_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
