// Package view holds an in-memory Renderer whose state is served to the
// browser page. The page polls or receives the snapshot after each action
// and paints it.
package view

import (
	"maps"
	"sync"

	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

// DefaultCopyLabel is the copy button label before any copy.
const DefaultCopyLabel = "Copy"

// Renderer records display updates. It is safe for concurrent use.
type Renderer struct {
	mu    sync.RWMutex
	state ports.ViewState
}

var _ ports.ViewRenderer = (*Renderer)(nil)

// NewRenderer creates an empty view showing copyLabel on the copy button.
// An empty copyLabel uses DefaultCopyLabel.
func NewRenderer(copyLabel string) *Renderer {
	if copyLabel == "" {
		copyLabel = DefaultCopyLabel
	}

	return &Renderer{
		state: ports.ViewState{
			CopyLabel: copyLabel,
			Scales:    map[string]float64{},
		},
	}
}

func (r *Renderer) update(fn func(s *ports.ViewState)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn(&r.state)
	r.state.Version++
}

// SetQuoteText implements ports.Renderer.
func (r *Renderer) SetQuoteText(text string) {
	r.update(func(s *ports.ViewState) { s.QuoteText = text })
}

// SetAuthor implements ports.Renderer.
func (r *Renderer) SetAuthor(author string) {
	r.update(func(s *ports.ViewState) { s.Author = author })
}

// SetLikeCount implements ports.Renderer.
func (r *Renderer) SetLikeCount(n int) {
	r.update(func(s *ports.ViewState) { s.LikeCount = n })
}

// SetBackground implements ports.Renderer.
func (r *Renderer) SetBackground(url string, transition bool) {
	r.update(func(s *ports.ViewState) {
		s.Background = url
		s.BackgroundTransition = transition
	})
}

// SetCopyLabel implements ports.Renderer.
func (r *Renderer) SetCopyLabel(label string) {
	r.update(func(s *ports.ViewState) { s.CopyLabel = label })
}

// CopyLabel implements ports.Renderer.
func (r *Renderer) CopyLabel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.CopyLabel
}

// Pulse implements ports.Renderer. A scale of 1 drops the element from Scales.
func (r *Renderer) Pulse(element string, scale float64) {
	r.update(func(s *ports.ViewState) {
		if scale == 1 {
			delete(s.Scales, element)
			return
		}
		s.Scales[element] = scale
	})
}

// Notify implements ports.Renderer. NoticeSeq lets the page tell a repeated
// notice from one it already showed.
func (r *Renderer) Notify(message string) {
	r.update(func(s *ports.ViewState) {
		s.Notice = message
		s.NoticeSeq++
	})
}

// Snapshot implements ports.ViewRenderer.
func (r *Renderer) Snapshot() ports.ViewState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.state
	s.Scales = maps.Clone(r.state.Scales)

	return s
}
