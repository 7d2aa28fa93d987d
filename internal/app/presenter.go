// Package app contains application services that orchestrate use cases.
// This is the application layer in Clean Architecture - it coordinates
// domain state and collaborators through ports.
//
// The Presenter drives one page session: it picks quotes and backgrounds,
// tracks likes, and copies the current quote, telling a ports.Renderer what
// to show. Sessions owns one Presenter per browser session.
package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/platform/logging"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

const instrumentationName = "github.com/jsamuelsen/quote-presenter/internal/app"

// Presenter defaults.
const (
	DefaultCopyLabel        = "Copy"
	DefaultCopiedLabel      = "Copied!"
	DefaultCopiedFor        = 2 * time.Second
	DefaultCopyFailedNotice = "Failed to copy quote"
	DefaultPulseScale       = 1.2
	DefaultPulseFor         = 150 * time.Millisecond
)

// Picker returns a uniformly random index in [0, n). n is always positive.
type Picker func(n int) int

// Observer receives presenter events, typically to record metrics.
type Observer interface {
	QuoteShown()
	Liked()
	CopyFinished(err error)
	BackgroundApplied(fallback bool)
}

type noopObserver struct{}

func (noopObserver) QuoteShown() {}
func (noopObserver) Liked() {}
func (noopObserver) CopyFinished(error) {}
func (noopObserver) BackgroundApplied(bool) {}

// PresenterSettings holds the cosmetic constants of the page.
type PresenterSettings struct {
	// CopiedLabel replaces the copy label after a successful copy.
	CopiedLabel string

	// CopiedFor is how long CopiedLabel stays before the prior label returns.
	CopiedFor time.Duration

	// CopyFailedNotice is shown when the clipboard rejects a write.
	CopyFailedNotice string

	// PulseScale is how far the like button grows on a like.
	PulseScale float64

	// PulseFor is how long the like button stays scaled.
	PulseFor time.Duration
}

// DefaultPresenterSettings returns the stock page settings.
func DefaultPresenterSettings() PresenterSettings {
	return PresenterSettings{
		CopiedLabel:      DefaultCopiedLabel,
		CopiedFor:        DefaultCopiedFor,
		CopyFailedNotice: DefaultCopyFailedNotice,
		PulseScale:       DefaultPulseScale,
		PulseFor:         DefaultPulseFor,
	}
}

// withDefaults fills zero fields from DefaultPresenterSettings.
func (s PresenterSettings) withDefaults() PresenterSettings {
	d := DefaultPresenterSettings()
	if s.CopiedLabel == "" {
		s.CopiedLabel = d.CopiedLabel
	}
	if s.CopiedFor <= 0 {
		s.CopiedFor = d.CopiedFor
	}
	if s.CopyFailedNotice == "" {
		s.CopyFailedNotice = d.CopyFailedNotice
	}
	if s.PulseScale <= 0 {
		s.PulseScale = d.PulseScale
	}
	if s.PulseFor <= 0 {
		s.PulseFor = d.PulseFor
	}

	return s
}

// PresenterConfig contains the dependencies of a Presenter.
type PresenterConfig struct {
	Catalog     *domain.Catalog
	Renderer    ports.Renderer
	ImageLoader ports.ImageLoader
	Clipboard   ports.Clipboard

	// Scheduler defaults to ports.SystemScheduler.
	Scheduler ports.Scheduler

	// Picker defaults to math/rand/v2 IntN.
	Picker Picker

	Settings PresenterSettings
	Observer Observer
	Logger   *slog.Logger
}

// Presenter owns one session's state and drives its Renderer.
// All methods are safe for concurrent use; operations on one Presenter are
// serialized so each runs to completion before the next begins.
type Presenter struct {
	catalog   *domain.Catalog
	renderer  ports.Renderer
	loader    ports.ImageLoader
	clipboard ports.Clipboard
	scheduler ports.Scheduler
	picker    Picker
	settings  PresenterSettings
	observer  Observer
	logger    *slog.Logger
	tracer    trace.Tracer

	mu    sync.Mutex
	state domain.SessionState

	// backgroundGen identifies the newest NextQuote; older image checks are dropped.
	backgroundGen uint64
	background    *Completion

	pulseGen   uint64
	pulseTimer ports.Timer

	labelGen     uint64
	labelTimer   ports.Timer
	labelPending bool
	restoreLabel string
}

// NewPresenter creates a presenter with no quote displayed.
// Panics if Catalog, Renderer, ImageLoader or Clipboard is nil.
func NewPresenter(cfg PresenterConfig) *Presenter {
	switch {
	case cfg.Catalog == nil:
		panic("Presenter: Catalog is required")
	case cfg.Renderer == nil:
		panic("Presenter: Renderer is required")
	case cfg.ImageLoader == nil:
		panic("Presenter: ImageLoader is required")
	case cfg.Clipboard == nil:
		panic("Presenter: Clipboard is required")
	}

	p := &Presenter{
		catalog:   cfg.Catalog,
		renderer:  cfg.Renderer,
		loader:    cfg.ImageLoader,
		clipboard: cfg.Clipboard,
		scheduler: cfg.Scheduler,
		picker:    cfg.Picker,
		settings:  cfg.Settings.withDefaults(),
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		tracer:    otel.Tracer(instrumentationName),
	}

	if p.scheduler == nil {
		p.scheduler = ports.SystemScheduler{}
	}
	if p.picker == nil {
		p.picker = rand.IntN
	}
	if p.observer == nil {
		p.observer = noopObserver{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With(slog.String("component", "app.Presenter"))

	return p
}

// Current returns the displayed quote, its like count, and whether a quote is shown.
func (p *Presenter) Current() (domain.Quote, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, ok := p.state.Current()

	return q, p.state.LikeCount(), ok
}

// NextQuote shows a random quote with zero likes and starts loading a random
// background. Text and counter are rendered before NextQuote returns; the
// background is applied when the returned Completion finishes. Its error is
// nil when the chosen image was applied, a domain.ErrImageLoad error when
// the fallback was applied instead, or ErrSuperseded when a later NextQuote
// made the result irrelevant.
func (p *Presenter) NextQuote(ctx context.Context) *Completion {
	ctx, span := p.tracer.Start(ctx, "Presenter.NextQuote")
	defer span.End()

	p.mu.Lock()
	q := p.pickQuote()
	img := p.pickImage()

	p.state.Show(q)
	p.renderer.SetQuoteText(q.DisplayText())
	p.renderer.SetAuthor(q.DisplayAuthor())
	p.renderer.SetLikeCount(0)

	p.backgroundGen++
	gen := p.backgroundGen
	done := newCompletion()
	p.background = done
	p.mu.Unlock()

	p.observer.QuoteShown()

	span.SetAttributes(
		attribute.String("quote.author", q.Author),
		attribute.String("background.url", img.String()),
	)
	p.log(ctx).DebugContext(ctx, "showing quote",
		slog.String("author", q.Author),
		slog.String("background", img.String()),
	)

	go p.applyBackground(context.WithoutCancel(ctx), gen, img, done)

	return done
}

// Background returns the background step of the newest NextQuote, or nil
// before the first one.
func (p *Presenter) Background() *Completion {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.background
}

// SettleBackground waits until the newest NextQuote's background is applied,
// following supersession to whichever NextQuote is newest by then. It
// returns nil when the chosen image was applied, a domain.ErrImageLoad error
// when the fallback was, or the ctx error if ctx ends first.
func (p *Presenter) SettleBackground(ctx context.Context) error {
	for {
		done := p.Background()
		if done == nil {
			return nil
		}

		err := done.Wait(ctx)
		if !errors.Is(err, ErrSuperseded) {
			return err
		}
	}
}

// applyBackground verifies img and applies it, or the fallback on failure,
// unless a newer NextQuote has taken over.
func (p *Presenter) applyBackground(ctx context.Context, gen uint64, img domain.ImageRef, done *Completion) {
	err := p.loader.TryLoad(ctx, img.String())

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.backgroundGen {
		done.finish(ErrSuperseded)
		return
	}

	if err != nil {
		if !domain.IsImageLoad(err) {
			err = domain.NewImageLoadError(img, err.Error())
		}

		p.log(ctx).WarnContext(ctx, "background image failed to load, using fallback",
			slog.String("url", img.String()),
			slog.Any("error", err),
		)
		p.renderer.SetBackground(p.catalog.Fallback().String(), false)
		p.observer.BackgroundApplied(true)
		done.finish(err)

		return
	}

	p.renderer.SetBackground(img.String(), true)
	p.observer.BackgroundApplied(false)
	done.finish(nil)
}

// Like records a like for the current quote and pulses the like button.
// It reports false, and changes nothing, when no quote is displayed.
func (p *Presenter) Like(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.state.Like()
	if !ok {
		p.log(ctx).DebugContext(ctx, "like ignored, no quote shown")
		return false
	}

	p.renderer.SetLikeCount(n)
	p.pulse(ports.ElementLikeButton)
	p.observer.Liked()

	return true
}

// pulse scales element up and schedules it back down. Must hold p.mu.
func (p *Presenter) pulse(element string) {
	if p.pulseTimer != nil {
		p.pulseTimer.Stop()
	}

	p.pulseGen++
	gen := p.pulseGen

	p.renderer.Pulse(element, p.settings.PulseScale)
	p.pulseTimer = p.scheduler.AfterFunc(p.settings.PulseFor, func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if gen != p.pulseGen {
			return
		}
		p.renderer.Pulse(element, 1)
	})
}

// CopyCurrent writes `"<text>" - <author>` to the clipboard.
// It returns nil, without touching the clipboard, when no quote is displayed.
// On success the copy label reads CopiedLabel for CopiedFor and then returns
// to the label shown before; on failure a generic notice is rendered and the
// Completion carries a domain.ErrClipboardWrite error.
func (p *Presenter) CopyCurrent(ctx context.Context) *Completion {
	ctx, span := p.tracer.Start(ctx, "Presenter.CopyCurrent")
	defer span.End()

	p.mu.Lock()
	q, ok := p.state.Current()
	p.mu.Unlock()

	if !ok {
		p.log(ctx).DebugContext(ctx, "copy ignored, no quote shown")
		return nil
	}

	done := newCompletion()
	go p.copyText(context.WithoutCancel(ctx), q.ClipboardText(), done)

	return done
}

func (p *Presenter) copyText(ctx context.Context, text string, done *Completion) {
	err := p.clipboard.Write(ctx, text)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.observer.CopyFinished(err)

	if err != nil {
		if !domain.IsClipboardWrite(err) {
			err = domain.NewClipboardWriteError(err.Error())
		}

		p.log(ctx).WarnContext(ctx, "clipboard write failed", slog.Any("error", err))
		p.renderer.Notify(p.settings.CopyFailedNotice)
		done.finish(err)

		return
	}

	p.showCopied()
	done.finish(nil)
}

// showCopied swaps in the copied label and schedules its revert. A copy that
// lands while an earlier revert is pending keeps the earlier prior label, so
// the button never gets stuck on CopiedLabel. Must hold p.mu.
func (p *Presenter) showCopied() {
	if !p.labelPending {
		p.restoreLabel = p.renderer.CopyLabel()
	}
	if p.labelTimer != nil {
		p.labelTimer.Stop()
	}

	p.labelGen++
	gen := p.labelGen
	p.labelPending = true

	p.renderer.SetCopyLabel(p.settings.CopiedLabel)
	p.labelTimer = p.scheduler.AfterFunc(p.settings.CopiedFor, func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if gen != p.labelGen {
			return
		}
		p.renderer.SetCopyLabel(p.restoreLabel)
		p.labelPending = false
		p.labelTimer = nil
	})
}

func (p *Presenter) pickQuote() domain.Quote {
	// The index is in range by construction, so the error is always nil.
	q, _ := p.catalog.Quote(p.pick(p.catalog.QuoteCount()))
	return q
}

func (p *Presenter) pickImage() domain.ImageRef {
	img, _ := p.catalog.Image(p.pick(p.catalog.ImageCount()))
	return img
}

// pick maps the picker's result into [0, n) so a misbehaving picker
// cannot select outside the catalog.
func (p *Presenter) pick(n int) int {
	i := p.picker(n) % n
	if i < 0 {
		i += n
	}

	return i
}

func (p *Presenter) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, p.logger)
}
