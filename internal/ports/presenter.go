// Package ports defines interfaces for the collaborators of the quote presenter.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context first on anything that blocks (image loads, clipboard writes)
//   - Renderer calls are synchronous and never block on I/O
//   - Return domain errors (ErrImageLoad, ErrClipboardWrite) from adapters
package ports

import (
	"context"
	"time"
)

// ElementLikeButton is the element pulsed on a like.
const ElementLikeButton = "like-button"

// Renderer receives display updates from the presenter.
// Implementations must apply every update synchronously before returning.
type Renderer interface {
	// SetQuoteText shows the quote text.
	SetQuoteText(text string)

	// SetAuthor shows the author line.
	SetAuthor(author string)

	// SetLikeCount shows the like counter.
	SetLikeCount(n int)

	// SetBackground applies a background image. transition selects the
	// fade-in effect used for freshly loaded images.
	SetBackground(url string, transition bool)

	// SetCopyLabel replaces the copy button label.
	SetCopyLabel(label string)

	// CopyLabel returns the copy button label currently shown.
	CopyLabel() string

	// Pulse scales an element. A scale of 1 restores its natural size.
	Pulse(element string, scale float64)

	// Notify surfaces a user-visible notice.
	Notify(message string)
}

// ViewState is a point-in-time copy of everything a Renderer shows.
type ViewState struct {
	QuoteText            string             `json:"quoteText"`
	Author               string             `json:"author"`
	LikeCount            int                `json:"likeCount"`
	Background           string             `json:"background,omitempty"`
	BackgroundTransition bool               `json:"backgroundTransition"`
	CopyLabel            string             `json:"copyLabel"`
	Scales               map[string]float64 `json:"scales,omitempty"`
	Notice               string             `json:"notice,omitempty"`
	NoticeSeq            uint64             `json:"noticeSeq"`
	Version              uint64             `json:"version"`
}

// ViewRenderer is a Renderer whose state can be read back, e.g. to serve it to a page.
type ViewRenderer interface {
	Renderer

	// Snapshot returns a copy of the current view.
	Snapshot() ViewState
}

// ImageLoader verifies that a background image can be loaded.
type ImageLoader interface {
	// TryLoad returns nil when url points at a loadable image.
	// Failures should wrap domain.ErrImageLoad.
	TryLoad(ctx context.Context, url string) error
}

// Clipboard accepts text copied by the user.
type Clipboard interface {
	// Write stores text on the clipboard.
	// Failures should wrap domain.ErrClipboardWrite.
	Write(ctx context.Context, text string) error
}

// ClipboardReader is implemented by clipboards whose contents can be read back.
type ClipboardReader interface {
	// Last returns the most recent write, if any.
	Last() (string, bool)
}

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was stopped.
	Stop() bool
}

// Scheduler runs deferred callbacks. It exists so tests can control time.
type Scheduler interface {
	// AfterFunc runs fn in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemScheduler schedules callbacks on the wall clock.
type SystemScheduler struct{}

// AfterFunc implements Scheduler using time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
