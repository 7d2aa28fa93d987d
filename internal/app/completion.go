package app

import (
	"context"
	"errors"
)

// ErrSuperseded is reported by a background completion whose quote was
// replaced before the image check finished. Its result was discarded.
var ErrSuperseded = errors.New("superseded by a newer quote")

// Completion is the eventual outcome of an asynchronous presenter step
// (a background image check or a clipboard write).
type Completion struct {
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// finish records the outcome. It must be called exactly once.
func (c *Completion) finish(err error) {
	c.err = err
	close(c.done)
}

// Done is closed once the step has finished and its side effects are applied.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the step's outcome. It is only meaningful after Done is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the step finishes or ctx is done.
// A ctx error is returned as-is; the step itself keeps running.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
