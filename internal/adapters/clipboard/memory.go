// Package clipboard provides ports.Clipboard implementations: an in-memory
// clipboard per session whose contents the page mirrors into the browser,
// and a file-backed clipboard for headless runs.
package clipboard

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

// Memory defaults.
const (
	DefaultHistory  = 10
	DefaultMaxBytes = 4096
)

// MemoryConfig configures a Memory clipboard.
type MemoryConfig struct {
	// History is how many writes are kept, newest last. Defaults to 10.
	History int

	// MaxBytes rejects writes larger than this. Defaults to 4096.
	MaxBytes int
}

// Memory is an in-memory clipboard that keeps a bounded history.
type Memory struct {
	mu       sync.RWMutex
	history  []string
	limit    int
	maxBytes int
}

var (
	_ ports.Clipboard       = (*Memory)(nil)
	_ ports.ClipboardReader = (*Memory)(nil)
)

// NewMemory creates an empty in-memory clipboard.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.History <= 0 {
		cfg.History = DefaultHistory
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	return &Memory{
		history:  make([]string, 0, cfg.History),
		limit:    cfg.History,
		maxBytes: cfg.MaxBytes,
	}
}

// Write implements ports.Clipboard.
func (m *Memory) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewClipboardWriteError(err.Error())
	}

	if len(text) > m.maxBytes {
		return domain.NewClipboardWriteError(fmt.Sprintf("text is %d bytes, limit is %d", len(text), m.maxBytes))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == m.limit {
		m.history = slices.Delete(m.history, 0, 1)
	}
	m.history = append(m.history, text)

	return nil
}

// Last implements ports.ClipboardReader.
func (m *Memory) Last() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) == 0 {
		return "", false
	}

	return m.history[len(m.history)-1], true
}

// History returns the kept writes, oldest first.
func (m *Memory) History() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.history)
}
