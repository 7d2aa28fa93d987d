package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

// File is a clipboard backed by a single file shared by every session. Each
// write replaces the file atomically so readers never see a partial quote.
// It is write-only to sessions: it does not implement ports.ClipboardReader,
// since the file may hold another session's copy.
type File struct {
	path     string
	maxBytes int

	mu sync.Mutex
}

var (
	_ ports.Clipboard     = (*File)(nil)
	_ ports.HealthChecker = (*File)(nil)
)

// NewFile creates a file clipboard writing to path.
// The parent directory must already exist.
func NewFile(path string, maxBytes int) (*File, error) {
	if path == "" {
		return nil, domain.NewValidationError("clipboard.path", "is required for the file clipboard")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &File{path: filepath.Clean(path), maxBytes: maxBytes}, nil
}

// Write implements ports.Clipboard.
func (f *File) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewClipboardWriteError(err.Error())
	}

	if len(text) > f.maxBytes {
		return domain.NewClipboardWriteError(fmt.Sprintf("text is %d bytes, limit is %d", len(text), f.maxBytes))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.replace([]byte(text)); err != nil {
		return domain.NewClipboardWriteError(err.Error())
	}

	return nil
}

func (f *File) replace(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".clipboard-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best effort once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}

	return nil
}

// Contents returns what the file currently holds, whichever session wrote it.
func (f *File) Contents() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}

	return string(data), true
}

// Name implements ports.HealthChecker.
func (f *File) Name() string {
	return "clipboard"
}

// Check implements ports.HealthChecker. The clipboard is healthy when its
// directory exists and is writable.
func (f *File) Check(_ context.Context) error {
	dir := filepath.Dir(f.path)

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewUnavailableError("clipboard", dir+" does not exist")
		}
		return domain.NewUnavailableError("clipboard", err.Error())
	}
	if !info.IsDir() {
		return domain.NewUnavailableError("clipboard", dir+" is not a directory")
	}

	probe, err := os.CreateTemp(dir, ".clipboard-probe-*")
	if err != nil {
		return domain.NewUnavailableError("clipboard", err.Error())
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	return nil
}
