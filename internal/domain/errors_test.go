package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrValidation,
		ErrUnavailable,
		ErrImageLoad,
		ErrClipboardWrite,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b,
					"sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		entity      string
		id          string
		expectedMsg string
	}{
		{
			name:        "with entity and ID",
			entity:      "quote",
			id:          "42",
			expectedMsg: `quote with id "42" not found`,
		},
		{
			name:        "with entity only",
			entity:      "session",
			expectedMsg: "session not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(tt.entity, tt.id)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNotFound)

			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, tt.entity, notFound.Entity)
			assert.Equal(t, tt.id, notFound.ID)
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectedMsg string
	}{
		{
			name:        "with field",
			err:         NewValidationError("quotes", "catalog must contain at least one quote"),
			expectedMsg: "validation failed for quotes: catalog must contain at least one quote",
		},
		{
			name:        "without field",
			err:         NewValidationError("", "bad input"),
			expectedMsg: "validation failed: bad input",
		},
		{
			name:        "with value",
			err:         NewValidationErrorWithValue("images", "image URL is required", 3),
			expectedMsg: "validation failed for images: image URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrValidation)
		})
	}
}

func TestUnavailableError(t *testing.T) {
	err := NewUnavailableError("sessions", "limit reached")
	assert.Equal(t, `service "sessions" unavailable: limit reached`, err.Error())
	assert.ErrorIs(t, err, ErrUnavailable)

	bare := NewUnavailableError("clipboard", "")
	assert.Equal(t, `service "clipboard" unavailable`, bare.Error())
}

func TestImageLoadError(t *testing.T) {
	err := NewImageLoadError("https://img.example/a.jpg", "HTTP 404")

	assert.Equal(t, `loading image "https://img.example/a.jpg": HTTP 404`, err.Error())
	require.ErrorIs(t, err, ErrImageLoad)

	var loadErr *ImageLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ImageRef("https://img.example/a.jpg"), loadErr.URL)
}

func TestClipboardWriteError(t *testing.T) {
	err := NewClipboardWriteError("permission denied")

	assert.Equal(t, "clipboard write failed: permission denied", err.Error())
	assert.ErrorIs(t, err, ErrClipboardWrite)
	assert.NotErrorIs(t, err, ErrImageLoad)
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", NewNotFoundError("quote", "1"), IsNotFound, true},
		{"validation", NewValidationError("f", "m"), IsValidation, true},
		{"unavailable", NewUnavailableError("s", "r"), IsUnavailable, true},
		{"image load", NewImageLoadError("u", "r"), IsImageLoad, true},
		{"clipboard", NewClipboardWriteError("r"), IsClipboardWrite, true},
		{"nil is never matched", nil, IsNotFound, false},
		{"mismatched kind", NewNotFoundError("quote", "1"), IsClipboardWrite, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestErrorWrappingChain(t *testing.T) {
	base := NewImageLoadError("https://img.example/a.jpg", "timeout")
	wrapped := fmt.Errorf("applying background: %w", base)
	double := fmt.Errorf("next quote: %w", wrapped)

	assert.True(t, IsImageLoad(double))

	var loadErr *ImageLoadError
	require.ErrorAs(t, double, &loadErr)
	assert.Equal(t, "timeout", loadErr.Reason)
}
