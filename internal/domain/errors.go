// Package domain contains business logic types and errors.
// Domain errors represent business-level failures, NOT HTTP errors.
// Adapters map them to HTTP responses.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates business rule validation failed.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates a required dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")

	// ErrImageLoad indicates a background image could not be loaded.
	// It is always recovered by applying the fallback image.
	ErrImageLoad = errors.New("image load failed")

	// ErrClipboardWrite indicates the clipboard rejected a write.
	ErrClipboardWrite = errors.New("clipboard write failed")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError provides context for unavailable errors.
type UnavailableError struct {
	Service string
	Reason  string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error with context.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// ImageLoadError records which image failed and why.
type ImageLoadError struct {
	URL    ImageRef
	Reason string
}

// Error implements the error interface.
func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("loading image %q: %s", e.URL, e.Reason)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ImageLoadError) Unwrap() error {
	return ErrImageLoad
}

// NewImageLoadError creates an image load error with context.
func NewImageLoadError(url ImageRef, reason string) error {
	return &ImageLoadError{URL: url, Reason: reason}
}

// ClipboardWriteError records why a clipboard write was rejected.
type ClipboardWriteError struct {
	Reason string
}

// Error implements the error interface.
func (e *ClipboardWriteError) Error() string {
	return "clipboard write failed: " + e.Reason
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ClipboardWriteError) Unwrap() error {
	return ErrClipboardWrite
}

// NewClipboardWriteError creates a clipboard write error with context.
func NewClipboardWriteError(reason string) error {
	return &ClipboardWriteError{Reason: reason}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsImageLoad checks if an error is an image load failure.
func IsImageLoad(err error) bool {
	return errors.Is(err, ErrImageLoad)
}

// IsClipboardWrite checks if an error is a clipboard write failure.
func IsClipboardWrite(err error) bool {
	return errors.Is(err, ErrClipboardWrite)
}
