package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed is matched by every FetchError
	ErrFetchFailed = errors.New("catalog download failed")

	// ErrMalformedCatalog is matched by every ParseError
	ErrMalformedCatalog = errors.New("catalog is not well-formed")

	// ErrInvalidField is matched by every ValidationError
	ErrInvalidField = errors.New("invalid product field")

	// ErrCatalogNotFound is returned when no local catalog file exists
	ErrCatalogNotFound = errors.New("local catalog not found")

	// ErrCacheMiss is returned when a snapshot is not in the cache or has expired
	ErrCacheMiss = errors.New("cache miss")
)

// FetchError reports that the remote catalog could not be downloaded.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: %s after %d attempt(s): %v", ErrFetchFailed, e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// ParseError reports a catalog document that could not be decoded.
// Line is zero when the decoder did not report a position.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v: %s line %d: %v", ErrMalformedCatalog, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrMalformedCatalog, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrMalformedCatalog }

// ValidationError reports a malformed or out-of-range field on a single record.
type ValidationError struct {
	RecordID string
	Field    string
	Value    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("%v: %s %q: %s", ErrInvalidField, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%v: record %s: %s %q: %s", ErrInvalidField, e.RecordID, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidField }
