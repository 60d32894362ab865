package cache

import (
	"errors"
	"fmt"
)

// Sentinel kinds for cache errors.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrNotFound          = errors.New("cache slot not found")
	ErrUnknownSource     = errors.New("unknown source")
	ErrSourceDisabled    = errors.New("source disabled")
	ErrInvalidSource     = errors.New("invalid source")
	ErrInvalidPayload    = errors.New("invalid payload")
)

// UnavailableError reports a source whose live refresh failed with no stale
// slot to fall back on.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %q unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is reports ErrSourceUnavailable as the kind.
func (e *UnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }
