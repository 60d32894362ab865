package catalog

import (
	"errors"
	"fmt"
)

// Sentinel kinds for catalog errors.
var (
	ErrUpstream     = errors.New("upstream request failed")
	ErrCircuitOpen  = errors.New("circuit breaker open")
	ErrRateLimited  = errors.New("upstream rate limited")
	ErrDecode       = errors.New("catalog payload malformed")
	ErrUnknownKind  = errors.New("unknown catalog")
	ErrNoCandidates = errors.New("no candidates to query")
)

// StatusError is a non-success HTTP response from a catalog.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d", e.URL, e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == 429 {
		return ErrRateLimited
	}
	return ErrUpstream
}
