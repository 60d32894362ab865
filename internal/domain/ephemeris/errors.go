package ephemeris

import (
	"errors"
	"fmt"
)

// ErrInvalidEphemeris is returned for elements that cannot produce events.
var ErrInvalidEphemeris = errors.New("invalid ephemeris")

// Error carries the offending target and field.
type Error struct {
	Target string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidEphemeris, e.Target, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalidEphemeris }
