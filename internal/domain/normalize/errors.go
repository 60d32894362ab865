package normalize

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnsupportedFormat = errors.New("unsupported epoch format")
	ErrUnsupportedUnit   = errors.New("unsupported unit")
	ErrInvalidValue      = errors.New("invalid value")
)

// FormatError names the epoch token that could not be interpreted.
type FormatError struct {
	Token string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedFormat, e.Token)
}

func (e *FormatError) Unwrap() error { return ErrUnsupportedFormat }

// UnitError names a unit token and the quantity it was used for.
type UnitError struct {
	Token    string
	Quantity string
}

func (e *UnitError) Error() string {
	if e.Quantity != "" {
		return fmt.Sprintf("%s: %q for %s", ErrUnsupportedUnit, e.Token, e.Quantity)
	}
	return fmt.Sprintf("%s: %q", ErrUnsupportedUnit, e.Token)
}

func (e *UnitError) Unwrap() error { return ErrUnsupportedUnit }

// ValueError reports a field that is present but unparsable.
type ValueError struct {
	Field string
	Value string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s=%q", ErrInvalidValue, e.Field, e.Value)
}

func (e *ValueError) Unwrap() error { return ErrInvalidValue }
