package horizon

import (
	"errors"
	"fmt"
)

// ErrHorizonFile is the sentinel kind for malformed horizon profiles.
var ErrHorizonFile = errors.New("horizon file error")

// FileError pinpoints a horizon problem. Line is the 1-based row (the file
// line for parse failures) and 0 when the problem is not tied to one row.
type FileError struct {
	Line   int
	Reason string
}

func (e *FileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", ErrHorizonFile, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrHorizonFile, e.Reason)
}

func (e *FileError) Unwrap() error { return ErrHorizonFile }
