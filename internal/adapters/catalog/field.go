package catalog

import (
	"bytes"
	"encoding/json"
)

// field accepts a JSON string, number or null and keeps its text form so
// the normalizer sees the catalog's own digits.
type field string

func (f *field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = field(s)
	default:
		*f = field(b)
	}
	return nil
}

func (f field) String() string { return string(f) }
