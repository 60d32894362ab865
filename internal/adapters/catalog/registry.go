package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/okian/tofo/internal/domain/normalize"
)

// Decoder turns a cached payload into raw target records.
type Decoder func(payload json.RawMessage) ([]normalize.Record, error)

var decoders = map[string]Decoder{ //nolint:gochecknoglobals // fixed catalog table
	ExoClock: DecodeExoClock,
	NASA:     DecodeNASA,
}

// TargetDecoder returns the decoder for a target catalog.
func TargetDecoder(name string) (Decoder, error) {
	d, ok := decoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	return d, nil
}

// IsTargetCatalog reports whether name provides targets.
func IsTargetCatalog(name string) bool {
	_, ok := decoders[name]
	return ok
}

// Known reports whether name is a supported catalog.
func Known(name string) bool {
	return IsTargetCatalog(name) || name == VSX
}
