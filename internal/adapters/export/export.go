// Package export writes observable events as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/tofo/internal/domain/types"
)

// Format names an export encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// ErrUnknownFormat is returned for formats other than csv and json.
var ErrUnknownFormat = errors.New("unknown export format")

// Header is the CSV column order.
var Header = []string{ //nolint:gochecknoglobals // fixed column layout
	"target_name", "kind", "ingress", "mid_time", "egress", "local_mid_time",
	"duration_hours", "score", "rank", "epoch_frame", "source",
}

// ParseFormat accepts csv or json, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == JSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Write encodes rows in format f, ordered by ingress then target name.
func Write(w io.Writer, f Format, rows []types.EventRow) error {
	switch f {
	case CSV:
		return WriteCSV(w, rows)
	case JSON:
		return WriteJSON(w, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// WriteCSV writes a header line and one line per row. Timestamps are RFC 3339;
// UTC columns end in Z and the local mid-time carries its offset.
func WriteCSV(w io.Writer, rows []types.EventRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range sorted(rows) {
		rec := []string{
			r.Target,
			r.Kind,
			r.Ingress.UTC().Format(time.RFC3339),
			r.Mid.UTC().Format(time.RFC3339),
			r.Egress.UTC().Format(time.RFC3339),
			r.LocalMid.Format(time.RFC3339),
			strconv.FormatFloat(r.DurationHours, 'f', 4, 64),
			strconv.FormatFloat(r.Score, 'f', 6, 64),
			strconv.Itoa(r.Rank),
			r.Frame,
			r.Source,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Target, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteJSON writes the rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []types.EventRow) error {
	out := sorted(rows)
	if out == nil {
		out = []types.EventRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func sorted(rows []types.EventRow) []types.EventRow {
	if rows == nil {
		return nil
	}
	out := make([]types.EventRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Ingress.Equal(out[j].Ingress) {
			return out[i].Ingress.Before(out[j].Ingress)
		}
		return out[i].Target < out[j].Target
	})
	return out
}
