package horizon

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Load reads a horizon profile from CSV rows of "az,alt" in degrees. Lines
// starting with '#' are comments; a non-numeric first row is a header.
func Load(r io.Reader) (*Profile, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var points []Point
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FileError{Reason: err.Error()}
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 2 {
			return nil, &FileError{Line: line, Reason: "expected az,alt"}
		}
		az, errAz := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		alt, errAlt := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errAz != nil || errAlt != nil {
			if first {
				first = false
				continue
			}
			return nil, &FileError{Line: line, Reason: fmt.Sprintf("cannot parse %q", strings.Join(rec, ","))}
		}
		first = false
		points = append(points, Point{Az: az, Alt: alt})
	}
	return New(points)
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Reason: err.Error()}
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}
