package normalize

import (
	"math"
	"strconv"
	"strings"
)

// ParseRA accepts "hh:mm:ss.s" / "hh mm ss.s" sexagesimal hours or decimal
// degrees and returns degrees in [0, 360).
func ParseRA(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if isSexagesimal(s) {
		h, err := parseSexagesimal(s)
		if err != nil || math.IsNaN(h) || h < 0 || h >= 24 {
			return 0, &ValueError{Field: "ra", Value: s}
		}
		return h * 15, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v >= 360 {
		return 0, &ValueError{Field: "ra", Value: s}
	}
	return v, nil
}

// ParseDec accepts "+dd:mm:ss" / "-dd mm ss" sexagesimal or decimal degrees.
func ParseDec(s string) (float64, error) {
	s = strings.TrimSpace(s)
	var (
		v   float64
		err error
	)
	if isSexagesimal(s) {
		v, err = parseSexagesimal(s)
	} else {
		v, err = strconv.ParseFloat(s, 64)
	}
	if err != nil || math.IsNaN(v) || v < -90 || v > 90 {
		return 0, &ValueError{Field: "dec", Value: s}
	}
	return v, nil
}

func isSexagesimal(s string) bool {
	return strings.ContainsAny(s, ": ")
}

// parseSexagesimal reads "a:b:c" (or space separated) as a + b/60 + c/3600
// keeping the sign of the leading component, including "-00".
func parseSexagesimal(s string) (float64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == ' ' })
	if len(parts) == 0 || len(parts) > 3 {
		return 0, strconv.ErrSyntax
	}
	neg := strings.HasPrefix(parts[0], "-")
	total := 0.0
	scale := 1.0
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		if i > 0 && (v < 0 || v >= 60) {
			return 0, strconv.ErrRange
		}
		total += math.Abs(v) / scale
		scale *= 60
	}
	if neg {
		total = -total
	}
	return total, nil
}
