// Package horizon models a site's local horizon as a closed, piecewise-linear
// profile of minimum altitude against azimuth.
package horizon

import (
	"fmt"
	"math"
	"sort"
)

// minVertices is the smallest profile accepted from a file or caller.
const minVertices = 3

// Point is one horizon vertex: azimuth (degrees, 0 = north, clockwise) and
// the minimum unobstructed altitude at that azimuth.
type Point struct {
	Az  float64 `json:"az"`
	Alt float64 `json:"alt"`
}

// Profile is an immutable horizon. Vertices are sorted by azimuth in
// [0, 360) and the last segment wraps back to the first vertex.
type Profile struct {
	points []Point
}

// New validates points and builds a profile. Points must be given in strictly
// ascending azimuth order. A vertex at exactly 360 closes the circle and is
// folded onto 0; it must agree with an explicit 0 vertex when both are given.
func New(points []Point) (*Profile, error) {
	if len(points) < minVertices {
		return nil, &FileError{Reason: fmt.Sprintf("need at least %d vertices, got %d", minVertices, len(points))}
	}
	for i, p := range points {
		if math.IsNaN(p.Az) || math.IsNaN(p.Alt) {
			return nil, &FileError{Line: i + 1, Reason: "not a number"}
		}
		if p.Az < 0 || p.Az > 360 {
			return nil, &FileError{Line: i + 1, Reason: fmt.Sprintf("azimuth %.3f out of [0, 360]", p.Az)}
		}
		if p.Alt < -90 || p.Alt > 90 {
			return nil, &FileError{Line: i + 1, Reason: fmt.Sprintf("altitude %.3f out of [-90, 90]", p.Alt)}
		}
		if i > 0 && p.Az <= points[i-1].Az {
			return nil, &FileError{Line: i + 1, Reason: "azimuths must be strictly ascending"}
		}
	}

	out := make([]Point, 0, len(points))
	out = append(out, points...)
	if last := out[len(out)-1]; last.Az == 360 {
		out = out[:len(out)-1]
		if out[0].Az == 0 {
			if out[0].Alt != last.Alt {
				return nil, &FileError{Line: len(points), Reason: "altitude at 360 disagrees with altitude at 0"}
			}
		} else {
			out = append([]Point{{Az: 0, Alt: last.Alt}}, out...)
		}
	}
	return &Profile{points: out}, nil
}

// Flat returns a constant-altitude horizon.
func Flat(alt float64) *Profile {
	return &Profile{points: []Point{{0, alt}, {90, alt}, {180, alt}, {270, alt}}}
}

// Points returns a copy of the vertices.
func (p *Profile) Points() []Point {
	out := make([]Point, len(p.points))
	copy(out, p.points)
	return out
}

// MinAltitude interpolates the horizon altitude at az. The value is exact at
// every vertex and continuous across the 360/0 seam.
func (p *Profile) MinAltitude(az float64) float64 {
	az = NormalizeAzimuth(az)
	n := len(p.points)

	// first vertex with Az > az
	i := sort.Search(n, func(i int) bool { return p.points[i].Az > az })

	var a, b Point
	switch {
	case i == 0:
		a = p.points[n-1]
		a.Az -= 360
		b = p.points[0]
	case i == n:
		a = p.points[n-1]
		b = p.points[0]
		b.Az += 360
	default:
		a = p.points[i-1]
		b = p.points[i]
	}
	if az == a.Az {
		return a.Alt
	}
	t := (az - a.Az) / (b.Az - a.Az)
	return a.Alt + t*(b.Alt-a.Alt)
}

// IsAboveHorizon reports whether altitude alt at azimuth az clears the profile.
func (p *Profile) IsAboveHorizon(az, alt float64) bool {
	return alt >= p.MinAltitude(az)
}

// NormalizeAzimuth maps any angle into [0, 360).
func NormalizeAzimuth(az float64) float64 {
	az = math.Mod(az, 360)
	if az < 0 {
		az += 360
	}
	if az >= 360 {
		az = 0
	}
	return az
}
