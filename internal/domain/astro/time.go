// Package astro holds the positional astronomy needed to place a J2000
// target (or the sun) in an observer's sky.
package astro

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// JulianDate converts a time.Time (UTC) to Julian Date.
// Uses the standard astronomical algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	mi := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Jan/Feb count as months 13/14 of the previous year.
	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	jd += (h + mi/60.0 + s/3600.0) / 24.0
	return jd
}

// GMST calculates Greenwich Mean Sidereal Time in radians (IAU-82, Vallado
// Eq 3-47). UTC stands in for UT1.
func GMST(t time.Time) float64 {
	tUT1 := (JulianDate(t) - j2000) / 36525.0

	// 876600h = 3155760000 seconds.
	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}

// LocalSiderealTime adds the east longitude (radians) to GMST.
func LocalSiderealTime(t time.Time, lonRad float64) float64 {
	return wrap2Pi(GMST(t) + lonRad)
}

func wrap2Pi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
