package astro

import (
	"math"
	"time"
)

const arcsec = math.Pi / (180 * 3600)

// Horizontal is a topocentric direction.
type Horizontal struct {
	AzimuthDeg  float64 // 0 = North, clockwise
	AltitudeDeg float64 // 0 = horizon, 90 = zenith
}

// Site is an observer on the ground.
type Site struct {
	LatRad, LonRad float64

	// Refraction enables the Saemundsson correction scaled by the site's
	// pressure (hPa) and temperature (Celsius).
	Refraction  bool
	PressureHPa float64
	TempC       float64
}

// NewSite creates a Site from geodetic degrees without refraction.
func NewSite(latDeg, lonDeg float64) Site {
	return Site{LatRad: deg2rad(latDeg), LonRad: deg2rad(lonDeg), PressureHPa: 1010, TempC: 10}
}

// Precess moves J2000 mean coordinates (degrees) to the mean equator and
// equinox of t using the IAU 1976 angles.
func Precess(raDeg, decDeg float64, t time.Time) (float64, float64) {
	T := (JulianDate(t) - j2000) / 36525.0
	zeta := (2306.2181*T + 0.30188*T*T + 0.017998*T*T*T) * arcsec
	z := (2306.2181*T + 1.09468*T*T + 0.018203*T*T*T) * arcsec
	theta := (2004.3109*T - 0.42665*T*T - 0.041833*T*T*T) * arcsec

	ra0, dec0 := deg2rad(raDeg), deg2rad(decDeg)
	a := math.Cos(dec0) * math.Sin(ra0+zeta)
	b := math.Cos(theta)*math.Cos(dec0)*math.Cos(ra0+zeta) - math.Sin(theta)*math.Sin(dec0)
	c := math.Sin(theta)*math.Cos(dec0)*math.Cos(ra0+zeta) + math.Cos(theta)*math.Sin(dec0)

	ra := wrap2Pi(math.Atan2(a, b) + z)
	dec := math.Asin(math.Max(-1, math.Min(1, c)))
	return rad2deg(ra), rad2deg(dec)
}

// AltAz returns the direction of a J2000 position at t.
func (s Site) AltAz(raDeg, decDeg float64, t time.Time) Horizontal {
	ra, dec := Precess(raDeg, decDeg, t)
	return s.AltAzOfDate(ra, dec, t)
}

// AltAzOfDate returns the direction of a position already referred to the
// equinox of date.
func (s Site) AltAzOfDate(raDeg, decDeg float64, t time.Time) Horizontal {
	ha := LocalSiderealTime(t, s.LonRad) - deg2rad(raDeg)
	dec := deg2rad(decDeg)
	sinLat, cosLat := math.Sincos(s.LatRad)
	sinDec, cosDec := math.Sincos(dec)
	sinHA, cosHA := math.Sincos(ha)

	sinAlt := sinLat*sinDec + cosLat*cosDec*cosHA
	alt := math.Asin(math.Max(-1, math.Min(1, sinAlt)))
	az := math.Atan2(-cosDec*sinHA, sinDec*cosLat-cosDec*cosHA*sinLat)

	h := Horizontal{AzimuthDeg: rad2deg(wrap2Pi(az)), AltitudeDeg: rad2deg(alt)}
	if s.Refraction {
		h.AltitudeDeg += Refraction(h.AltitudeDeg, s.PressureHPa, s.TempC)
	}
	return h
}

// Refraction returns the apparent-minus-true altitude in degrees for a true
// altitude, using Saemundsson's formula. It is zero well below the horizon.
func Refraction(altDeg, pressureHPa, tempC float64) float64 {
	if altDeg < -1 {
		return 0
	}
	r := 1.02 / math.Tan(deg2rad(altDeg+10.3/(altDeg+5.11))) // arcminutes
	if pressureHPa <= 0 {
		pressureHPa = 1010
	}
	r *= (pressureHPa / 1010) * (283 / (273 + tempC))
	return r / 60
}

// Sun returns the apparent solar right ascension and declination (degrees,
// equinox of date) from the Astronomical Almanac low precision series,
// good to about 0.01 degree.
func Sun(t time.Time) (float64, float64) {
	n := JulianDate(t) - j2000
	l := 280.460 + 0.9856474*n
	g := deg2rad(357.528 + 0.9856003*n)
	lambda := deg2rad(l + 1.915*math.Sin(g) + 0.020*math.Sin(2*g))
	eps := deg2rad(23.439 - 0.0000004*n)

	ra := wrap2Pi(math.Atan2(math.Cos(eps)*math.Sin(lambda), math.Cos(lambda)))
	dec := math.Asin(math.Sin(eps) * math.Sin(lambda))
	return rad2deg(ra), rad2deg(dec)
}

// SunAltitude is the solar altitude at the site at t, without refraction.
func (s Site) SunAltitude(t time.Time) float64 {
	ra, dec := Sun(t)
	plain := s
	plain.Refraction = false
	return plain.AltAzOfDate(ra, dec, t).AltitudeDeg
}
