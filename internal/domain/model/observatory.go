package model

import (
	"math"
	"time"

	"github.com/okian/tofo/internal/domain/horizon"
)

const mmPerInch = 25.4

// Twilight selects how dark the sky must be.
type Twilight string

const (
	TwilightNone         Twilight = ""
	TwilightCivil        Twilight = "civil"
	TwilightNautical     Twilight = "nautical"
	TwilightAstronomical Twilight = "astronomical"
)

// SunAltitude is the solar altitude below which the twilight class holds.
// The second value is false for TwilightNone.
func (t Twilight) SunAltitude() (float64, bool) {
	switch t {
	case TwilightCivil:
		return -6, true
	case TwilightNautical:
		return -12, true
	case TwilightAstronomical:
		return -18, true
	default:
		return 0, false
	}
}

// Telescope describes the optical train.
type Telescope struct {
	ApertureMM    float64
	FocalLengthMM float64
	SensorXMM     float64
	SensorYMM     float64
}

// ApertureInches converts the aperture for catalog filters.
func (t Telescope) ApertureInches() float64 { return t.ApertureMM / mmPerInch }

// FieldOfView returns the sensor's angular size (degrees) along x and y.
func (t Telescope) FieldOfView() (float64, float64) {
	if t.FocalLengthMM <= 0 {
		return 0, 0
	}
	deg := func(size float64) float64 { return math.Atan(size/t.FocalLengthMM) * 180 / math.Pi }
	return deg(t.SensorXMM), deg(t.SensorYMM)
}

// SearchRadius is half the diagonal field of view in degrees.
func (t Telescope) SearchRadius() float64 {
	x, y := t.FieldOfView()
	return math.Hypot(x, y) / 2
}

// Observatory is the immutable site description shared by a planning session.
type Observatory struct {
	Name        string
	Latitude    float64 // degrees, north positive
	Longitude   float64 // degrees, east positive
	ElevationM  float64
	Location    *time.Location
	Temperature float64 // Celsius
	Pressure    float64 // hPa
	Humidity    float64 // percent

	Horizon   *horizon.Profile
	Telescope Telescope

	Twilight        Twilight
	LimitingMag     float64
	MarginBefore    time.Duration
	MarginAfter     time.Duration
	MinAltitude     float64
	SamplesPerEvent int
	Refraction      bool
}
