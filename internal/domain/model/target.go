// Package model contains domain models passed between layers.
package model

import (
	"time"
)

// Frame records where an epoch was referenced. Catalogs publishing BJD give
// barycentric mid-times; predictions keep the tag instead of correcting it.
type Frame uint8

const (
	FrameGeocentric Frame = iota
	FrameBarycentric
)

func (f Frame) String() string {
	if f == FrameBarycentric {
		return "barycentric"
	}
	return "geocentric"
}

// Epoch is a reference mid-time converted to UTC.
type Epoch struct {
	Instant time.Time // UTC
	Frame   Frame
	Tag     string // catalog tag the value was parsed from, e.g. "BJD_TDB"
}

// Ephemeris holds the orbital elements used to predict events.
type Ephemeris struct {
	Epoch               Epoch
	Period              time.Duration
	Duration            time.Duration
	Eccentricity        float64
	ArgumentOfPeriapsis float64 // degrees
}

// Target is a normalised catalog entry. It is read-only once built.
type Target struct {
	Name      string
	Star      string
	Source    string
	RA        float64 // degrees, J2000
	Dec       float64 // degrees, J2000
	Ephemeris Ephemeris
	Priority  string

	// MinApertureInches is the smallest telescope the catalog recommends.
	MinApertureInches float64

	TotalObservations  int
	RecentObservations int
}

// Companion is a catalogued variable star sharing a target's field of view.
type Companion struct {
	Name     string  `json:"name"`
	RA       float64 `json:"ra"`
	Dec      float64 `json:"dec"`
	Period   float64 `json:"period_days,omitempty"`
	Duration float64 `json:"duration_hours,omitempty"`
}
