package service

import "errors"

// Sentinel kinds for session errors.
var (
	ErrInvalidWindow = errors.New("invalid planning window")
	ErrNoRepository  = errors.New("no plan repository configured")
)

// Rejection kinds recorded per target.
const (
	RejectUnsupportedFormat = "unsupported_format"
	RejectUnsupportedUnit   = "unsupported_unit"
	RejectInvalidValue      = "invalid_value"
	RejectInvalidEphemeris  = "invalid_ephemeris"
	RejectAperture          = "aperture"
	RejectNotObservable     = "not_observable"
)
