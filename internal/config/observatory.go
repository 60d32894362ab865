package config

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/tofo/internal/domain/horizon"
	"github.com/okian/tofo/internal/domain/model"
)

// BuildObservatory turns validated configuration into the immutable site
// description. A missing horizon file yields a flat horizon at 0°; an
// unreadable or malformed one is returned as a horizon.ErrHorizonFile error.
func (c *Config) BuildObservatory() (*model.Observatory, error) {
	loc, err := time.LoadLocation(c.Observatory.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: time_zone %q: %w", ErrInvalidConfig, c.Observatory.TimeZone, err)
	}

	profile := horizon.Flat(0)
	if c.Observatory.HorizonFile != "" {
		if profile, err = horizon.LoadFile(c.Observatory.HorizonFile); err != nil {
			return nil, err
		}
	}

	o := c.Observations
	return &model.Observatory{
		Name:        c.Observatory.Name,
		Latitude:    c.Observatory.LatDeg,
		Longitude:   c.Observatory.LonDeg,
		ElevationM:  c.Observatory.ElevationM,
		Location:    loc,
		Temperature: c.Observatory.TemperatureC,
		Pressure:    c.Observatory.PressureHPa,
		Humidity:    c.Observatory.HumidityPct,
		Horizon:     profile,
		Telescope: model.Telescope{
			ApertureMM:    c.Telescope.ApertureMM,
			FocalLengthMM: c.Telescope.FocalLengthMM,
			SensorXMM:     c.Telescope.Sensor.SizeXMM,
			SensorYMM:     c.Telescope.Sensor.SizeYMM,
		},
		Twilight:        model.Twilight(o.Twilight),
		LimitingMag:     o.MinMag,
		MarginBefore:    hours(o.ExoHoursBefore),
		MarginAfter:     hours(o.ExoHoursAfter),
		MinAltitude:     o.MinAltitudeDeg,
		SamplesPerEvent: o.SamplesPerEvent,
		Refraction:      o.Refraction,
	}, nil
}

func hours(h float64) time.Duration {
	return time.Duration(math.Round(h * float64(time.Hour)))
}
