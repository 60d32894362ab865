// Package visibility decides whether a predicted event can be observed from
// a site: the target must clear the local horizon and the altitude floor for
// the whole margin-widened span, and the span must sit inside the window.
package visibility

import (
	"time"

	"github.com/okian/tofo/internal/domain/astro"
	"github.com/okian/tofo/internal/domain/horizon"
	"github.com/okian/tofo/internal/domain/model"
)

// minSamples covers ingress and egress.
const minSamples = 2

// Reason explains a rejected event.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonWindow   Reason = "outside_window"
	ReasonHorizon  Reason = "below_horizon"
	ReasonAltitude Reason = "below_altitude_floor"
	ReasonDaylight Reason = "daylight"
)

// Verdict is the outcome of evaluating one event.
type Verdict struct {
	Observable bool
	Reason     Reason
	// At is the first failing sample, zero when observable or rejected by
	// the window.
	At time.Time
	// Lowest is the lowest sampled target altitude in degrees.
	Lowest float64
}

// Evaluator is safe for concurrent use; it only reads its configuration.
type Evaluator struct {
	site     astro.Site
	horizon  *horizon.Profile
	samples  int
	minAlt   float64
	sunLimit float64
	checkSun bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSamples overrides the number of instants tested per event.
func WithSamples(n int) Option {
	return func(e *Evaluator) {
		if n >= minSamples {
			e.samples = n
		}
	}
}

// WithMinAltitude overrides the altitude floor in degrees.
func WithMinAltitude(deg float64) Option {
	return func(e *Evaluator) { e.minAlt = deg }
}

// WithTwilight requires the sun to be below the class limit at every sample.
func WithTwilight(t model.Twilight) Option {
	return func(e *Evaluator) {
		e.sunLimit, e.checkSun = t.SunAltitude()
	}
}

// New builds an Evaluator from the observatory's constraints.
func New(obs *model.Observatory, opts ...Option) *Evaluator {
	site := astro.NewSite(obs.Latitude, obs.Longitude)
	site.Refraction = obs.Refraction
	if obs.Pressure > 0 {
		site.PressureHPa = obs.Pressure
	}
	site.TempC = obs.Temperature

	hz := obs.Horizon
	if hz == nil {
		hz = horizon.Flat(0)
	}

	e := &Evaluator{
		site:    site,
		horizon: hz,
		samples: max(obs.SamplesPerEvent, minSamples),
		minAlt:  obs.MinAltitude,
	}
	e.sunLimit, e.checkSun = obs.Twilight.SunAltitude()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Position returns the target's direction at t.
func (e *Evaluator) Position(t *model.Target, at time.Time) astro.Horizontal {
	return e.site.AltAz(t.RA, t.Dec, at)
}

// SkyVisible samples [Ingress, Egress] evenly, endpoints included. Every
// sample must clear both the horizon profile and the altitude floor.
func (e *Evaluator) SkyVisible(ev model.EclipseEvent) Verdict {
	span := ev.Egress.Sub(ev.Ingress)
	step := span / time.Duration(e.samples-1)
	v := Verdict{Observable: true, Lowest: 90}

	for i := range e.samples {
		at := ev.Ingress.Add(time.Duration(i) * step)
		if i == e.samples-1 {
			at = ev.Egress
		}
		pos := e.Position(ev.Target, at)
		if pos.AltitudeDeg < v.Lowest {
			v.Lowest = pos.AltitudeDeg
		}
		switch {
		case !e.horizon.IsAboveHorizon(pos.AzimuthDeg, pos.AltitudeDeg):
			return Verdict{Reason: ReasonHorizon, At: at, Lowest: v.Lowest}
		case pos.AltitudeDeg < e.minAlt:
			return Verdict{Reason: ReasonAltitude, At: at, Lowest: v.Lowest}
		case e.checkSun && e.site.SunAltitude(at) > e.sunLimit:
			return Verdict{Reason: ReasonDaylight, At: at, Lowest: v.Lowest}
		}
	}
	return v
}

// Evaluate applies window containment and then SkyVisible.
func (e *Evaluator) Evaluate(ev model.EclipseEvent, w model.Window) Verdict {
	if !w.Contains(ev.Ingress, ev.Egress) {
		return Verdict{Reason: ReasonWindow}
	}
	return e.SkyVisible(ev)
}

// Observable reports whether Evaluate accepts ev.
func (e *Evaluator) Observable(ev model.EclipseEvent, w model.Window) bool {
	return e.Evaluate(ev, w).Observable
}
