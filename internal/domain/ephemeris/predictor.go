// Package ephemeris predicts eclipse events from a target's reference epoch
// and orbital elements.
package ephemeris

import (
	"iter"
	"math"
	"time"

	"github.com/okian/tofo/internal/domain/model"
)

// Reference epochs must lie in this range. Cycle arithmetic is done in
// time.Duration, which spans about 292 years either way.
var (
	earliestEpoch = time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC)
	latestEpoch   = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
)

// maxSpan is the largest window-to-epoch distance predicted.
const maxSpan = 250 * 365.25 * 24 * float64(time.Hour)

// Predictor expands ephemerides into margin-widened events.
type Predictor struct {
	marginBefore time.Duration
	marginAfter  time.Duration
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithMargins widens every event by before/after around its nominal span.
func WithMargins(before, after time.Duration) Option {
	return func(p *Predictor) {
		if before >= 0 {
			p.marginBefore = before
		}
		if after >= 0 {
			p.marginAfter = after
		}
	}
}

// New creates a Predictor.
func New(opts ...Option) *Predictor {
	p := &Predictor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate checks that t can be predicted.
func (p *Predictor) Validate(t *model.Target) error {
	e := t.Ephemeris
	switch {
	case e.Period <= 0:
		return &Error{Target: t.Name, Reason: "period must be positive"}
	case e.Duration <= 0:
		return &Error{Target: t.Name, Reason: "duration must be positive"}
	case e.Eccentricity < 0 || e.Eccentricity >= 1:
		return &Error{Target: t.Name, Reason: "eccentricity outside [0, 1)"}
	case e.Epoch.Instant.IsZero():
		return &Error{Target: t.Name, Reason: "missing reference epoch"}
	case e.Epoch.Instant.Before(earliestEpoch) || !e.Epoch.Instant.Before(latestEpoch):
		return &Error{Target: t.Name, Reason: "reference epoch " + e.Epoch.Instant.UTC().Format(time.DateOnly) + " out of range"}
	}
	return nil
}

// NextEvents yields the primary events whose mid-time falls in [start, end),
// in ascending order. The sequence is finite and may be ranged over more
// than once. An empty or inverted range yields nothing. A mid exactly at end
// belongs to the window that starts there.
//
// Mid-times are strictly periodic from the reference epoch: catalog periods
// are transit-to-transit, so eccentricity does not shift primaries.
func (p *Predictor) NextEvents(t *model.Target, start, end time.Time) (iter.Seq[model.EclipseEvent], error) {
	if err := p.Validate(t); err != nil {
		return nil, err
	}
	return p.events(t, model.Primary, 0, start, end), nil
}

// NextSecondaryEvents yields secondary eclipses (occultations) in [start, end).
// Their offset from the primary follows from e and omega through Kepler's
// equation and is half a period for circular orbits.
func (p *Predictor) NextSecondaryEvents(t *model.Target, start, end time.Time) (iter.Seq[model.EclipseEvent], error) {
	if err := p.Validate(t); err != nil {
		return nil, err
	}
	return p.events(t, model.Secondary, SecondaryOffset(t.Ephemeris), start, end), nil
}

func (p *Predictor) events(t *model.Target, kind model.EventKind, offset time.Duration, start, end time.Time) iter.Seq[model.EclipseEvent] {
	e := t.Ephemeris
	ref := e.Epoch.Instant.Add(offset)
	period := int64(e.Period)
	half := e.Duration / 2

	return func(yield func(model.EclipseEvent) bool) {
		if !end.After(start) || !reachable(ref, start) || !reachable(ref, end) {
			return
		}
		kMin := ceilDiv(int64(start.Sub(ref)), period)
		nMax := ceilDiv(int64(end.Sub(ref)), period)
		for k := kMin; k < nMax; k++ {
			mid := ref.Add(time.Duration(k * period))
			ev := model.EclipseEvent{
				Target:  t,
				Kind:    kind,
				Cycle:   k,
				Mid:     mid,
				Ingress: mid.Add(-half - p.marginBefore),
				Egress:  mid.Add(half + p.marginAfter),
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// SecondaryOffset is the time from a primary mid-time to the following
// secondary mid-time.
func SecondaryOffset(e model.Ephemeris) time.Duration {
	omega := e.ArgumentOfPeriapsis * math.Pi / 180
	mp := meanAnomaly(math.Pi/2-omega, e.Eccentricity)
	ms := meanAnomaly(3*math.Pi/2-omega, e.Eccentricity)
	frac := math.Mod(ms-mp, 2*math.Pi) / (2 * math.Pi)
	if frac < 0 {
		frac++
	}
	return time.Duration(math.Round(frac * float64(e.Period)))
}

// meanAnomaly converts a true anomaly to a mean anomaly.
func meanAnomaly(nu, ecc float64) float64 {
	ea := 2 * math.Atan2(math.Sqrt(1-ecc)*math.Sin(nu/2), math.Sqrt(1+ecc)*math.Cos(nu/2))
	return ea - ecc*math.Sin(ea)
}

// reachable reports whether t.Sub(ref) fits in a time.Duration.
func reachable(ref, t time.Time) bool {
	secs := float64(t.Unix()-ref.Unix()) + float64(t.Nanosecond()-ref.Nanosecond())/1e9
	return math.Abs(secs*float64(time.Second)) < maxSpan
}

// ceilDiv is ceil(a/b) for b > 0.
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}
