// Package normalize turns raw catalog rows into targets with UTC epochs and
// ephemeris elements in canonical units.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/tofo/internal/domain/model"
)

// defaultPeriapsis is used when a catalog omits the argument of periapsis;
// any value is equivalent for circular orbits.
const defaultPeriapsis = 90.0

// Record is a catalog row before normalisation. Numeric fields are kept as
// text so that catalogs mixing numbers and strings decode uniformly. Empty
// numeric fields read as zero, except the epoch, which is required.
type Record struct {
	Source string
	Name   string
	Star   string
	RA     string
	Dec    string

	Epoch    string
	EpochTag string // e.g. "BJD_TDB"

	Period       string
	PeriodUnit   string
	Duration     string
	DurationUnit string

	Eccentricity  string
	Periapsis     string
	PeriapsisUnit string

	Priority           string
	MinApertureInches  string
	TotalObservations  string
	RecentObservations string
}

// Normalizer converts records for one observatory.
type Normalizer struct {
	loc *time.Location
}

// New returns a Normalizer resolving Local-scale epochs in loc.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Target normalises r. The error unwraps to ErrUnsupportedFormat,
// ErrUnsupportedUnit or ErrInvalidValue.
func (n *Normalizer) Target(r Record) (model.Target, error) {
	ra, err := ParseRA(r.RA)
	if err != nil {
		return model.Target{}, err
	}
	dec, err := ParseDec(r.Dec)
	if err != nil {
		return model.Target{}, err
	}

	f, s, err := ParseEpochTag(r.EpochTag)
	if err != nil {
		return model.Target{}, err
	}
	ev, err := required("epoch", r.Epoch)
	if err != nil {
		return model.Target{}, err
	}
	epoch, err := Epoch(ev, f, s, n.loc)
	if err != nil {
		return model.Target{}, err
	}

	period, err := timeField("period", r.Period, r.PeriodUnit)
	if err != nil {
		return model.Target{}, err
	}
	duration, err := timeField("duration", r.Duration, r.DurationUnit)
	if err != nil {
		return model.Target{}, err
	}

	ecc, err := number("eccentricity", r.Eccentricity)
	if err != nil {
		return model.Target{}, err
	}
	if ecc < 0 || ecc >= 1 {
		return model.Target{}, &ValueError{Field: "eccentricity", Value: r.Eccentricity}
	}

	omega := defaultPeriapsis
	if strings.TrimSpace(r.Periapsis) != "" {
		v, err := number("periastron", r.Periapsis)
		if err != nil {
			return model.Target{}, err
		}
		u, err := ParseUnit(r.PeriapsisUnit)
		if err != nil {
			return model.Target{}, err
		}
		if omega, err = u.Degrees(v); err != nil {
			return model.Target{}, err
		}
	}

	minAp, err := number("min_telescope_inches", r.MinApertureInches)
	if err != nil {
		return model.Target{}, err
	}
	total, err := number("total_observations", r.TotalObservations)
	if err != nil {
		return model.Target{}, err
	}
	recent, err := number("recent_observations", r.RecentObservations)
	if err != nil {
		return model.Target{}, err
	}

	return model.Target{
		Name:   r.Name,
		Star:   r.Star,
		Source: r.Source,
		RA:     ra,
		Dec:    dec,
		Ephemeris: model.Ephemeris{
			Epoch:               epoch,
			Period:              period,
			Duration:            duration,
			Eccentricity:        ecc,
			ArgumentOfPeriapsis: omega,
		},
		Priority:           r.Priority,
		MinApertureInches:  minAp,
		TotalObservations:  int(total),
		RecentObservations: int(recent),
	}, nil
}

func timeField(field, value, unit string) (time.Duration, error) {
	v, err := number(field, value)
	if err != nil {
		return 0, err
	}
	u, err := ParseUnit(unit)
	if err != nil {
		return 0, err
	}
	if !u.IsTime() {
		return 0, &UnitError{Token: unit, Quantity: field}
	}
	return u.Duration(v)
}

// required is number for fields that must be present.
func required(field, s string) (float64, error) {
	if blank(s) {
		return 0, &ValueError{Field: field, Value: s}
	}
	return number(field, s)
}

func blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null")
}

func number(field, s string) (float64, error) {
	if blank(s) {
		return 0, nil
	}
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValueError{Field: field, Value: s}
	}
	return v, nil
}
