package normalize

import (
	"math"
	"strings"
	"time"
)

// Unit is the closed set of units catalogs publish ephemeris fields in.
type Unit uint8

const (
	UnitDays Unit = iota + 1
	UnitHours
	UnitSeconds
	UnitDegrees
	UnitRadians
)

var unitNames = map[string]Unit{
	"days": UnitDays, "day": UnitDays, "d": UnitDays,
	"hours": UnitHours, "hour": UnitHours, "hr": UnitHours, "h": UnitHours,
	"seconds": UnitSeconds, "second": UnitSeconds, "sec": UnitSeconds, "s": UnitSeconds,
	"degrees": UnitDegrees, "degree": UnitDegrees, "deg": UnitDegrees,
	"radians": UnitRadians, "radian": UnitRadians, "rad": UnitRadians,
}

// ParseUnit maps a catalog unit label such as "Days" onto a Unit.
func ParseUnit(s string) (Unit, error) {
	u, ok := unitNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, &UnitError{Token: s}
	}
	return u, nil
}

func (u Unit) String() string {
	switch u {
	case UnitDays:
		return "days"
	case UnitHours:
		return "hours"
	case UnitSeconds:
		return "seconds"
	case UnitDegrees:
		return "degrees"
	case UnitRadians:
		return "radians"
	default:
		return "unknown"
	}
}

// IsTime reports whether u measures time.
func (u Unit) IsTime() bool { return u == UnitDays || u == UnitHours || u == UnitSeconds }

// IsAngle reports whether u measures an angle.
func (u Unit) IsAngle() bool { return u == UnitDegrees || u == UnitRadians }

// Duration converts v expressed in u to a time.Duration.
func (u Unit) Duration(v float64) (time.Duration, error) {
	var sec float64
	switch u {
	case UnitDays:
		sec = v * 86400
	case UnitHours:
		sec = v * 3600
	case UnitSeconds:
		sec = v
	default:
		return 0, &UnitError{Token: u.String(), Quantity: "time"}
	}
	return time.Duration(math.Round(sec * float64(time.Second))), nil
}

// Degrees converts the angle v expressed in u to degrees.
func (u Unit) Degrees(v float64) (float64, error) {
	switch u {
	case UnitDegrees:
		return v, nil
	case UnitRadians:
		return v * 180 / math.Pi, nil
	default:
		return 0, &UnitError{Token: u.String(), Quantity: "angle"}
	}
}
