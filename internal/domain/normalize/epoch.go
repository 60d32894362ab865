package normalize

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/tofo/internal/domain/model"
)

// EpochFormat is the numeric representation of a reference epoch.
type EpochFormat uint8

const (
	FormatJD EpochFormat = iota + 1
	FormatBJD
	FormatMJD
)

func (f EpochFormat) String() string {
	switch f {
	case FormatJD:
		return "JD"
	case FormatBJD:
		return "BJD"
	case FormatMJD:
		return "MJD"
	default:
		return "unknown"
	}
}

// TimeScale is the clock an epoch value is expressed on.
type TimeScale uint8

const (
	ScaleTDB TimeScale = iota + 1
	ScaleUTC
	ScaleLocal
)

func (s TimeScale) String() string {
	switch s {
	case ScaleTDB:
		return "TDB"
	case ScaleUTC:
		return "UTC"
	case ScaleLocal:
		return "Local"
	default:
		return "unknown"
	}
}

const (
	jdUnixEpoch = 2440587.5 // JD of 1970-01-01T00:00:00Z
	mjdOffset   = 2400000.5
	jdJ2000     = 2451545.0
	secPerDay   = 86400.0
	ttMinusTAI  = 32.184
)

// ParseEpochTag splits a tag such as "BJD_TDB" into format and scale.
func ParseEpochTag(tag string) (EpochFormat, TimeScale, error) {
	fs, ss, ok := strings.Cut(strings.TrimSpace(tag), "_")
	if !ok {
		return 0, 0, &FormatError{Token: tag}
	}
	var f EpochFormat
	switch strings.ToUpper(fs) {
	case "JD":
		f = FormatJD
	case "BJD":
		f = FormatBJD
	case "MJD":
		f = FormatMJD
	default:
		return 0, 0, &FormatError{Token: fs}
	}
	var s TimeScale
	switch strings.ToUpper(ss) {
	case "TDB":
		s = ScaleTDB
	case "UTC":
		s = ScaleUTC
	case "LOCAL":
		s = ScaleLocal
	default:
		return 0, 0, &FormatError{Token: ss}
	}
	return f, s, nil
}

// JDToTime converts a Julian Date on a uniform clock to an instant labelled
// UTC, rounded to the millisecond. A float64 JD near the present resolves
// about 40 microseconds, so finer digits are noise.
func JDToTime(jd float64) time.Time {
	sec := (jd - jdUnixEpoch) * secPerDay
	whole := math.Floor(sec)
	ms := math.Round((sec - whole) * 1e3)
	return time.Unix(int64(whole), int64(ms)*int64(time.Millisecond)).UTC()
}

// TimeToJD is the inverse of JDToTime.
func TimeToJD(t time.Time) float64 {
	return jdUnixEpoch + float64(t.UnixNano())/1e9/secPerDay
}

// MJDToJD shifts a Modified Julian Date onto the Julian Date origin.
func MJDToJD(mjd float64) float64 { return mjd + mjdOffset }

// Epoch converts value in the given format and scale to a UTC epoch. The
// Local scale reads the value as wall-clock time in loc.
func Epoch(value float64, f EpochFormat, s TimeScale, loc *time.Location) (model.Epoch, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return model.Epoch{}, &ValueError{Field: "epoch", Value: "NaN"}
	}
	jd := value
	frame := model.FrameGeocentric
	switch f {
	case FormatJD:
	case FormatBJD:
		frame = model.FrameBarycentric
	case FormatMJD:
		jd = MJDToJD(value)
	default:
		return model.Epoch{}, &FormatError{Token: f.String()}
	}

	raw := JDToTime(jd)
	var instant time.Time
	switch s {
	case ScaleUTC:
		instant = raw
	case ScaleTDB:
		instant = TDBToUTC(raw)
	case ScaleLocal:
		if loc == nil {
			loc = time.UTC
		}
		instant = ToUTC(raw, loc)
	default:
		return model.Epoch{}, &FormatError{Token: s.String()}
	}
	return model.Epoch{Instant: instant, Frame: frame, Tag: f.String() + "_" + s.String()}, nil
}

// ToUTC reinterprets the wall-clock reading of wall in loc, applying loc's
// offset (including daylight saving) at that date.
func ToUTC(wall time.Time, loc *time.Location) time.Time {
	y, mo, d := wall.Date()
	h, mi, sec := wall.Clock()
	return time.Date(y, mo, d, h, mi, sec, wall.Nanosecond(), loc).UTC()
}

// ToLocal expresses t in the observatory's zone.
func ToLocal(t time.Time, loc *time.Location) time.Time { return t.In(loc) }

// TDBToUTC maps an instant read on the TDB clock to UTC. TDB-TT is the
// periodic term of Fairhead & Bretagnon truncated to its two largest
// harmonics; TT-UTC comes from the leap second table.
func TDBToUTC(tdb time.Time) time.Time {
	tt := tdb.Add(-secondsToDuration(tdbMinusTT(tdb)))
	approxUTC := tt.Add(-secondsToDuration(ttMinusTAI + 37))
	return tt.Add(-secondsToDuration(ttMinusTAI + float64(LeapSeconds(approxUTC))))
}

// UTCToTDB is the inverse of TDBToUTC.
func UTCToTDB(utc time.Time) time.Time {
	tt := utc.Add(secondsToDuration(ttMinusTAI + float64(LeapSeconds(utc))))
	return tt.Add(secondsToDuration(tdbMinusTT(tt)))
}

func tdbMinusTT(t time.Time) float64 {
	g := (357.53 + 0.98560028*(TimeToJD(t)-jdJ2000)) * math.Pi / 180
	return 0.001657*math.Sin(g) + 0.000014*math.Sin(2*g)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

type leap struct {
	from  time.Time
	delta int
}

// TAI-UTC steps since 1972. IERS has announced no step after 2017.
var leapTable = []leap{
	{time.Date(1972, 1, 1, 0, 0, 0, 0, time.UTC), 10},
	{time.Date(1972, 7, 1, 0, 0, 0, 0, time.UTC), 11},
	{time.Date(1973, 1, 1, 0, 0, 0, 0, time.UTC), 12},
	{time.Date(1974, 1, 1, 0, 0, 0, 0, time.UTC), 13},
	{time.Date(1975, 1, 1, 0, 0, 0, 0, time.UTC), 14},
	{time.Date(1976, 1, 1, 0, 0, 0, 0, time.UTC), 15},
	{time.Date(1977, 1, 1, 0, 0, 0, 0, time.UTC), 16},
	{time.Date(1978, 1, 1, 0, 0, 0, 0, time.UTC), 17},
	{time.Date(1979, 1, 1, 0, 0, 0, 0, time.UTC), 18},
	{time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC), 19},
	{time.Date(1981, 7, 1, 0, 0, 0, 0, time.UTC), 20},
	{time.Date(1982, 7, 1, 0, 0, 0, 0, time.UTC), 21},
	{time.Date(1983, 7, 1, 0, 0, 0, 0, time.UTC), 22},
	{time.Date(1985, 7, 1, 0, 0, 0, 0, time.UTC), 23},
	{time.Date(1988, 1, 1, 0, 0, 0, 0, time.UTC), 24},
	{time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), 25},
	{time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC), 26},
	{time.Date(1992, 7, 1, 0, 0, 0, 0, time.UTC), 27},
	{time.Date(1993, 7, 1, 0, 0, 0, 0, time.UTC), 28},
	{time.Date(1994, 7, 1, 0, 0, 0, 0, time.UTC), 29},
	{time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), 30},
	{time.Date(1997, 7, 1, 0, 0, 0, 0, time.UTC), 31},
	{time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), 32},
	{time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC), 33},
	{time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC), 34},
	{time.Date(2012, 7, 1, 0, 0, 0, 0, time.UTC), 35},
	{time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC), 36},
	{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 37},
}

// LeapSeconds returns TAI-UTC in seconds at t. Dates before 1972 use the
// initial offset.
func LeapSeconds(t time.Time) int {
	i := sort.Search(len(leapTable), func(i int) bool { return leapTable[i].from.After(t) })
	if i == 0 {
		return leapTable[0].delta
	}
	return leapTable[i-1].delta
}
