package normalize

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/tofo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEpochTags(t *testing.T) {
	Convey("Given catalog epoch tags", t, func() {
		Convey("When the tag is known", func() {
			f, s, err := ParseEpochTag("BJD_TDB")
			So(err, ShouldBeNil)
			So(f, ShouldEqual, FormatBJD)
			So(s, ShouldEqual, ScaleTDB)

			f, s, err = ParseEpochTag("mjd_local")
			So(err, ShouldBeNil)
			So(f, ShouldEqual, FormatMJD)
			So(s, ShouldEqual, ScaleLocal)
		})

		Convey("When the format token is unknown", func() {
			_, _, err := ParseEpochTag("HJD_UTC")
			So(errors.Is(err, ErrUnsupportedFormat), ShouldBeTrue)
			var fe *FormatError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Token, ShouldEqual, "HJD")
		})

		Convey("When the scale token is unknown", func() {
			_, _, err := ParseEpochTag("JD_TCB")
			var fe *FormatError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Token, ShouldEqual, "TCB")
		})

		Convey("When there is no separator", func() {
			_, _, err := ParseEpochTag("BJD")
			So(errors.Is(err, ErrUnsupportedFormat), ShouldBeTrue)
		})
	})
}

func TestUnits(t *testing.T) {
	Convey("Given unit labels", t, func() {
		u, err := ParseUnit("Days")
		So(err, ShouldBeNil)
		d, err := u.Duration(1.5)
		So(err, ShouldBeNil)
		So(d, ShouldEqual, 36*time.Hour)

		u, err = ParseUnit("Hours")
		So(err, ShouldBeNil)
		d, _ = u.Duration(2.5)
		So(d, ShouldEqual, 150*time.Minute)

		u, _ = ParseUnit("seconds")
		d, _ = u.Duration(90)
		So(d, ShouldEqual, 90*time.Second)

		u, _ = ParseUnit("Radians")
		deg, err := u.Degrees(math.Pi / 2)
		So(err, ShouldBeNil)
		So(deg, ShouldAlmostEqual, 90)

		Convey("Then unknown labels fail with UnsupportedUnit", func() {
			_, err := ParseUnit("fortnights")
			So(errors.Is(err, ErrUnsupportedUnit), ShouldBeTrue)
		})

		Convey("Then crossing quantities fails", func() {
			_, err := UnitDegrees.Duration(1)
			So(errors.Is(err, ErrUnsupportedUnit), ShouldBeTrue)
			_, err = UnitHours.Degrees(1)
			So(errors.Is(err, ErrUnsupportedUnit), ShouldBeTrue)
		})
	})
}

func TestJulianDates(t *testing.T) {
	Convey("Given Julian Dates", t, func() {
		So(JDToTime(2451545.0), ShouldEqual, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
		So(JDToTime(2440587.5), ShouldEqual, time.Unix(0, 0).UTC())
		So(TimeToJD(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)), ShouldAlmostEqual, 2451545.0, 1e-9)

		Convey("Then MJD and JD agree", func() {
			a, err := Epoch(60676.75, FormatMJD, ScaleUTC, nil)
			So(err, ShouldBeNil)
			b, err := Epoch(2460677.25, FormatJD, ScaleUTC, nil)
			So(err, ShouldBeNil)
			So(a.Instant, ShouldEqual, b.Instant)
		})

		Convey("Then BJD keeps its frame and numeric value", func() {
			a, _ := Epoch(2460677.25, FormatBJD, ScaleUTC, nil)
			b, _ := Epoch(2460677.25, FormatJD, ScaleUTC, nil)
			So(a.Instant, ShouldEqual, b.Instant)
			So(a.Frame, ShouldEqual, model.FrameBarycentric)
			So(b.Frame, ShouldEqual, model.FrameGeocentric)
			So(a.Tag, ShouldEqual, "BJD_UTC")
		})
	})
}

func TestTimeScales(t *testing.T) {
	Convey("Given TDB instants", t, func() {
		tdb := time.Date(2024, 6, 1, 0, 1, 9, 0, time.UTC)
		utc := TDBToUTC(tdb)

		Convey("Then UTC is 69.184s earlier within the periodic term", func() {
			diff := tdb.Sub(utc).Seconds()
			So(diff, ShouldAlmostEqual, 69.184, 0.002)
		})

		Convey("Then the conversion inverts", func() {
			back := UTCToTDB(utc)
			So(math.Abs(back.Sub(tdb).Seconds()), ShouldBeLessThan, 1e-6)
		})
	})

	Convey("Given the leap second table", t, func() {
		So(LeapSeconds(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldEqual, 10)
		So(LeapSeconds(time.Date(2016, 12, 31, 23, 59, 59, 0, time.UTC)), ShouldEqual, 36)
		So(LeapSeconds(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldEqual, 37)
		So(LeapSeconds(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldEqual, 37)
	})
}

func TestLocalRoundTrip(t *testing.T) {
	Convey("Given an observatory zone with daylight saving", t, func() {
		loc, err := time.LoadLocation("Europe/London")
		So(err, ShouldBeNil)

		Convey("When converting local wall clock to UTC and back", func() {
			for _, wall := range []time.Time{
				time.Date(2024, 1, 15, 22, 30, 15, 0, time.UTC),
				time.Date(2024, 7, 15, 22, 30, 15, 0, time.UTC),
				time.Date(2024, 3, 31, 0, 59, 59, 0, time.UTC),
				time.Date(2024, 3, 31, 2, 0, 0, 0, time.UTC),
				time.Date(2024, 10, 27, 3, 0, 0, 0, time.UTC),
			} {
				utc := ToUTC(wall, loc)
				local := ToLocal(utc, loc)
				So(local.Format("2006-01-02 15:04:05"), ShouldEqual, wall.Format("2006-01-02 15:04:05"))
			}
		})

		Convey("Then summer offsets are applied", func() {
			utc := ToUTC(time.Date(2024, 7, 15, 22, 0, 0, 0, time.UTC), loc)
			So(utc, ShouldEqual, time.Date(2024, 7, 15, 21, 0, 0, 0, time.UTC))
		})

		Convey("Then Local-scale epochs resolve through the zone", func() {
			// 2024-07-15 22:00 local wall clock
			jd := TimeToJD(time.Date(2024, 7, 15, 22, 0, 0, 0, time.UTC))
			e, err := Epoch(jd, FormatJD, ScaleLocal, loc)
			So(err, ShouldBeNil)
			So(e.Instant, ShouldEqual, time.Date(2024, 7, 15, 21, 0, 0, 0, time.UTC))
		})
	})
}

func TestCoordinates(t *testing.T) {
	Convey("Given coordinate strings", t, func() {
		ra, err := ParseRA("12:30:00")
		So(err, ShouldBeNil)
		So(ra, ShouldAlmostEqual, 187.5)

		ra, err = ParseRA("187.5")
		So(err, ShouldBeNil)
		So(ra, ShouldAlmostEqual, 187.5)

		dec, err := ParseDec("-00:30:00")
		So(err, ShouldBeNil)
		So(dec, ShouldAlmostEqual, -0.5)

		dec, err = ParseDec("+45 15 36")
		So(err, ShouldBeNil)
		So(dec, ShouldAlmostEqual, 45.26)

		_, err = ParseRA("25:00:00")
		So(errors.Is(err, ErrInvalidValue), ShouldBeTrue)
		_, err = ParseDec("91")
		So(errors.Is(err, ErrInvalidValue), ShouldBeTrue)
		_, err = ParseDec("10:75:00")
		So(errors.Is(err, ErrInvalidValue), ShouldBeTrue)

		Convey("NaN is rejected in every notation", func() {
			for _, s := range []string{"NaN", "nan", "NaN:00:00"} {
				_, err := ParseRA(s)
				So(errors.Is(err, ErrInvalidValue), ShouldBeTrue)
				_, err = ParseDec(s)
				So(errors.Is(err, ErrInvalidValue), ShouldBeTrue)
			}
		})
	})
}

func TestNormalizeRecord(t *testing.T) {
	Convey("Given an ExoClock-style record", t, func() {
		n := New(time.UTC)
		rec := Record{
			Source:             "exoclock",
			Name:               "WASP-12b",
			Star:               "WASP-12",
			RA:                 "06:30:32.79",
			Dec:                "+29:40:20.3",
			Epoch:              "2457010.512173",
			EpochTag:           "BJD_TDB",
			Period:             "1.09141935",
			PeriodUnit:         "Days",
			Duration:           "3.0",
			DurationUnit:       "Hours",
			Eccentricity:       "",
			Periapsis:          "0.5",
			PeriapsisUnit:      "Radians",
			Priority:           "medium",
			MinApertureInches:  "6",
			TotalObservations:  "120",
			RecentObservations: "7",
		}

		Convey("When it is valid", func() {
			tg, err := n.Target(rec)
			So(err, ShouldBeNil)
			So(tg.Name, ShouldEqual, "WASP-12b")
			So(tg.RA, ShouldAlmostEqual, 97.636625, 1e-6)
			So(tg.Ephemeris.Duration, ShouldEqual, 3*time.Hour)
			So(float64(tg.Ephemeris.Period), ShouldAlmostEqual, 1.09141935*86400*1e9, 10)
			So(tg.Ephemeris.Eccentricity, ShouldEqual, 0)
			So(tg.Ephemeris.ArgumentOfPeriapsis, ShouldAlmostEqual, 0.5*180/math.Pi)
			So(tg.Ephemeris.Epoch.Frame, ShouldEqual, model.FrameBarycentric)
			So(tg.MinApertureInches, ShouldEqual, 6)
			So(tg.TotalObservations, ShouldEqual, 120)
			So(tg.RecentObservations, ShouldEqual, 7)
		})

		Convey("When the epoch format is unknown", func() {
			rec.EpochTag = "HJD_UTC"
			_, err := n.Target(rec)
			So(errors.Is(err, ErrUnsupportedFormat), ShouldBeTrue)
		})

		Convey("When the period unit is unknown", func() {
			rec.PeriodUnit = "Weeks"
			_, err := n.Target(rec)
			So(errors.Is(err, ErrUnsupportedUnit), ShouldBeTrue)
		})

		Convey("When the period is given as an angle", func() {
			rec.PeriodUnit = "Degrees"
			_, err := n.Target(rec)
			So(errors.Is(err, ErrUnsupportedUnit), ShouldBeTrue)
		})

		Convey("When the eccentricity is out of range", func() {
			rec.Eccentricity = "1.2"
			_, err := n.Target(rec)
			So(errors.Is(err, ErrInvalidValue), ShouldBeTrue)
		})

		Convey("When the epoch is missing", func() {
			for _, epoch := range []string{"", "  ", "null", "NaN"} {
				rec.Epoch = epoch
				_, err := n.Target(rec)
				So(errors.Is(err, ErrInvalidValue), ShouldBeTrue)
				var ve *ValueError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Field, ShouldEqual, "epoch")
			}
		})

		Convey("When the periapsis is missing", func() {
			rec.Periapsis = ""
			rec.PeriapsisUnit = ""
			tg, err := n.Target(rec)
			So(err, ShouldBeNil)
			So(tg.Ephemeris.ArgumentOfPeriapsis, ShouldEqual, 90)
		})
	})
}
