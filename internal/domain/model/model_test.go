package model_test

import (
	"math"
	"testing"
	"time"

	model "github.com/okian/tofo/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestWindow(t *testing.T) {
	convey.Convey("Given a one hour window", t, func() {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		w := model.Window{Start: start, End: start.Add(time.Hour)}

		convey.Convey("Then edges are contained", func() {
			convey.So(w.Contains(start, start.Add(time.Hour)), convey.ShouldBeTrue)
		})

		convey.Convey("Then spans leaking out are not", func() {
			convey.So(w.Contains(start.Add(-time.Second), start.Add(time.Minute)), convey.ShouldBeFalse)
			convey.So(w.Contains(start, start.Add(time.Hour+time.Second)), convey.ShouldBeFalse)
		})

		convey.So(w.Empty(), convey.ShouldBeFalse)
		convey.So(model.Window{Start: start, End: start}.Empty(), convey.ShouldBeTrue)
	})
}

func TestTelescope(t *testing.T) {
	convey.Convey("Given a 200mm f/5 telescope with a 23.5x15.6mm sensor", t, func() {
		tel := model.Telescope{ApertureMM: 203.2, FocalLengthMM: 1000, SensorXMM: 23.5, SensorYMM: 15.6}

		convey.So(tel.ApertureInches(), convey.ShouldAlmostEqual, 8.0)

		x, y := tel.FieldOfView()
		convey.So(x, convey.ShouldAlmostEqual, math.Atan(0.0235)*180/math.Pi)
		convey.So(y, convey.ShouldAlmostEqual, math.Atan(0.0156)*180/math.Pi)
		convey.So(tel.SearchRadius(), convey.ShouldAlmostEqual, math.Hypot(x, y)/2)
	})

	convey.Convey("Given a telescope without focal length", t, func() {
		x, y := model.Telescope{}.FieldOfView()
		convey.So(x, convey.ShouldEqual, 0)
		convey.So(y, convey.ShouldEqual, 0)
	})
}

func TestTwilight(t *testing.T) {
	convey.Convey("Given twilight classes", t, func() {
		alt, ok := model.TwilightAstronomical.SunAltitude()
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(alt, convey.ShouldEqual, -18)

		_, ok = model.TwilightNone.SunAltitude()
		convey.So(ok, convey.ShouldBeFalse)

		convey.So(model.FrameBarycentric.String(), convey.ShouldEqual, "barycentric")
		convey.So(model.Secondary.String(), convey.ShouldEqual, "secondary")
	})
}
