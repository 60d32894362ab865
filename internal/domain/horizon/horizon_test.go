package horizon

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestProfileInterpolation(t *testing.T) {
	Convey("Given a four-vertex horizon", t, func() {
		p, err := New([]Point{{0, 10}, {90, 20}, {180, 30}, {270, 40}})
		So(err, ShouldBeNil)

		Convey("Then vertices are exact", func() {
			So(p.MinAltitude(0), ShouldEqual, 10)
			So(p.MinAltitude(90), ShouldEqual, 20)
			So(p.MinAltitude(180), ShouldEqual, 30)
			So(p.MinAltitude(270), ShouldEqual, 40)
		})

		Convey("Then midpoints interpolate linearly", func() {
			So(p.MinAltitude(45), ShouldAlmostEqual, 15)
			So(p.MinAltitude(225), ShouldAlmostEqual, 35)
		})

		Convey("Then the 360/0 seam is continuous", func() {
			So(p.MinAltitude(315), ShouldAlmostEqual, 25)
			So(p.MinAltitude(359.999999), ShouldAlmostEqual, 10, 1e-4)
			So(p.MinAltitude(360), ShouldEqual, 10)
			So(p.MinAltitude(-45), ShouldAlmostEqual, 25)
			So(p.MinAltitude(405), ShouldAlmostEqual, 15)
		})

		Convey("Then IsAboveHorizon compares with >=", func() {
			So(p.IsAboveHorizon(90, 20), ShouldBeTrue)
			So(p.IsAboveHorizon(90, 19.99), ShouldBeFalse)
		})
	})

	Convey("Given a profile whose first vertex is not at 0", t, func() {
		p, err := New([]Point{{30, 0}, {120, 30}, {300, 60}})
		So(err, ShouldBeNil)

		Convey("Then azimuths before the first vertex wrap from the last", func() {
			// 300 -> 390 spans 90 degrees; 0 sits two thirds of the way
			So(p.MinAltitude(0), ShouldAlmostEqual, 20)
			So(p.MinAltitude(330), ShouldAlmostEqual, 40)
		})
	})

	Convey("Given a flat horizon", t, func() {
		p := Flat(20)
		So(p.MinAltitude(17), ShouldEqual, 20)
		So(p.MinAltitude(300), ShouldEqual, 20)
	})
}

func TestProfileValidation(t *testing.T) {
	Convey("Given invalid vertex sets", t, func() {
		Convey("When fewer than three vertices are given", func() {
			_, err := New([]Point{{0, 0}, {180, 0}})
			So(errors.Is(err, ErrHorizonFile), ShouldBeTrue)
		})

		Convey("When azimuths are not ascending", func() {
			_, err := New([]Point{{0, 0}, {180, 0}, {90, 0}})
			So(errors.Is(err, ErrHorizonFile), ShouldBeTrue)
			var fe *FileError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Line, ShouldEqual, 3)
		})

		Convey("When an azimuth is out of range", func() {
			_, err := New([]Point{{0, 0}, {180, 0}, {361, 0}})
			So(errors.Is(err, ErrHorizonFile), ShouldBeTrue)
		})

		Convey("When 360 disagrees with 0", func() {
			_, err := New([]Point{{0, 0}, {180, 0}, {360, 5}})
			So(errors.Is(err, ErrHorizonFile), ShouldBeTrue)
		})
	})

	Convey("Given a closing vertex at 360", t, func() {
		p, err := New([]Point{{0, 0}, {90, 0}, {180, 0}, {270, 0}, {360, 0}})
		So(err, ShouldBeNil)
		So(len(p.Points()), ShouldEqual, 4)
	})

	Convey("Given a 360 vertex without a 0 vertex", t, func() {
		p, err := New([]Point{{90, 10}, {180, 10}, {360, 30}})
		So(err, ShouldBeNil)
		So(p.Points()[0], ShouldResemble, Point{Az: 0, Alt: 30})
		So(p.MinAltitude(0), ShouldEqual, 30)
	})
}

func TestLoad(t *testing.T) {
	Convey("Given CSV horizon data", t, func() {
		Convey("When it has a header and comments", func() {
			src := "# site horizon\naz,alt\n0,5\n120,15\n240,25\n"
			p, err := Load(strings.NewReader(src))
			So(err, ShouldBeNil)
			So(p.MinAltitude(120), ShouldEqual, 15)
			So(p.MinAltitude(60), ShouldAlmostEqual, 10)
		})

		Convey("When a data row is garbage", func() {
			_, err := Load(strings.NewReader("0,5\n120,x\n240,25\n"))
			So(errors.Is(err, ErrHorizonFile), ShouldBeTrue)
		})

		Convey("When it is loaded from disk", func() {
			path := filepath.Join(t.TempDir(), "horizon.csv")
			So(os.WriteFile(path, []byte("0,0\n90,0\n180,0\n270,0\n360,0\n"), 0o600), ShouldBeNil)
			p, err := LoadFile(path)
			So(err, ShouldBeNil)
			So(p.MinAltitude(10), ShouldEqual, 0)
		})

		Convey("When the file is missing", func() {
			_, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv"))
			So(errors.Is(err, ErrHorizonFile), ShouldBeTrue)
		})
	})
}
