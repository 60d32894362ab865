package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/internal/domain/normalize"
	"github.com/okian/tofo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const exoClockSample = `{
 "WASP-12b": {"name": "WASP-12b", "star": "WASP-12", "ra_j2000": "06:30:32.7966", "dec_j2000": "+29:40:20.266",
  "ephem_mid_time": 2457010.51203, "ephem_mid_time_format": "BJD_TDB", "ephem_period": 1.09141935,
  "ephem_period_units": "Days", "duration_hours": 3.0, "eccentricity": 0.0, "periastron": 90,
  "periastron_units": "Degrees", "priority": "medium", "min_telescope_inches": 6,
  "exoclock_observations": 120, "exoclock_observations_recent": 8},
 "HAT-P-7b": {"name": "HAT-P-7b", "star": "HAT-P-7", "ra_j2000": "19:28:59.3548", "dec_j2000": "+47:58:10.229",
  "ephem_mid_time": "2454954.357462", "ephem_mid_time_format": "BJD_TDB", "ephem_period": "2.2047354",
  "ephem_period_units": "Days", "duration_hours": "4.0", "eccentricity": null, "periastron": "",
  "periastron_units": "", "priority": "low", "min_telescope_inches": 10,
  "exoclock_observations": 50, "exoclock_observations_recent": 2}
}`

func TestDecodeExoClock(t *testing.T) {
	Convey("Given an ExoClock payload", t, func() {
		recs, err := DecodeExoClock(json.RawMessage(exoClockSample))
		So(err, ShouldBeNil)

		Convey("Then records are keyed in name order with the catalog's digits", func() {
			So(len(recs), ShouldEqual, 2)
			So(recs[0].Name, ShouldEqual, "HAT-P-7b")
			So(recs[1].Name, ShouldEqual, "WASP-12b")
			So(recs[1].Epoch, ShouldEqual, "2457010.51203")
			So(recs[1].Period, ShouldEqual, "1.09141935")
			So(recs[1].EpochTag, ShouldEqual, "BJD_TDB")
			So(recs[0].Eccentricity, ShouldEqual, "")
			So(recs[1].Source, ShouldEqual, ExoClock)
		})

		Convey("Then they normalise into targets", func() {
			n := normalize.New(time.UTC)
			tgt, err := n.Target(recs[1])
			So(err, ShouldBeNil)
			So(tgt.Name, ShouldEqual, "WASP-12b")
			So(tgt.RA, ShouldAlmostEqual, 97.636652, 1e-5)
			So(tgt.Ephemeris.Epoch.Frame, ShouldEqual, model.FrameBarycentric)
			So(tgt.MinApertureInches, ShouldEqual, 6)
			So(tgt.TotalObservations, ShouldEqual, 120)

			other, err := n.Target(recs[0])
			So(err, ShouldBeNil)
			So(other.Ephemeris.Eccentricity, ShouldEqual, 0)
		})
	})

	Convey("Given a non-object payload", t, func() {
		_, err := DecodeExoClock(json.RawMessage(`[1,2]`))
		So(errors.Is(err, ErrDecode), ShouldBeTrue)
	})
}

func TestNASAFetcher(t *testing.T) {
	Convey("Given a TAP endpoint", t, func() {
		var gotQuery url.Values
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			_, _ = w.Write([]byte(`[{"pl_name":"TrES-3 b","hostname":"TrES-3","ra":268.0291,"dec":37.546,
				"pl_tranmid":2454185.9104,"pl_orbper":1.30618581,"pl_trandur":1.3,"pl_orbeccen":null,"pl_orblper":null}]`))
		}))
		defer srv.Close()

		f := NewNASAFetcher(NewBaseClient(srv.Client(), "nasa"), srv.URL)
		payload, err := f.Fetch(context.Background())
		So(err, ShouldBeNil)
		So(gotQuery.Get("format"), ShouldEqual, "json")
		So(gotQuery.Get("query"), ShouldContainSubstring, "tran_flag=1")

		recs, err := DecodeNASA(payload)
		So(err, ShouldBeNil)
		So(len(recs), ShouldEqual, 1)
		So(recs[0].Name, ShouldEqual, "TrES-3 b")
		So(recs[0].EpochTag, ShouldEqual, "BJD_TDB")
		So(recs[0].Eccentricity, ShouldEqual, "")

		tgt, err := normalize.New(time.UTC).Target(recs[0])
		So(err, ShouldBeNil)
		So(tgt.Ephemeris.Duration, ShouldEqual, 78*time.Minute)
		So(tgt.Ephemeris.ArgumentOfPeriapsis, ShouldEqual, 90)
	})

	Convey("Given an endpoint returning HTML", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		}))
		defer srv.Close()

		_, err := NewNASAFetcher(NewBaseClient(srv.Client(), "nasa"), srv.URL).Fetch(context.Background())
		So(errors.Is(err, ErrDecode), ShouldBeTrue)
	})
}

func TestVSXFetcher(t *testing.T) {
	targets := []model.Target{
		{Name: "WASP-12b", Star: "WASP-12", RA: 97.6, Dec: 29.7},
		{Name: "HAT-P-7b", Star: "HAT-P-7", RA: 292.2, Dec: 47.9},
		{Name: "TrES-3b", Star: "TrES-3", RA: 268.0, Dec: 37.5},
	}
	list := func(context.Context) ([]model.Target, error) { return targets, nil }

	Convey("Given a VSX endpoint with list, single and empty answers", t, func() {
		var (
			mu     sync.Mutex
			views  []string
			limits []string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			mu.Lock()
			views = append(views, q.Get("view"))
			limits = append(limits, q.Get("tomag"))
			mu.Unlock()
			switch {
			case strings.HasPrefix(q.Get("ra"), "97."):
				_, _ = w.Write([]byte(`{"VSXObjects":{"VSXObject":[
					{"Name":"WASP-12","RA2000":"97.6","Declination2000":"29.7","Period":"1.09"},
					{"Name":"V1 Aur","RA2000":"97.7","Declination2000":"29.6","Period":"0.35","EclipseDuration":"2.5"}]}}`))
			case strings.HasPrefix(q.Get("ra"), "292."):
				_, _ = w.Write([]byte(`{"VSXObjects":{"VSXObject":{"Name":"V2 Cyg","RA2000":"292.1","Declination2000":"47.8","Period":"3.1"}}}`))
			default:
				_, _ = w.Write([]byte(`{"VSXObjects":[]}`))
			}
		}))
		defer srv.Close()

		f := NewVSXFetcher(NewBaseClient(srv.Client(), "vsx"), 0.33, 15, list,
			WithVSXURL(srv.URL), WithVSXLogger(logger.Nop()))
		payload, err := f.Fetch(context.Background())
		So(err, ShouldBeNil)

		comps, err := DecodeCompanions(payload)
		So(err, ShouldBeNil)

		Convey("Then each target gets its companions, excluding its host star", func() {
			So(len(comps), ShouldEqual, 3)
			So(len(comps["WASP-12b"]), ShouldEqual, 1)
			So(comps["WASP-12b"][0].Name, ShouldEqual, "V1 Aur")
			So(comps["WASP-12b"][0].Duration, ShouldEqual, 2.5)
			So(len(comps["HAT-P-7b"]), ShouldEqual, 1)
			So(comps["HAT-P-7b"][0].Period, ShouldEqual, 3.1)
			So(comps["TrES-3b"], ShouldBeEmpty)
		})

		Convey("Then every search is a magnitude-limited list query", func() {
			So(views, ShouldResemble, []string{"api.list", "api.list", "api.list"})
			So(limits, ShouldResemble, []string{"15.0", "15.0", "15.0"})
		})
	})

	Convey("Given an endpoint that always fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		f := NewVSXFetcher(NewBaseClient(srv.Client(), "vsx"), 0.33, 15, list,
			WithVSXURL(srv.URL), WithVSXLogger(logger.Nop()))
		_, err := f.Fetch(context.Background())
		So(errors.Is(err, ErrUpstream), ShouldBeTrue)
	})

	Convey("Given no candidates", t, func() {
		f := NewVSXFetcher(NewBaseClient(nil, "vsx"), 0.33, 15,
			func(context.Context) ([]model.Target, error) { return nil, nil }, WithVSXLogger(logger.Nop()))
		_, err := f.Fetch(context.Background())
		So(errors.Is(err, ErrNoCandidates), ShouldBeTrue)
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the catalog table", t, func() {
		_, err := TargetDecoder(ExoClock)
		So(err, ShouldBeNil)
		_, err = TargetDecoder(VSX)
		So(errors.Is(err, ErrUnknownKind), ShouldBeTrue)
		So(IsTargetCatalog(NASA), ShouldBeTrue)
		So(Known(VSX), ShouldBeTrue)
		So(Known("gcvs"), ShouldBeFalse)
	})
}
