package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/okian/tofo/internal/config"
	"github.com/okian/tofo/internal/domain/horizon"
	"github.com/okian/tofo/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.RefreshInterval, convey.ShouldEqual, 6*time.Hour)
			convey.So(cfg.Cache.Backend, convey.ShouldEqual, "file")
			convey.So(len(cfg.Sources), convey.ShouldEqual, 3)
			convey.So(cfg.Scoring.Weights["recent_observations"], convey.ShouldEqual, 3)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"latitude out of range", func(c *config.Config) { c.Observatory.LatDeg = 95 }},
			{"unknown twilight", func(c *config.Config) { c.Observations.Twilight = "dusk" }},
			{"one sample per event", func(c *config.Config) { c.Observations.SamplesPerEvent = 1 }},
			{"postgres without url", func(c *config.Config) { c.Cache.Backend = "postgres" }},
			{"unknown backend", func(c *config.Config) { c.Cache.Backend = "redis" }},
			{"unknown source", func(c *config.Config) { c.Sources = []config.SourceConfig{{Name: "gcvs", Use: true}} }},
			{"negative weight", func(c *config.Config) { c.Scoring.Weights["min_additional_period"] = -1 }},
			{"zero aperture", func(c *config.Config) { c.Telescope.ApertureMM = 0 }},
			{"duplicate source", func(c *config.Config) { c.Sources = append(c.Sources, c.Sources[0]) }},
			{"unsupported export format", func(c *config.Config) { c.Export.Format = "xml" }},
		}
		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_BuildObservatory(t *testing.T) {
	convey.Convey("Given a config with a horizon file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "horizon.csv")
		convey.So(os.WriteFile(path, []byte("az,alt\n0,10\n120,20\n240,15\n"), 0o600), convey.ShouldBeNil)

		cfg := config.New()
		cfg.Observatory.TimeZone = "Europe/London"
		cfg.Observatory.LatDeg = 51.5
		cfg.Observatory.HorizonFile = path
		cfg.Observations.ExoHoursBefore = 0.5

		obs, err := cfg.BuildObservatory()

		convey.Convey("Then the site carries the loaded profile and converted margins", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(obs.Location.String(), convey.ShouldEqual, "Europe/London")
			convey.So(obs.Latitude, convey.ShouldEqual, 51.5)
			convey.So(obs.Horizon.MinAltitude(120), convey.ShouldEqual, 20)
			convey.So(obs.MarginBefore, convey.ShouldEqual, 30*time.Minute)
			convey.So(obs.Twilight, convey.ShouldEqual, model.TwilightAstronomical)
			convey.So(obs.Telescope.ApertureInches(), convey.ShouldAlmostEqual, 7.874, 0.001)
		})
	})

	convey.Convey("Given a malformed horizon file", t, func() {
		path := filepath.Join(t.TempDir(), "horizon.csv")
		convey.So(os.WriteFile(path, []byte("0,10\n10,abc\n"), 0o600), convey.ShouldBeNil)
		cfg := config.New()
		cfg.Observatory.HorizonFile = path

		_, err := cfg.BuildObservatory()
		convey.So(errors.Is(err, horizon.ErrHorizonFile), convey.ShouldBeTrue)
	})

	convey.Convey("Given no horizon file", t, func() {
		obs, err := config.New().BuildObservatory()
		convey.So(err, convey.ShouldBeNil)
		convey.So(obs.Horizon.MinAltitude(45), convey.ShouldEqual, 0)
	})

	convey.Convey("Given an unknown time zone", t, func() {
		cfg := config.New()
		cfg.Observatory.TimeZone = "Mars/Olympus"
		_, err := cfg.BuildObservatory()
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
