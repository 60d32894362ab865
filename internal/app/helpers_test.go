package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/tofo/internal/adapters/cache"
	"github.com/okian/tofo/internal/adapters/catalog"
	"github.com/okian/tofo/internal/domain/horizon"
	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/pkg/logger"
)

// windowStart is JD 2460686.25 exactly.
var windowStart = time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)

const windowStartJD = 2460686.25

// planet is one ExoClock row. RA 100 / Dec +60 is circumpolar from 51.5N
// and stays above 21 degrees.
type planet struct {
	Name      string
	EpochJD   float64
	Format    string
	PeriodD   float64
	PeriodU   string
	DurationH float64
	Aperture  float64
	Total     int
	Recent    int
}

func (p planet) json() string {
	format := p.Format
	if format == "" {
		format = "JD_UTC"
	}
	unit := p.PeriodU
	if unit == "" {
		unit = "Days"
	}
	return fmt.Sprintf(`%q: {"name": %q, "star": %q, "ra_j2000": "100", "dec_j2000": "+60:00:00",
		"ephem_mid_time": %.6f, "ephem_mid_time_format": %q, "ephem_period": %g, "ephem_period_units": %q,
		"duration_hours": %g, "eccentricity": 0, "periastron": 90, "periastron_units": "Degrees",
		"priority": "high", "min_telescope_inches": %g, "exoclock_observations": %d,
		"exoclock_observations_recent": %d}`,
		p.Name, p.Name, strings.TrimSuffix(p.Name, "b"), p.EpochJD, format, p.PeriodD, unit,
		p.DurationH, p.Aperture, p.Total, p.Recent)
}

func exoClockPayload(planets ...planet) json.RawMessage {
	rows := make([]string, len(planets))
	for i, p := range planets {
		rows[i] = p.json()
	}
	return json.RawMessage("{" + strings.Join(rows, ",") + "}")
}

// site is a 10 inch telescope at 51.5N behind a flat 20 degree horizon.
func site() *model.Observatory {
	return &model.Observatory{
		Name:            "test",
		Latitude:        51.5,
		Longitude:       -0.1,
		Location:        time.UTC,
		Horizon:         horizon.Flat(20),
		Telescope:       model.Telescope{ApertureMM: 254, FocalLengthMM: 1000, SensorXMM: 17.6, SensorYMM: 13.3},
		SamplesPerEvent: 5,
	}
}

// fakeSource counts live fetches and serves a fixed payload or error.
type fakeSource struct {
	mu      sync.Mutex
	payload json.RawMessage
	err     error
	calls   int
}

func (f *fakeSource) Fetch(_ context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.payload, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type namedSource struct {
	name string
	src  *fakeSource
}

func newManager(t *testing.T, sources ...namedSource) *cache.Manager {
	t.Helper()
	cfg := make([]cache.Source, len(sources))
	for i, s := range sources {
		cfg[i] = cache.Source{Name: s.name, TTLDays: 7, Enabled: true, Fetcher: s.src}
	}
	m, err := cache.NewManager(cache.NewMemoryStore(), cfg, cache.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func exoclock(planets ...planet) namedSource {
	return namedSource{name: catalog.ExoClock, src: &fakeSource{payload: exoClockPayload(planets...)}}
}

func window(hours int) model.Window {
	return model.Window{Start: windowStart, End: windowStart.Add(time.Duration(hours) * time.Hour)}
}
