package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/okian/tofo/internal/domain/normalize"
)

// Catalog names, also used as cache slot names.
const (
	ExoClock = "exoclock"
	NASA     = "nasa_exo_archive"
	VSX      = "aavso_vsx"
)

// ExoClockURL is the ExoClock planet database.
const ExoClockURL = "https://www.exoclock.space/database/planets_json"

type exoClockPlanet struct {
	Name             field `json:"name"`
	Star             field `json:"star"`
	RA               field `json:"ra_j2000"`
	Dec              field `json:"dec_j2000"`
	MidTime          field `json:"ephem_mid_time"`
	MidTimeFormat    field `json:"ephem_mid_time_format"`
	Period           field `json:"ephem_period"`
	PeriodUnits      field `json:"ephem_period_units"`
	DurationHours    field `json:"duration_hours"`
	Eccentricity     field `json:"eccentricity"`
	Periastron       field `json:"periastron"`
	PeriastronUnits  field `json:"periastron_units"`
	Priority         field `json:"priority"`
	MinTelescopeInch field `json:"min_telescope_inches"`
	Observations     field `json:"exoclock_observations"`
	RecentObs        field `json:"exoclock_observations_recent"`
}

// ExoClockFetcher downloads the ExoClock planet list.
type ExoClockFetcher struct {
	client *BaseClient
	url    string
}

// NewExoClockFetcher returns a fetcher for url, or ExoClockURL when empty.
func NewExoClockFetcher(client *BaseClient, url string) *ExoClockFetcher {
	if url == "" {
		url = ExoClockURL
	}
	return &ExoClockFetcher{client: client, url: url}
}

// Fetch returns the raw planet object keyed by planet name.
func (f *ExoClockFetcher) Fetch(ctx context.Context) (json.RawMessage, error) {
	body, err := f.client.Get(ctx, f.url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("exoclock: %w", err)
	}
	var sample map[string]json.RawMessage
	if err := json.Unmarshal(body, &sample); err != nil {
		return nil, fmt.Errorf("exoclock: %w: %w", ErrDecode, err)
	}
	return body, nil
}

// DecodeExoClock turns an ExoClock payload into records ordered by planet key.
func DecodeExoClock(payload json.RawMessage) ([]normalize.Record, error) {
	var planets map[string]exoClockPlanet
	if err := json.Unmarshal(payload, &planets); err != nil {
		return nil, fmt.Errorf("exoclock: %w: %w", ErrDecode, err)
	}
	keys := make([]string, 0, len(planets))
	for k := range planets {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]normalize.Record, 0, len(keys))
	for _, k := range keys {
		p := planets[k]
		name := p.Name.String()
		if name == "" {
			name = k
		}
		out = append(out, normalize.Record{
			Source:             ExoClock,
			Name:               name,
			Star:               p.Star.String(),
			RA:                 p.RA.String(),
			Dec:                p.Dec.String(),
			Epoch:              p.MidTime.String(),
			EpochTag:           p.MidTimeFormat.String(),
			Period:             p.Period.String(),
			PeriodUnit:         p.PeriodUnits.String(),
			Duration:           p.DurationHours.String(),
			DurationUnit:       "Hours",
			Eccentricity:       p.Eccentricity.String(),
			Periapsis:          p.Periastron.String(),
			PeriapsisUnit:      p.PeriastronUnits.String(),
			Priority:           p.Priority.String(),
			MinApertureInches:  p.MinTelescopeInch.String(),
			TotalObservations:  p.Observations.String(),
			RecentObservations: p.RecentObs.String(),
		})
	}
	return out, nil
}
