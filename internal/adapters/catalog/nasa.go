package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/okian/tofo/internal/domain/normalize"
)

// NASATapURL is the Exoplanet Archive synchronous TAP endpoint.
const NASATapURL = "https://exoplanetarchive.ipac.caltech.edu/TAP/sync"

const nasaQuery = "select pl_name,hostname,ra,dec,pl_tranmid,pl_orbper,pl_trandur,pl_orbeccen,pl_orblper " +
	"from ps where tran_flag=1 and default_flag=1 order by pl_name"

type nasaRow struct {
	Name         field `json:"pl_name"`
	Host         field `json:"hostname"`
	RA           field `json:"ra"`
	Dec          field `json:"dec"`
	TransitMid   field `json:"pl_tranmid"`
	Period       field `json:"pl_orbper"`
	Duration     field `json:"pl_trandur"`
	Eccentricity field `json:"pl_orbeccen"`
	Periapsis    field `json:"pl_orblper"`
}

// NASAFetcher queries the transiting planets table of the Exoplanet Archive.
type NASAFetcher struct {
	client *BaseClient
	url    string
}

// NewNASAFetcher returns a fetcher for the TAP endpoint at base, or NASATapURL when empty.
func NewNASAFetcher(client *BaseClient, base string) *NASAFetcher {
	if base == "" {
		base = NASATapURL
	}
	q := url.Values{}
	q.Set("query", nasaQuery)
	q.Set("format", "json")
	return &NASAFetcher{client: client, url: base + "?" + q.Encode()}
}

// Fetch returns the JSON row array.
func (f *NASAFetcher) Fetch(ctx context.Context) (json.RawMessage, error) {
	body, err := f.client.Get(ctx, f.url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("nasa: %w", err)
	}
	var sample []json.RawMessage
	if err := json.Unmarshal(body, &sample); err != nil {
		return nil, fmt.Errorf("nasa: %w: %w", ErrDecode, err)
	}
	return body, nil
}

// DecodeNASA turns a TAP JSON payload into records. Mid-transit times are
// BJD_TDB, periods are days and durations hours.
func DecodeNASA(payload json.RawMessage) ([]normalize.Record, error) {
	var rows []nasaRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("nasa: %w: %w", ErrDecode, err)
	}
	out := make([]normalize.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, normalize.Record{
			Source:        NASA,
			Name:          r.Name.String(),
			Star:          r.Host.String(),
			RA:            r.RA.String(),
			Dec:           r.Dec.String(),
			Epoch:         r.TransitMid.String(),
			EpochTag:      "BJD_TDB",
			Period:        r.Period.String(),
			PeriodUnit:    "days",
			Duration:      r.Duration.String(),
			DurationUnit:  "hours",
			Eccentricity:  r.Eccentricity.String(),
			Periapsis:     r.Periapsis.String(),
			PeriapsisUnit: "degrees",
		})
	}
	return out, nil
}
