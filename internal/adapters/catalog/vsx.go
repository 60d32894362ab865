package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/pkg/logger"
)

// VSXURL is the AAVSO Variable Star Index API.
const VSXURL = "https://www.aavso.org/vsx/index.php"

const defaultVSXConcurrency = 4

type vsxObject struct {
	Name            field `json:"Name"`
	RA2000          field `json:"RA2000"`
	Declination2000 field `json:"Declination2000"`
	Period          field `json:"Period"`
	EclipseDuration field `json:"EclipseDuration"`
}

// TargetLister supplies the candidates to search around.
type TargetLister func(ctx context.Context) ([]model.Target, error)

// VSXFetcher runs one radius search per candidate and returns companions
// keyed by target name.
type VSXFetcher struct {
	client      *BaseClient
	url         string
	radiusDeg   float64
	limitMag    float64
	list        TargetLister
	concurrency int
	logger      logger.Logger
}

// VSXOption configures a VSXFetcher.
type VSXOption func(*VSXFetcher)

// WithVSXURL overrides VSXURL.
func WithVSXURL(u string) VSXOption {
	return func(f *VSXFetcher) {
		if u != "" {
			f.url = u
		}
	}
}

// WithVSXConcurrency bounds parallel radius searches.
func WithVSXConcurrency(n int) VSXOption {
	return func(f *VSXFetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithVSXLogger sets the fetcher logger.
func WithVSXLogger(l logger.Logger) VSXOption {
	return func(f *VSXFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewVSXFetcher searches radiusDeg around each listed target down to limitMag.
func NewVSXFetcher(client *BaseClient, radiusDeg, limitMag float64, list TargetLister, opts ...VSXOption) *VSXFetcher {
	f := &VSXFetcher{
		client:      client,
		url:         VSXURL,
		radiusDeg:   radiusDeg,
		limitMag:    limitMag,
		list:        list,
		concurrency: defaultVSXConcurrency,
		logger:      logger.Get().Named("vsx"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns {target: [companion...]}. Targets whose search fails are
// left out; the fetch fails only when every search fails.
func (f *VSXFetcher) Fetch(ctx context.Context) (json.RawMessage, error) {
	targets, err := f.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("vsx: list candidates: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("vsx: %w", ErrNoCandidates)
	}

	var (
		mu       sync.Mutex
		out      = make(map[string][]model.Companion, len(targets))
		failures int
		lastErr  error
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, t := range targets {
		g.Go(func() error {
			comps, err := f.Search(gCtx, t)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				f.logger.Warn(gCtx, "radius search failed",
					logger.String("target", t.Name), logger.Error(err))
				return nil
			}
			out[t.Name] = comps
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failures == len(targets) {
		return nil, fmt.Errorf("vsx: all %d searches failed: %w", failures, lastErr)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("vsx: encode: %w", err)
	}
	return payload, nil
}

// Search returns the variables within the search radius of t, excluding t.
func (f *VSXFetcher) Search(ctx context.Context, t model.Target) ([]model.Companion, error) {
	q := url.Values{}
	q.Set("view", "api.list")
	q.Set("ra", strconv.FormatFloat(t.RA, 'f', 6, 64))
	q.Set("dec", strconv.FormatFloat(t.Dec, 'f', 6, 64))
	q.Set("radius", strconv.FormatFloat(f.radiusDeg, 'f', 6, 64))
	q.Set("tomag", strconv.FormatFloat(f.limitMag, 'f', 1, 64))
	q.Set("format", "json")

	body, err := f.client.Get(ctx, f.url+"?"+q.Encode(), "application/json")
	if err != nil {
		return nil, err
	}
	objs, err := decodeVSXList(body)
	if err != nil {
		return nil, err
	}
	comps := make([]model.Companion, 0, len(objs))
	for _, o := range objs {
		c := model.Companion{Name: o.Name.String()}
		c.RA, _ = strconv.ParseFloat(o.RA2000.String(), 64)
		c.Dec, _ = strconv.ParseFloat(o.Declination2000.String(), 64)
		c.Period, _ = strconv.ParseFloat(o.Period.String(), 64)
		c.Duration, _ = strconv.ParseFloat(o.EclipseDuration.String(), 64)
		if sameStar(c.Name, t) {
			continue
		}
		comps = append(comps, c)
	}
	return comps, nil
}

func sameStar(name string, t model.Target) bool {
	return name != "" && (name == t.Star || name == t.Name)
}

// decodeVSXList accepts {"VSXObjects":{"VSXObject":[...]}}, a single object
// in place of the array, and the empty forms VSX returns for no matches.
func decodeVSXList(body []byte) ([]vsxObject, error) {
	var envelope struct {
		Objects json.RawMessage `json:"VSXObjects"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("vsx: %w: %w", ErrDecode, err)
	}
	raw := bytes.TrimSpace(envelope.Objects)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var inner struct {
		Object json.RawMessage `json:"VSXObject"`
	}
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, fmt.Errorf("vsx: %w: %w", ErrDecode, err)
	}
	obj := bytes.TrimSpace(inner.Object)
	switch {
	case len(obj) == 0:
		return nil, nil
	case obj[0] == '[':
		var list []vsxObject
		if err := json.Unmarshal(obj, &list); err != nil {
			return nil, fmt.Errorf("vsx: %w: %w", ErrDecode, err)
		}
		return list, nil
	default:
		var one vsxObject
		if err := json.Unmarshal(obj, &one); err != nil {
			return nil, fmt.Errorf("vsx: %w: %w", ErrDecode, err)
		}
		return []vsxObject{one}, nil
	}
}

// DecodeCompanions reads a VSX cache payload.
func DecodeCompanions(payload json.RawMessage) (map[string][]model.Companion, error) {
	out := map[string][]model.Companion{}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("vsx: %w: %w", ErrDecode, err)
	}
	return out, nil
}
