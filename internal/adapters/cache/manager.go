package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/okian/tofo/pkg/logger"
	"github.com/okian/tofo/pkg/metrics"
)

const (
	defaultConcurrency  = 4
	defaultFetchTimeout = 10 * time.Minute
)

// Fetcher retrieves a fresh payload for one source.
type Fetcher interface {
	Fetch(ctx context.Context) (json.RawMessage, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (json.RawMessage, error)

func (f FetcherFunc) Fetch(ctx context.Context) (json.RawMessage, error) { return f(ctx) }

// Source is one configured catalog slot.
type Source struct {
	Name    string
	TTLDays float64
	Enabled bool
	Fetcher Fetcher
}

// Outcome says how a Fetch was satisfied.
type Outcome string

const (
	OutcomeHit       Outcome = "hit"
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeStale     Outcome = "stale"
)

// Result is the payload returned for a source.
type Result struct {
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"-"`
	FetchedAt time.Time       `json:"fetched_at"`
	Outcome   Outcome         `json:"outcome"`
}

// Degraded reports whether the payload came from an expired slot.
func (r Result) Degraded() bool { return r.Outcome == OutcomeStale }

// Report is the per-source result of RefreshAll.
type Report struct {
	Source  string  `json:"source"`
	Outcome Outcome `json:"outcome,omitempty"`
	Error   string  `json:"error,omitempty"`
	Err     error   `json:"-"`
}

// Status describes one configured slot.
type Status struct {
	Source    string    `json:"source"`
	Enabled   bool      `json:"enabled"`
	TTLDays   float64   `json:"ttl_days"`
	Cached    bool      `json:"cached"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
	AgeDays   float64   `json:"age_days"`
	Fresh     bool      `json:"fresh"`
}

// Manager serves catalog payloads from the store while fresh and refreshes
// them from the network otherwise.
type Manager struct {
	store   Store
	sources map[string]Source
	order   []string
	slots   map[string]*sync.Mutex
	group   singleflight.Group

	logger       logger.Logger
	now          func() time.Time
	concurrency  int
	fetchTimeout time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithConcurrency bounds how many sources RefreshAll fetches at once.
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithFetchTimeout bounds one shared refresh. A refresh outlives the
// caller that started it, so other callers waiting on it are not cut short.
func WithFetchTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.fetchTimeout = d
		}
	}
}

// NewManager builds a manager over store for the given sources. Source order
// is kept for RefreshAll and Status.
func NewManager(store Store, sources []Source, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		store:        store,
		sources:      make(map[string]Source, len(sources)),
		slots:        make(map[string]*sync.Mutex, len(sources)),
		logger:       logger.Get().Named("cache"),
		now:          time.Now,
		concurrency:  defaultConcurrency,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, s := range sources {
		if err := validateSource(s.Name); err != nil {
			return nil, err
		}
		if _, dup := m.sources[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate source %q", ErrInvalidSource, s.Name)
		}
		if s.Enabled && s.Fetcher == nil {
			return nil, fmt.Errorf("%w: source %q has no fetcher", ErrInvalidSource, s.Name)
		}
		m.sources[s.Name] = s
		m.slots[s.Name] = &sync.Mutex{}
		m.order = append(m.order, s.Name)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Enabled returns the names of enabled sources in configuration order.
func (m *Manager) Enabled() []string {
	out := make([]string, 0, len(m.order))
	for _, name := range m.order {
		if m.sources[name].Enabled {
			out = append(out, name)
		}
	}
	return out
}

// Fetch returns the payload for source, refreshing it when the slot is
// missing or expired. A failed refresh falls back to the expired slot.
func (m *Manager) Fetch(ctx context.Context, source string) (Result, error) {
	return m.do(ctx, source, false)
}

// Refresh fetches source from the network regardless of TTL.
func (m *Manager) Refresh(ctx context.Context, source string) (Result, error) {
	return m.do(ctx, source, true)
}

func (m *Manager) do(ctx context.Context, name string, force bool) (Result, error) {
	src, ok := m.sources[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	if !src.Enabled {
		return Result{}, fmt.Errorf("%w: %s", ErrSourceDisabled, name)
	}
	key := name
	if force {
		key = "force:" + name
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	ch := m.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.fetchTimeout)
		defer cancel()
		return m.fetch(shared, src, force)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (m *Manager) fetch(ctx context.Context, src Source, force bool) (Result, error) {
	mu := m.slots[src.Name]
	mu.Lock()
	defer mu.Unlock()

	log := m.logger
	entry, err := m.store.Get(ctx, src.Name)
	cached := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Warn(ctx, "cache slot unreadable, treating as missing",
			logger.String("catalog", src.Name), logger.Error(err))
	}

	now := m.now()
	if cached && !force && Fresh(entry.FetchedAt, now, src.TTLDays) {
		metrics.RecordCacheLookup(src.Name, metrics.OutcomeHit)
		log.Debug(ctx, "cache hit",
			logger.String("catalog", src.Name), logger.Float64("age_days", entry.AgeDays(now)))
		return Result{Source: src.Name, Payload: entry.Payload, FetchedAt: entry.FetchedAt, Outcome: OutcomeHit}, nil
	}

	started := time.Now()
	payload, ferr := src.Fetcher.Fetch(ctx)
	if ferr == nil && !json.Valid(payload) {
		ferr = ErrInvalidPayload
	}
	if ferr == nil {
		metrics.RecordCacheRefreshDuration(src.Name, float64(time.Since(started).Milliseconds()))
		fresh := Entry{Source: src.Name, FetchedAt: now, TTLDays: src.TTLDays, Payload: payload}
		if err := m.store.Put(ctx, fresh); err != nil {
			metrics.RecordErrorByComponent("cache", "persist")
			log.Error(ctx, "failed to persist refreshed slot",
				logger.String("catalog", src.Name), logger.Error(err))
		}
		metrics.RecordCacheLookup(src.Name, metrics.OutcomeRefreshed)
		log.Info(ctx, "cache refreshed",
			logger.String("catalog", src.Name), logger.Int("bytes", len(payload)))
		return Result{Source: src.Name, Payload: payload, FetchedAt: now, Outcome: OutcomeRefreshed}, nil
	}

	if cached {
		metrics.RecordCacheLookup(src.Name, metrics.OutcomeStale)
		log.Warn(ctx, "refresh failed, serving stale cache",
			logger.String("catalog", src.Name),
			logger.Float64("age_days", entry.AgeDays(now)),
			logger.Float64("ttl_days", src.TTLDays),
			logger.Error(ferr))
		return Result{Source: src.Name, Payload: entry.Payload, FetchedAt: entry.FetchedAt, Outcome: OutcomeStale}, nil
	}
	metrics.RecordCacheLookup(src.Name, metrics.OutcomeUnavailable)
	log.Warn(ctx, "source unavailable", logger.String("catalog", src.Name), logger.Error(ferr))
	return Result{}, &UnavailableError{Source: src.Name, Err: ferr}
}

// RefreshAll fetches every enabled source concurrently, honoring TTLs.
// A failing source never aborts the others.
func (m *Manager) RefreshAll(ctx context.Context) []Report {
	names := m.Enabled()
	reports := make([]Report, len(names))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, name := range names {
		g.Go(func() error {
			res, err := m.Fetch(gCtx, name)
			reports[i] = Report{Source: name, Outcome: res.Outcome, Err: err}
			if err != nil {
				reports[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// Status lists every configured source with its slot state.
func (m *Manager) Status(ctx context.Context) ([]Status, error) {
	now := m.now()
	out := make([]Status, 0, len(m.order))
	for _, name := range m.order {
		src := m.sources[name]
		st := Status{Source: name, Enabled: src.Enabled, TTLDays: src.TTLDays}
		e, err := m.store.Get(ctx, name)
		switch {
		case err == nil:
			st.Cached = true
			st.FetchedAt = e.FetchedAt
			st.AgeDays = e.AgeDays(now)
			st.Fresh = Fresh(e.FetchedAt, now, src.TTLDays)
		case errors.Is(err, ErrNotFound):
		default:
			return nil, fmt.Errorf("status %s: %w", name, err)
		}
		out = append(out, st)
	}
	return out, nil
}
