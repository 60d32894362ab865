// Package bootstrap assembles a planning runtime from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/tofo/internal/adapters/cache"
	"github.com/okian/tofo/internal/adapters/catalog"
	"github.com/okian/tofo/internal/adapters/repository"
	service "github.com/okian/tofo/internal/app"
	"github.com/okian/tofo/internal/config"
	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/internal/domain/scoring"
	"github.com/okian/tofo/pkg/logger"
)

// Cache backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Runtime holds the wired components of one process.
type Runtime struct {
	Config      *config.Config
	Observatory *model.Observatory
	Cache       *cache.Manager
	Plans       *repository.SnapshotStore
	Session     *service.Session

	closers []func()
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	httpClient *http.Client
	store      cache.Store
	logger     logger.Logger
}

// WithHTTPClient replaces the catalog HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *buildOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithStore bypasses the configured cache backend.
func WithStore(s cache.Store) Option {
	return func(o *buildOptions) {
		if s != nil {
			o.store = s
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(l logger.Logger) Option {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Build wires cache, catalogs and the planning session from cfg.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	o := buildOptions{logger: logger.Get()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Catalogs.Timeout}
	}

	obs, err := cfg.BuildObservatory()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg, Observatory: obs}
	store := o.store
	if store == nil {
		if store, err = rt.openStore(ctx, cfg.Cache); err != nil {
			return nil, err
		}
	}

	// The VSX slot searches around the session's candidates, so the lister
	// is bound once the session exists.
	var sess *service.Session
	lister := func(ctx context.Context) ([]model.Target, error) {
		return sess.Candidates(ctx)
	}

	sources, err := buildSources(cfg, obs, o.httpClient, lister, o.logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	mgr, err := cache.NewManager(store, sources,
		cache.WithConcurrency(cfg.Cache.Concurrency),
		cache.WithLogger(o.logger.Named("cache")),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	plans := repository.NewSnapshotStore()
	sess, err = service.New(obs, mgr,
		service.WithLogger(o.logger.Named("session")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithSecondaries(cfg.Observations.Secondaries),
		service.WithScorer(scoring.New(scoring.WithWeights(cfg.Scoring.Weights))),
		service.WithRepository(plans),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Cache = mgr
	rt.Plans = plans
	rt.Session = sess
	return rt, nil
}

// Close releases backend connections.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func (r *Runtime) openStore(ctx context.Context, c config.CacheConfig) (cache.Store, error) {
	switch c.Backend {
	case BackendFile, "":
		return cache.NewFileStore(c.Path, cache.WithCompression(c.Compress))
	case BackendPostgres:
		pool, err := cache.Connect(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, pool.Close)
		store := cache.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			r.closers = nil
			return nil, err
		}
		return store, nil
	case BackendMemory:
		return cache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: cache backend %q", config.ErrInvalidConfig, c.Backend)
	}
}

func buildSources(cfg *config.Config, obs *model.Observatory, hc *http.Client, lister catalog.TargetLister, l logger.Logger) ([]cache.Source, error) {
	var clientOpts []catalog.BaseClientOption
	if cfg.Catalogs.UserAgent != "" {
		clientOpts = append(clientOpts, catalog.WithUserAgent(cfg.Catalogs.UserAgent))
	}

	sources := make([]cache.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		client := catalog.NewBaseClient(hc, sc.Name, clientOpts...)
		src := cache.Source{Name: sc.Name, TTLDays: sc.CacheLifeDays, Enabled: sc.Use}
		switch sc.Name {
		case catalog.ExoClock:
			src.Fetcher = catalog.NewExoClockFetcher(client, cfg.Catalogs.ExoClockURL)
		case catalog.NASA:
			src.Fetcher = catalog.NewNASAFetcher(client, cfg.Catalogs.NASAURL)
		case catalog.VSX:
			src.Fetcher = catalog.NewVSXFetcher(client, obs.Telescope.SearchRadius(), obs.LimitingMag, lister,
				catalog.WithVSXURL(cfg.Catalogs.VSXURL),
				catalog.WithVSXConcurrency(cfg.Cache.Concurrency),
				catalog.WithVSXLogger(l.Named("vsx")),
			)
		default:
			return nil, fmt.Errorf("%w: unknown source %q", config.ErrInvalidConfig, sc.Name)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
