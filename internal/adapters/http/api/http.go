// Package api exposes planning, score and cache operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tofo/internal/adapters/cache"
	"github.com/okian/tofo/internal/adapters/export"
	"github.com/okian/tofo/internal/adapters/repository"
	service "github.com/okian/tofo/internal/app"
	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/internal/domain/types"
	"github.com/okian/tofo/pkg/logger"
)

const (
	defaultMaxLimit  = 500
	defaultPlanHours = 24
	maxPlanHours     = 24 * 31
	latestPlanID     = "latest"
)

// Planner runs and serves planning sessions.
type Planner interface {
	Plan(ctx context.Context, w model.Window) (*types.Plan, error)
	Latest(ctx context.Context) (*types.Plan, error)
	PlanByID(ctx context.Context, id string) (*types.Plan, error)
	Sequence(p *types.Plan, gap time.Duration) []types.EventRow
	TopN(ctx context.Context, n int) ([]types.Entry, error)
	Rank(ctx context.Context, target string) (types.Entry, error)
}

// CacheAdmin exposes the catalog cache.
type CacheAdmin interface {
	Status(ctx context.Context) ([]cache.Status, error)
	Refresh(ctx context.Context, source string) (cache.Result, error)
}

// Server wires HTTP routes for the planner API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	planHandler   *PlanHandler
	scoresHandler *ScoresHandler
	rankHandler   *RankHandler
	cacheHandler  *CacheHandler
}

// Option configures the Server.
type Option func(*options)

type options struct {
	maxLimit      int
	planHours     float64
	exportFormat  export.Format
	now           func() time.Time
	logger        logger.Logger
	cacheDisabled bool
}

// WithMaxLimit caps the /scores limit.
func WithMaxLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithPlanHours sets the window length used when POST /plan names none.
func WithPlanHours(h float64) Option {
	return func(o *options) {
		if h > 0 {
			o.planHours = h
		}
	}
}

// WithExportFormat sets the export format used when the request names none.
func WithExportFormat(f export.Format) Option {
	return func(o *options) {
		if f != "" {
			o.exportFormat = f
		}
	}
}

// WithClock overrides the clock used for default plan windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers. A nil cacheAdmin
// leaves the /cache routes unregistered.
func NewServer(planner Planner, cacheAdmin CacheAdmin, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{
		maxLimit:     defaultMaxLimit,
		planHours:    defaultPlanHours,
		exportFormat: export.CSV,
		now:          time.Now,
		logger:       logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		planHandler:   NewPlanHandler(planner, o),
		scoresHandler: NewScoresHandler(planner, o.maxLimit),
		rankHandler:   NewRankHandler(planner),
	}
	if cacheAdmin != nil {
		s.cacheHandler = NewCacheHandler(cacheAdmin, o.logger)
	}
	return s
}

// Router returns the chi router with every route wrapped in MetricsMiddleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/plan", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.planHandler.HandleCreatePlan, "plan_create"))
		r.Get("/{id}", MetricsMiddleware(s.planHandler.HandleGetPlan, "plan_get"))
		r.Get("/{id}/export", MetricsMiddleware(s.planHandler.HandleExport, "plan_export"))
		r.Get("/{id}/sequence", MetricsMiddleware(s.planHandler.HandleSequence, "plan_sequence"))
	})

	r.Get("/scores", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
	r.Get("/rank/{target}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))

	if s.cacheHandler != nil {
		r.Get("/cache", MetricsMiddleware(s.cacheHandler.HandleStatus, "cache_status"))
		r.Post("/cache/{source}/refresh", MetricsMiddleware(s.cacheHandler.HandleRefresh, "cache_refresh"))
	}
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps package sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNoPlan), errors.Is(err, repository.ErrNotFound),
		errors.Is(err, cache.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidLimit), errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, cache.ErrSourceDisabled):
		writeError(w, http.StatusConflict, "source_disabled", err)
	case errors.Is(err, cache.ErrSourceUnavailable):
		writeError(w, http.StatusBadGateway, "source_unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
