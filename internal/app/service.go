// Package service runs planning sessions: it turns cached catalogs into a
// scored, published plan of observable events for one observatory.
package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/tofo/internal/adapters/cache"
	"github.com/okian/tofo/internal/adapters/catalog"
	"github.com/okian/tofo/internal/adapters/mq/queue"
	"github.com/okian/tofo/internal/adapters/mq/worker"
	"github.com/okian/tofo/internal/adapters/repository"
	"github.com/okian/tofo/internal/domain/dedupe"
	"github.com/okian/tofo/internal/domain/ephemeris"
	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/internal/domain/normalize"
	"github.com/okian/tofo/internal/domain/schedule"
	"github.com/okian/tofo/internal/domain/scoring"
	"github.com/okian/tofo/internal/domain/types"
	"github.com/okian/tofo/internal/domain/visibility"
	"github.com/okian/tofo/pkg/logger"
	"github.com/okian/tofo/pkg/metrics"
)

const (
	defaultQueueSize   = 1024
	outcomeUnavailable = "unavailable"
	outcomeUndecodable = "undecodable"
)

// Catalogs is the cache view a session reads payloads from.
type Catalogs interface {
	// Enabled lists enabled sources in configuration order.
	Enabled() []string
	Fetch(ctx context.Context, source string) (cache.Result, error)
}

// Session holds everything one observatory needs to plan. It is safe for
// concurrent use; each Plan call gets its own queue and worker pool.
type Session struct {
	obs        *model.Observatory
	catalogs   Catalogs
	normalizer *normalize.Normalizer
	predictor  *ephemeris.Predictor
	evaluator  *visibility.Evaluator
	scorer     scoring.Scorer
	repo       repository.Store

	workerCount     int
	queueSize       int
	secondaries     bool
	companionSource string
	now             func() time.Time

	plans        atomic.Int64
	lastID       atomic.Value // string
	lastDuration atomic.Int64 // nanoseconds

	logger logger.Logger
}

// New builds a session for obs reading catalogs through c.
func New(obs *model.Observatory, c Catalogs, opts ...Option) (*Session, error) {
	if obs == nil {
		return nil, errors.New("observatory is required")
	}
	if c == nil {
		return nil, errors.New("catalogs are required")
	}
	s := &Session{
		obs:             obs,
		catalogs:        c,
		normalizer:      normalize.New(obs.Location),
		predictor:       ephemeris.New(ephemeris.WithMargins(obs.MarginBefore, obs.MarginAfter)),
		evaluator:       visibility.New(obs),
		scorer:          scoring.New(),
		queueSize:       defaultQueueSize,
		companionSource: catalog.VSX,
		now:             time.Now,
		logger:          logger.Get().Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastID.Store("")
	return s, nil
}

// Observatory returns the session's site.
func (s *Session) Observatory() *model.Observatory { return s.obs }

// candidates is the outcome of reading every target catalog once.
type candidates struct {
	targets    []model.Target
	sources    []types.SourceReport
	rejections []types.Rejection
	warnings   []string
}

// Candidates returns the deduplicated, aperture-filtered targets of every
// enabled target catalog. Unavailable catalogs are skipped.
func (s *Session) Candidates(ctx context.Context) ([]model.Target, error) {
	set, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	return set.targets, nil
}

func (s *Session) collect(ctx context.Context) (*candidates, error) {
	var names []string
	for _, name := range s.catalogs.Enabled() {
		if catalog.IsTargetCatalog(name) {
			names = append(names, name)
		}
	}

	results := make([]cache.Result, len(names))
	errs := make([]error, len(names))
	g, gCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			results[i], errs[i] = s.catalogs.Fetch(gCtx, name)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect candidates: %w", err)
	}

	set := &candidates{}
	seen := dedupe.NewInMemoryDeduper()
	aperture := s.obs.Telescope.ApertureInches()

	// Precedence follows configuration order: the first catalog to name a
	// planet owns it for the session.
	for i, name := range names {
		rep := types.SourceReport{Source: name}
		if errs[i] != nil {
			rep.Outcome = outcomeUnavailable
			rep.Error = errs[i].Error()
			set.sources = append(set.sources, rep)
			set.warnings = append(set.warnings, fmt.Sprintf("catalog %s unavailable: %v", name, errs[i]))
			s.logger.Warn(ctx, "catalog unavailable, dropping its targets",
				logger.String("catalog", name), logger.Error(errs[i]))
			continue
		}
		res := results[i]
		rep.Outcome = string(res.Outcome)
		rep.FetchedAt = res.FetchedAt
		if res.Degraded() {
			set.warnings = append(set.warnings, fmt.Sprintf("catalog %s is stale, fetched %s",
				name, res.FetchedAt.UTC().Format(time.RFC3339)))
		}

		decode, err := catalog.TargetDecoder(name)
		if err != nil {
			return nil, err
		}
		records, err := decode(res.Payload)
		if err != nil {
			rep.Outcome = outcomeUndecodable
			rep.Error = err.Error()
			set.sources = append(set.sources, rep)
			set.warnings = append(set.warnings, fmt.Sprintf("catalog %s undecodable: %v", name, err))
			s.logger.Warn(ctx, "catalog payload undecodable",
				logger.String("catalog", name), logger.Error(err))
			continue
		}

		for _, r := range records {
			t, err := s.normalizer.Target(r)
			if err == nil {
				err = s.predictor.Validate(&t)
			}
			if err != nil {
				set.reject(ctx, s.logger, r.Name, name, rejectionKind(err), err.Error())
				continue
			}
			if owner, claimed := seen.Claim(ctx, t.Name, name); !claimed {
				s.logger.Debug(ctx, "duplicate target skipped",
					logger.String("target", t.Name),
					logger.String("catalog", name),
					logger.String("owner", owner))
				continue
			}
			if t.MinApertureInches > aperture {
				set.reject(ctx, s.logger, t.Name, name, RejectAperture,
					fmt.Sprintf("needs %.1f in aperture, have %.1f in", t.MinApertureInches, aperture))
				continue
			}
			set.targets = append(set.targets, t)
			rep.Targets++
		}
		set.sources = append(set.sources, rep)
	}
	return set, nil
}

func (c *candidates) reject(ctx context.Context, l logger.Logger, target, source, kind, reason string) {
	c.rejections = append(c.rejections, types.Rejection{Target: target, Source: source, Kind: kind, Reason: reason})
	metrics.RecordTargetRejected(kind)
	l.Warn(ctx, "target rejected",
		logger.String("target", target),
		logger.String("catalog", source),
		logger.String("kind", kind),
		logger.String("reason", reason))
}

func rejectionKind(err error) string {
	switch {
	case errors.Is(err, normalize.ErrUnsupportedFormat):
		return RejectUnsupportedFormat
	case errors.Is(err, normalize.ErrUnsupportedUnit):
		return RejectUnsupportedUnit
	case errors.Is(err, ephemeris.ErrInvalidEphemeris):
		return RejectInvalidEphemeris
	default:
		return RejectInvalidValue
	}
}

// Plan runs one planning session over w and publishes the result. Source
// failures degrade the plan with warnings; cancellation aborts it without
// publishing anything.
func (s *Session) Plan(ctx context.Context, w model.Window) (*types.Plan, error) {
	if w.Empty() {
		return nil, fmt.Errorf("%w: end %s is not after start %s", ErrInvalidWindow,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	w = model.Window{Start: w.Start.UTC(), End: w.End.UTC()}
	started := time.Now()
	id := uuid.NewString()

	set, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.evaluate(ctx, id, w, set.targets)
	if err != nil {
		return nil, err
	}

	var (
		predicted  int
		observable []model.EclipseEvent
		inputs     []scoring.Input
		scored     []*model.Target
	)
	for i := range set.targets {
		t := &set.targets[i]
		r := results[i]
		if r.err != nil {
			set.reject(ctx, s.logger, t.Name, t.Source, rejectionKind(r.err), r.err.Error())
			continue
		}
		predicted += r.Predicted
		if len(r.Observable) == 0 {
			set.rejections = append(set.rejections, types.Rejection{
				Target: t.Name, Source: t.Source, Kind: RejectNotObservable, Reason: describeRejected(r.Rejected),
			})
			continue
		}
		observable = append(observable, r.Observable...)
		scored = append(scored, t)
	}
	metrics.RecordEventsPredicted(predicted)
	metrics.RecordEventsObservable(len(observable))

	companions := s.companions(ctx, set)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("plan cancelled: %w", err)
	}
	for _, t := range scored {
		inputs = append(inputs, scoring.Input{Target: t.Name, Priority: t.Priority, Raw: rawMetrics(t, companions)})
	}

	scoreStart := time.Now()
	records, err := s.scorer.Score(ctx, inputs)
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}

	entries := make([]types.Entry, len(records))
	byName := make(map[string]types.Entry, len(records))
	for i, rec := range records {
		raw := make(map[string]float64, scoring.NumMetrics)
		ranks := make(map[string]int, scoring.NumMetrics)
		norm := make(map[string]float64, scoring.NumMetrics)
		for k, metric := range scoring.Metrics {
			raw[string(metric)] = rec.Raw[k]
			ranks[string(metric)] = rec.Ranks[k]
			norm[string(metric)] = rec.Normalized[k]
		}
		entries[i] = types.Entry{
			Rank:       rec.Rank,
			Target:     rec.Target,
			Priority:   rec.Priority,
			Score:      rec.Score,
			Metrics:    raw,
			Ranks:      ranks,
			Normalized: norm,
		}
		byName[rec.Target] = entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rank != entries[j].Rank {
			return entries[i].Rank < entries[j].Rank
		}
		return entries[i].Target < entries[j].Target
	})

	SortEvents(observable)
	rows := make([]types.EventRow, len(observable))
	for i, ev := range observable {
		rows[i] = s.row(ev, byName[ev.Target.Name])
	}

	plan := &types.Plan{
		ID:          id,
		Start:       w.Start,
		End:         w.End,
		GeneratedAt: s.now().UTC(),
		Sources:     set.sources,
		Candidates:  len(set.targets),
		Events:      rows,
		Scores:      entries,
		Rejections:  set.rejections,
		Warnings:    set.warnings,
		Observable:  observable,
	}

	if s.repo != nil {
		if err := s.repo.Publish(ctx, plan); err != nil {
			return nil, fmt.Errorf("publish plan: %w", err)
		}
	}

	elapsed := time.Since(started)
	s.plans.Add(1)
	s.lastID.Store(id)
	s.lastDuration.Store(int64(elapsed))
	metrics.RecordPlanDuration(float64(elapsed.Milliseconds()))
	s.logger.Info(ctx, "plan published",
		logger.String("plan_id", id),
		logger.Int("candidates", len(set.targets)),
		logger.Int("events", len(rows)),
		logger.Int("scored", len(entries)),
		logger.Int("rejected", len(set.rejections)),
		logger.Duration("elapsed", elapsed),
	)
	return plan, nil
}

type unitOutcome struct {
	model.UnitResult
	err  error
	done bool
}

// collector is the worker sink for one plan. Results land at their unit's
// sequence number so the output order does not depend on scheduling.
type collector struct {
	mu      sync.Mutex
	results []unitOutcome
}

func (c *collector) Collect(_ context.Context, u worker.Unit, r model.UnitResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[u.Seq] = unitOutcome{UnitResult: r, err: err, done: true}
}

// evaluate fans the targets out over a worker pool. Cancellation is checked
// between units; a cancelled run returns no partial results.
func (s *Session) evaluate(ctx context.Context, planID string, w model.Window, targets []model.Target) ([]unitOutcome, error) {
	sink := &collector{results: make([]unitOutcome, len(targets))}
	if len(targets) == 0 {
		return sink.results, nil
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(min(s.queueSize, len(targets))))
	pool := worker.NewPool(s.workerCount, q, worker.ProcessorFunc(s.process), sink, worker.WithLogger(s.logger))
	pool.Start(ctx)

	var enqueueErr error
	for i := range targets {
		u := model.Unit{PlanID: planID, Seq: i, Target: &targets[i], Window: w}
		if enqueueErr = q.EnqueueWait(ctx, u); enqueueErr != nil {
			break
		}
	}
	_ = q.Close()
	waitErr := pool.Wait(ctx)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("plan cancelled: %w", err)
	}
	if enqueueErr != nil {
		return nil, fmt.Errorf("enqueue units: %w", enqueueErr)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("wait for workers: %w", waitErr)
	}
	for i, r := range sink.results {
		if !r.done {
			return nil, fmt.Errorf("unit %d (%s) was not processed", i, targets[i].Name)
		}
	}
	return sink.results, nil
}

// process predicts and evaluates every event of one target.
func (s *Session) process(_ context.Context, u worker.Unit) (model.UnitResult, error) {
	res := model.UnitResult{Rejected: make(map[string]int)}

	primaries, err := s.predictor.NextEvents(u.Target, u.Window.Start, u.Window.End)
	if err != nil {
		return res, err
	}
	seqs := []iter.Seq[model.EclipseEvent]{primaries}
	if s.secondaries {
		secondaries, err := s.predictor.NextSecondaryEvents(u.Target, u.Window.Start, u.Window.End)
		if err != nil {
			return res, err
		}
		seqs = append(seqs, secondaries)
	}

	for _, seq := range seqs {
		for ev := range seq {
			res.Predicted++
			v := s.evaluator.Evaluate(ev, u.Window)
			if v.Observable {
				res.Observable = append(res.Observable, ev)
				continue
			}
			res.Rejected[string(v.Reason)]++
		}
	}
	SortEvents(res.Observable)
	return res, nil
}

// companions loads field-of-view companions for the scored targets. A
// missing or failing companion catalog leaves every companion metric at 0.
func (s *Session) companions(ctx context.Context, set *candidates) map[string][]model.Companion {
	if s.companionSource == "" || !slices.Contains(s.catalogs.Enabled(), s.companionSource) {
		return nil
	}
	rep := types.SourceReport{Source: s.companionSource}
	res, err := s.catalogs.Fetch(ctx, s.companionSource)
	if err != nil {
		rep.Outcome = outcomeUnavailable
		rep.Error = err.Error()
		set.sources = append(set.sources, rep)
		set.warnings = append(set.warnings, fmt.Sprintf("companion catalog %s unavailable: %v", s.companionSource, err))
		s.logger.Warn(ctx, "companion catalog unavailable",
			logger.String("catalog", s.companionSource), logger.Error(err))
		return nil
	}
	rep.Outcome = string(res.Outcome)
	rep.FetchedAt = res.FetchedAt
	if res.Degraded() {
		set.warnings = append(set.warnings, fmt.Sprintf("catalog %s is stale, fetched %s",
			s.companionSource, res.FetchedAt.UTC().Format(time.RFC3339)))
	}

	byTarget, err := catalog.DecodeCompanions(res.Payload)
	if err != nil {
		rep.Outcome = outcomeUndecodable
		rep.Error = err.Error()
		set.sources = append(set.sources, rep)
		set.warnings = append(set.warnings, fmt.Sprintf("companion catalog %s undecodable: %v", s.companionSource, err))
		return nil
	}
	out := make(map[string][]model.Companion, len(byTarget))
	for name, comps := range byTarget {
		out[dedupe.CanonicalName(name)] = comps
	}
	rep.Targets = len(out)
	set.sources = append(set.sources, rep)
	return out
}

// rawMetrics builds the scoring vector for t. Companion periods and
// durations that the catalog leaves blank do not count towards the minima.
func rawMetrics(t *model.Target, companions map[string][]model.Companion) scoring.Vector {
	comps := companions[dedupe.CanonicalName(t.Name)]
	minPeriod, minDuration := math.Inf(1), math.Inf(1)
	for _, c := range comps {
		if c.Period > 0 {
			minPeriod = math.Min(minPeriod, c.Period)
		}
		if c.Duration > 0 {
			minDuration = math.Min(minDuration, c.Duration)
		}
	}
	if math.IsInf(minPeriod, 1) {
		minPeriod = 0
	}
	if math.IsInf(minDuration, 1) {
		minDuration = 0
	}
	return scoring.Vector{
		float64(t.TotalObservations),
		float64(t.RecentObservations),
		float64(len(comps)),
		minPeriod,
		minDuration,
	}
}

func describeRejected(counts map[string]int) string {
	if len(counts) == 0 {
		return "no events in window"
	}
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", r, counts[r])
	}
	return strings.Join(parts, ",")
}

// SortEvents orders events by ingress, then target name, then kind.
func SortEvents(events []model.EclipseEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Ingress.Equal(b.Ingress) {
			return a.Ingress.Before(b.Ingress)
		}
		if a.Target.Name != b.Target.Name {
			return a.Target.Name < b.Target.Name
		}
		return a.Kind < b.Kind
	})
}

func (s *Session) row(ev model.EclipseEvent, e types.Entry) types.EventRow {
	loc := s.obs.Location
	if loc == nil {
		loc = time.UTC
	}
	return types.EventRow{
		Target:        ev.Target.Name,
		Kind:          ev.Kind.String(),
		Ingress:       ev.Ingress.UTC(),
		Mid:           ev.Mid.UTC(),
		Egress:        ev.Egress.UTC(),
		LocalMid:      ev.Mid.In(loc),
		DurationHours: ev.Target.Ephemeris.Duration.Hours(),
		Score:         e.Score,
		Rank:          e.Rank,
		Frame:         ev.Target.Ephemeris.Epoch.Frame.String(),
		Source:        ev.Target.Source,
	}
}

// Sequence picks the best non-overlapping run of p's observable events with
// at least gap between consecutive events.
func (s *Session) Sequence(p *types.Plan, gap time.Duration) []types.EventRow {
	scores := make(map[string]types.Entry, len(p.Scores))
	for _, e := range p.Scores {
		scores[e.Target] = e
	}
	items := make([]schedule.Item, len(p.Observable))
	for i, ev := range p.Observable {
		items[i] = schedule.Item{Event: ev, Score: scores[ev.Target.Name].Score}
	}
	best := schedule.Best(items, max(gap, 0))
	rows := make([]types.EventRow, len(best))
	for i, it := range best {
		rows[i] = s.row(it.Event, scores[it.Event.Target.Name])
	}
	return rows
}

// Latest returns the most recently published plan.
func (s *Session) Latest(ctx context.Context) (*types.Plan, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.Latest(ctx)
}

// PlanByID returns a retained plan.
func (s *Session) PlanByID(ctx context.Context, id string) (*types.Plan, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.Get(ctx, id)
}

// TopN returns the top N scored targets of the latest plan.
func (s *Session) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.TopN(ctx, n)
}

// Rank returns the latest score entry for a target.
func (s *Session) Rank(ctx context.Context, target string) (types.Entry, error) {
	if s.repo == nil {
		return types.Entry{}, ErrNoRepository
	}
	return s.repo.Rank(ctx, target)
}

// GetStats returns session statistics for monitoring.
func (s *Session) GetStats() map[string]any {
	stats := map[string]any{
		"observatory":      s.obs.Name,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"secondaries":      s.secondaries,
		"plans":            s.plans.Load(),
		"lastPlanID":       s.lastID.Load(),
		"lastPlanDuration": time.Duration(s.lastDuration.Load()).String(),
		"catalogs":         s.catalogs.Enabled(),
	}
	if s.repo != nil {
		stats["scoredTargets"] = s.repo.Count(context.Background())
	}
	return stats
}
