package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tofo/internal/domain/dedupe"
	"github.com/okian/tofo/internal/domain/types"
	"github.com/okian/tofo/pkg/metrics"
)

const defaultHistory = 16

// Snapshot is an immutable view of one published plan.
type Snapshot struct {
	Plan    *types.Plan
	Ranked  []types.Entry          // ordered by rank, then target
	ByName  map[string]types.Entry // keyed by canonical target name
	Created time.Time
}

// SnapshotStore publishes plans through an atomic pointer so readers never
// take a lock on the hot path.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]

	mu      sync.Mutex
	history int
	order   []string
	byID    map[string]*types.Plan
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		history: defaultHistory,
		byID:    make(map[string]*types.Plan),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SnapshotStore) Publish(_ context.Context, p *types.Plan) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPlan)
	}

	ranked := make([]types.Entry, len(p.Scores))
	copy(ranked, p.Scores)
	sortEntries(ranked)
	byName := make(map[string]types.Entry, len(ranked))
	for _, e := range ranked {
		byName[dedupe.CanonicalName(e.Target)] = e
	}

	s.mu.Lock()
	if _, ok := s.byID[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.byID[p.ID] = p
	for len(s.order) > s.history {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	s.current.Store(&Snapshot{Plan: p, Ranked: ranked, ByName: byName, Created: time.Now()})
	s.mu.Unlock()

	metrics.RecordPlanPublished(p.GeneratedAt.Unix(), len(ranked))
	return nil
}

// Snapshot returns the current snapshot or nil.
func (s *SnapshotStore) Snapshot() *Snapshot { return s.current.Load() }

func (s *SnapshotStore) Latest(_ context.Context) (*types.Plan, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoPlan
	}
	return snap.Plan, nil
}

func (s *SnapshotStore) Get(_ context.Context, id string) (*types.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: plan %s", ErrNotFound, id)
	}
	return p, nil
}

func (s *SnapshotStore) Rank(_ context.Context, target string) (types.Entry, error) {
	snap := s.current.Load()
	if snap == nil {
		return types.Entry{}, ErrNoPlan
	}
	e, ok := snap.ByName[dedupe.CanonicalName(target)]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, fmt.Errorf("%w: target %s", ErrNotFound, target)
	}
	return e, nil
}

func (s *SnapshotStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoPlan
	}
	n = min(n, len(snap.Ranked))
	out := make([]types.Entry, n)
	copy(out, snap.Ranked[:n])
	return out, nil
}

func (s *SnapshotStore) Count(_ context.Context) int {
	snap := s.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.Ranked)
}

// sortEntries orders by rank, then target name for a stable listing of ties.
func sortEntries(entries []types.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rank != entries[j].Rank {
			return entries[i].Rank < entries[j].Rank
		}
		return strings.Compare(entries[i].Target, entries[j].Target) < 0
	})
}
