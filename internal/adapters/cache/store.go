// Package cache persists catalog payloads per source and decides when a
// slot is fresh enough to skip the network.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

const day = 24 * time.Hour

// Entry is one persisted slot.
type Entry struct {
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
	TTLDays   float64         `json:"ttl_days"`
	Payload   json.RawMessage `json:"payload"`
}

// AgeDays returns the slot age in fractional days.
func (e Entry) AgeDays(now time.Time) float64 {
	return float64(now.Sub(e.FetchedAt)) / float64(day)
}

// Fresh reports whether a slot fetched at fetchedAt is still usable under ttlDays.
// A negative TTL never expires; a zero TTL is never fresh.
func Fresh(fetchedAt, now time.Time, ttlDays float64) bool {
	if ttlDays < 0 {
		return true
	}
	return float64(now.Sub(fetchedAt))/float64(day) < ttlDays
}

// Store provides read/write access to persisted slots.
type Store interface {
	// Get returns the slot for source or ErrNotFound.
	Get(ctx context.Context, source string) (Entry, error)
	// Put atomically replaces the slot for e.Source.
	Put(ctx context.Context, e Entry) error
	// List returns every slot ordered by source.
	List(ctx context.Context) ([]Entry, error)
}

func validateSource(source string) error {
	if source == "" || strings.HasPrefix(source, ".") || strings.ContainsAny(source, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	return nil
}

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(ctx context.Context, source string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[source]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, source)
	}
	e.Payload = slices.Clone(e.Payload)
	return e, nil
}

func (s *MemoryStore) Put(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSource(e.Source); err != nil {
		return err
	}
	e.Payload = slices.Clone(e.Payload)
	s.mu.Lock()
	s.entries[e.Source] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Source, b.Source) })
	return out, nil
}
