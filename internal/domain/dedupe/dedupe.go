// Package dedupe tracks target identities across catalogs so that a planet
// published by several sources is planned once, by the first source that
// claims it.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

// Deduper records which source owns each target identity.
type Deduper interface {
	// Claim atomically records source as the owner of name unless another
	// source got there first. It returns the owner and whether this call
	// created the claim.
	Claim(ctx context.Context, name, source string) (owner string, claimed bool)

	// SeenAndRecord is Claim without a source.
	SeenAndRecord(ctx context.Context, name string) bool

	// Release drops a claim, e.g. when the owning target failed
	// normalisation and a later source may still provide it.
	Release(ctx context.Context, name string)

	Size() int64
}

type inMemoryDeduper struct {
	mu     sync.Mutex
	owners map[string]string
	key    func(string) string
	size   atomic.Int64
}

// NewInMemoryDeduper creates a deduper. Names are compared by CanonicalName
// unless WithKeyFunc says otherwise.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		owners: make(map[string]string),
		key:    CanonicalName,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, name, source string) (string, bool) {
	k := d.key(name)
	d.mu.Lock()
	defer d.mu.Unlock()

	if owner, ok := d.owners[k]; ok {
		return owner, false
	}
	d.owners[k] = source
	d.size.Add(1)
	return source, true
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, name string) bool {
	_, claimed := d.Claim(ctx, name, "")
	return !claimed
}

func (d *inMemoryDeduper) Release(_ context.Context, name string) {
	k := d.key(name)
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.owners[k]; ok {
		delete(d.owners, k)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Size() int64 { return d.size.Load() }

// CanonicalName folds case and drops spaces, dashes and underscores, so
// "WASP-12 b" and "wasp12b" collide.
func CanonicalName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
