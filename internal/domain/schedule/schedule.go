// Package schedule picks a sequence of non-overlapping events for one night
// or session: as many events as possible, and among those the highest total
// score.
package schedule

import (
	"sort"
	"time"

	"github.com/okian/tofo/internal/domain/model"
)

// Item is a candidate event with its target's composite score.
type Item struct {
	Event model.EclipseEvent
	Score float64
}

type value struct {
	count int
	score float64
}

func (v value) less(o value) bool {
	if v.count != o.count {
		return v.count < o.count
	}
	return v.score < o.score
}

// Best returns the optimal sequence ordered by ingress. Consecutive events
// are separated by at least gap (slew and setup time).
func Best(items []Item, gap time.Duration) []Item {
	n := len(items)
	if n == 0 {
		return nil
	}
	sorted := make([]Item, n)
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Event.Egress.Before(sorted[j].Event.Egress)
	})

	// prev[j] is the number of items that can precede item j.
	prev := make([]int, n)
	for j := range sorted {
		limit := sorted[j].Event.Ingress.Add(-gap)
		prev[j] = sort.Search(j, func(i int) bool { return sorted[i].Event.Egress.After(limit) })
	}

	best := make([]value, n+1)
	for j := 1; j <= n; j++ {
		take := best[prev[j-1]]
		take.count++
		take.score += sorted[j-1].Score
		best[j] = best[j-1]
		if best[j].less(take) {
			best[j] = take
		}
	}

	var out []Item
	for j := n; j > 0; {
		take := best[prev[j-1]]
		take.count++
		take.score += sorted[j-1].Score
		if best[j] == take && best[j-1].less(take) {
			out = append(out, sorted[j-1])
			j = prev[j-1]
			continue
		}
		j--
	}
	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out
}
