// Package scoring ranks candidate targets against each other. Each raw
// metric is turned into a standard competition rank, normalised onto [0, 1]
// and the normalised values are combined with a weighted geometric mean.
// Scores are only comparable within one scoring pass.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Metric names one raw input of the score.
type Metric string

const (
	TotalObservations  Metric = "total_observations"
	RecentObservations Metric = "recent_observations"
	FOVTargets         Metric = "num_additional_fov_targets"
	MinPeriod          Metric = "min_additional_period"
	MinDuration        Metric = "min_additional_duration"
)

// NumMetrics is the length of a metric vector.
const NumMetrics = 5

// Metrics lists the metrics in vector order.
var Metrics = [NumMetrics]Metric{TotalObservations, RecentObservations, FOVTargets, MinPeriod, MinDuration}

// Direction says which end of a metric is preferable.
type Direction int

const (
	LowerIsBetter Direction = iota
	HigherIsBetter
)

// Direction returns the preferred direction for m. Fewer existing
// observations and shorter companion periods and durations are better;
// more companions in the field are better.
func (m Metric) Direction() Direction {
	if m == FOVTargets {
		return HigherIsBetter
	}
	return LowerIsBetter
}

// Vector holds one value per metric in Metrics order.
type Vector [NumMetrics]float64

// Input is one candidate's raw metrics.
type Input struct {
	Target   string
	Priority string
	Raw      Vector
}

// Record is the scored form of an Input.
type Record struct {
	Target     string          `json:"target"`
	Priority   string          `json:"priority,omitempty"`
	Raw        Vector          `json:"raw"`
	Ranks      [NumMetrics]int `json:"ranks"`
	Normalized Vector          `json:"normalized"`
	Score      float64         `json:"score"`
	Rank       int             `json:"rank"`
}

// Scorer scores a complete candidate set.
type Scorer interface {
	// Score returns one record per input in input order. It honours ctx and
	// never returns a partial set.
	Score(ctx context.Context, in []Input) ([]Record, error)
}

// Engine implements Scorer.
type Engine struct {
	weights Vector
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets metric weights by name. Unknown names and negative
// weights are ignored; a zero weight drops the metric from the mean.
func WithWeights(weights map[string]float64) Option {
	return func(e *Engine) {
		for i, m := range Metrics {
			if w, ok := weights[string(m)]; ok && w >= 0 && !math.IsNaN(w) {
				e.weights[i] = w
			}
		}
	}
}

// DefaultWeights weighs every metric equally.
func DefaultWeights() Vector { return Vector{1, 1, 1, 1, 1} }

// New creates an Engine with equal weights unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	var sum float64
	for _, w := range e.weights {
		sum += w
	}
	if sum == 0 {
		e.weights = DefaultWeights()
	}
	return e
}

// Weights returns the effective weights.
func (e *Engine) Weights() Vector { return e.weights }

// Score computes the records for in.
func (e *Engine) Score(ctx context.Context, in []Input) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring cancelled: %w", err)
	}
	n := len(in)
	out := make([]Record, n)
	if n == 0 {
		return out, nil
	}
	for i, c := range in {
		out[i] = Record{Target: c.Target, Priority: c.Priority, Raw: c.Raw}
	}

	col := make([]float64, n)
	for m, metric := range Metrics {
		for i := range in {
			col[i] = in[i].Raw[m]
		}
		ranks := CompetitionRanks(col, metric.Direction())
		for i, r := range ranks {
			out[i].Ranks[m] = r
			out[i].Normalized[m] = Normalize(r, n)
		}
	}

	eps := zeroFloor(n)
	scores := make([]float64, n)
	for i := range out {
		out[i].Score = e.geometricMean(out[i].Normalized, eps)
		scores[i] = out[i].Score
	}
	for i, r := range CompetitionRanks(scores, HigherIsBetter) {
		out[i].Rank = r
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring cancelled: %w", err)
	}
	return out, nil
}

// geometricMean is exp(sum w*ln x / sum w). A zero component would collapse
// the product, so zeros are floored at eps; a vector of all zeros scores 0.
func (e *Engine) geometricMean(x Vector, eps float64) float64 {
	var num, den float64
	allZero := true
	for i, w := range e.weights {
		if w == 0 {
			continue
		}
		v := x[i]
		if v > 0 {
			allZero = false
		} else {
			v = eps
		}
		num += w * math.Log(v)
		den += w
	}
	if allZero || den == 0 {
		return 0
	}
	return math.Exp(num / den)
}

// zeroFloor is half the normalised step between adjacent ranks.
func zeroFloor(n int) float64 {
	if n < 2 {
		return 1
	}
	return 0.5 / float64(n-1)
}

// Normalize maps a rank in [1, n] onto [0, 1] with rank 1 at 1.0. A single
// candidate normalises to 1.0.
func Normalize(rank, n int) float64 {
	if n <= 1 {
		return 1
	}
	return 1 - float64(rank-1)/float64(n-1)
}

// CompetitionRanks assigns standard competition ("1224") ranks: tied values
// share the best rank of their group and the next distinct value skips
// ahead by the group size. NaN ranks last.
func CompetitionRanks(values []float64, dir Direction) []int {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	better := func(a, b float64) bool {
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case dir == HigherIsBetter:
			return a > b
		default:
			return a < b
		}
	}
	sort.SliceStable(idx, func(i, j int) bool { return better(values[idx[i]], values[idx[j]]) })

	ranks := make([]int, n)
	for pos, i := range idx {
		if pos > 0 && tied(values[i], values[idx[pos-1]]) {
			ranks[i] = ranks[idx[pos-1]]
			continue
		}
		ranks[i] = pos + 1
	}
	return ranks
}

func tied(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
