// Package types contains the plan and row types shared by the service, the
// repository and the exporters.
package types

import (
	"time"

	"github.com/okian/tofo/internal/domain/model"
)

// Entry represents one row of the score table.
type Entry struct {
	Rank     int     `json:"rank"`
	Target   string  `json:"target"`
	Priority string  `json:"priority,omitempty"`
	Score    float64 `json:"score"`
	// Metrics holds the raw metric values by metric name.
	Metrics map[string]float64 `json:"metrics,omitempty"`
	// Ranks and Normalized hold the per-metric competition rank and its
	// [0, 1] normalisation, keyed like Metrics.
	Ranks      map[string]int     `json:"ranks,omitempty"`
	Normalized map[string]float64 `json:"normalized,omitempty"`
}

// EventRow is one exported observable event.
type EventRow struct {
	Target        string    `json:"target_name"`
	Kind          string    `json:"kind"`
	Ingress       time.Time `json:"ingress"`
	Mid           time.Time `json:"mid_time"`
	Egress        time.Time `json:"egress"`
	LocalMid      time.Time `json:"local_mid_time"`
	DurationHours float64   `json:"duration_hours"`
	Score         float64   `json:"score"`
	Rank          int       `json:"rank"`
	Frame         string    `json:"epoch_frame"`
	Source        string    `json:"source"`
}

// Rejection records why a target produced no events.
type Rejection struct {
	Target string `json:"target"`
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// SourceReport says how one catalog contributed to a plan.
type SourceReport struct {
	Source    string    `json:"source"`
	Outcome   string    `json:"outcome"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
	Targets   int       `json:"targets"`
	Error     string    `json:"error,omitempty"`
}

// Plan is the published result of one planning session.
type Plan struct {
	ID          string         `json:"id"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	GeneratedAt time.Time      `json:"generated_at"`
	Sources     []SourceReport `json:"sources"`
	Candidates  int            `json:"candidates"`
	Events      []EventRow     `json:"events"`
	Scores      []Entry        `json:"scores"`
	Rejections  []Rejection    `json:"rejections,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`

	// Observable keeps the typed events for sequence planning.
	Observable []model.EclipseEvent `json:"-"`
}
