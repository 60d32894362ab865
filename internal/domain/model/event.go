package model

import "time"

// EventKind distinguishes primary transits from secondary eclipses.
type EventKind uint8

const (
	Primary EventKind = iota
	Secondary
)

func (k EventKind) String() string {
	if k == Secondary {
		return "secondary"
	}
	return "primary"
}

// EclipseEvent is one predicted event widened by the observing margins.
// Ingress <= Mid <= Egress always holds.
type EclipseEvent struct {
	Target  *Target
	Kind    EventKind
	Cycle   int64 // orbit number counted from the reference epoch
	Mid     time.Time
	Ingress time.Time
	Egress  time.Time
}

// Span returns Egress - Ingress.
func (e EclipseEvent) Span() time.Duration { return e.Egress.Sub(e.Ingress) }

// Window is a half-open planning interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether [from, to] lies inside the window.
func (w Window) Contains(from, to time.Time) bool {
	return !from.Before(w.Start) && !to.After(w.End)
}

// Empty reports whether the window spans no time.
func (w Window) Empty() bool { return !w.End.After(w.Start) }

// Unit is one target's share of a planning session, handed to a worker.
type Unit struct {
	PlanID string
	Seq    int
	Target *Target
	Window Window
}

// UnitResult is what a worker produced for one Unit.
type UnitResult struct {
	Predicted  int
	Observable []EclipseEvent
	// Rejected counts discarded events by visibility reason.
	Rejected map[string]int
}
