// Package scheduler turns selected candidates into a night's observation
// plan.
//
// Each candidate type is governed by a TypeConfig registered under its type
// tag. A run asks every active type for its candidates, merges their
// transition models, and places blocks greedily by priority tier onto a
// fixed time grid. The builder never special-cases a type name.
package scheduler

import (
	"context"
	"time"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/candidate"
)

// Focus and UnusedTime are the tags of the non-candidate blocks a transition
// model may mention.
const (
	FocusTag      = "Focus"
	UnusedTimeTag = "Unused Time"
)

// CandidateSource is the part of the candidate store a type needs to select
// its candidates.
type CandidateSource interface {
	CandidatesForTimeRange(ctx context.Context, start, end time.Time, minHoursVisible float64, candidateType string) ([]candidate.Candidate, error)
}

// Slot is one placed block handed to GenerateSchedulerLine.
type Slot struct {
	Start    time.Time
	Duration time.Duration
	// Visit is the 1-based repeat number; 0 when the type allows one visit.
	Visit int
}

// TypeConfig is the scheduling policy for one candidate type.
type TypeConfig interface {
	// Name is the candidate type tag this policy governs.
	Name() string

	// SelectCandidates returns the non-removed candidates of this type
	// observable inside [start, end].
	SelectCandidates(ctx context.Context, start, end time.Time, store CandidateSource) ([]*candidate.Candidate, error)

	// BlockDuration is how long one visit of c occupies the telescope.
	BlockDuration(c *candidate.Candidate) time.Duration

	// GenerateSchedulerLine renders a placed block. targetName is the base
	// candidate name without repeat suffix.
	GenerateSchedulerLine(slot Slot, targetName string, c *candidate.Candidate) []ScheduleLine

	// GenerateTransitionDict returns the downtime entries for the given
	// candidate names, including a default.
	GenerateTransitionDict(names []string) TransitionModel

	// ScoreRepeatObs adjusts the score row of the next visit of c after
	// numPrev visits, the last ending at current.
	ScoreRepeatObs(c *candidate.Candidate, row []float64, numPrev int, current time.Time) []float64
}

// Scorer is implemented by types that score the time grid themselves.
// Types without it get WindowScores over their observability window.
type Scorer interface {
	ScoreRow(c *candidate.Candidate, grid Grid) []float64
}

// Tunables are the per-type knobs read from [types.<Name>].
type Tunables struct {
	NumObs                  int
	MinMinutesBetweenObs    int
	MaxMinutesWithoutFocus  int
	DowntimeMinutesAfterObs int
	MinHoursVisible         float64
	Bin2Fits                bool
	PriorityOffset          int
}

// TunablesFrom converts a config section, filling zero values the builder
// cannot work with.
func TunablesFrom(tc am.TypeConfig) Tunables {
	t := Tunables{
		NumObs:                  tc.NumObs,
		MinMinutesBetweenObs:    tc.MinMinutesBetweenObs,
		MaxMinutesWithoutFocus:  tc.MaxMinutesWithoutFocus,
		DowntimeMinutesAfterObs: tc.DowntimeMinutesAfterObs,
		MinHoursVisible:         tc.MinHoursVisible,
		Bin2Fits:                tc.Bin2Fits,
		PriorityOffset:          tc.PriorityOffset,
	}
	if t.NumObs < 1 {
		t.NumObs = 1
	}
	if t.MaxMinutesWithoutFocus <= 0 {
		t.MaxMinutesWithoutFocus = am.DefaultTypeConfig().MaxMinutesWithoutFocus
	}
	return t
}

// MinBetween is the required spacing between visits of one candidate.
func (t Tunables) MinBetween() time.Duration {
	return time.Duration(t.MinMinutesBetweenObs) * time.Minute
}

// MaxWithoutFocus is the longest the telescope may observe between focus loops.
func (t Tunables) MaxWithoutFocus() time.Duration {
	return time.Duration(t.MaxMinutesWithoutFocus) * time.Minute
}

// Downtime is the default gap after an observation.
func (t Tunables) Downtime() time.Duration {
	return time.Duration(t.DowntimeMinutesAfterObs) * time.Minute
}

// Tunable is implemented by types whose behavior depends on Tunables. The
// registry hands each such type its section before a run.
type Tunable interface {
	SetTunables(Tunables)
	Tunables() Tunables
}

// Snapshotter is implemented by types whose settings can change while
// registered. Snapshot returns an independent copy a run can read without
// holding the registry lock.
type Snapshotter interface {
	Snapshot() TypeConfig
}

// StoredWindowed is implemented by types whose candidates carry windows
// that do not follow from position alone, such as a predicted transit.
// Runs leave those windows as stored when StoredWindows reports true.
type StoredWindowed interface {
	StoredWindows() bool
}
