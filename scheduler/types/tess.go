package types

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/scheduler"
)

// TESSName is the type tag of exoplanet transit follow-up targets.
const TESSName = "TESS"

// tessMinHours is the visibility a transit target needs to be selected.
const tessMinHours = 0.1

// TESS observes a predicted transit. Each candidate's stored window is the
// buffered transit intersected with its visibility that night, set when the
// candidate is imported; runs never recompute it from position.
type TESS struct {
	base
}

// NewTESS creates the policy with default tunables.
func NewTESS() *TESS {
	return &TESS{base: newBase(TESSName)}
}

// Snapshot copies the policy with its current tunables.
func (t *TESS) Snapshot() scheduler.TypeConfig {
	c := *t
	return &c
}

func (t *TESS) Description() string {
	return "Exoplanet transit follow-up over each candidate's stored transit window"
}

// StoredWindows keeps imported transit windows out of run-time annotation.
func (t *TESS) StoredWindows() bool { return true }

func (t *TESS) SelectCandidates(ctx context.Context, start, end time.Time, store scheduler.CandidateSource) ([]*candidate.Candidate, error) {
	return t.selectFrom(ctx, store, start, end, t.minHours(tessMinHours))
}

// BlockDuration is exposure time times count. A candidate imported without
// a frame count fills its stored window.
func (t *TESS) BlockDuration(c *candidate.Candidate) time.Duration {
	d := seconds(c.ExposureTime * float64(t.frames(c)))
	if d < time.Second {
		return time.Second
	}
	return d
}

func (t *TESS) frames(c *candidate.Candidate) int {
	if c.NumExposures > 0 || c.ExposureTime <= 0 {
		return c.NumExposures
	}
	w := c.Window()
	if w.IsZero() {
		return 0
	}
	return int(math.Ceil(w.Duration().Seconds() / c.ExposureTime))
}

func (t *TESS) GenerateSchedulerLine(slot scheduler.Slot, targetName string, c *candidate.Candidate) []scheduler.ScheduleLine {
	id := c.ID
	frames := t.frames(c)
	description := fmt.Sprintf("%s: %ss by %d, %s",
		targetName, strconv.FormatFloat(c.ExposureTime, 'f', -1, 64), frames, c.Filter)
	line := scheduler.GenericLine(c.RA, c.Dec, c.Filter, slot.Start,
		targetName+"_"+c.Filter+"_TESS", description,
		c.ExposureTime, frames,
		scheduler.LineOptions{
			Move:        true,
			Guiding:     c.Guide,
			Bin2Fits:    t.tun.Bin2Fits,
			CandidateID: &id,
		})
	return []scheduler.ScheduleLine{line}
}

func (t *TESS) GenerateTransitionDict(names []string) scheduler.TransitionModel {
	return t.transitions(names)
}

// ScoreRepeatObs leaves repeat visits scored like the first.
func (t *TESS) ScoreRepeatObs(_ *candidate.Candidate, row []float64, _ int, _ time.Time) []float64 {
	return row
}
