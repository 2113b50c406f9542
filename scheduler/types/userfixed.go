package types

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/scheduler"
)

// UserFixedName is the type tag of operator-entered fixed targets.
const UserFixedName = "UserFixed"

// userFixedMinHours is the visibility a fixed target needs to be selected.
const userFixedMinHours = 0.1

// UserFixed schedules a fixed-position target once per visit with its own
// stored exposure, count, filter and guiding settings.
type UserFixed struct {
	base
}

// NewUserFixed creates the policy with default tunables.
func NewUserFixed() *UserFixed {
	return &UserFixed{base: newBase(UserFixedName)}
}

// Snapshot copies the policy with its current tunables.
func (u *UserFixed) Snapshot() scheduler.TypeConfig {
	c := *u
	return &c
}

func (u *UserFixed) Description() string {
	return "Operator-entered fixed targets observed with their stored exposure settings"
}

func (u *UserFixed) SelectCandidates(ctx context.Context, start, end time.Time, store scheduler.CandidateSource) ([]*candidate.Candidate, error) {
	return u.selectFrom(ctx, store, start, end, u.minHours(userFixedMinHours))
}

// BlockDuration is exposure time times count, at least one second.
func (u *UserFixed) BlockDuration(c *candidate.Candidate) time.Duration {
	d := seconds(c.ExposureTime * float64(c.NumExposures))
	if d < time.Second {
		return time.Second
	}
	return d
}

func (u *UserFixed) GenerateSchedulerLine(slot scheduler.Slot, targetName string, c *candidate.Candidate) []scheduler.ScheduleLine {
	id := c.ID
	description := fmt.Sprintf("%s: %ss by %d, %s",
		targetName, strconv.FormatFloat(c.ExposureTime, 'f', -1, 64), c.NumExposures, c.Filter)
	line := scheduler.GenericLine(c.RA, c.Dec, c.Filter, slot.Start,
		targetName+"_"+c.Filter+"_user_fixed", description,
		c.ExposureTime, c.NumExposures,
		scheduler.LineOptions{
			Move:        true,
			Guiding:     c.Guide,
			Bin2Fits:    u.tun.Bin2Fits,
			CandidateID: &id,
		})
	return []scheduler.ScheduleLine{line}
}

func (u *UserFixed) GenerateTransitionDict(names []string) scheduler.TransitionModel {
	return u.transitions(names)
}

// ScoreRepeatObs leaves repeat visits scored like the first.
func (u *UserFixed) ScoreRepeatObs(_ *candidate.Candidate, row []float64, _ int, _ time.Time) []float64 {
	return row
}
