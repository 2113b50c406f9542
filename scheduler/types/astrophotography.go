package types

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/scheduler"
)

// AstrophotographyName is the type tag of three-filter imaging targets.
const AstrophotographyName = "Astrophotography"

// astrophotographyMinHours is the visibility an imaging target needs.
const astrophotographyMinHours = 1

// AstrophotographyFilters are imaged in this order, one dataset each.
var AstrophotographyFilters = []string{"g", "i", "r"}

// DatasetSettings shape the per-filter datasets. A module manifest's
// [settings] table may override them.
type DatasetSettings struct {
	MinutesBetweenDatasets int
	ExposureTime           float64 // seconds per exposure
	NumExposures           int
}

// DefaultDatasetSettings are used until a manifest says otherwise.
func DefaultDatasetSettings() DatasetSettings {
	return DatasetSettings{MinutesBetweenDatasets: 2, ExposureTime: 30, NumExposures: 10}
}

func (d DatasetSettings) dataset() time.Duration {
	return seconds(d.ExposureTime * float64(d.NumExposures))
}

func (d DatasetSettings) gap() time.Duration {
	return time.Duration(d.MinutesBetweenDatasets) * time.Minute
}

// Astrophotography images a target as one dataset per filter, back to back
// with a fixed gap, guiding throughout. Only the first dataset slews.
type Astrophotography struct {
	base
	Datasets DatasetSettings
}

// NewAstrophotography creates the policy with default settings.
func NewAstrophotography() *Astrophotography {
	return &Astrophotography{base: newBase(AstrophotographyName), Datasets: DefaultDatasetSettings()}
}

// Snapshot copies the policy with its current tunables and dataset settings.
func (a *Astrophotography) Snapshot() scheduler.TypeConfig {
	c := *a
	return &c
}

func (a *Astrophotography) Description() string {
	return "Three-filter imaging of bright targets"
}

// Configure reads minutes_between_datasets, individual_dataset_exptime and
// individual_dataset_numexp.
func (a *Astrophotography) Configure(settings map[string]interface{}) error {
	d := a.Datasets
	for key, raw := range settings {
		v, ok := number(raw)
		if !ok {
			return errors.Wrapf(errors.ErrInvalidRequest, "setting %s: expected a number, got %T", key, raw)
		}
		switch key {
		case "minutes_between_datasets":
			d.MinutesBetweenDatasets = int(v)
		case "individual_dataset_exptime":
			d.ExposureTime = v
		case "individual_dataset_numexp":
			d.NumExposures = int(v)
		}
	}
	if d.ExposureTime <= 0 || d.NumExposures <= 0 || d.MinutesBetweenDatasets < 0 {
		return errors.Wrapf(errors.ErrInvalidRequest, "invalid dataset settings %+v", d)
	}
	a.Datasets = d
	return nil
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func (a *Astrophotography) SelectCandidates(ctx context.Context, start, end time.Time, store scheduler.CandidateSource) ([]*candidate.Candidate, error) {
	return a.selectFrom(ctx, store, start, end, a.minHours(astrophotographyMinHours))
}

// BlockDuration covers every dataset and the gaps between them.
func (a *Astrophotography) BlockDuration(*candidate.Candidate) time.Duration {
	n := len(AstrophotographyFilters)
	return time.Duration(n)*a.Datasets.dataset() + time.Duration(n-1)*a.Datasets.gap()
}

func (a *Astrophotography) GenerateSchedulerLine(slot scheduler.Slot, targetName string, c *candidate.Candidate) []scheduler.ScheduleLine {
	id := c.ID
	d := a.Datasets
	step := d.dataset() + d.gap()
	exposure := strconv.FormatFloat(d.ExposureTime, 'f', -1, 64)

	lines := make([]scheduler.ScheduleLine, 0, len(AstrophotographyFilters))
	for i, filter := range AstrophotographyFilters {
		start := slot.Start.Add(time.Duration(i) * step)
		lines = append(lines, scheduler.GenericLine(c.RA, c.Dec, filter, start,
			targetName+"_"+filter+"_aphot",
			fmt.Sprintf("%s: %ss by %d, %s", targetName, exposure, d.NumExposures, filter),
			d.ExposureTime, d.NumExposures,
			scheduler.LineOptions{
				Move:        i == 0,
				Guiding:     true,
				CandidateID: &id,
			}))
	}
	return lines
}

func (a *Astrophotography) GenerateTransitionDict(names []string) scheduler.TransitionModel {
	return a.transitions(names)
}

// ScoreRepeatObs leaves repeat visits scored like the first.
func (a *Astrophotography) ScoreRepeatObs(_ *candidate.Candidate, row []float64, _ int, _ time.Time) []float64 {
	return row
}
