package scheduler

import (
	"time"

	"github.com/teranos/maestro/sky"
)

// DefaultResolution is the grid step.
const DefaultResolution = time.Minute

// Grid divides the night into fixed slots starting at Start.
type Grid struct {
	Start      time.Time
	End        time.Time
	Resolution time.Duration
}

// NewGrid covers w with slots of res (DefaultResolution when res <= 0).
func NewGrid(w sky.Window, res time.Duration) Grid {
	if res <= 0 {
		res = DefaultResolution
	}
	return Grid{Start: w.Start.UTC(), End: w.End.UTC(), Resolution: res}
}

// Window is the grid's span.
func (g Grid) Window() sky.Window { return sky.Window{Start: g.Start, End: g.End} }

// Len is the number of slots; the last one may be partial.
func (g Grid) Len() int {
	if !g.End.After(g.Start) {
		return 0
	}
	return g.Slots(g.End.Sub(g.Start))
}

// Time is the start of slot i.
func (g Grid) Time(i int) time.Time {
	return g.Start.Add(time.Duration(i) * g.Resolution)
}

// Index is the slot containing t, clamped to [0, Len].
func (g Grid) Index(t time.Time) int {
	if t.Before(g.Start) {
		return 0
	}
	i := int(t.Sub(g.Start) / g.Resolution)
	if n := g.Len(); i > n {
		return n
	}
	return i
}

// CeilIndex is the first slot starting at or after t, clamped to [0, Len].
func (g Grid) CeilIndex(t time.Time) int {
	if !t.After(g.Start) {
		return 0
	}
	i := g.Slots(t.Sub(g.Start))
	if n := g.Len(); i > n {
		return n
	}
	return i
}

// Slots is the number of slots d spans, rounded up.
func (g Grid) Slots(d time.Duration) int {
	n := int(d / g.Resolution)
	if time.Duration(n)*g.Resolution < d {
		n++
	}
	return n
}

// WindowScores scores each slot 1 when its start lies in w and 0 otherwise.
func WindowScores(w sky.Window, g Grid) []float64 {
	row := make([]float64, g.Len())
	for i := range row {
		if w.Contains(g.Time(i)) {
			row[i] = 1
		}
	}
	return row
}
