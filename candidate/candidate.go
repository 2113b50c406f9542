// Package candidate holds the Candidate entity and its sqlite store.
//
// Candidates are never physically deleted. Removal and rejection are soft
// states recorded in RemovedReason/RemovedDt and RejectedReason; clearing
// those columns restores the candidate.
package candidate

import (
	"fmt"
	"time"

	"github.com/teranos/maestro/sky"
)

// TimeFormat is how timestamps are stored in the candidates table (UTC).
const TimeFormat = "2006-01-02 15:04:05"

// DefaultPriority is used when a candidate is stored without one.
const DefaultPriority = 5

// Candidate is a prospective observation target. Nullable columns are
// pointers; a nil pointer is SQL NULL.
type Candidate struct {
	ID             int64
	CandidateName  string
	CandidateType  string
	Author         string
	DateAdded      time.Time
	DateLastEdited *time.Time

	Priority int

	RemovedDt      *time.Time
	RemovedReason  *string
	RejectedReason *string

	Night   string
	Updated *time.Time

	StartObservability *time.Time
	EndObservability   *time.Time
	TransitTime        *time.Time

	// Sky position in degrees and ephemeris quality.
	RA, Dec    *float64
	DRA, DDec  *float64
	Magnitude  *float64
	RMSERA     *float64
	RMSEDec    *float64
	Score      *float64
	NObs       *int64

	ApproachColor string

	NumExposures int
	ExposureTime float64 // seconds
	Filter       string
	Guide        bool

	Scheduled int
	Observed  int
	Processed int
	Submitted int

	Notes string
	CVals [10]string
}

// IsRemoved reports whether the candidate carries a removal reason.
func (c *Candidate) IsRemoved() bool { return c.RemovedReason != nil }

// IsRejected reports whether the candidate carries a rejection reason.
func (c *Candidate) IsRejected() bool { return c.RejectedReason != nil }

// Window is the stored observability window, zero when either bound is NULL.
func (c *Candidate) Window() sky.Window {
	if c.StartObservability == nil || c.EndObservability == nil {
		return sky.Window{}
	}
	return sky.Window{Start: *c.StartObservability, End: *c.EndObservability}
}

// SetWindow stores w as the observability window.
func (c *Candidate) SetWindow(w sky.Window) {
	if w.IsZero() {
		c.StartObservability, c.EndObservability = nil, nil
		return
	}
	start, end := w.Start.UTC(), w.End.UTC()
	c.StartObservability, c.EndObservability = &start, &end
}

// IsObservableBetween reports whether the stored window overlaps [start, end]
// for at least minHours, and returns the overlap.
func (c *Candidate) IsObservableBetween(start, end time.Time, minHours float64) (sky.Window, bool) {
	overlap, ok := sky.Overlap(c.Window(), sky.Window{Start: start, End: end})
	if !ok {
		return sky.Window{}, false
	}
	if overlap.Duration() < time.Duration(minHours*float64(time.Hour)) {
		return overlap, false
	}
	return overlap, true
}

// Position returns RA and Dec in degrees; ok is false when either is NULL.
func (c *Candidate) Position() (ra, dec float64, ok bool) {
	if c.RA == nil || c.Dec == nil {
		return 0, 0, false
	}
	return *c.RA, *c.Dec, true
}

// Label is "<name> (<type>, #<id>)" for log lines.
func (c *Candidate) Label() string {
	return fmt.Sprintf("%s (%s, #%d)", c.CandidateName, c.CandidateType, c.ID)
}

// Float returns a pointer to v, for literal construction of nullable fields.
func Float(v float64) *float64 { return &v }

// Time returns a pointer to the UTC copy of t.
func Time(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// FormatTime renders t in the stored format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime accepts the stored format and RFC 3339.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimeFormat, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
