package candidate

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/teranos/maestro/errors"
)

// selectColumns is the SELECT list matching scanTargets.
var selectColumns = strings.Join(Columns, ", ")

// scanArgs holds the nullable intermediates for one candidate row.
type scanArgs struct {
	Author, DateAdded, DateLastEdited           sql.NullString
	Priority                                    sql.NullInt64
	RemovedDt, RemovedReason, RejectedReason    sql.NullString
	Night, Updated                              sql.NullString
	StartObs, EndObs, Transit                   sql.NullString
	RA, Dec, DRA, DDec, Magnitude               sql.NullFloat64
	RMSERA, RMSEDec, Score                      sql.NullFloat64
	NObs                                        sql.NullInt64
	ApproachColor                               sql.NullString
	NumExposures                                sql.NullInt64
	ExposureTime                                sql.NullFloat64
	Filter                                      sql.NullString
	Guide                                       sql.NullBool
	Scheduled, Observed, Processed, Submitted   sql.NullInt64
	Notes                                       sql.NullString
	CVals                                       [10]sql.NullString
}

// scanTargets returns pointers in Columns order.
func scanTargets(c *Candidate, a *scanArgs) []interface{} {
	targets := []interface{}{
		&c.ID, &a.Author, &a.DateAdded, &a.DateLastEdited, &c.CandidateName, &c.CandidateType,
		&a.Priority, &a.RemovedDt, &a.RemovedReason, &a.RejectedReason, &a.Night, &a.Updated,
		&a.StartObs, &a.EndObs, &a.Transit,
		&a.RA, &a.Dec, &a.DRA, &a.DDec, &a.Magnitude, &a.RMSERA, &a.RMSEDec, &a.Score, &a.NObs,
		&a.ApproachColor, &a.NumExposures, &a.ExposureTime, &a.Filter, &a.Guide,
		&a.Scheduled, &a.Observed, &a.Processed, &a.Submitted, &a.Notes,
	}
	for i := range a.CVals {
		targets = append(targets, &a.CVals[i])
	}
	return targets
}

// apply copies the scanned intermediates onto c.
func (a *scanArgs) apply(c *Candidate) error {
	c.Author = a.Author.String
	if a.DateAdded.Valid {
		t, err := ParseTime(a.DateAdded.String)
		if err != nil {
			return errors.Wrapf(err, "candidate %d: DateAdded", c.ID)
		}
		c.DateAdded = t
	}

	times := []struct {
		name string
		src  sql.NullString
		dst  **time.Time
	}{
		{"DateLastEdited", a.DateLastEdited, &c.DateLastEdited},
		{"RemovedDt", a.RemovedDt, &c.RemovedDt},
		{"Updated", a.Updated, &c.Updated},
		{"StartObservability", a.StartObs, &c.StartObservability},
		{"EndObservability", a.EndObs, &c.EndObservability},
		{"TransitTime", a.Transit, &c.TransitTime},
	}
	for _, f := range times {
		if !f.src.Valid || f.src.String == "" {
			*f.dst = nil
			continue
		}
		t, err := ParseTime(f.src.String)
		if err != nil {
			return errors.Wrapf(err, "candidate %d: %s", c.ID, f.name)
		}
		*f.dst = &t
	}

	c.Priority = DefaultPriority
	if a.Priority.Valid {
		c.Priority = int(a.Priority.Int64)
	}
	c.RemovedReason = nullString(a.RemovedReason)
	c.RejectedReason = nullString(a.RejectedReason)
	c.Night = a.Night.String

	c.RA = nullFloat(a.RA)
	c.Dec = nullFloat(a.Dec)
	c.DRA = nullFloat(a.DRA)
	c.DDec = nullFloat(a.DDec)
	c.Magnitude = nullFloat(a.Magnitude)
	c.RMSERA = nullFloat(a.RMSERA)
	c.RMSEDec = nullFloat(a.RMSEDec)
	c.Score = nullFloat(a.Score)
	if a.NObs.Valid {
		n := a.NObs.Int64
		c.NObs = &n
	}

	c.ApproachColor = a.ApproachColor.String
	c.NumExposures = int(a.NumExposures.Int64)
	c.ExposureTime = a.ExposureTime.Float64
	c.Filter = a.Filter.String
	c.Guide = !a.Guide.Valid || a.Guide.Bool
	c.Scheduled = int(a.Scheduled.Int64)
	c.Observed = int(a.Observed.Int64)
	c.Processed = int(a.Processed.Int64)
	c.Submitted = int(a.Submitted.Int64)
	c.Notes = a.Notes.String
	for i, v := range a.CVals {
		c.CVals[i] = v.String
	}
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// QueryToCandidates converts rows selected with the full column list into
// candidates. rows is closed before returning.
func QueryToCandidates(rows *sql.Rows) ([]Candidate, error) {
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var args scanArgs
		if err := rows.Scan(scanTargets(&c, &args)...); err != nil {
			return nil, errors.Wrap(err, "scan candidate")
		}
		if err := args.apply(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate candidates")
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func quoteColumn(name string) string {
	return fmt.Sprintf("%q", name)
}
