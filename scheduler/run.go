package scheduler

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/logger"
	"github.com/teranos/maestro/sky"
	"github.com/teranos/maestro/sym"
)

// Store is the candidate store surface a scheduling run uses.
type Store interface {
	CandidateSource
	Query(ctx context.Context, where string, args ...interface{}) ([]candidate.Candidate, error)
	EditCandidateByID(ctx context.Context, id int64, fields map[string]interface{}) error
	ListMembers(ctx context.Context, list candidate.List) (map[int64]bool, error)
}

// RunOptions adjust a single run.
type RunOptions struct {
	// Window overrides the observer's night.
	Window sky.Window

	// OutputPath overrides output_dir/schedule_<date>.<ext>.
	OutputPath string

	// Format overrides output_format.
	Format Format

	// NoOutput skips writing the schedule file.
	NoOutput bool

	// LastFocus is when the telescope was last focused; zero means at the
	// start of the window.
	LastFocus time.Time
}

// Result is what a run produced.
type Result struct {
	Schedule   *Schedule
	Placements []Placement

	// Selected counts candidates offered to the builder; Unscheduled names
	// those left out.
	Selected    int
	Unscheduled []string

	OutputPath        string
	WriteBackFailures int
}

// Runner executes scheduling runs. A run reads the store up front and writes
// results back per candidate; nothing is held in a transaction.
type Runner struct {
	registry *Registry
	store    Store
	observer *sky.Observer
	cfg      am.SchedulerConfig
	runs     *RunLog
	clock    sky.Clock
	log      *zap.SugaredLogger
}

// NewRunner wires a runner over the registry's active types.
func NewRunner(registry *Registry, store Store, observer *sky.Observer, cfg am.SchedulerConfig, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{
		registry: registry,
		store:    store,
		observer: observer,
		cfg:      cfg,
		clock:    sky.SystemClock,
		log:      logger.WithComponent(log, sym.Scheduler),
	}
}

// WithClock replaces the clock used for "now".
func (r *Runner) WithClock(clock sky.Clock) *Runner {
	r.clock = clock
	return r
}

// WithRunLog records each run in schedule_runs.
func (r *Runner) WithRunLog(runs *RunLog) *Runner {
	r.runs = runs
	return r
}

// Run builds and emits the schedule for one night.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx, r.log)
	started := r.clock()
	now := started.UTC()

	night := opts.Window
	if night.IsZero() {
		w, ok := r.observer.Night(now)
		if !ok {
			return nil, errors.WithHint(
				errors.Wrapf(errors.ErrInvalidRequest, "no night at %s for %s", now.Format(time.RFC3339), r.observer.Location.Name),
				"the sun may not reach the configured sunset altitude at this latitude and date",
			)
		}
		night = w
		if night.Contains(now) {
			night.Start = alignUp(now, time.Duration(r.cfg.ResolutionMinutes)*time.Minute)
		}
	}
	logger.PulseOpenInfow(log, "Scheduling run started",
		logger.FieldWindowStart, night.Start.Format(time.RFC3339),
		logger.FieldWindowEnd, night.End.Format(time.RFC3339),
	)

	active := r.registry.Snapshot()
	if len(active) == 0 {
		log.Warnw("No active candidate types")
	}
	if err := r.annotateWindows(ctx, log, active, night, now); err != nil {
		return nil, err
	}

	whitelist, err := r.store.ListMembers(ctx, candidate.Whitelist)
	if err != nil {
		return nil, errors.Wrap(err, "load whitelist")
	}

	grid := NewGrid(night, time.Duration(r.cfg.ResolutionMinutes)*time.Minute)
	tiers := make(map[int][]*Block)
	names := make(map[string][]string)
	result := &Result{}
	for _, tc := range active {
		cands, err := tc.SelectCandidates(ctx, night.Start, night.End, r.store)
		if err != nil {
			return nil, errors.WithDetailf(errors.Wrap(err, "select candidates"), "type: %s", tc.Name())
		}
		tun := tunablesOf(tc)
		for _, c := range cands {
			names[tc.Name()] = append(names[tc.Name()], c.CandidateName)
			tier := Tier(c, whitelist[c.ID], tun)
			tiers[tier] = append(tiers[tier], NewBlock(c, tc, tun, tier, grid))
		}
		result.Selected += len(cands)
		log.Infow("Selected candidates", logger.FieldCandidateType, tc.Name(), logger.FieldCount, len(cands))
	}

	builder := NewBuilder(grid, TransitionsOf(active, names), log)
	if r.cfg.FocusMinutes > 0 {
		builder.FocusLength = time.Duration(r.cfg.FocusMinutes) * time.Minute
	}
	builder.LastFocus = opts.LastFocus
	result.Placements = builder.Build(tiers)

	sched := &Schedule{
		RunID:       runID,
		WindowStart: night.Start.UTC(),
		WindowEnd:   night.End.UTC(),
		Lines:       Lines(result.Placements),
	}
	result.Schedule = sched
	result.Unscheduled = unscheduled(tiers, result.Placements)
	result.WriteBackFailures = r.writeBack(ctx, log, result.Placements, now)

	var outputPath *string
	if !opts.NoOutput {
		path, err := r.writeOutput(sched, opts)
		if err != nil {
			return nil, err
		}
		result.OutputPath = path
		outputPath = &path
	}

	if r.runs != nil {
		err := r.runs.Create(ctx, RunRecord{
			ID:          runID,
			WindowStart: night.Start,
			WindowEnd:   night.End,
			LineCount:   len(sched.Lines),
			OutputPath:  outputPath,
			CreatedAt:   now,
		})
		if err != nil {
			return nil, err
		}
	}

	logger.PulseCloseInfow(log, "Scheduling run finished",
		logger.FieldLines, len(sched.Lines),
		logger.FieldCount, result.Selected,
		"unscheduled", len(result.Unscheduled),
		logger.FieldFile, result.OutputPath,
		logger.FieldDurationMS, r.clock().Sub(started).Milliseconds(),
	)
	return result, nil
}

// alignUp rounds t up to the next multiple of res (DefaultResolution when
// res <= 0).
func alignUp(t time.Time, res time.Duration) time.Time {
	if res <= 0 {
		res = DefaultResolution
	}
	aligned := t.Truncate(res)
	if aligned.Before(t) {
		aligned = aligned.Add(res)
	}
	return aligned
}

// Tier is the scheduling tier of a candidate: WhitelistPriority when
// whitelisted, otherwise Priority+1 shifted by the type's offset. Tiers are
// at least 1.
func Tier(c *candidate.Candidate, whitelisted bool, tun Tunables) int {
	if whitelisted {
		return candidate.WhitelistPriority
	}
	tier := c.Priority + 1 + tun.PriorityOffset
	if tier < 1 {
		return 1
	}
	return tier
}

func tunablesOf(tc TypeConfig) Tunables {
	if t, ok := tc.(Tunable); ok {
		return t.Tunables()
	}
	return TunablesFrom(am.DefaultTypeConfig())
}

// annotateWindows stores tonight's window for positioned candidates of
// active types, other than StoredWindowed ones, whose stored window is
// missing or does not reach into the night: the horizon-box window intersected with the night, plus the
// transit time. Windows already overlapping the night are kept.
func (r *Runner) annotateWindows(ctx context.Context, log *zap.SugaredLogger, active []TypeConfig, night sky.Window, now time.Time) error {
	for _, tc := range active {
		if sw, ok := tc.(StoredWindowed); ok && sw.StoredWindows() {
			continue
		}
		cands, err := r.store.Query(ctx,
			"RemovedReason IS NULL AND RejectedReason IS NULL AND CandidateType = ?",
			tc.Name())
		if err != nil {
			return errors.WithDetailf(errors.Wrap(err, "load candidates to annotate"), "type: %s", tc.Name())
		}
		for i := range cands {
			c := &cands[i]
			ra, dec, ok := c.Position()
			if !ok {
				continue
			}
			if stored := c.Window(); !stored.IsZero() {
				if _, overlaps := sky.Overlap(stored, night); overlaps {
					continue
				}
			}
			static := r.observer.Box.StaticWindow(ra, dec, r.observer.Location, now)
			if static.IsZero() {
				continue
			}
			w, ok := sky.Overlap(static, night)
			if !ok {
				log.Debugw("Not observable tonight", logger.FieldCandidateName, c.CandidateName)
				continue
			}
			transit := sky.TransitTime(ra, r.observer.Location, static.Start.Add(static.Duration()/2))
			err := r.store.EditCandidateByID(ctx, c.ID, map[string]interface{}{
				"StartObservability": w.Start,
				"EndObservability":   w.End,
				"TransitTime":        transit,
			})
			if err != nil {
				return errors.WithDetailf(errors.Wrap(err, "annotate window"), "candidate_id: %d", c.ID)
			}
		}
	}
	return nil
}

// writeBack marks each scheduled candidate once. Failures are logged and
// counted; the schedule stands regardless.
func (r *Runner) writeBack(ctx context.Context, log *zap.SugaredLogger, placements []Placement, now time.Time) int {
	done := make(map[int64]bool)
	failures := 0
	for _, p := range placements {
		if p.IsFocus() || done[p.Block.Candidate.ID] {
			continue
		}
		c := p.Block.Candidate
		done[c.ID] = true

		fields := map[string]interface{}{"Scheduled": 1}
		if w := c.Window(); !w.IsZero() {
			fields["StartObservability"] = w.Start
			fields["EndObservability"] = w.End
		}
		if c.TransitTime != nil {
			fields["TransitTime"] = *c.TransitTime
		} else if ra, _, ok := c.Position(); ok {
			fields["TransitTime"] = sky.TransitTime(ra, r.observer.Location, p.Start)
		}
		if err := r.store.EditCandidateByID(ctx, c.ID, fields); err != nil {
			failures++
			log.Warnw("Write-back failed",
				logger.FieldCandidateID, c.ID,
				logger.FieldCandidateName, c.CandidateName,
				logger.FieldError, err,
			)
		}
	}
	return failures
}

func (r *Runner) writeOutput(sched *Schedule, opts RunOptions) (string, error) {
	format := opts.Format
	if format == "" {
		f, err := ParseFormat(r.cfg.OutputFormat)
		if err != nil {
			return "", err
		}
		format = f
	}
	path := opts.OutputPath
	if path == "" {
		dir := r.cfg.OutputDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, FileName(sched.WindowStart, format))
	}
	if err := sched.WriteFile(path, format); err != nil {
		return "", err
	}
	return path, nil
}

// unscheduled lists the first-visit labels of blocks that were never placed.
func unscheduled(tiers map[int][]*Block, placements []Placement) []string {
	placed := make(map[*candidate.Candidate]bool)
	for _, p := range placements {
		if !p.IsFocus() {
			placed[p.Block.Candidate] = true
		}
	}
	var out []string
	for _, tier := range sortedTiers(tiers) {
		for _, b := range tiers[tier] {
			if !placed[b.Candidate] {
				out = append(out, b.Name())
			}
		}
	}
	return out
}
