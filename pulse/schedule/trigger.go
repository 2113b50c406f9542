// Package schedule fires scheduling runs on a cron expression.
//
// The trigger owns a robfig/cron scheduler with a single entry. A run that
// is still going when the next one is due is skipped, not queued.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/logger"
	"github.com/teranos/maestro/sym"
)

// RunFunc performs one scheduling run.
type RunFunc func(ctx context.Context) error

// Status is a snapshot of the trigger.
type Status struct {
	Spec      string
	Next      time.Time
	LastRunAt time.Time
	LastError error
	Runs      int64
	Skipped   int64
}

// Trigger runs a RunFunc on a cron schedule.
type Trigger struct {
	spec   string
	cron   *cron.Cron
	entry  cron.EntryID
	run    RunFunc
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.SugaredLogger

	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64

	mu        sync.Mutex
	lastRunAt time.Time
	lastErr   error
}

// NewTrigger parses spec with the config's cron parser. Times are UTC.
func NewTrigger(ctx context.Context, spec string, run RunFunc, log *zap.SugaredLogger) (*Trigger, error) {
	if run == nil {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "nightly trigger needs a run function")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = logger.WithComponent(log, sym.Scheduler)

	triggerCtx, cancel := context.WithCancel(ctx)
	t := &Trigger{
		spec:   spec,
		run:    run,
		ctx:    triggerCtx,
		cancel: cancel,
		log:    log,
	}
	t.cron = cron.New(
		cron.WithParser(am.CronParser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{log}),
		cron.WithChain(cron.Recover(cronLogger{log})),
	)
	id, err := t.cron.AddFunc(spec, func() { _ = t.Fire() })
	if err != nil {
		cancel()
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidRequest, "nightly_cron %q: %v", spec, err),
			"use five cron fields or a descriptor such as @daily",
		)
	}
	t.entry = id
	return t, nil
}

// Start begins firing on schedule.
func (t *Trigger) Start() {
	t.cron.Start()
	logger.PulseOpenInfow(t.log, "Nightly trigger started", "spec", t.spec, "next", t.Next().Format(time.RFC3339))
}

// Stop halts the schedule, cancels a run in progress and waits for it.
func (t *Trigger) Stop() {
	t.cancel()
	<-t.cron.Stop().Done()
	logger.PulseCloseInfow(t.log, "Nightly trigger stopped", logger.FieldCount, t.runs.Load())
}

// Next is when the trigger fires next; zero before Start.
func (t *Trigger) Next() time.Time {
	return t.cron.Entry(t.entry).Next
}

// Fire runs once now unless a run is already in progress, in which case it
// is skipped and counted.
func (t *Trigger) Fire() error {
	if !t.running.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		t.log.Warnw("Skipping scheduling run, previous run still in progress", "spec", t.spec)
		return nil
	}
	defer t.running.Store(false)

	started := time.Now()
	err := t.run(t.ctx)
	t.runs.Add(1)

	t.mu.Lock()
	t.lastRunAt = started.UTC()
	t.lastErr = err
	t.mu.Unlock()

	if err != nil {
		t.log.Errorw("Scheduling run failed",
			logger.FieldError, err,
			logger.FieldDurationMS, time.Since(started).Milliseconds(),
		)
		return err
	}
	logger.PulseInfow(t.log, "Scheduling run complete", logger.FieldDurationMS, time.Since(started).Milliseconds())
	return nil
}

// Status reports counters and the last outcome.
func (t *Trigger) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Spec:      t.spec,
		Next:      t.Next(),
		LastRunAt: t.lastRunAt,
		LastError: t.lastErr,
		Runs:      t.runs.Load(),
		Skipped:   t.skipped.Load(),
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, logger.FieldError, err)...)
}
