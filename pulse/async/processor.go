package async

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/logger"
	"github.com/teranos/maestro/sym"
)

// ErrProcessorStopped is returned by Submit once the processor has exited.
var ErrProcessorStopped = errors.New("job processor stopped")

// Config controls the dispatch loop.
type Config struct {
	PollInterval  time.Duration
	CommandBuffer int
}

// DefaultConfig ticks every 100ms with room for 16 pending commands.
func DefaultConfig() Config {
	return Config{PollInterval: 100 * time.Millisecond, CommandBuffer: 16}
}

// ConfigFromAM converts the [dbops] section.
func ConfigFromAM(c am.DbOpsConfig) Config {
	cfg := Config{PollInterval: c.PollInterval(), CommandBuffer: c.CommandBuffer}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultConfig().CommandBuffer
	}
	return cfg
}

// Processor is the DbOps dispatch loop. Listeners push raw control lines
// into a bounded channel; each tick the loop handles at most one command and
// then advances at most one job. The loop goroutine is the only caller of
// job handlers, so it is the only writer to the candidate store.
type Processor struct {
	registry *HandlerRegistry
	queue    *Queue
	commands chan string
	out      Responder
	store    io.Closer
	metrics  *Metrics
	cfg      Config
	log      *zap.SugaredLogger

	done     chan struct{}
	doneOnce sync.Once
}

// NewProcessor wires a processor. store is closed on Kill; out receives
// response lines and may be nil.
func NewProcessor(registry *HandlerRegistry, store io.Closer, out Responder, cfg Config, log *zap.SugaredLogger) *Processor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if out == nil {
		out = ResponderFunc(func(string) {})
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultConfig().CommandBuffer
	}
	return &Processor{
		registry: registry,
		queue:    NewQueue(),
		commands: make(chan string, cfg.CommandBuffer),
		out:      out,
		store:    store,
		cfg:      cfg,
		log:      logger.WithComponent(log, sym.DbOps),
		done:     make(chan struct{}),
	}
}

// WithMetrics attaches Prometheus counters.
func (p *Processor) WithMetrics(m *Metrics) *Processor {
	p.metrics = m
	return p
}

// Queue exposes the job sequences, e.g. for journal subscription.
func (p *Processor) Queue() *Queue { return p.queue }

// Status returns the current snapshot.
func (p *Processor) Status() Status { return p.queue.Snapshot() }

// Done is closed when the processor stops.
func (p *Processor) Done() <-chan struct{} { return p.done }

// Submit hands a raw control line to the dispatch loop, blocking while the
// command buffer is full.
func (p *Processor) Submit(ctx context.Context, line string) error {
	select {
	case <-p.done:
		return ErrProcessorStopped
	default:
	}
	select {
	case p.commands <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrProcessorStopped
	}
}

// Enqueue accepts a job if its type is registered. Unknown types are
// recorded as rejected and never reach the waiting sequence.
func (p *Processor) Enqueue(job *Job) error {
	if !p.registry.Has(job.Type) {
		err := errors.NewInvalidJobTypeError(job.Type)
		p.queue.Reject(job.Type, err)
		p.metrics.descriptorRejected()
		return err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	p.queue.Enqueue(job)
	p.metrics.jobAccepted(job.Type, p.queue.Len())
	p.log.Infow("Job accepted",
		logger.FieldJobLabel, job.Label(),
		logger.FieldJobType, job.Type,
		logger.FieldRetries, job.Retries,
	)
	return nil
}

// Run ticks until Kill or ctx cancellation. Both close the store. Kill
// returns nil; cancellation returns ctx.Err().
func (p *Processor) Run(ctx context.Context) error {
	logger.PulseOpenInfow(p.log, "DbOps processor started",
		"poll_interval", p.cfg.PollInterval.String(),
		"handlers", p.registry.Names(),
	)
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.shutdown("context cancelled")
			return ctx.Err()
		case <-ticker.C:
			if p.Tick(ctx) {
				return nil
			}
		}
	}
}

// Tick performs one dispatch step: at most one control command, then at
// most one job attempt. It returns true after Kill.
func (p *Processor) Tick(ctx context.Context) (killed bool) {
	select {
	case line := <-p.commands:
		if p.HandleCommand(line) {
			return true
		}
	default:
	}
	p.Step(ctx)
	return false
}

// HandleCommand executes one control line and returns true after Kill.
func (p *Processor) HandleCommand(line string) (killed bool) {
	cmd := ParseCommand(line)
	p.log.Debugw("Control command", logger.FieldCommand, cmd.Kind.String())

	switch cmd.Kind {
	case CommandKill:
		p.out.Respond(KillingResponse())
		p.shutdown("kill command")
		return true

	case CommandPing:
		p.out.Respond(PongResponse())

	case CommandJobs:
		resp, err := JobsResponse(p.Status())
		if err != nil {
			p.log.Errorw("Failed to render job status", logger.FieldError, err)
			return false
		}
		p.out.Respond(resp)

	case CommandNewJob:
		job, err := ParseDescriptor(cmd.Payload)
		if err != nil {
			p.queue.Reject(cmd.Payload, err)
			p.metrics.descriptorRejected()
			p.log.Warnw("Rejected malformed job descriptor", logger.FieldError, err)
			p.out.Respond(RejectedResponse(err))
			return false
		}
		if err := p.Enqueue(job); err != nil {
			p.log.Warnw("Rejected job", logger.FieldJobType, job.Type, logger.FieldError, err)
			p.out.Respond(RejectedResponse(err))
			return false
		}
		p.out.Respond(AcceptedResponse(job))

	default:
		p.out.Respond(UnknownResponse(cmd.Line))
	}
	return false
}

// Step attempts the head job once. It returns false when nothing is waiting.
func (p *Processor) Step(ctx context.Context) bool {
	job := p.queue.Head()
	if job == nil {
		return false
	}
	job.Attempts++
	log := p.log.With(logger.FieldJobLabel, job.Label(), logger.FieldJobType, job.Type)

	start := time.Now()
	err := p.execute(ctx, job)
	log = log.With(logger.FieldDurationMS, time.Since(start).Milliseconds())

	switch {
	case err == nil:
		p.mustTransition(p.queue.Complete(job))
		p.metrics.jobCompleted(job.Type, p.queue.Len())
		logger.PulseInfow(log, "Job completed")
		p.out.Respond(CompletedResponse(job))

	case isRetryable(err):
		if p.queue.Retry(job, err) {
			p.metrics.jobRetried(job.Type)
			log.Warnw("Job will be retried", logger.FieldRetries, job.Retries, logger.FieldError, err)
			p.out.Respond(RetryingResponse(job, err))
			return true
		}
		p.failJob(log, job, err)

	default:
		err = errors.Mark(err, errors.ErrFatalHandler)
		log.Errorw("Fatal job error", logger.FieldError, err)
		p.out.Respond(FatalResponse(job, err))
		p.failJob(log, job, err)
	}
	return true
}

func (p *Processor) failJob(log *zap.SugaredLogger, job *Job, err error) {
	p.mustTransition(p.queue.Fail(job, err))
	p.metrics.jobFailed(job.Type, p.queue.Len())
	log.Warnw("Job failed", "attempts", job.Attempts, logger.FieldError, err)
	p.out.Respond(FailedResponse(job, err))
}

// mustTransition panics on queue invariant violations: only the loop pops
// the head, so a mismatch is a programming error.
func (p *Processor) mustTransition(err error) {
	if err != nil {
		panic(err)
	}
}

// execute runs the handler, turning a panic into a fatal job error.
func (p *Processor) execute(ctx context.Context, job *Job) (err error) {
	handler := p.registry.Get(job.Type)
	if handler == nil {
		return errors.NewInvalidJobTypeError(job.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("handler %s panicked: %v", job.Type, r)
		}
	}()
	if err := handler.Execute(ctx, job); err != nil {
		return errors.WithDetailf(err, "job: %s", job.Label())
	}
	return nil
}

func (p *Processor) shutdown(reason string) {
	p.doneOnce.Do(func() {
		if p.store != nil {
			if err := p.store.Close(); err != nil {
				p.log.Errorw("Failed to close candidate store", logger.FieldError, err)
			}
		}
		close(p.done)
		logger.PulseCloseInfow(p.log, "DbOps processor stopped",
			"reason", reason,
			"waiting", p.queue.Len(),
			"current", p.queue.Snapshot().Current,
		)
	})
}
