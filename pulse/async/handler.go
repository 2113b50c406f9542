package async

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teranos/maestro/errors"
)

// JobHandler executes one job type. Domain packages implement it so the
// processor never needs to know what a job does.
//
// Execute returns nil for success. Errors marked transient (errors.MarkTransient)
// or with ErrIncomplete are retried while the job has budget; anything else
// fails the job immediately. A handler that made partial progress should trim
// job.Arguments to the remaining work before returning.
type JobHandler interface {
	Execute(ctx context.Context, job *Job) error
	Name() string
}

// ErrIncomplete marks a non-success result that is not a failure: the handler
// ran but could not finish and wants another attempt.
var ErrIncomplete = errors.New("job incomplete")

// Incomplete returns an ErrIncomplete-marked error with a reason.
func Incomplete(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrIncomplete)
}

// HandlerFunc adapts a function to JobHandler.
type HandlerFunc struct {
	JobType string
	Fn      func(ctx context.Context, job *Job) error
}

func (h HandlerFunc) Execute(ctx context.Context, job *Job) error { return h.Fn(ctx, job) }
func (h HandlerFunc) Name() string { return h.JobType }

// HandlerRegistry maps job types to handlers. Safe for concurrent use.
type HandlerRegistry struct {
	handlers map[string]JobHandler
	mu       sync.RWMutex
}

// NewHandlerRegistry creates an empty handler registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]JobHandler)}
}

// Register adds a handler under its name.
// Panics if a handler is already registered with that name.
func (r *HandlerRegistry) Register(handler JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := handler.Name()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("handler already registered for job type: %s", name))
	}
	r.handlers[name] = handler
}

// RegisterAll registers each handler in order.
func (r *HandlerRegistry) RegisterAll(handlers ...JobHandler) {
	for _, h := range handlers {
		r.Register(h)
	}
}

// Get returns the handler for a job type, or nil.
func (r *HandlerRegistry) Get(jobType string) JobHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[jobType]
}

// Has checks if a handler is registered for a job type.
func (r *HandlerRegistry) Has(jobType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[jobType]
	return exists
}

// Names returns the registered job types, sorted.
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isRetryable reports whether a handler error should spend retry budget
// rather than fail the job outright.
func isRetryable(err error) bool {
	return errors.IsTransient(err) || errors.Is(err, ErrIncomplete)
}
