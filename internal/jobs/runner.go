// Package jobs is an in-process durable-ish job runner: named events are
// routed to registered handlers, and a failing handler is re-invoked from the
// start until it succeeds or retries are exhausted (at-least-once semantics).
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnknownEvent is returned when no handler is registered for an event name
var ErrUnknownEvent = errors.New("no handler registered for event")

// ErrQueueFull is returned when the job queue cannot accept more events
var ErrQueueFull = errors.New("job queue is full")

// Handler processes one event payload. Handlers must tolerate being re-run
// from the top after a partial failure.
type Handler func(ctx context.Context, payload json.RawMessage) error

type event struct {
	name    string
	payload json.RawMessage
}

// Runner routes events to handlers on a fixed worker pool
type Runner struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	queue      chan event
	workers    int
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc

	onSuccess func(ctx context.Context)
	onFailure func(ctx context.Context)
}

// Option customizes a Runner
type Option func(*Runner)

// WithBackoff sets the base delay between handler retries
func WithBackoff(d time.Duration) Option {
	return func(r *Runner) { r.backoff = d }
}

// WithCompletionHooks installs callbacks fired after each job settles
func WithCompletionHooks(onSuccess, onFailure func(ctx context.Context)) Option {
	return func(r *Runner) {
		r.onSuccess = onSuccess
		r.onFailure = onFailure
	}
}

// NewRunner creates a runner with the given pool size and retry budget
func NewRunner(workers, maxRetries int, logger zerolog.Logger, opts ...Option) *Runner {
	if workers <= 0 {
		workers = 1
	}
	r := &Runner{
		handlers:   make(map[string]Handler),
		queue:      make(chan event, 256),
		workers:    workers,
		maxRetries: maxRetries,
		backoff:    time.Second,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs the handler for an event name; called at process start
func (r *Runner) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Start launches the worker pool
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(ctx)
	}
}

// Stop drains nothing; it cancels in-flight work and waits for workers
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Send enqueues a named event with a JSON payload
func (r *Runner) Send(name string, payload any) error {
	r.mu.RLock()
	_, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", name, err)
	}

	select {
	case r.queue <- event{name: name, payload: data}:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, name)
	}
}

func (r *Runner) work(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			r.process(ctx, ev)
		}
	}
}

// process re-invokes the whole handler from its start on failure, matching
// the at-least-once contract of a durable job runner.
func (r *Runner) process(ctx context.Context, ev event) {
	r.mu.RLock()
	handler := r.handlers[ev.name]
	r.mu.RUnlock()

	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
			r.logger.Warn().Str("event", ev.name).Int("attempt", attempt+1).Msg("retrying job")
		}

		if err = handler(ctx, ev.payload); err == nil {
			r.logger.Info().Str("event", ev.name).Msg("job completed")
			if r.onSuccess != nil {
				r.onSuccess(ctx)
			}
			return
		}
		r.logger.Error().Err(err).Str("event", ev.name).Msg("job handler failed")
	}

	r.logger.Error().Err(err).Str("event", ev.name).Int("retries", r.maxRetries).Msg("job abandoned after retries")
	if r.onFailure != nil {
		r.onFailure(ctx)
	}
}
