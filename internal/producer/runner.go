package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/telemetry"
)

// errors
var (
	ErrProducerDead   = errors.New("producer stopped after repeated failures")
	ErrAlreadyStarted = errors.New("producer already started")
)

// Worker is the producer specific part driven by a Runner.
// All methods are called from the runner goroutine only.
type Worker interface {
	// Start prepares the external session. A failure is fatal.
	Start(ctx context.Context) error
	// Poll fetches once and pushes new messages to the producer queue.
	Poll(ctx context.Context) error
	// Restart tears the session down and builds a fresh one.
	Restart(ctx context.Context) error
	// Interval is the delay before the next poll.
	Interval() time.Duration
}

// Options configures a Runner.
type Options struct {
	Source         models.Source
	MaxErrors      int
	ResetOnSuccess bool

	// StopGrace is how long Stop lets an in-flight poll notice the signal
	// before Release is called.
	StopGrace time.Duration
	// JoinTimeout bounds how long Stop waits for the goroutine afterwards.
	JoinTimeout time.Duration
	// Release force-closes the external resource held by the worker.
	Release func() error
}

// Runner runs a Worker on its own goroutine with the escalation policy:
// errors are counted, the first time the count reaches MaxErrors the worker
// is restarted, the second time the producer stops for good.
type Runner struct {
	worker Worker
	opts   Options
	esc    *Escalation
	log    *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	err     error
	done    chan struct{}

	releaseOnce sync.Once
}

// NewRunner creates a runner for w.
func NewRunner(w Worker, opts Options, log *logger.Logger) *Runner {
	if opts.StopGrace <= 0 {
		opts.StopGrace = 2 * time.Second
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 10 * time.Second
	}
	return &Runner{
		worker: w,
		opts:   opts,
		esc:    NewEscalation(opts.MaxErrors, opts.ResetOnSuccess),
		log:    log.Component(string(opts.Source)),
		done:   make(chan struct{}),
	}
}

// Go starts the runner on a new goroutine.
func (r *Runner) Go(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		_ = r.run(ctx)
	}()
	return nil
}

// Run runs the loop on the calling goroutine until ctx is cancelled or the
// producer dies. It returns nil on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	return r.run(ctx)
}

func (r *Runner) run(ctx context.Context) error {
	defer close(r.done)
	src := string(r.opts.Source)
	telemetry.SetProducerState(src, string(StateInit))

	if err := r.worker.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return r.stopped()
		}
		return r.die(fmt.Errorf("start: %w", err))
	}
	_ = r.esc.Transition(StateRunning)
	telemetry.SetProducerState(src, string(StateRunning))
	r.log.Info().Msg("producer running")

	for {
		if ctx.Err() != nil {
			return r.stopped()
		}

		err := r.worker.Poll(ctx)
		switch {
		case err == nil:
			r.esc.Success()
		case ctx.Err() != nil:
			return r.stopped()
		default:
			telemetry.ProducerError(src)
			errCount := r.esc.Errors() + 1
			action := r.esc.Failure()
			r.log.Warn().
				Err(err).
				Int("errors", errCount).
				Str("action", action.String()).
				Msg("poll failed")

			switch action {
			case ActionRestart:
				telemetry.SetProducerState(src, string(StateRestarting))
				r.log.Error().Int("errors", errCount).Msg("max errors reached, restarting producer")
				if rerr := r.worker.Restart(ctx); rerr != nil {
					if ctx.Err() != nil {
						return r.stopped()
					}
					return r.die(fmt.Errorf("restart: %w", rerr))
				}
				r.esc.RestartDone()
				telemetry.ProducerRestart(src)
				r.log.Info().Msg("producer restarted")
			case ActionStop:
				return r.die(err)
			}
			telemetry.SetProducerState(src, string(r.esc.State()))
		}

		if !sleep(ctx, r.worker.Interval()) {
			return r.stopped()
		}
	}
}

func (r *Runner) stopped() error {
	r.esc.Stop()
	telemetry.SetProducerState(string(r.opts.Source), string(StateStopped))
	r.log.Info().Msg("producer stopped")
	return nil
}

func (r *Runner) die(cause error) error {
	r.esc.Stop()
	err := fmt.Errorf("%w: %s: %v", ErrProducerDead, r.opts.Source, cause)

	r.mu.Lock()
	r.err = err
	r.mu.Unlock()

	telemetry.SetProducerState(string(r.opts.Source), string(StateStopped))
	r.log.Error().
		Err(cause).
		Bool("restarted", r.esc.Restarted()).
		Msg("producer failed permanently")
	return err
}

// Stop signals termination, gives an in-flight poll StopGrace to notice,
// force-releases the external resource and joins the goroutine with a bounded
// wait. It is safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	started := r.started
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.log.Info().Msg("stop signalled")

	if started {
		select {
		case <-r.done:
		case <-time.After(r.opts.StopGrace):
		}
	}

	r.release()

	if !started {
		return
	}
	select {
	case <-r.done:
	case <-time.After(r.opts.JoinTimeout):
		r.log.Warn().Dur("timeout", r.opts.JoinTimeout).Msg("producer did not exit in time")
	}
}

func (r *Runner) release() {
	if r.opts.Release == nil {
		return
	}
	r.releaseOnce.Do(func() {
		if err := r.opts.Release(); err != nil {
			r.log.Warn().Err(err).Msg("failed to release producer resources")
		}
	})
}

// Done is closed when the runner goroutine exits.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Err returns the terminal error, nil while running or after a clean stop.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// State returns the lifecycle state.
func (r *Runner) State() State {
	return r.esc.State()
}

// Errors returns the current error count.
func (r *Runner) Errors() int {
	return r.esc.Errors()
}

// Source returns the producer's source tag.
func (r *Runner) Source() models.Source {
	return r.opts.Source
}

// sleep waits for d or until ctx is done; it reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
