package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/netdiag/internal/model"
)

// Default polling cadence for the distributed measurement.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollDeadline = 30 * time.Second
)

// ErrCancelled is returned when a session is cancelled before reaching
// a verdict.
var ErrCancelled = errors.New("session cancelled")

// LocalCheckError reports that the initiating local check failed; the
// session never reached the polling phase. The submit failure is
// available via Unwrap.
type LocalCheckError struct {
	Domain string
	Err    error
}

func (e *LocalCheckError) Error() string {
	return fmt.Sprintf("local check for %q: %v", e.Domain, e.Err)
}

func (e *LocalCheckError) Unwrap() error { return e.Err }

// LocalCheck submits a domain to the local-check collaborator and
// returns its report.
type LocalCheck interface {
	Submit(ctx context.Context, domain string) (model.Report, error)
}

// Options are the tunables a session recognizes. Zero values fall back
// to the defaults.
type Options struct {
	PollInterval time.Duration
	PollDeadline time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.PollDeadline <= 0 {
		o.PollDeadline = DefaultPollDeadline
	}
	return o
}

// UpdateFunc receives the merged state and its verdict after every
// merge, and once more at finalization. Calls are synchronous and in
// merge order; a consumer never observes an older state after a newer
// one.
type UpdateFunc func(State, Verdict)

// Runner orchestrates diagnostic sessions. A single Runner is safe for
// concurrent use; each session owns its state exclusively.
type Runner struct {
	local  LocalCheck
	source MeasurementSource
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner creates a Runner. Pass nil logger to use the default.
func NewRunner(local LocalCheck, source MeasurementSource, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		local:  local,
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// Run executes one diagnostic session to its terminal condition and
// returns the final state and verdict. onUpdate may be nil.
//
// Timeout of the distributed measurement is not an error: the session
// finalizes with whatever verdict the collected data supports. Run
// returns an error only for a failed submission (*LocalCheckError) or
// cancellation (ErrCancelled).
func (r *Runner) Run(ctx context.Context, domain string, opts Options, onUpdate UpdateFunc) (State, Verdict, error) {
	if domain == "" {
		return State{}, "", &LocalCheckError{Domain: domain, Err: errors.New("domain must not be empty")}
	}
	opts = opts.withDefaults()
	if onUpdate == nil {
		onUpdate = func(State, Verdict) {}
	}

	rep, err := r.local.Submit(ctx, domain)
	if err != nil {
		if ctx.Err() != nil {
			return State{}, "", ErrCancelled
		}
		return State{}, "", &LocalCheckError{Domain: domain, Err: err}
	}

	st := Initial(rep, r.now())
	verdict := Classify(st)
	onUpdate(st, verdict)

	if rep.Measurement == nil {
		// No distributed measurement was scheduled; finalize on the
		// local data alone.
		r.logger.Info("session finalized without measurement",
			"domain", domain,
			"verdict", verdict,
		)
		onUpdate(st, verdict)
		return st, verdict, nil
	}

	r.logger.Info("session awaiting probes",
		"domain", domain,
		"measurement_id", rep.Measurement.ID,
		"interval", opts.PollInterval,
		"deadline", opts.PollDeadline,
	)

	poller := NewPoller(r.source, opts.PollInterval, opts.PollDeadline, r.logger)
	for snap := range poller.Run(ctx, *rep.Measurement) {
		st = Merge(st, snap, r.now())
		verdict = Classify(st)
		onUpdate(st, verdict)
	}

	if ctx.Err() != nil {
		return st, verdict, ErrCancelled
	}

	verdict = Classify(st)
	onUpdate(st, verdict)
	r.logger.Info("session finalized",
		"domain", domain,
		"verdict", verdict,
		"probes", len(st.Probes),
		"complete", st.ProbesComplete,
	)
	return st, verdict, nil
}

// Session is a handle to a session started with Start.
type Session struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	verdict Verdict
	err     error
}

// Cancel stops the session. Polling halts within one tick and the
// session ends with ErrCancelled.
func (s *Session) Cancel() { s.cancel() }

// Done is closed when the session reaches a terminal condition.
func (s *Session) Done() <-chan struct{} { return s.done }

// Result blocks until the session terminates and returns its final
// state, verdict, and error.
func (s *Session) Result() (State, Verdict, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.verdict, s.err
}

// Start launches a session in its own goroutine and returns a handle
// for cancellation and completion. onUpdate may be nil.
func (r *Runner) Start(ctx context.Context, domain string, opts Options, onUpdate UpdateFunc) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer cancel()
		st, v, err := r.Run(ctx, domain, opts, onUpdate)
		s.mu.Lock()
		s.state, s.verdict, s.err = st, v, err
		s.mu.Unlock()
		close(s.done)
	}()
	return s
}
