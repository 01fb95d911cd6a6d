package rpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"attendance/internal/rpc/models"
	"attendance/pkg/platform/retry"
	dErrors "attendance/pkg/domain-errors"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
	DefaultJitterMax    = time.Second
)

// Invoker is the single-call surface the scheduler drives.
type Invoker interface {
	Invoke(ctx context.Context, req models.Request) (*models.Result, error)
}

// Scheduler retries transient invocation failures with exponential backoff.
type Scheduler struct {
	invoker      Invoker
	initialDelay time.Duration
	jitterMax    time.Duration
	jitter       func(time.Duration) time.Duration
	timeout      time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
	retries      interface{ IncrementRetries(string) }
}

type SchedulerOption func(*Scheduler)

func WithBackoff(initial, jitterMax time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.initialDelay = initial
		s.jitterMax = jitterMax
	}
}

// WithJitter replaces the uniform jitter draw. Tests use it to pin delays.
func WithJitter(fn func(max time.Duration) time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.jitter = fn
	}
}

func WithCallTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

func WithSchedulerClock(clock clockwork.Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithRetryCounter(counter interface{ IncrementRetries(string) }) SchedulerOption {
	return func(s *Scheduler) {
		s.retries = counter
	}
}

func NewScheduler(invoker Invoker, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		invoker:      invoker,
		initialDelay: DefaultInitialDelay,
		jitterMax:    DefaultJitterMax,
		clock:        clockwork.NewRealClock(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CallWithRetry invokes function, retrying timeouts and transport failures up
// to maxRetries times. Exhaustion yields a Terminal error; cancellation at any
// point yields an Aborted error with no further attempts. Business replies
// (including status=error) are returned as results and never retried.
func (s *Scheduler) CallWithRetry(ctx context.Context, function string, params []any, maxRetries int, observer models.ProgressObserver) (*models.Result, error) {
	policy := retry.Policy{
		MaxRetries:   maxRetries,
		InitialDelay: s.initialDelay,
		JitterMax:    s.jitterMax,
		Jitter:       s.jitter,
		Clock:        s.clock,
		OnRetry: func(st retry.State) {
			if s.retries != nil {
				s.retries.IncrementRetries(function)
			}
			s.logger.DebugContext(ctx, "scheduling retry",
				"function", function,
				"attempt", st.Attempt,
				"delay_ms", st.NextDelay.Milliseconds(),
			)
			if observer != nil {
				observer(function, models.RetryState{Attempt: st.Attempt, NextDelay: st.NextDelay})
			}
		},
	}

	res, err := retry.Do(ctx, policy, classify, func(ctx context.Context, _ int) (*models.Result, error) {
		return s.invoker.Invoke(ctx, models.Request{
			FunctionName: function,
			Parameters:   params,
			Timeout:      s.timeout,
		})
	})
	if err == nil {
		return res, nil
	}
	return nil, translate(err)
}

func classify(err error) retry.Action {
	switch {
	case dErrors.HasCode(err, dErrors.CodeAborted):
		return retry.Abort
	case dErrors.IsTransient(err):
		return retry.Retry
	default:
		return retry.Stop
	}
}

func translate(err error) error {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return dErrors.Wrap(exhausted, dErrors.CodeTerminal, "network unstable, try later")
	}
	var cancelled *retry.CancelledError
	if errors.As(err, &cancelled) {
		return dErrors.Wrap(cancelled.Err, dErrors.CodeAborted, "operation cancelled")
	}
	var permanent *retry.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
