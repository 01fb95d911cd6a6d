// Package retry runs an operation under exponential backoff with jitter.
// The first attempt is immediate; attempt n (n >= 1) waits
// InitialDelay*2^(n-1) plus a random jitter in [0, JitterMax).
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, back off and try again
	Abort               // cancellation, return the error untouched
)

// State describes the retry that is about to be scheduled.
type State struct {
	Attempt   int // 1-based index of the retry being scheduled
	NextDelay time.Duration
	Err       error
}

type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	JitterMax    time.Duration
	// Jitter returns a value in [0, max). Defaults to a uniform random draw.
	Jitter  func(max time.Duration) time.Duration
	Clock   clockwork.Clock
	OnRetry func(State)
}

type Classify func(err error) Action
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Delay returns the wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	base := p.InitialDelay << attempt
	if p.JitterMax <= 0 {
		return base
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = uniformJitter
	}
	return base + jitter(p.JitterMax)
}

func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	if p.MaxRetries < 0 {
		return zero, fmt.Errorf("retry: MaxRetries must be >= 0, got %d", p.MaxRetries)
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, &CancelledError{Attempts: attempt, Err: err}
		}

		val, err := op(ctx, attempt)
		if err == nil {
			return val, nil
		}

		switch classify(err) {
		case Abort:
			return zero, err
		case Stop:
			return zero, &PermanentError{Err: err}
		}

		if attempt >= p.MaxRetries {
			return zero, &ExhaustedError{Attempts: attempt + 1, Err: err}
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(State{Attempt: attempt + 1, NextDelay: delay, Err: err})
		}

		timer := clock.NewTimer(delay)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return zero, &CancelledError{Attempts: attempt + 1, Err: ctx.Err()}
		}
	}
}

func uniformJitter(max time.Duration) time.Duration {
	return time.Duration(rand.Int64N(int64(max)))
}

// PermanentError wraps an error the classifier refused to retry.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// ExhaustedError is returned once every allowed attempt failed transiently.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}
func (e *ExhaustedError) Unwrap() error { return e.Err }

// CancelledError is returned when ctx ends before or between attempts.
type CancelledError struct {
	Attempts int
	Err      error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("context cancelled during retry: %v", e.Err)
}
func (e *CancelledError) Unwrap() error { return e.Err }
