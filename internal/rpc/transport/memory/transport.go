// Package memory is a deterministic in-process transport. Replies are
// scripted per function; the last scripted step repeats once the script runs out.
package memory

import (
	"context"
	"fmt"
	"sync"

	"attendance/internal/rpc/models"
)

// Step produces the reply for one delivery.
type Step func(ctx context.Context, env models.Envelope) (*models.Result, error)

type Transport struct {
	mu      sync.Mutex
	scripts map[string][]Step
	calls   []models.Envelope
}

func New() *Transport {
	return &Transport{scripts: make(map[string][]Step)}
}

// On appends steps to the script of function.
func (t *Transport) On(function string, steps ...Step) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts[function] = append(t.scripts[function], steps...)
	return t
}

func (t *Transport) Deliver(ctx context.Context, env models.Envelope) (*models.Result, error) {
	t.mu.Lock()
	t.calls = append(t.calls, env)
	script := t.scripts[env.FunctionName]
	var step Step
	switch len(script) {
	case 0:
	case 1:
		step = script[0]
	default:
		step = script[0]
		t.scripts[env.FunctionName] = script[1:]
	}
	t.mu.Unlock()

	if step == nil {
		return nil, fmt.Errorf("memory transport: no script for %q", env.FunctionName)
	}
	return step(ctx, env)
}

// Calls returns every delivered envelope in order.
func (t *Transport) Calls() []models.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Envelope, len(t.calls))
	copy(out, t.calls)
	return out
}

// CallCount returns how many times function was delivered.
func (t *Transport) CallCount(function string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.FunctionName == function {
			n++
		}
	}
	return n
}

// Respond replies with res.
func Respond(res *models.Result) Step {
	return func(context.Context, models.Envelope) (*models.Result, error) {
		copied := *res
		return &copied, nil
	}
}

// Success replies status=success with the given payload fields.
func Success(payload map[string]any) Step {
	return Respond(&models.Result{Status: models.StatusSuccess, Payload: payload})
}

// Reject replies status=error with a business code and message.
func Reject(code, message string) Step {
	return Respond(&models.Result{
		Status:  models.StatusError,
		Error:   code,
		Message: message,
		Payload: map[string]any{"status": "error", "error": code, "message": message},
	})
}

// Fail returns err as a delivery failure.
func Fail(err error) Step {
	return func(context.Context, models.Envelope) (*models.Result, error) {
		return nil, err
	}
}

// Hang never replies; it returns only when the delivery context ends.
func Hang() Step {
	return func(ctx context.Context, _ models.Envelope) (*models.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

// Gate blocks until release is closed, then replies with res.
func Gate(release <-chan struct{}, res *models.Result) Step {
	return func(ctx context.Context, _ models.Envelope) (*models.Result, error) {
		select {
		case <-release:
			copied := *res
			return &copied, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
