// Package rpc performs correlated remote invocations against the attendance
// backend and retries transient failures with exponential backoff.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"attendance/internal/rpc/metrics"
	"attendance/internal/rpc/models"
	"attendance/pkg/platform/correlation"
	dErrors "attendance/pkg/domain-errors"
)

const defaultTimeout = 30 * time.Second

// Transport delivers one envelope to the backend and returns its reply.
// Implementations must honor ctx cancellation; correlation mechanics beyond
// the envelope id are their own business.
type Transport interface {
	Deliver(ctx context.Context, env models.Envelope) (*models.Result, error)
}

type outcome struct {
	result *models.Result
	err    error
}

// Client performs single correlated calls. Each call owns an ephemeral reply
// channel registered under its correlation id and removed on settlement, so a
// late reply from a timed-out call is dropped instead of leaking into the next.
type Client struct {
	transport Transport
	monitor   *Monitor
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     clockwork.Clock
	tracer    trace.Tracer
	timeout   time.Duration

	mu      sync.Mutex
	pending map[string]chan outcome
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithMonitor(m *Monitor) Option {
	return func(c *Client) {
		c.monitor = m
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithDefaultTimeout applies to requests that carry no timeout of their own.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		logger:    slog.Default(),
		clock:     clockwork.NewRealClock(),
		tracer:    otel.Tracer("attendance/rpc"),
		timeout:   defaultTimeout,
		pending:   make(map[string]chan outcome),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.monitor == nil {
		c.monitor = NewMonitor(WithMonitorMetrics(c.metrics))
	}
	return c
}

// Monitor exposes the rolling network-quality estimate.
func (c *Client) Monitor() *Monitor {
	return c.monitor
}

// PendingCalls returns the number of registered reply channels.
func (c *Client) PendingCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Invoke performs one call. It returns an Aborted error when ctx ends, a
// Timeout error when req.Timeout elapses first, and a Transport error for
// delivery failures. A status=error reply is returned as a Result, not an
// error: the caller decides whether it is a business rejection.
func (c *Client) Invoke(ctx context.Context, req models.Request) (*models.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAborted, "operation cancelled")
	}

	id := correlation.NewID()
	ctx = correlation.WithID(ctx, id)
	ctx, span := c.tracer.Start(ctx, "rpc.invoke", trace.WithAttributes(
		attribute.String("rpc.function", req.FunctionName),
		attribute.String("rpc.correlation_id", id),
	))
	defer span.End()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	replies := c.register(id)
	defer c.unregister(id)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := c.clock.Now()
	env := models.Envelope{
		CorrelationID: id,
		FunctionName:  req.FunctionName,
		Parameters:    req.Parameters,
	}
	c.logger.DebugContext(ctx, "invoking remote function", "function", req.FunctionName)
	go func() {
		res, err := c.transport.Deliver(callCtx, env)
		c.deliver(id, outcome{result: res, err: err})
	}()

	timer := c.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		c.finish(ctx, span, req.FunctionName, "aborted", start, nil)
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeAborted, "operation cancelled")

	case <-timer.Chan():
		err := dErrors.New(dErrors.CodeTimeout, "request timed out: server responded too slowly")
		c.monitor.Record(c.clock.Since(start), false)
		c.finish(ctx, span, req.FunctionName, "timeout", start, err)
		return nil, err

	case o := <-replies:
		return c.settle(ctx, span, req.FunctionName, start, o)
	}
}

func (c *Client) settle(ctx context.Context, span trace.Span, function string, start time.Time, o outcome) (*models.Result, error) {
	elapsed := c.clock.Since(start)

	if o.err != nil {
		if ctx.Err() != nil {
			c.finish(ctx, span, function, "aborted", start, nil)
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeAborted, "operation cancelled")
		}
		var de *dErrors.Error
		if errors.As(o.err, &de) && de.Code == dErrors.CodeConfigMissing {
			c.finish(ctx, span, function, "config_missing", start, o.err)
			return nil, o.err
		}
		err := dErrors.Wrap(o.err, dErrors.CodeTransport, "request failed: check the network connection")
		c.monitor.Record(elapsed, false)
		c.finish(ctx, span, function, "transport", start, err)
		return nil, err
	}

	if !o.result.Valid() {
		err := dErrors.New(dErrors.CodeTransport, "malformed reply")
		c.monitor.Record(elapsed, false)
		c.finish(ctx, span, function, "transport", start, err)
		return nil, err
	}

	c.monitor.Record(elapsed, true)
	span.SetAttributes(attribute.String("rpc.status", string(o.result.Status)))
	c.finish(ctx, span, function, "success", start, nil)
	return o.result, nil
}

func (c *Client) finish(ctx context.Context, span trace.Span, function, result string, start time.Time, err error) {
	elapsed := c.clock.Since(start)
	c.metrics.ObserveInvocation(function, result, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		c.logger.WarnContext(ctx, "remote invocation failed",
			"function", function,
			"outcome", result,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return
	}
	c.logger.DebugContext(ctx, "remote invocation settled",
		"function", function,
		"outcome", result,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func (c *Client) register(id string) <-chan outcome {
	ch := make(chan outcome, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return ch
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// deliver hands a reply to its waiting call. Replies for calls that already
// settled find no channel and are dropped.
func (c *Client) deliver(id string, o outcome) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- o:
	default:
	}
}
