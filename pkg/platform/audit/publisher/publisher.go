// Package publisher emits audit events synchronously or through a bounded
// async buffer, diverting to a fallback store while the primary is failing.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"attendance/pkg/platform/audit"
	"attendance/pkg/platform/audit/worker"
	"attendance/pkg/platform/circuit"
)

var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	primary  audit.Store
	fallback audit.Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
	clock    clockwork.Clock

	breakerCooldown time.Duration

	bufferSize int
	inbox      chan audit.Event
	done       chan struct{}
	closeOnce  sync.Once
	closeMu    sync.RWMutex
	closed     bool
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

// WithFallback receives events the primary store rejected, and every event
// while the primary's circuit is open.
func WithFallback(store audit.Store) Option {
	return func(p *Publisher) {
		p.fallback = store
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(p *Publisher) {
		p.clock = clock
	}
}

// WithCircuitCooldown sets how long the primary is skipped after its circuit
// opens before a single trial event is sent to it.
func WithCircuitCooldown(d time.Duration) Option {
	return func(p *Publisher) {
		p.breakerCooldown = d
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		primary: store,
		logger:  slog.Default(),
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.breaker = circuit.New("audit",
		circuit.WithFailureThreshold(3),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(p.breakerCooldown),
		circuit.WithClock(p.clock),
	)
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(storeFunc(p.append), p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event, stamping ID and Timestamp when absent. In async mode it
// never blocks: a full buffer returns ErrBufferFull.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock.Now()
	}
	if p.inbox == nil {
		return p.append(ctx, event)
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return errors.New("audit publisher closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit buffer full, event dropped", "action", event.Action)
		return ErrBufferFull
	}
}

// Close drains the async buffer.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		p.closeMu.Lock()
		p.closed = true
		close(p.inbox)
		p.closeMu.Unlock()
		<-p.done
	})
}

// append writes to the primary unless its circuit is open and a fallback is
// available, in which case the event goes straight to the fallback.
func (p *Publisher) append(ctx context.Context, event audit.Event) error {
	if p.fallback != nil && !p.breaker.Allow() {
		if err := p.fallback.Append(ctx, event); err != nil {
			return fmt.Errorf("append audit event to fallback: %w", err)
		}
		return nil
	}

	err := p.primary.Append(ctx, event)
	if err == nil {
		if _, change := p.breaker.RecordSuccess(); change.Closed {
			p.logger.InfoContext(ctx, "audit store recovered")
		}
		return nil
	}

	_, change := p.breaker.RecordFailure()
	if change.Opened {
		p.logger.WarnContext(ctx, "audit store failing, diverting to fallback", "error", err)
	}
	if p.fallback == nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	if ferr := p.fallback.Append(ctx, event); ferr != nil {
		return errors.Join(err, ferr)
	}
	return nil
}

type storeFunc func(context.Context, audit.Event) error

func (f storeFunc) Append(ctx context.Context, e audit.Event) error {
	return f(ctx, e)
}
