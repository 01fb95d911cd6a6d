// Package coordinator serializes attendance actions. One global busy flag
// admits a single operation at a time; each trigger additionally cools down
// for a fixed window after its own operation settles.
package coordinator

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"attendance/internal/coordinator/metrics"
	dErrors "attendance/pkg/domain-errors"
)

// Trigger names a UI surface that starts an operation.
type Trigger string

const (
	TriggerClockIn  Trigger = "btnOn"
	TriggerClockOut Trigger = "btnOff"
	TriggerTest     Trigger = "btnTest"
	TriggerSchedule Trigger = "btnSchedule"
	TriggerNotice   Trigger = "btnNotice"
	TriggerManager  Trigger = "btnManager"
	TriggerQuery    Trigger = "btnQuery"
	TriggerForm     Trigger = "btnForm"
)

const DefaultCooldown = 5 * time.Second

// DefaultCooldowns is the per-trigger cooldown table.
func DefaultCooldowns() map[Trigger]time.Duration {
	return map[Trigger]time.Duration{
		TriggerClockIn:  3 * time.Second,
		TriggerClockOut: 3 * time.Second,
		TriggerTest:     3 * time.Second,
		TriggerSchedule: 3 * time.Second,
		TriggerNotice:   3 * time.Second,
		TriggerManager:  3 * time.Second,
		TriggerQuery:    5 * time.Second,
		TriggerForm:     5 * time.Second,
	}
}

// Surface is the UI collaborator. BusyChanged toggles every competing
// trigger; TriggerChanged toggles one trigger for its cooldown. A trigger is
// usable only while both allow it.
type Surface interface {
	BusyChanged(busy bool)
	TriggerChanged(trigger Trigger, enabled bool)
}

// Lock is the single live operation. Release is idempotent.
type Lock struct {
	OwnerID    string
	Trigger    Trigger
	AcquiredAt time.Time

	once sync.Once
	c    *Coordinator
}

// Release clears the busy flag and starts the trigger's cooldown. Only the
// first call has any effect.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.c.release(l)
	})
}

// State is a point-in-time view for the UI collaborator.
type State struct {
	Busy       bool      `json:"busy"`
	Owner      string    `json:"owner,omitempty"`
	Trigger    Trigger   `json:"trigger,omitempty"`
	AcquiredAt time.Time `json:"acquiredAt,omitempty"`
	Cooling    []Trigger `json:"cooling"`
}

type Coordinator struct {
	mu              sync.Mutex
	current         *Lock
	cooling         map[Trigger]*cooldown
	cooldowns       map[Trigger]time.Duration
	defaultCooldown time.Duration
	surface         Surface
	clock           clockwork.Clock
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

type Option func(*Coordinator)

func WithSurface(s Surface) Option {
	return func(c *Coordinator) {
		c.surface = s
	}
}

// WithCooldowns overrides individual entries of the cooldown table.
func WithCooldowns(table map[Trigger]time.Duration) Option {
	return func(c *Coordinator) {
		for t, d := range table {
			c.cooldowns[t] = d
		}
	}
}

func WithDefaultCooldown(d time.Duration) Option {
	return func(c *Coordinator) {
		c.defaultCooldown = d
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		cooling:         make(map[Trigger]*cooldown),
		cooldowns:       DefaultCooldowns(),
		defaultCooldown: DefaultCooldown,
		surface:         noopSurface{},
		clock:           clockwork.NewRealClock(),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire takes the global lock for trigger. It fails with a Busy error while
// another operation runs or while trigger is cooling down.
func (c *Coordinator) Acquire(trigger Trigger) (*Lock, error) {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		c.metrics.IncrementAcquisition(string(trigger), "busy")
		return nil, dErrors.New(dErrors.CodeBusy, "another operation is in progress, please wait")
	}
	if _, cooling := c.cooling[trigger]; cooling {
		c.mu.Unlock()
		c.metrics.IncrementAcquisition(string(trigger), "cooling")
		return nil, dErrors.New(dErrors.CodeBusy, "please wait a moment before trying again")
	}
	lock := &Lock{
		OwnerID:    uuid.NewString(),
		Trigger:    trigger,
		AcquiredAt: c.clock.Now(),
		c:          c,
	}
	c.current = lock
	c.mu.Unlock()

	c.metrics.IncrementAcquisition(string(trigger), "acquired")
	c.metrics.SetBusy(true)
	c.surface.BusyChanged(true)
	c.logger.Debug("operation lock acquired", "trigger", trigger, "owner", lock.OwnerID)
	return lock, nil
}

// Run acquires the lock for trigger, runs fn and releases on every exit path.
func (c *Coordinator) Run(ctx context.Context, trigger Trigger, fn func(context.Context) error) error {
	lock, err := c.Acquire(trigger)
	if err != nil {
		return err
	}
	defer lock.Release()
	return fn(ctx)
}

func (c *Coordinator) release(l *Lock) {
	d := c.cooldownFor(l.Trigger)

	c.mu.Lock()
	if c.current == l {
		c.current = nil
	}
	if d > 0 {
		if prev, ok := c.cooling[l.Trigger]; ok {
			prev.timer.Stop()
		}
		cd := &cooldown{}
		trigger := l.Trigger
		cd.timer = c.clock.AfterFunc(d, func() { c.expire(trigger, cd) })
		c.cooling[trigger] = cd
	}
	c.mu.Unlock()

	held := c.clock.Since(l.AcquiredAt)
	c.metrics.ObserveHold(string(l.Trigger), held.Seconds())
	c.metrics.SetBusy(false)
	if d > 0 {
		c.surface.TriggerChanged(l.Trigger, false)
	}
	c.surface.BusyChanged(false)
	c.logger.Debug("operation lock released", "trigger", l.Trigger, "owner", l.OwnerID, "held_ms", held.Milliseconds())
}

// expire ends a cooldown. The trigger stays disabled if another operation has
// taken the lock in the meantime.
func (c *Coordinator) expire(trigger Trigger, cd *cooldown) {
	c.mu.Lock()
	if c.cooling[trigger] != cd {
		c.mu.Unlock()
		return
	}
	delete(c.cooling, trigger)
	busy := c.current != nil
	c.mu.Unlock()

	c.surface.TriggerChanged(trigger, !busy)
}

func (c *Coordinator) cooldownFor(trigger Trigger) time.Duration {
	if d, ok := c.cooldowns[trigger]; ok {
		return d
	}
	return c.defaultCooldown
}

// Busy reports whether an operation holds the lock.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Enabled reports whether trigger may start an operation now.
func (c *Coordinator) Enabled(trigger Trigger) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, cooling := c.cooling[trigger]
	return c.current == nil && !cooling
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{Cooling: make([]Trigger, 0, len(c.cooling))}
	if c.current != nil {
		st.Busy = true
		st.Owner = c.current.OwnerID
		st.Trigger = c.current.Trigger
		st.AcquiredAt = c.current.AcquiredAt
	}
	for t := range c.cooling {
		st.Cooling = append(st.Cooling, t)
	}
	sort.Slice(st.Cooling, func(i, j int) bool { return st.Cooling[i] < st.Cooling[j] })
	return st
}

type cooldown struct {
	timer clockwork.Timer
}

type noopSurface struct{}

func (noopSurface) BusyChanged(bool)             {}
func (noopSurface) TriggerChanged(Trigger, bool) {}
