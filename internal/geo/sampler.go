// Package geo collects multiple positioning samples and reduces them to one
// consensus location with a confidence score.
package geo

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"attendance/internal/geo/metrics"
	"attendance/internal/geo/models"
	dErrors "attendance/pkg/domain-errors"
)

const (
	DefaultSampleCount    = 5
	DefaultSampleInterval = 300 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// ProgressFunc is called after each request settles with the number of
// settled requests so far.
type ProgressFunc func(settled, total int)

// Sampler issues positioning requests in index order, spaced by a fixed
// interval, and tolerates partial failure.
type Sampler struct {
	provider Provider
	clock    clockwork.Clock
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	progress ProgressFunc
}

type Option func(*Sampler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Sampler) {
		s.clock = clock
	}
}

// WithRequestTimeout bounds each positioning request individually.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sampler) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sampler) {
		s.metrics = m
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(s *Sampler) {
		s.progress = fn
	}
}

func NewSampler(provider Provider, opts ...Option) *Sampler {
	s := &Sampler{
		provider: provider,
		clock:    clockwork.NewRealClock(),
		timeout:  DefaultRequestTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type settled struct {
	sample models.Sample
	err    error
}

// Sample issues n requests interval apart and returns the successful samples
// sorted by ascending accuracy. It fails only when all n requests fail; the
// failure is PermissionDenied when any request was refused permission.
//
// When ctx ends, requests not yet issued are skipped and requests already
// issued are left to finish on their own; their results are discarded and
// Sample returns an Aborted error at once.
func (s *Sampler) Sample(ctx context.Context, n int, interval time.Duration) ([]models.Sample, error) {
	if n < 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "sample count must be at least 1")
	}
	if err := ctx.Err(); err != nil {
		return nil, aborted(err)
	}

	outcomes := make([]settled, n)
	detached := context.WithoutCancel(ctx)

	var mu sync.Mutex
	count := 0
	var g errgroup.Group

	issued := make(chan struct{})
	go func() {
		defer close(issued)
		for i := 0; i < n; i++ {
			if i > 0 && interval > 0 {
				timer := s.clock.NewTimer(interval)
				select {
				case <-timer.Chan():
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
			g.Go(func() error {
				outcomes[i] = s.request(detached, i)
				mu.Lock()
				count++
				done := count
				mu.Unlock()
				if s.progress != nil && ctx.Err() == nil {
					s.progress(done, n)
				}
				return nil
			})
		}
	}()

	done := make(chan struct{})
	go func() {
		<-issued
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.DebugContext(ctx, "sampling cancelled; in-flight requests detached")
		return nil, aborted(ctx.Err())
	}
	if ctx.Err() != nil {
		return nil, aborted(ctx.Err())
	}

	samples := make([]models.Sample, 0, n)
	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		samples = append(samples, o.sample)
	}
	s.metrics.ObserveSamples(len(samples))

	if len(samples) == 0 {
		return nil, aggregate(errs)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].AccuracyMeters < samples[j].AccuracyMeters
	})
	s.logger.DebugContext(ctx, "sampling settled", "requested", n, "succeeded", len(samples))
	return samples, nil
}

func (s *Sampler) request(ctx context.Context, index int) settled {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pos, err := s.provider.CurrentPosition(reqCtx, s.timeout)
	if err != nil {
		var pe *PositionError
		outcome := "unavailable"
		if errors.As(err, &pe) {
			outcome = pe.Code.String()
		}
		s.metrics.IncrementRequest(outcome)
		s.logger.DebugContext(ctx, "positioning request failed", "index", index, "error", err)
		return settled{err: err}
	}

	s.metrics.IncrementRequest("success")
	return settled{sample: models.Sample{
		Lat:            pos.Lat,
		Lng:            pos.Lng,
		AccuracyMeters: pos.Accuracy,
		TimestampMs:    models.NormalizeTimestamp(pos.Timestamp, s.clock.Now()),
		Index:          index,
	}}
}

func aggregate(errs []error) error {
	joined := errors.Join(errs...)
	for _, err := range errs {
		var pe *PositionError
		if errors.As(err, &pe) && pe.Code == PermissionDenied {
			return dErrors.Wrap(joined, dErrors.CodePermissionDenied,
				"location access denied: allow location for this app in the device settings and try again")
		}
	}
	return dErrors.Wrap(joined, dErrors.CodeTerminal,
		"unable to determine your location: move to an open area or check that location services are on")
}

func aborted(err error) error {
	return dErrors.Wrap(err, dErrors.CodeAborted, "operation cancelled")
}
