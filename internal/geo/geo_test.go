package geo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"attendance/internal/geo/metrics"
	"attendance/internal/geo/models"
	dErrors "attendance/pkg/domain-errors"
)

type reply struct {
	pos models.Position
	err error
}

// scriptedProvider answers calls in call order; block, when set, holds every
// call until it is closed.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	block   chan struct{}
}

func (p *scriptedProvider) CurrentPosition(ctx context.Context, _ time.Duration) (models.Position, error) {
	p.mu.Lock()
	r := p.replies[p.calls%len(p.replies)]
	p.calls++
	block := p.block
	p.mu.Unlock()

	if block != nil {
		<-block
	}
	return r.pos, r.err
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func fix(lat, lng, acc float64) reply {
	return reply{pos: models.Position{Lat: lat, Lng: lng, Accuracy: acc, Timestamp: 1_700_000_000_000}}
}

func failure(code PositionErrorCode) reply {
	return reply{err: &PositionError{Code: code, Message: "failed"}}
}

// =============================================================================
// Consensus
// =============================================================================

func TestConfidenceOrdering(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0))
	for n := 1; n < 3; n++ {
		assert.Equal(t, 0.6, Confidence(n))
	}
	for n := 3; n <= 10; n++ {
		assert.Equal(t, 0.8, Confidence(n))
	}
	for n := 1; n <= 10; n++ {
		assert.GreaterOrEqual(t, Confidence(n), Confidence(n-1))
	}
}

func TestConsolidateAveragesAllSamples(t *testing.T) {
	c := Consolidate([]models.Sample{
		{Lat: 25.0, Lng: 121.0, AccuracyMeters: 5},
		{Lat: 25.2, Lng: 121.2, AccuracyMeters: 15},
		{Lat: 25.4, Lng: 121.4, AccuracyMeters: 40},
	})

	assert.InDelta(t, 25.2, c.Lat, 1e-9)
	assert.InDelta(t, 121.2, c.Lng, 1e-9)
	assert.InDelta(t, 20.0, c.Accuracy, 1e-9)
	assert.Equal(t, 0.8, c.Confidence)
	assert.Equal(t, 3, c.SampleCount)
	assert.True(t, c.Usable())
}

func TestConsolidateEmptyIsSentinel(t *testing.T) {
	c := Consolidate(nil)
	assert.Equal(t, models.Consensus{}, c)
	assert.False(t, c.Usable())
}

func TestNormalizeTimestamp(t *testing.T) {
	now := time.UnixMilli(1_700_000_123_456)
	assert.Equal(t, int64(1_700_000_000_000), models.NormalizeTimestamp(1_700_000_000, now))
	assert.Equal(t, int64(1_700_000_000_000), models.NormalizeTimestamp(1_700_000_000_000, now))
	assert.Equal(t, now.UnixMilli(), models.NormalizeTimestamp(0, now))
}

// =============================================================================
// Sampler
// =============================================================================

type SamplerSuite struct {
	suite.Suite
	clock *clockwork.FakeClock
}

func TestSamplerSuite(t *testing.T) {
	suite.Run(t, new(SamplerSuite))
}

func (s *SamplerSuite) SetupTest() {
	s.clock = clockwork.NewFakeClock()
}

func (s *SamplerSuite) TestBoundedAndSorted() {
	for n := 1; n <= 5; n++ {
		for mask := 0; mask < 1<<n; mask++ {
			s.Run(fmt.Sprintf("n=%d mask=%b", n, mask), func() {
				replies := make([]reply, n)
				successes := 0
				for i := 0; i < n; i++ {
					if mask&(1<<i) != 0 {
						replies[i] = fix(25, 121, float64(50-i*7))
						successes++
					} else {
						replies[i] = failure(Timeout)
					}
				}
				sampler := NewSampler(&scriptedProvider{replies: replies})

				samples, err := sampler.Sample(context.Background(), n, 0)
				if successes == 0 {
					s.Error(err)
					s.Empty(samples)
					return
				}
				s.Require().NoError(err)
				s.Len(samples, successes)
				s.LessOrEqual(len(samples), n)
				for i := 1; i < len(samples); i++ {
					s.LessOrEqual(samples[i-1].AccuracyMeters, samples[i].AccuracyMeters)
				}
			})
		}
	}
}

func (s *SamplerSuite) TestTwoOfFiveScenario() {
	provider := &scriptedProvider{replies: []reply{
		fix(25.0330, 121.5654, 50),
		failure(Timeout),
		fix(25.0340, 121.5660, 20),
		failure(PositionUnavailable),
		failure(Timeout),
	}}
	sampler := NewSampler(provider, WithClock(s.clock))

	done := make(chan struct{})
	var samples []models.Sample
	var err error
	go func() {
		defer close(done)
		samples, err = sampler.Sample(context.Background(), 5, 300*time.Millisecond)
	}()

	for i := 1; i < 5; i++ {
		s.advanceAfterCalls(provider, i, 300*time.Millisecond)
	}
	<-done

	s.Require().NoError(err)
	s.Require().Len(samples, 2)
	s.Equal(20.0, samples[0].AccuracyMeters)
	s.Equal(2, samples[0].Index)
	s.Equal(50.0, samples[1].AccuracyMeters)

	c := Consolidate(samples)
	s.InDelta(25.0335, c.Lat, 1e-9)
	s.InDelta(121.5657, c.Lng, 1e-9)
	s.Equal(0.6, c.Confidence)
	s.Equal(2, c.SampleCount)
}

func (s *SamplerSuite) TestIssuanceIsSpaced() {
	provider := &scriptedProvider{replies: []reply{fix(1, 1, 10)}}
	sampler := NewSampler(provider, WithClock(s.clock))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = sampler.Sample(context.Background(), 3, time.Second)
	}()

	s.waitForTimer()
	s.Eventually(func() bool { return provider.callCount() == 1 }, time.Second, time.Millisecond)

	s.clock.Advance(time.Second)
	s.waitForTimer()
	s.Eventually(func() bool { return provider.callCount() == 2 }, time.Second, time.Millisecond)

	s.clock.Advance(time.Second)
	<-done
	s.Equal(3, provider.callCount())
}

func (s *SamplerSuite) TestPermissionDeniedAggregate() {
	provider := &scriptedProvider{replies: []reply{failure(Timeout), failure(PermissionDenied), failure(PositionUnavailable)}}
	sampler := NewSampler(provider)

	_, err := sampler.Sample(context.Background(), 3, 0)
	s.Equal(dErrors.CodePermissionDenied, dErrors.CodeOf(err))
	s.Equal(dErrors.ClassPermissionDenied, dErrors.Classify(err))
}

func (s *SamplerSuite) TestGenericAggregateIsTerminal() {
	provider := &scriptedProvider{replies: []reply{failure(Timeout)}}
	sampler := NewSampler(provider)

	_, err := sampler.Sample(context.Background(), 2, 0)
	s.Equal(dErrors.CodeTerminal, dErrors.CodeOf(err))
}

func (s *SamplerSuite) TestCancelDetachesIssuedAndSkipsTheRest() {
	block := make(chan struct{})
	defer close(block)
	provider := &scriptedProvider{replies: []reply{fix(1, 1, 10)}, block: block}
	sampler := NewSampler(provider, WithClock(s.clock))

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := sampler.Sample(ctx, 5, time.Second)
		errs <- err
	}()

	s.waitForTimer()
	s.Eventually(func() bool { return provider.callCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		s.Equal(dErrors.ClassAbort, dErrors.Classify(err))
	case <-time.After(time.Second):
		s.Fail("sampler did not return after cancellation")
	}
	s.clock.Advance(10 * time.Second)
	s.Equal(1, provider.callCount())
}

func (s *SamplerSuite) TestSecondsTimestampsAreRescaled() {
	provider := &scriptedProvider{replies: []reply{{pos: models.Position{Lat: 1, Lng: 2, Accuracy: 3, Timestamp: 1_700_000_000}}}}

	samples, err := NewSampler(provider).Sample(context.Background(), 1, 0)
	s.Require().NoError(err)
	s.Equal(int64(1_700_000_000_000), samples[0].TimestampMs)
}

func (s *SamplerSuite) TestProgressAndMetrics() {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	var mu sync.Mutex
	var settledCounts, totals []int
	provider := &scriptedProvider{replies: []reply{fix(1, 1, 5), failure(Timeout)}}
	sampler := NewSampler(provider, WithMetrics(m), WithProgress(func(settled, total int) {
		mu.Lock()
		defer mu.Unlock()
		settledCounts = append(settledCounts, settled)
		totals = append(totals, total)
	}))

	_, err := sampler.Sample(context.Background(), 2, 0)
	s.Require().NoError(err)
	s.ElementsMatch([]int{1, 2}, settledCounts)
	s.Equal([]int{2, 2}, totals)
	s.Equal(1.0, testutil.ToFloat64(m.Requests.WithLabelValues("success")))
	s.Equal(1.0, testutil.ToFloat64(m.Requests.WithLabelValues("timeout")))
}

func (s *SamplerSuite) TestRejectsZeroCount() {
	_, err := NewSampler(&scriptedProvider{replies: []reply{fix(1, 1, 1)}}).Sample(context.Background(), 0, 0)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func (s *SamplerSuite) waitForTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(s.clock.BlockUntilContext(ctx, 1))
}

// advanceAfterCalls releases the next issuance once the provider has seen
// calls requests, keeping call order equal to index order.
func (s *SamplerSuite) advanceAfterCalls(p *scriptedProvider, calls int, d time.Duration) {
	s.Eventually(func() bool { return p.callCount() == calls }, time.Second, time.Millisecond)
	s.waitForTimer()
	s.clock.Advance(d)
}

func TestStaticProvider(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	p := StaticProvider{Lat: 1, Lng: 2, Accuracy: 3, Clock: clock}

	pos, err := p.CurrentPosition(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.Position{Lat: 1, Lng: 2, Accuracy: 3, Timestamp: 1_700_000_000_000}, pos)
}

func TestRequestProvider(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	p := RequestProvider{Clock: clock}

	_, err := p.CurrentPosition(context.Background(), time.Second)
	var pe *PositionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PositionUnavailable, pe.Code)

	ctx := WithPosition(context.Background(), models.Position{Lat: 25.0339, Lng: 121.5645, Accuracy: 8})
	pos, err := p.CurrentPosition(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.Position{Lat: 25.0339, Lng: 121.5645, Accuracy: 8, Timestamp: 1_700_000_000_000}, pos)
}

func TestRequestProviderPositionReachesDetachedRequests(t *testing.T) {
	ctx := WithPosition(context.Background(), models.Position{Lat: 1, Lng: 2, Accuracy: 5})
	samples, err := NewSampler(RequestProvider{}).Sample(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	c := Consolidate(samples)
	assert.Equal(t, 1.0, c.Lat)
	assert.Equal(t, 2.0, c.Lng)
}

func TestRequestProviderWithoutPositionFails(t *testing.T) {
	_, err := NewSampler(RequestProvider{}).Sample(context.Background(), 2, 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTerminal))
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"taipei", 25.0339, 121.5645, true},
		{"poles and antimeridian", -90, 180, true},
		{"latitude out of range", 91, 0, false},
		{"longitude out of range", 0, -181, false},
		{"not a number", math.NaN(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCoordinates(tt.lat, tt.lng))
		})
	}
}
