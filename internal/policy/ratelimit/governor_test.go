package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mouseminar/job-mcp/internal/crawler"
	"github.com/Mouseminar/job-mcp/internal/metrics"
)

func init() {
	metrics.Init()
}

func TestGovernorBackoffDoublesUpToCeiling(t *testing.T) {
	t.Parallel()

	g := New("boss", Config{MinDelay: time.Second, MaxDelay: time.Second, Ceiling: 5 * time.Second})
	require.Equal(t, time.Second, g.Interval())

	g.Throttled()
	require.Equal(t, 2*time.Second, g.Interval())
	g.Throttled()
	require.Equal(t, 4*time.Second, g.Interval())
	g.Throttled()
	require.Equal(t, 5*time.Second, g.Interval())
	g.Throttled()
	require.Equal(t, 5*time.Second, g.Interval())
}

func TestGovernorDecaysTowardBaseline(t *testing.T) {
	t.Parallel()

	g := New("liepin", Config{MinDelay: time.Second, MaxDelay: 2 * time.Second, Ceiling: 16 * time.Second})
	for i := 0; i < 4; i++ {
		g.Throttled()
	}
	require.Equal(t, 16*time.Second, g.Interval())

	g.Succeeded()
	require.Equal(t, 8*time.Second, g.Interval())
	g.Succeeded()
	g.Succeeded()
	g.Succeeded()
	require.Equal(t, time.Second, g.Interval())
	g.Succeeded()
	require.Equal(t, time.Second, g.Interval())
}

func TestGovernorObserve(t *testing.T) {
	t.Parallel()

	g := New("job51", Config{MinDelay: 100 * time.Millisecond, MaxDelay: 100 * time.Millisecond, Ceiling: time.Second})

	g.Observe(&crawler.SourceError{Kind: crawler.KindRateLimited})
	require.Equal(t, 200*time.Millisecond, g.Interval())

	g.Observe(&crawler.SourceError{Kind: crawler.KindParseFailure})
	require.Equal(t, 200*time.Millisecond, g.Interval(), "parse failures are not throttling")

	g.Observe(nil)
	require.Equal(t, 100*time.Millisecond, g.Interval())
}

func TestGovernorZeroBaselineStillBacksOff(t *testing.T) {
	t.Parallel()

	g := New("zhilian", Config{Ceiling: 800 * time.Millisecond})
	g.Throttled()
	require.Equal(t, 100*time.Millisecond, g.Interval())
	g.Succeeded()
	require.Equal(t, 50*time.Millisecond, g.Interval())
}

func TestGovernorWaitSpacesRequests(t *testing.T) {
	t.Parallel()

	g := New("boss", Config{MinDelay: 60 * time.Millisecond, MaxDelay: 60 * time.Millisecond, Ceiling: time.Second})
	ctx := context.Background()

	require.NoError(t, g.Wait(ctx))
	start := time.Now()
	require.NoError(t, g.Wait(ctx))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestGovernorWaitAddsJitter(t *testing.T) {
	t.Parallel()

	g := New("boss", Config{MinDelay: 0, MaxDelay: 30 * time.Millisecond, Ceiling: time.Second})
	var paused []time.Duration
	g.pause = func(_ context.Context, d time.Duration) error {
		paused = append(paused, d)
		return nil
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, g.Wait(context.Background()))
	}
	require.Len(t, paused, 5)
	for _, d := range paused {
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.Less(t, d, 30*time.Millisecond)
	}
}

func TestGovernorWaitHonorsCancellation(t *testing.T) {
	t.Parallel()

	g := New("boss", Config{MinDelay: time.Hour, MaxDelay: time.Hour, Ceiling: time.Hour})
	require.NoError(t, g.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Wait(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGovernorDoNeverOverlaps(t *testing.T) {
	t.Parallel()

	g := New("boss", Config{Ceiling: time.Second})
	var active, peak, failures atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), func(context.Context) error {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return nil
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Zero(t, failures.Load())
	require.Equal(t, int32(1), peak.Load())
}

func TestGovernorDoObservesResult(t *testing.T) {
	t.Parallel()

	g := New("liepin", Config{MinDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond, Ceiling: time.Second})
	throttled := &crawler.SourceError{Kind: crawler.KindRateLimited}
	err := g.Do(context.Background(), func(context.Context) error { return throttled })
	require.ErrorIs(t, err, throttled)
	require.Equal(t, 20*time.Millisecond, g.Interval())

	require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))
	require.Equal(t, 10*time.Millisecond, g.Interval())
}

func TestGovernorDoWaitsForSlotWithContext(t *testing.T) {
	t.Parallel()

	g := New("zhilian", Config{Ceiling: time.Second})
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = g.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := g.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	close(release)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.False(t, called)
}
