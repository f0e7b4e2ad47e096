// Package ratelimit paces outbound requests per source adapter and backs off
// when a platform signals throttling.
package ratelimit

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mouseminar/job-mcp/internal/crawler"
	"github.com/Mouseminar/job-mcp/internal/metrics"
)

// Config holds governor timing.
type Config struct {
	// MinDelay is the baseline interval between two requests.
	MinDelay time.Duration
	// MaxDelay bounds the jittered interval; jitter is drawn from [0, MaxDelay-MinDelay).
	MaxDelay time.Duration
	// Ceiling caps the backed-off interval.
	Ceiling time.Duration
}

// DefaultConfig mirrors the delays the platforms tolerate in practice.
func DefaultConfig() Config {
	return Config{
		MinDelay: 1500 * time.Millisecond,
		MaxDelay: 2500 * time.Millisecond,
		Ceiling:  30 * time.Second,
	}
}

// Governor gates requests for one platform. It never retries on its own.
// Adapters sharing a platform share its governor.
type Governor struct {
	source string
	cfg    Config
	slot   chan struct{}

	mu       sync.Mutex
	interval time.Duration
	limiter  *rate.Limiter
	pause    func(ctx context.Context, d time.Duration) error
}

// New creates a Governor for the named source.
func New(source string, cfg Config) *Governor {
	if cfg.MinDelay < 0 {
		cfg.MinDelay = 0
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.Ceiling < cfg.MinDelay {
		cfg.Ceiling = cfg.MinDelay
	}
	g := &Governor{
		source:   source,
		cfg:      cfg,
		slot:     make(chan struct{}, 1),
		interval: cfg.MinDelay,
		pause:    sleepCtx,
	}
	g.limiter = rate.NewLimiter(limitFor(cfg.MinDelay), 1)
	return g
}

// Do runs one platform request: it waits for the current interval, calls fn,
// and feeds the result back. Calls through the same governor never overlap,
// including calls from concurrent runs.
func (g *Governor) Do(ctx context.Context, fn func(context.Context) error) error {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("governor slot: %w", ctx.Err())
	}
	defer func() { <-g.slot }()

	if err := g.Wait(ctx); err != nil {
		return err
	}
	err := fn(ctx)
	g.Observe(err)
	return err
}

// Wait blocks until the current interval has passed since the previous
// request, then adds random jitter.
func (g *Governor) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("governor wait: %w", ctxErr)
		}
		// the limiter refuses early when the wait would overrun the deadline
		if _, ok := ctx.Deadline(); ok {
			return fmt.Errorf("governor wait: %w", context.DeadlineExceeded)
		}
		return fmt.Errorf("governor wait: %w", err)
	}
	if err := g.pause(ctx, g.jitter()); err != nil {
		return fmt.Errorf("governor jitter: %w", err)
	}
	return nil
}

// Throttled doubles the interval up to the ceiling.
func (g *Governor) Throttled() {
	g.mu.Lock()
	next := g.interval * 2
	if next == 0 {
		next = g.cfg.Ceiling / 8
	}
	if next > g.cfg.Ceiling {
		next = g.cfg.Ceiling
	}
	g.setIntervalLocked(next)
	g.mu.Unlock()
}

// Succeeded halves the interval back toward the baseline.
func (g *Governor) Succeeded() {
	g.mu.Lock()
	next := g.interval / 2
	if next < g.cfg.MinDelay {
		next = g.cfg.MinDelay
	}
	g.setIntervalLocked(next)
	g.mu.Unlock()
}

// Observe feeds a request result back into the governor.
func (g *Governor) Observe(err error) {
	if err == nil {
		g.Succeeded()
		return
	}
	if crawler.Classify(err).Throttling() {
		g.Throttled()
	}
}

// Interval returns the current minimum spacing between requests.
func (g *Governor) Interval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interval
}

func (g *Governor) setIntervalLocked(d time.Duration) {
	if d == g.interval {
		return
	}
	g.interval = d
	g.limiter.SetLimit(limitFor(d))
	metrics.ObserveGovernorInterval(g.source, d)
}

func (g *Governor) jitter() time.Duration {
	spread := g.cfg.MaxDelay - g.cfg.MinDelay
	if spread <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(spread)))
	if err != nil {
		return spread / 2
	}
	return time.Duration(n.Int64())
}

func limitFor(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
