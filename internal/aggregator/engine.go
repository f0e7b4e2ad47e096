// Package aggregator fans one query out to every requested source adapter
// and assembles a single report from whatever comes back.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mouseminar/job-mcp/internal/crawler"
	"github.com/Mouseminar/job-mcp/internal/dedup"
	"github.com/Mouseminar/job-mcp/internal/logging"
	"github.com/Mouseminar/job-mcp/internal/metrics"
	"github.com/Mouseminar/job-mcp/internal/normalize"
)

// State is a step of one aggregation run.
type State string

// Run states, in order.
const (
	StateIdle        State = "idle"
	StateDispatching State = "dispatching"
	StateCollecting  State = "collecting"
	StateAssembling  State = "assembling"
	StateDone        State = "done"
)

// Config tunes the engine.
type Config struct {
	MaxConcurrency int
	SourceTimeout  time.Duration
	CityFilter     bool
	CityFilterMin  int
	// DefaultSources run when a query names none. Empty means every
	// registered adapter.
	DefaultSources []string
}

// PoolFactory opens the browser session pool for one run.
type PoolFactory func() crawler.ManagedPool

// Engine runs aggregation. It holds configuration and adapters only; each
// Search call keeps its state in a run value that is dropped on return.
type Engine struct {
	cfg        Config
	adapters   []crawler.Adapter
	byName     map[string]crawler.Adapter
	pools      PoolFactory
	ids        crawler.IDGenerator
	normalizer *normalize.Normalizer
	logger     *zap.Logger
}

// New creates an Engine. Adapter names must be unique.
func New(cfg Config, adapters []crawler.Adapter, pools PoolFactory, ids crawler.IDGenerator, logger *zap.Logger) (*Engine, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 60 * time.Second
	}
	if cfg.CityFilterMin < 0 {
		cfg.CityFilterMin = 0
	}
	logger = logging.OrNop(logger)
	byName := make(map[string]crawler.Adapter, len(adapters))
	for _, a := range adapters {
		name := strings.ToLower(a.Name())
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("duplicate adapter %q", name)
		}
		byName[name] = a
	}
	defaults := make([]string, 0, len(cfg.DefaultSources))
	for _, name := range cfg.DefaultSources {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("default source %q is not registered", name)
		}
		defaults = append(defaults, name)
	}
	cfg.DefaultSources = defaults
	return &Engine{
		cfg:        cfg,
		adapters:   append([]crawler.Adapter(nil), adapters...),
		byName:     byName,
		pools:      pools,
		ids:        ids,
		normalizer: normalize.New(logger),
		logger:     logger,
	}, nil
}

// Sources describes the registered adapters in registration order.
func (e *Engine) Sources() []crawler.SourceInfo {
	out := make([]crawler.SourceInfo, 0, len(e.adapters))
	for _, a := range e.adapters {
		out = append(out, crawler.SourceInfo{Name: a.Name(), DisplayName: a.DisplayName(), Strategy: a.Strategy()})
	}
	return out
}

// Search runs the query against every requested source. The error is non-nil
// only for an invalid query (wrapping crawler.ErrInvalidQuery) or when no
// adapter is registered (crawler.ErrNoAdapters); source failures end up in
// Report.Errors.
func (e *Engine) Search(ctx context.Context, query crawler.Query) (crawler.Report, error) {
	query = query.WithDefaults()
	if err := query.Validate(); err != nil {
		metrics.ObserveSearch("invalid")
		return crawler.Report{}, err
	}
	if len(e.adapters) == 0 {
		metrics.ObserveSearch("unavailable")
		return crawler.Report{}, crawler.ErrNoAdapters
	}
	selected, err := e.resolve(query.Sources)
	if err != nil {
		metrics.ObserveSearch("invalid")
		return crawler.Report{}, err
	}
	query.Sources = make([]string, 0, len(selected))
	for _, a := range selected {
		query.Sources = append(query.Sources, a.Name())
	}

	r := e.newRun(query, selected)
	report := r.execute(ctx)
	return report, nil
}

func (e *Engine) resolve(names []string) ([]crawler.Adapter, error) {
	if len(names) == 0 {
		if len(e.cfg.DefaultSources) == 0 {
			return e.adapters, nil
		}
		names = e.cfg.DefaultSources
	}
	out := make([]crawler.Adapter, 0, len(names))
	var unknown []string
	for _, name := range names {
		a, ok := e.byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, a)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown source %s", crawler.ErrInvalidQuery, strings.Join(unknown, ", "))
	}
	return out, nil
}

type run struct {
	engine   *Engine
	id       string
	query    crawler.Query
	adapters []crawler.Adapter
	outcomes []crawler.Outcome
	state    State
	logger   *zap.Logger
}

func (e *Engine) newRun(query crawler.Query, adapters []crawler.Adapter) *run {
	id := ""
	if e.ids != nil {
		if generated, err := e.ids.NewID(); err == nil {
			id = generated
		} else {
			e.logger.Warn("run id generation failed", zap.Error(err))
		}
	}
	return &run{
		engine:   e,
		id:       id,
		query:    query,
		adapters: adapters,
		outcomes: make([]crawler.Outcome, len(adapters)),
		state:    StateIdle,
		logger:   e.logger.With(zap.String("run_id", id)),
	}
}

func (r *run) transition(next State) {
	r.logger.Debug("run state", zap.String("from", string(r.state)), zap.String("to", string(next)))
	r.state = next
}

func (r *run) execute(ctx context.Context) crawler.Report {
	start := time.Now()
	r.transition(StateDispatching)

	env := crawler.RunEnv{RunID: r.id}
	if r.needsBrowser() && r.engine.pools != nil {
		pool := r.engine.pools()
		defer func() {
			if err := pool.Close(); err != nil {
				r.logger.Warn("session pool close failed", zap.Error(err))
			}
		}()
		env.Sessions = pool
	}

	var g errgroup.Group
	g.SetLimit(r.engine.cfg.MaxConcurrency)
	for i, a := range r.adapters {
		i, a := i, a
		g.Go(func() error {
			r.outcomes[i] = r.invoke(ctx, a, env)
			return nil
		})
	}
	r.transition(StateCollecting)
	_ = g.Wait()

	r.transition(StateAssembling)
	report := r.assemble()
	r.transition(StateDone)

	result := "failed"
	switch {
	case report.Success && len(report.Errors) == 0:
		result = "success"
	case report.Success:
		result = "partial"
	}
	metrics.ObserveSearch(result)
	r.logger.Info("search finished",
		zap.String("position", r.query.Position),
		zap.String("result", result),
		zap.Int("total", report.Statistics.Total),
		zap.Int("failed_sources", len(report.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report
}

func (r *run) needsBrowser() bool {
	for _, a := range r.adapters {
		if a.Strategy() == crawler.StrategyBrowser {
			return true
		}
	}
	return false
}

// invoke runs one adapter under its own deadline. The engine stops waiting at
// the deadline even if the adapter does not return.
func (r *run) invoke(ctx context.Context, adapter crawler.Adapter, env crawler.RunEnv) crawler.Outcome {
	name := adapter.Name()
	logger := r.logger.With(zap.String("source", name))
	if ctx.Err() != nil {
		return r.finish(logger, crawler.Failure(name, crawler.KindCancelled, ""), 0)
	}

	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, r.engine.cfg.SourceTimeout)
	defer cancel()

	done := make(chan crawler.Outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("adapter panicked", zap.Any("panic", p))
				done <- crawler.Failure(name, crawler.KindParseFailure, fmt.Sprintf("adapter panicked: %v", p))
			}
		}()
		done <- adapter.Search(actx, r.query, env)
	}()

	var out crawler.Outcome
	select {
	case out = <-done:
		out.Source = name
		if !out.OK() {
			out = contextOutcome(ctx, actx, out)
		}
	case <-actx.Done():
		out = contextOutcome(ctx, actx, crawler.Failure(name, crawler.KindTimeout, ""))
	}
	return r.finish(logger, out, time.Since(start))
}

// contextOutcome rewrites a failure caused by the run or adapter deadline to
// Cancelled or Timeout.
func contextOutcome(parent, adapterCtx context.Context, out crawler.Outcome) crawler.Outcome {
	switch {
	case parent.Err() != nil:
		return crawler.Failure(out.Source, crawler.KindCancelled, "")
	case errors.Is(adapterCtx.Err(), context.DeadlineExceeded):
		return crawler.Failure(out.Source, crawler.KindTimeout, "")
	}
	return out
}

func (r *run) finish(logger *zap.Logger, out crawler.Outcome, elapsed time.Duration) crawler.Outcome {
	if out.OK() {
		metrics.ObserveAdapter(out.Source, "success", elapsed)
		logger.Info("source succeeded", zap.Int("records", len(out.Records)), zap.Duration("elapsed", elapsed))
		return out
	}
	metrics.ObserveAdapter(out.Source, string(out.Err.Kind), elapsed)
	logger.Warn("source failed",
		zap.String("kind", string(out.Err.Kind)),
		zap.Error(out.Err),
		zap.Duration("elapsed", elapsed),
	)
	return out
}

func (r *run) assemble() crawler.Report {
	report := crawler.Report{
		RunID:  r.id,
		Params: r.query,
		Statistics: crawler.Statistics{
			BySource: make(map[string]int),
		},
		Jobs:   []crawler.JobRecord{},
		Errors: make(map[string]string),
	}
	var merged []crawler.JobRecord
	for _, out := range r.outcomes {
		if !out.OK() {
			report.Errors[out.Source] = errorDetail(out.Err)
			continue
		}
		report.Success = true
		records, _ := r.engine.normalizer.Normalize(out.Source, out.Records)
		records = dedup.Merge(records)
		report.Statistics.BySource[out.Source] = len(records)
		merged = append(merged, records...)
	}
	jobs := dedup.MergeSources(merged)
	if r.engine.cfg.CityFilter && r.query.City != "" {
		jobs = FilterByCity(jobs, r.query.City, r.engine.cfg.CityFilterMin)
	}
	report.Jobs = jobs
	report.Statistics.Total = len(jobs)
	return report
}

func errorDetail(err *crawler.SourceError) string {
	switch err.Kind {
	case crawler.KindTimeout, crawler.KindCancelled:
		return string(err.Kind)
	default:
		return err.Error()
	}
}
