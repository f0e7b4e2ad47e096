// Package app builds and holds the long-lived services of the process: the
// logger, the source adapters and their governors, the browser manager, the
// job and internship engines, and the optional run archive.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/aggregator"
	"github.com/Mouseminar/job-mcp/internal/api"
	"github.com/Mouseminar/job-mcp/internal/archive"
	"github.com/Mouseminar/job-mcp/internal/clock/system"
	"github.com/Mouseminar/job-mcp/internal/config"
	"github.com/Mouseminar/job-mcp/internal/crawler"
	collyfetcher "github.com/Mouseminar/job-mcp/internal/fetcher/colly"
	"github.com/Mouseminar/job-mcp/internal/fetcher/headless"
	"github.com/Mouseminar/job-mcp/internal/headless/detector"
	"github.com/Mouseminar/job-mcp/internal/id/uuid"
	"github.com/Mouseminar/job-mcp/internal/logging"
	"github.com/Mouseminar/job-mcp/internal/metrics"
	"github.com/Mouseminar/job-mcp/internal/policy/ratelimit"
	gcppublisher "github.com/Mouseminar/job-mcp/internal/publisher/pubsub"
	"github.com/Mouseminar/job-mcp/internal/source/boss"
	"github.com/Mouseminar/job-mcp/internal/source/ciwei"
	"github.com/Mouseminar/job-mcp/internal/source/job51"
	"github.com/Mouseminar/job-mcp/internal/source/liepin"
	"github.com/Mouseminar/job-mcp/internal/source/shixiseng"
	"github.com/Mouseminar/job-mcp/internal/source/zhilian"
	gcsstorage "github.com/Mouseminar/job-mcp/internal/storage/gcs"
	localstorage "github.com/Mouseminar/job-mcp/internal/storage/local"
	pgstore "github.com/Mouseminar/job-mcp/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	engine    *aggregator.Engine
	interns   *aggregator.Engine
	recorder  *archive.Recorder
	governors map[string]*ratelimit.Governor

	gcs       *gcsstorage.BlobStore
	history   *pgstore.HistoryStore
	publisher *gcppublisher.Publisher
}

type options struct {
	logger    *zap.Logger
	discovery *headless.Discovery
}

// Option customizes Build.
type Option func(*options)

// WithLogger uses logger instead of building one from the logging config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDiscovery replaces the default browser discovery.
func WithDiscovery(d headless.Discovery) Option {
	return func(o *options) { o.discovery = &d }
}

// Build creates the application's dependencies. Archive sinks are only
// connected when configured.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
	}
	metrics.Init()

	app := &App{
		cfg:       cfg,
		logger:    logger,
		governors: make(map[string]*ratelimit.Governor),
	}
	logger.Info("building application",
		zap.Int("port", cfg.Server.Port),
		zap.Strings("sources", cfg.Sources.Enabled),
		zap.Strings("intern_sources", cfg.Intern.Enabled),
		zap.String("archive", cfg.Archive.Provider),
	)

	discovery := headless.DefaultDiscovery()
	if o.discovery != nil {
		discovery = *o.discovery
	}
	pools := app.setupBrowser(discovery)

	adapters, err := app.setupAdapters()
	if err != nil {
		return nil, err
	}
	app.engine, err = aggregator.New(aggregator.Config{
		MaxConcurrency: cfg.Aggregator.MaxConcurrency,
		SourceTimeout:  cfg.Aggregator.SourceTimeout,
		CityFilter:     cfg.Aggregator.CityFilter,
		CityFilterMin:  cfg.Aggregator.CityFilterMin,
	}, adapters, pools, uuid.New(), logger.Named("engine"))
	if err != nil {
		return nil, fmt.Errorf("engine init failed: %w", err)
	}

	internAdapters, err := app.setupInternAdapters()
	if err != nil {
		return nil, err
	}
	app.interns, err = aggregator.New(aggregator.Config{
		MaxConcurrency: cfg.Aggregator.MaxConcurrency,
		SourceTimeout:  cfg.Aggregator.SourceTimeout,
		CityFilter:     cfg.Intern.CityFilter,
		CityFilterMin:  cfg.Intern.CityFilterMin,
		DefaultSources: cfg.Intern.Defaults,
	}, internAdapters, pools, uuid.New(), logger.Named("intern_engine"))
	if err != nil {
		return nil, fmt.Errorf("intern engine init failed: %w", err)
	}

	if err := app.setupArchive(ctx); err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	return app, nil
}

func (a *App) setupBrowser(discovery headless.Discovery) aggregator.PoolFactory {
	manager, err := headless.NewManager(headless.Config{
		BrowserBinaryPath: a.cfg.Browser.BrowserBinaryPath,
		DriverBinaryPath:  a.cfg.Browser.DriverBinaryPath,
		Headless:          a.cfg.Browser.Headless,
		NavigationTimeout: a.cfg.Browser.NavigationTimeout,
		MaxSessions:       a.cfg.Browser.MaxSessions,
		UserAgent:         a.cfg.Browser.UserAgent,
	}, discovery, a.logger.Named("browser"))
	if err != nil {
		// Browser adapters report BrowserUnavailable per run; API adapters are unaffected.
		reason := err.Error()
		a.logger.Warn("browser unavailable", zap.Error(err))
		return func() crawler.ManagedPool { return headless.NewUnavailable(reason) }
	}
	a.logger.Info("browser manager ready",
		zap.String("browser", manager.BrowserPath()),
		zap.Int("max_sessions", a.cfg.Browser.MaxSessions),
	)
	return func() crawler.ManagedPool { return manager.NewPool() }
}

type sourceDeps struct {
	client    *collyfetcher.Fetcher
	retry     crawler.RetryPolicy
	challenge *detector.Challenge
	logger    *zap.Logger
}

func (a *App) sourceDeps() sourceDeps {
	return sourceDeps{
		client: collyfetcher.New(collyfetcher.Config{
			UserAgent: a.cfg.HTTP.UserAgent,
			Timeout:   a.cfg.HTTP.Timeout,
		}),
		retry:     crawler.NewAttemptRetryPolicy(a.cfg.Governor.MaxAttempts),
		challenge: detector.NewChallenge(),
		logger:    a.logger.Named("source"),
	}
}

// governor returns the shared governor of the platform behind an adapter, so
// job and internship adapters of one site never overlap their requests.
func (a *App) governor(name string) *ratelimit.Governor {
	platform := platformOf(name)
	if g, ok := a.governors[platform]; ok {
		return g
	}
	g := ratelimit.New(platform, ratelimit.Config{
		MinDelay: a.cfg.Governor.MinDelay,
		MaxDelay: a.cfg.Governor.MaxDelay,
		Ceiling:  a.cfg.Governor.Ceiling,
	})
	a.governors[platform] = g
	return g
}

func platformOf(name string) string {
	switch name {
	case boss.InternName:
		return boss.Name
	case liepin.InternName:
		return liepin.Name
	}
	return name
}

func (a *App) setupAdapters() ([]crawler.Adapter, error) {
	deps := a.sourceDeps()
	adapters := make([]crawler.Adapter, 0, len(a.cfg.Sources.Enabled))
	for _, raw := range a.cfg.Sources.Enabled {
		name := strings.ToLower(strings.TrimSpace(raw))
		var adapter crawler.Adapter
		switch name {
		case boss.Name:
			adapter = boss.New(boss.Options{Gate: a.governor(name), Retry: deps.retry, Detector: deps.challenge, Logger: deps.logger})
		case liepin.Name:
			adapter = liepin.New(liepin.Options{Client: deps.client, Gate: a.governor(name), Retry: deps.retry, Logger: deps.logger})
		case zhilian.Name:
			adapter = zhilian.New(zhilian.Options{Gate: a.governor(name), Retry: deps.retry, Detector: deps.challenge, Logger: deps.logger})
		case job51.Name:
			adapter = job51.New(job51.Options{Client: deps.client, Gate: a.governor(name), Retry: deps.retry, Clock: system.New(), Logger: deps.logger})
		default:
			return nil, fmt.Errorf("unknown source %q in sources.enabled", raw)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

func (a *App) setupInternAdapters() ([]crawler.Adapter, error) {
	deps := a.sourceDeps()
	adapters := make([]crawler.Adapter, 0, len(a.cfg.Intern.Enabled))
	for _, raw := range a.cfg.Intern.Enabled {
		name := strings.ToLower(strings.TrimSpace(raw))
		var adapter crawler.Adapter
		switch name {
		case shixiseng.Name:
			adapter = shixiseng.New(shixiseng.Options{Gate: a.governor(name), Retry: deps.retry, Detector: deps.challenge, Logger: deps.logger})
		case ciwei.Name:
			adapter = ciwei.New(ciwei.Options{Gate: a.governor(name), Retry: deps.retry, Detector: deps.challenge, Logger: deps.logger})
		case boss.InternName:
			adapter = boss.NewIntern(boss.Options{Gate: a.governor(name), Retry: deps.retry, Detector: deps.challenge, Logger: deps.logger})
		case liepin.InternName:
			adapter = liepin.NewIntern(liepin.InternOptions{Gate: a.governor(name), Retry: deps.retry, Detector: deps.challenge, Logger: deps.logger})
		default:
			return nil, fmt.Errorf("unknown source %q in intern.enabled", raw)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

func (a *App) setupArchive(ctx context.Context) error {
	var recOpts []archive.Option
	switch a.cfg.Archive.Provider {
	case config.ArchiveLocal:
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Archive.LocalDir})
		if err != nil {
			return fmt.Errorf("local archive init failed: %w", err)
		}
		recOpts = append(recOpts, archive.WithBlobStore(store))
		a.logger.Info("archiving reports locally", zap.String("dir", a.cfg.Archive.LocalDir))
	case config.ArchiveGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcs, err = gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Archive.GCSBucket})
		if err != nil {
			return fmt.Errorf("gcs archive init failed: %w", err)
		}
		recOpts = append(recOpts, archive.WithBlobStore(a.gcs))
		a.logger.Info("archiving reports to GCS", zap.String("bucket", a.cfg.Archive.GCSBucket))
	}

	if a.cfg.DB.DSN != "" {
		var err error
		a.history, err = pgstore.NewHistoryStore(ctx, pgstore.Config{
			DSN:      a.cfg.DB.DSN,
			Table:    a.cfg.DB.Table,
			MaxConns: a.cfg.DB.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("history store init failed: %w", err)
		}
		recOpts = append(recOpts, archive.WithHistory(a.history))
		a.logger.Info("search history enabled", zap.String("table", a.cfg.DB.Table))
	}

	if a.cfg.PubSub.Topic != "" {
		var err error
		a.publisher, err = gcppublisher.Connect(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("pubsub init failed: %w", err)
		}
		recOpts = append(recOpts, archive.WithPublisher(a.publisher))
		a.logger.Info("completion events enabled",
			zap.String("project", a.cfg.PubSub.ProjectID),
			zap.String("topic", a.cfg.PubSub.Topic),
		)
	}

	a.recorder = archive.New(archive.Config{
		Prefix: a.cfg.Archive.Prefix,
		Topic:  a.cfg.PubSub.Topic,
	}, system.New(), recOpts...)
	return nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Engine returns the aggregation engine.
func (a *App) Engine() *aggregator.Engine {
	return a.engine
}

// Search runs one aggregated search.
func (a *App) Search(ctx context.Context, query crawler.Query) (crawler.Report, error) {
	report, err := a.engine.Search(ctx, query)
	if err != nil {
		return report, fmt.Errorf("search: %w", err)
	}
	return report, nil
}

// InternEngine returns the internship aggregation engine.
func (a *App) InternEngine() *aggregator.Engine {
	return a.interns
}

// SearchInterns runs one aggregated internship search.
func (a *App) SearchInterns(ctx context.Context, query crawler.Query) (crawler.Report, error) {
	report, err := a.interns.Search(ctx, query)
	if err != nil {
		return report, fmt.Errorf("intern search: %w", err)
	}
	return report, nil
}

// Governor returns the pacing governor of a registered source. Job and
// internship adapters of the same platform share one governor.
func (a *App) Governor(source string) (*ratelimit.Governor, bool) {
	g, ok := a.governors[platformOf(source)]
	return g, ok
}

// Handler builds the HTTP API. Reports are archived when a sink is configured.
func (a *App) Handler() http.Handler {
	var archiver api.Archiver
	if a.recorder.Enabled() {
		archiver = a.recorder
	}
	return api.NewServer(a.engine, archiver, a.cfg, a.logger.Named("api"), api.WithInternSearcher(a.interns)).Handler()
}

// Run serves the HTTP API until ctx is canceled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases archive clients and flushes the logger.
func (a *App) Close() {
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
}

func (a *App) closeInfrastructure() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.history != nil {
		a.history.Close()
	}
}
