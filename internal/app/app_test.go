package app

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/config"
	"github.com/Mouseminar/job-mcp/internal/crawler"
	"github.com/Mouseminar/job-mcp/internal/fetcher/headless"
)

func noBrowser() headless.Discovery {
	missing := errors.New("not found")
	return headless.Discovery{
		LookPath:     func(string) (string, error) { return "", missing },
		Stat:         func(string) (fs.FileInfo, error) { return nil, missing },
		BrowserNames: []string{"chromium"},
		BrowserPaths: []string{"/opt/chromium"},
	}
}

func testConfig() config.Config {
	return config.Config{
		Server:     config.ServerConfig{Port: 9000},
		Logging:    config.LoggingConfig{Level: "error"},
		Aggregator: config.AggregatorConfig{MaxConcurrency: 4, SourceTimeout: 5 * time.Second, CityFilterMin: 5},
		Governor: config.GovernorConfig{
			MinDelay:    10 * time.Millisecond,
			MaxDelay:    20 * time.Millisecond,
			Ceiling:     time.Second,
			MaxAttempts: 2,
		},
		HTTP:    config.HTTPConfig{Timeout: time.Second, UserAgent: "test"},
		Browser: config.BrowserConfig{Headless: true, NavigationTimeout: time.Second, MaxSessions: 1},
		Sources: config.SourcesConfig{Enabled: []string{"boss", "liepin", "zhilian", "job51"}},
		Intern: config.InternConfig{
			Enabled:    []string{"shixiseng", "ciwei", "boss_intern", "liepin_intern"},
			Defaults:   []string{"shixiseng", "liepin_intern"},
			CityFilter: true,
		},
		Archive: config.ArchiveConfig{Provider: config.ArchiveNone, Prefix: "reports"},
	}
}

func TestBuildRegistersEnabledSources(t *testing.T) {
	t.Parallel()

	app, err := Build(context.Background(), testConfig(), WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.NoError(t, err)
	defer app.Close()

	require.Equal(t, []crawler.SourceInfo{
		{Name: "boss", DisplayName: "Boss直聘", Strategy: crawler.StrategyBrowser},
		{Name: "liepin", DisplayName: "猎聘", Strategy: crawler.StrategyAPI},
		{Name: "zhilian", DisplayName: "智联招聘", Strategy: crawler.StrategyBrowser},
		{Name: "job51", DisplayName: "前程无忧", Strategy: crawler.StrategyAPI},
	}, app.Engine().Sources())

	gov, ok := app.Governor("liepin")
	require.True(t, ok)
	require.Equal(t, 10*time.Millisecond, gov.Interval())
	_, ok = app.Governor("lagou")
	require.False(t, ok)
}

func TestBuildSubsetOfSources(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Sources.Enabled = []string{" Liepin "}
	app, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.NoError(t, err)
	defer app.Close()

	sources := app.Engine().Sources()
	require.Len(t, sources, 1)
	require.Equal(t, "liepin", sources[0].Name)
}

func TestBuildRegistersInternSources(t *testing.T) {
	t.Parallel()

	app, err := Build(context.Background(), testConfig(), WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.NoError(t, err)
	defer app.Close()

	require.Equal(t, []crawler.SourceInfo{
		{Name: "shixiseng", DisplayName: "实习僧", Strategy: crawler.StrategyBrowser},
		{Name: "ciwei", DisplayName: "刺猬实习", Strategy: crawler.StrategyBrowser},
		{Name: "boss_intern", DisplayName: "Boss直聘(实习)", Strategy: crawler.StrategyBrowser},
		{Name: "liepin_intern", DisplayName: "猎聘(实习)", Strategy: crawler.StrategyBrowser},
	}, app.InternEngine().Sources())

	report, err := app.SearchInterns(context.Background(), crawler.Query{Position: "Go"})
	require.NoError(t, err)
	require.Len(t, report.Errors, 2)
	require.Contains(t, report.Errors, "shixiseng")
	require.Contains(t, report.Errors, "liepin_intern")
}

func TestBuildSharesGovernorPerPlatform(t *testing.T) {
	t.Parallel()

	app, err := Build(context.Background(), testConfig(), WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.NoError(t, err)
	defer app.Close()

	boss, ok := app.Governor("boss")
	require.True(t, ok)
	bossIntern, ok := app.Governor("boss_intern")
	require.True(t, ok)
	require.Same(t, boss, bossIntern)

	liepin, _ := app.Governor("liepin")
	liepinIntern, _ := app.Governor("liepin_intern")
	require.Same(t, liepin, liepinIntern)

	shixiseng, ok := app.Governor("shixiseng")
	require.True(t, ok)
	require.NotSame(t, boss, shixiseng)
}

func TestSearchInternsWithoutAdapters(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Intern = config.InternConfig{}
	app, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.NoError(t, err)
	defer app.Close()

	_, err = app.SearchInterns(context.Background(), crawler.Query{Position: "Go"})
	require.ErrorIs(t, err, crawler.ErrNoAdapters)
}

func TestBuildRejectsUnknownInternSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Intern.Enabled = []string{"shixiseng", "lagou_intern"}
	cfg.Intern.Defaults = nil
	_, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.ErrorContains(t, err, `unknown source "lagou_intern" in intern.enabled`)
}

func TestBuildRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Sources.Enabled = []string{"boss", "lagou"}
	_, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.ErrorContains(t, err, `unknown source "lagou"`)
}

func TestBrowserSourcesUnavailableWithoutBrowser(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Sources.Enabled = []string{"boss", "zhilian"}
	app, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.NoError(t, err)
	defer app.Close()

	report, err := app.Engine().Search(context.Background(), crawler.Query{Position: "Go"})
	require.NoError(t, err)
	require.False(t, report.Success)
	require.Empty(t, report.Jobs)
	require.Len(t, report.Errors, 2)
	require.Contains(t, report.Errors["boss"], string(crawler.KindBrowserUnavailable))
	require.Contains(t, report.Errors["zhilian"], string(crawler.KindBrowserUnavailable))
}

func TestBuildLocalArchiveAndHandler(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Archive = config.ArchiveConfig{Provider: config.ArchiveLocal, LocalDir: t.TempDir(), Prefix: "reports"}
	app, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.NoError(t, err)
	defer app.Close()
	require.True(t, app.recorder.Enabled())

	handler := app.Handler()
	for _, path := range []string{"/healthz", "/readyz", "/v1/sources", "/v1/intern/sources"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/search?page=1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.Port = 0
	app, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithDiscovery(noBrowser()))
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
