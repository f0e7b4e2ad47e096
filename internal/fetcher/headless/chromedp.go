// Package headless manages the automated browser used by sources that only
// render listings client-side.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/crawler"
	"github.com/Mouseminar/job-mcp/internal/logging"
	"github.com/Mouseminar/job-mcp/internal/metrics"
)

const (
	defaultNavigationTimeout = 15 * time.Second
	selectorWait             = 5 * time.Second
	scrollScript             = `window.scrollTo(0, document.body.scrollHeight); true`
	hideWebdriverScript      = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`
)

// Config controls how browsers are launched and driven.
type Config struct {
	BrowserBinaryPath string
	DriverBinaryPath  string
	Headless          bool
	NavigationTimeout time.Duration
	MaxSessions       int
	UserAgent         string
}

type launcher func(execPath string) (context.Context, context.CancelFunc, error)

type tabFactory func(browser context.Context) (context.Context, context.CancelFunc)

// Manager resolves the browser once and creates a fresh Pool per aggregation
// run. Browsers are launched lazily, so runs without browser sources never
// start one.
type Manager struct {
	cfg        Config
	execPath   string
	driverPath string
	logger     *zap.Logger
	launch     launcher
	newTab     tabFactory
}

// NewManager validates the browser configuration. A configured path that does
// not exist is an error wrapping ErrBrowserUnavailable. A missing driver is
// only logged because the browser is driven over the DevTools protocol.
func NewManager(cfg Config, discovery Discovery, logger *zap.Logger) (*Manager, error) {
	logger = logging.OrNop(logger)
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	execPath, err := discovery.ResolveBrowser(cfg.BrowserBinaryPath)
	if err != nil {
		return nil, err
	}
	driverPath, err := discovery.ResolveDriver(cfg.DriverBinaryPath)
	if err != nil {
		if cfg.DriverBinaryPath != "" {
			return nil, err
		}
		logger.Debug("no browser driver discovered", zap.Error(err))
	}
	logger.Info("browser resolved",
		zap.String("browser", execPath),
		zap.String("driver", driverPath),
		zap.Bool("headless", cfg.Headless),
		zap.Int("max_sessions", cfg.MaxSessions),
	)
	return &Manager{
		cfg:        cfg,
		execPath:   execPath,
		driverPath: driverPath,
		logger:     logger,
		launch:     chromeLauncher(cfg),
		newTab: func(browser context.Context) (context.Context, context.CancelFunc) {
			return chromedp.NewContext(browser)
		},
	}, nil
}

// BrowserPath reports the resolved browser executable.
func (m *Manager) BrowserPath() string {
	return m.execPath
}

// NewPool returns an empty pool bound to one run.
func (m *Manager) NewPool() *Pool {
	return &Pool{
		manager:  m,
		slots:    make(chan struct{}, m.cfg.MaxSessions),
		done:     make(chan struct{}),
		sessions: make(map[*Session]struct{}),
	}
}

func chromeLauncher(cfg Config) launcher {
	return func(execPath string) (context.Context, context.CancelFunc, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(execPath),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("enable-automation", false),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1920, 1080),
		)
		if cfg.Headless {
			opts = append(opts, chromedp.Flag("headless", "new"))
		} else {
			opts = append(opts, chromedp.Flag("headless", false))
		}
		if cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
		}
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			return nil, nil, fmt.Errorf("start browser %s: %w", execPath, err)
		}
		return browserCtx, func() {
			browserCancel()
			allocCancel()
		}, nil
	}
}

// Pool hands out at most MaxSessions tabs of one shared browser. Close tears
// down every tab and the browser itself, whatever adapters did.
type Pool struct {
	manager *Manager
	slots   chan struct{}
	done    chan struct{}

	closeOnce sync.Once

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	launchErr     error
	sessions      map[*Session]struct{}
}

// Acquire blocks until a session slot frees up or ctx ends.
func (p *Pool) Acquire(ctx context.Context) (crawler.BrowserSession, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("browser slot wait: %w", ctx.Err())
	case <-p.done:
		return nil, crawler.NewSourceError(crawler.KindBrowserUnavailable, ErrBrowserUnavailable, "session pool closed")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	browser, err := p.browserLocked()
	if err != nil {
		<-p.slots
		return nil, crawler.NewSourceError(crawler.KindBrowserUnavailable, err, "%v", err)
	}
	tabCtx, cancel := p.manager.newTab(browser)
	session := &Session{
		ctx:        tabCtx,
		cancel:     cancel,
		userAgent:  p.manager.cfg.UserAgent,
		navTimeout: p.manager.cfg.NavigationTimeout,
	}
	p.sessions[session] = struct{}{}
	metrics.IncBrowserSessions()
	return session, nil
}

// Release closes the tab and frees its slot. Unknown or already released
// sessions are ignored.
func (p *Pool) Release(session crawler.BrowserSession) {
	s, ok := session.(*Session)
	if !ok {
		return
	}
	p.mu.Lock()
	_, owned := p.sessions[s]
	delete(p.sessions, s)
	p.mu.Unlock()
	if !owned {
		return
	}
	s.cancel()
	metrics.DecBrowserSessions()
	<-p.slots
}

// Close releases all sessions and shuts the browser down. It is safe to call
// more than once.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		defer p.mu.Unlock()
		for s := range p.sessions {
			s.cancel()
			metrics.DecBrowserSessions()
			delete(p.sessions, s)
		}
		if p.browserCancel != nil {
			p.browserCancel()
			p.browserCancel = nil
			p.manager.logger.Debug("browser closed")
		}
	})
	return nil
}

// Active reports the number of sessions currently checked out.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *Pool) browserLocked() (context.Context, error) {
	select {
	case <-p.done:
		return nil, fmt.Errorf("%w: session pool closed", ErrBrowserUnavailable)
	default:
	}
	if p.browserCtx != nil {
		return p.browserCtx, nil
	}
	if p.launchErr != nil {
		return nil, p.launchErr
	}
	ctx, cancel, err := p.manager.launch(p.manager.execPath)
	if err != nil {
		p.launchErr = fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
		p.manager.logger.Warn("browser launch failed", zap.Error(err))
		return nil, p.launchErr
	}
	p.browserCtx, p.browserCancel = ctx, cancel
	p.manager.logger.Debug("browser launched", zap.String("path", p.manager.execPath))
	return ctx, nil
}

// Session is one browser tab.
type Session struct {
	ctx        context.Context
	cancel     context.CancelFunc
	userAgent  string
	navTimeout time.Duration

	prepareOnce sync.Once
	prepareErr  error
}

// Render navigates the tab and returns the settled DOM.
func (s *Session) Render(ctx context.Context, request crawler.RenderRequest) (crawler.RenderedPage, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := s.prepare(runCtx); err != nil {
		return crawler.RenderedPage{}, renderError(ctx, runCtx, request.URL, err)
	}

	meta := &responseMeta{}
	chromedp.ListenTarget(runCtx, meta.captureEvent)

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return crawler.RenderedPage{}, renderError(ctx, runCtx, request.URL, err)
	}
	if request.WaitSelector != "" {
		waitCtx, waitCancel := context.WithTimeout(runCtx, selectorWait)
		// Listings that never show the selector are still parsed.
		_ = chromedp.Run(waitCtx, chromedp.WaitVisible(request.WaitSelector, chromedp.ByQuery))
		waitCancel()
	}

	var (
		scrolled bool
		title    string
		finalURL string
		html     string
	)
	if err := chromedp.Run(runCtx,
		chromedp.Evaluate(scrollScript, &scrolled),
		chromedp.Sleep(request.Settle),
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return crawler.RenderedPage{}, renderError(ctx, runCtx, request.URL, err)
	}

	status, url := meta.snapshotWithFallbacks(request.URL, finalURL)
	metrics.ObservePlatformRequest(url, status)
	return crawler.RenderedPage{
		URL:        url,
		StatusCode: status,
		Title:      title,
		HTML:       html,
	}, nil
}

func (s *Session) prepare(ctx context.Context) error {
	s.prepareOnce.Do(func() {
		s.prepareErr = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			if err := network.Enable().Do(ctx); err != nil {
				return fmt.Errorf("enable network domain: %w", err)
			}
			if s.userAgent != "" {
				if err := emulation.SetUserAgentOverride(s.userAgent).Do(ctx); err != nil {
					return fmt.Errorf("set user-agent: %w", err)
				}
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriverScript).Do(ctx); err != nil {
				return fmt.Errorf("install init script: %w", err)
			}
			return nil
		}))
	})
	return s.prepareErr
}

// renderError makes sure deadline and cancellation surface as context errors
// so callers classify them as Timeout or Cancelled.
func renderError(parent, run context.Context, url string, err error) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("render %s: %w", url, parent.Err())
	case errors.Is(run.Err(), context.DeadlineExceeded):
		return fmt.Errorf("render %s: %w", url, context.DeadlineExceeded)
	default:
		return fmt.Errorf("render %s: %w", url, err)
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

type responseMeta struct {
	mu     sync.Mutex
	status int
	url    string
}

func (m *responseMeta) captureEvent(ev any) {
	event, ok := ev.(*network.EventResponseReceived)
	if !ok || event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.Lock()
	m.status = int(event.Response.Status)
	m.url = event.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) snapshotWithFallbacks(requestURL, finalURL string) (int, string) {
	m.mu.Lock()
	status, url := m.status, m.url
	m.mu.Unlock()
	switch {
	case finalURL != "":
		url = finalURL
	case url != "":
	default:
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	return status, url
}

var (
	_ crawler.ManagedPool    = (*Pool)(nil)
	_ crawler.ManagedPool    = (*Unavailable)(nil)
	_ crawler.BrowserSession = (*Session)(nil)
)
