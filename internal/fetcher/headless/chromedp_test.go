package headless

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

type fakeBrowser struct {
	launches atomic.Int32
	closed   atomic.Bool
	err      error
}

func (f *fakeBrowser) launch(string) (context.Context, context.CancelFunc, error) {
	f.launches.Add(1)
	if f.err != nil {
		return nil, nil, f.err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return ctx, func() {
		f.closed.Store(true)
		cancel()
	}, nil
}

func newTestManager(t *testing.T, maxSessions int, browser *fakeBrowser) *Manager {
	t.Helper()
	d := fakeDiscovery(map[string]string{"chromium": "/usr/bin/chromium"}, nil)
	m, err := NewManager(Config{MaxSessions: maxSessions}, d, zap.NewNop())
	require.NoError(t, err)
	m.launch = browser.launch
	m.newTab = func(parent context.Context) (context.Context, context.CancelFunc) {
		return context.WithCancel(parent)
	}
	return m
}

func TestNewManagerDefaults(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(map[string]string{"chromium": "/usr/bin/chromium"}, nil)
	m, err := NewManager(Config{}, d, nil)
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/chromium", m.BrowserPath())
	require.Equal(t, 1, m.cfg.MaxSessions)
	require.Equal(t, defaultNavigationTimeout, m.cfg.NavigationTimeout)
}

func TestNewManagerExplicitDriverMissing(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(map[string]string{"chromium": "/usr/bin/chromium"}, nil)
	_, err := NewManager(Config{DriverBinaryPath: "/nope/chromedriver"}, d, nil)
	require.ErrorIs(t, err, ErrBrowserUnavailable)

	_, err = NewManager(Config{}, fakeDiscovery(nil, nil), nil)
	require.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestPoolLaunchesLazilyOnce(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{}
	pool := newTestManager(t, 2, browser).NewPool()
	require.Zero(t, browser.launches.Load())

	a, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	b, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), browser.launches.Load())
	require.Equal(t, 2, pool.Active())

	pool.Release(a)
	pool.Release(a)
	require.Equal(t, 1, pool.Active())
	pool.Release(b)
	require.Zero(t, pool.Active())

	require.NoError(t, pool.Close())
	require.True(t, browser.closed.Load())
}

func TestPoolCloseWithoutLaunch(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{}
	pool := newTestManager(t, 1, browser).NewPool()
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())
	require.Zero(t, browser.launches.Load())
	require.False(t, browser.closed.Load())

	_, err := pool.Acquire(context.Background())
	var srcErr *crawler.SourceError
	require.ErrorAs(t, err, &srcErr)
	require.Equal(t, crawler.KindBrowserUnavailable, srcErr.Kind)
}

func TestPoolCloseCancelsOutstandingSessions(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{}
	pool := newTestManager(t, 1, browser).NewPool()
	session, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, pool.Close())
	s, ok := session.(*Session)
	require.True(t, ok)
	require.Error(t, s.ctx.Err())
	require.Zero(t, pool.Active())
	pool.Release(session)
}

func TestPoolLaunchFailure(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{err: errors.New("exec: chrome crashed")}
	pool := newTestManager(t, 1, browser).NewPool()
	defer pool.Close()

	for i := 0; i < 2; i++ {
		_, err := pool.Acquire(context.Background())
		var srcErr *crawler.SourceError
		require.ErrorAs(t, err, &srcErr)
		require.Equal(t, crawler.KindBrowserUnavailable, srcErr.Kind)
		require.ErrorIs(t, err, ErrBrowserUnavailable)
	}
	require.Equal(t, int32(1), browser.launches.Load(), "a failed launch is not retried within a run")
}

func TestPoolAcquireRespectsSlotLimit(t *testing.T) {
	t.Parallel()

	pool := newTestManager(t, 1, &fakeBrowser{}).NewPool()
	defer pool.Close()

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, crawler.KindTimeout, crawler.Classify(err).Kind)

	acquired := make(chan struct{})
	go func() {
		s, err := pool.Acquire(context.Background())
		if err == nil {
			pool.Release(s)
		}
		close(acquired)
	}()
	pool.Release(held)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken after release")
	}
}

func TestUnavailablePool(t *testing.T) {
	t.Parallel()

	pool := NewUnavailable("no browser configured")
	_, err := pool.Acquire(context.Background())
	var srcErr *crawler.SourceError
	require.ErrorAs(t, err, &srcErr)
	require.Equal(t, crawler.KindBrowserUnavailable, srcErr.Kind)
	require.Equal(t, "BrowserUnavailable: no browser configured", srcErr.Error())
	pool.Release(nil)
	require.NoError(t, pool.Close())
}

func TestRenderErrorMapsContext(t *testing.T) {
	t.Parallel()

	cause := errors.New("context canceled by target")

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	err := renderError(parent, context.Background(), "https://x", cause)
	require.Equal(t, crawler.KindCancelled, crawler.Classify(err).Kind)

	run, runCancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer runCancel()
	<-run.Done()
	err = renderError(context.Background(), run, "https://x", cause)
	require.Equal(t, crawler.KindTimeout, crawler.Classify(err).Kind)

	err = renderError(context.Background(), context.Background(), "https://x", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, crawler.KindNetwork, crawler.Classify(err).Kind)
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()
	stop := forwardCancel(parent, cancelChild)
	defer stop()

	cancelParent()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("parent cancellation was not forwarded")
	}
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := &responseMeta{}
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500, URL: "https://cdn/app.js"},
	})
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 403, URL: "https://www.zhipin.com/web/geek/job"},
	})
	status, url := meta.snapshotWithFallbacks("https://req", "")
	require.Equal(t, 403, status)
	require.Equal(t, "https://www.zhipin.com/web/geek/job", url)

	status, url = meta.snapshotWithFallbacks("https://req", "https://final")
	require.Equal(t, 403, status)
	require.Equal(t, "https://final", url)

	status, url = (&responseMeta{}).snapshotWithFallbacks("https://req", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "https://req", url)
}
