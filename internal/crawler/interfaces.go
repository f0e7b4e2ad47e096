package crawler

import (
	"context"
	"time"
)

// Adapter searches exactly one job platform. Search never panics and never
// returns a bare error: every fault is folded into the Outcome.
type Adapter interface {
	Name() string
	DisplayName() string
	Strategy() Strategy
	Search(ctx context.Context, query Query, env RunEnv) Outcome
}

// RunEnv carries per-run resources the engine hands to adapters.
type RunEnv struct {
	RunID    string
	Sessions SessionPool
}

// SessionPool hands out browser sessions for one aggregation run. Adapters
// must release what they acquire and never close the pool themselves.
type SessionPool interface {
	Acquire(ctx context.Context) (BrowserSession, error)
	Release(session BrowserSession)
}

// BrowserSession renders pages in an automated browser tab.
type BrowserSession interface {
	Render(ctx context.Context, request RenderRequest) (RenderedPage, error)
}

// RenderRequest describes one navigation.
type RenderRequest struct {
	URL string
	// WaitSelector is polled briefly after load; a miss is not an error.
	WaitSelector string
	Settle       time.Duration
}

// RenderedPage is the DOM snapshot after navigation.
type RenderedPage struct {
	URL        string
	StatusCode int
	Title      string
	HTML       string
}

// RetryPolicy decides whether a failed platform request is attempted again.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
}

// BlobStore writes artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// HistoryStore keeps one summary row per completed search.
type HistoryStore interface {
	RecordSearch(ctx context.Context, entry SearchHistory) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// SearchHistory is the archived summary of one run.
type SearchHistory struct {
	RunID     string
	Query     Query
	Success   bool
	Total     int
	BySource  map[string]int
	Errors    map[string]string
	BlobURI   string
	Completed time.Time
}

// ManagedPool is a SessionPool owned by one run; the engine closes it when the
// run ends.
type ManagedPool interface {
	SessionPool
	Close() error
}
