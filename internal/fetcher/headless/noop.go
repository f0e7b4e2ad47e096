package headless

import (
	"context"
	"fmt"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

// Unavailable is a SessionPool that refuses every acquire. It stands in when
// browser automation is not configured so browser adapters fail on their own
// instead of taking the run down.
type Unavailable struct {
	reason string
}

// NewUnavailable creates a pool that always reports BrowserUnavailable.
func NewUnavailable(reason string) *Unavailable {
	return &Unavailable{reason: reason}
}

// Acquire always fails.
func (u *Unavailable) Acquire(_ context.Context) (crawler.BrowserSession, error) {
	return nil, crawler.NewSourceError(crawler.KindBrowserUnavailable, ErrBrowserUnavailable, "%s", u.reason)
}

// Release is a no-op.
func (u *Unavailable) Release(_ crawler.BrowserSession) {}

// Close is a no-op.
func (u *Unavailable) Close() error {
	return nil
}

func (u *Unavailable) String() string {
	return fmt.Sprintf("unavailable(%s)", u.reason)
}
