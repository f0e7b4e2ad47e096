package source

import (
	"context"
	"errors"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

var errNoSessions = errors.New("no browser session pool for this run")

// Browse runs fn with a session from pool and always hands the session back.
func Browse(ctx context.Context, pool crawler.SessionPool, fn func(crawler.BrowserSession) error) error {
	if pool == nil {
		return crawler.NewSourceError(crawler.KindBrowserUnavailable, errNoSessions, "%v", errNoSessions)
	}
	session, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pool.Release(session)
	return fn(session)
}

// ParseError reports a page whose payload could not be understood.
func ParseError(err error, format string, args ...any) *crawler.SourceError {
	return crawler.NewSourceError(crawler.KindParseFailure, err, format, args...)
}

// Blocked reports an anti-bot answer from the platform.
func Blocked(format string, args ...any) *crawler.SourceError {
	return crawler.NewSourceError(crawler.KindBlocked, nil, format, args...)
}
