package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/crawler"
	collyfetcher "github.com/Mouseminar/job-mcp/internal/fetcher/colly"
	"github.com/Mouseminar/job-mcp/internal/logging"
)

// Gate paces requests to one platform and serializes them.
type Gate interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// Doer performs platform API calls.
type Doer interface {
	Do(ctx context.Context, request collyfetcher.Request) (collyfetcher.Response, error)
}

// PageFunc fetches and parses one platform page. Pages are 1-based.
type PageFunc func(ctx context.Context, page int) ([]crawler.RawRecord, error)

// Pager maps a query's logical window onto platform pages and fetches them
// one after another.
type Pager struct {
	Source string
	// PlatformSize is the number of records a full platform page holds.
	// Zero means the platform honors the query's page size directly.
	PlatformSize int
	Gate         Gate
	Retry        crawler.RetryPolicy
	Logger       *zap.Logger
}

// PageSize returns the platform page size used for q.
func (p Pager) PageSize(q crawler.Query) int {
	if p.PlatformSize > 0 {
		return p.PlatformSize
	}
	return q.PageSize
}

// Pages returns the first and last platform page covering q's window.
func (p Pager) Pages(q crawler.Query) (int, int) {
	size := p.PageSize(q)
	start, end := q.Window()
	return start/size + 1, (end-1)/size + 1
}

// Collect fetches every platform page overlapping q's window and returns the
// records inside it. A page shorter than the platform size ends the walk. A
// failure on the first page fails the whole call; later pages that fail to
// parse are skipped and other later failures end the walk with what was
// already collected.
func (p Pager) Collect(ctx context.Context, q crawler.Query, fetch PageFunc) ([]crawler.RawRecord, error) {
	logger := logging.OrNop(p.Logger).With(zap.String("source", p.Source))
	size := p.PageSize(q)
	first, last := p.Pages(q)
	start, end := q.Window()

	var collected []crawler.RawRecord
	offset := (first - 1) * size
	for page := first; page <= last; page++ {
		records, err := p.fetchPage(ctx, page, fetch)
		if err != nil {
			if page == first || ctx.Err() != nil {
				return nil, err
			}
			if crawler.Classify(err).Kind == crawler.KindParseFailure {
				logger.Warn("skipping unparseable page", zap.Int("page", page), zap.Error(err))
				offset += size
				continue
			}
			logger.Warn("stopping pagination early", zap.Int("page", page), zap.Error(err))
			break
		}
		logger.Debug("page fetched", zap.Int("page", page), zap.Int("records", len(records)))
		for i, rec := range records {
			if pos := offset + i; pos >= start && pos < end {
				collected = append(collected, rec)
			}
		}
		if len(records) < size {
			break
		}
		offset += size
	}
	if collected == nil {
		collected = []crawler.RawRecord{}
	}
	return collected, nil
}

func (p Pager) fetchPage(ctx context.Context, page int, fetch PageFunc) ([]crawler.RawRecord, error) {
	for attempt := 1; ; attempt++ {
		var records []crawler.RawRecord
		call := func(ctx context.Context) error {
			var err error
			records, err = fetch(ctx, page)
			return err
		}
		var err error
		if p.Gate != nil {
			err = p.Gate.Do(ctx, call)
		} else {
			err = call(ctx)
		}
		if err == nil {
			return records, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("page %d: %w", page, ctx.Err())
		}
		if p.Retry == nil || !p.Retry.ShouldRetry(crawler.Classify(err), attempt) {
			return nil, err
		}
		logging.OrNop(p.Logger).Debug("retrying page",
			zap.String("source", p.Source),
			zap.Int("page", page),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
