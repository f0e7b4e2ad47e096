// Package shixiseng searches 实习僧 internships through its rendered listing.
package shixiseng

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/crawler"
	"github.com/Mouseminar/job-mcp/internal/headless/detector"
	"github.com/Mouseminar/job-mcp/internal/logging"
	"github.com/Mouseminar/job-mcp/internal/source"
)

// Adapter identity.
const (
	Name        = "shixiseng"
	DisplayName = "实习僧"
	BaseURL     = "https://www.shixiseng.com"
)

const (
	platformPageSize = 20
	cardSelector     = ".intern-wrap .intern-item, .intern-item"
	defaultSettle    = 2 * time.Second
)

// Options wires the adapter.
type Options struct {
	BaseURL  string
	Gate     source.Gate
	Retry    crawler.RetryPolicy
	Detector *detector.Challenge
	Settle   time.Duration
	Logger   *zap.Logger
}

// Adapter implements crawler.Adapter for 实习僧.
type Adapter struct {
	opts   Options
	logger *zap.Logger
}

// New creates the adapter.
func New(opts Options) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Detector == nil {
		opts.Detector = detector.NewChallenge()
	}
	if opts.Settle == 0 {
		opts.Settle = defaultSettle
	}
	return &Adapter{opts: opts, logger: logging.OrNop(opts.Logger).With(zap.String("source", Name))}
}

// Name implements crawler.Adapter.
func (a *Adapter) Name() string { return Name }

// DisplayName implements crawler.Adapter.
func (a *Adapter) DisplayName() string { return DisplayName }

// Strategy implements crawler.Adapter.
func (a *Adapter) Strategy() crawler.Strategy { return crawler.StrategyBrowser }

// Search renders listing pages until the query window is covered.
func (a *Adapter) Search(ctx context.Context, query crawler.Query, env crawler.RunEnv) crawler.Outcome {
	pager := source.Pager{
		Source:       Name,
		PlatformSize: platformPageSize,
		Gate:         a.opts.Gate,
		Retry:        a.opts.Retry,
		Logger:       a.logger,
	}
	if query.City != "" && cityCodes.Lookup(query.City) == "" {
		a.logger.Info("city not filterable, searching nationwide", zap.String("city", query.City))
	}
	var records []crawler.RawRecord
	err := source.Browse(ctx, env.Sessions, func(session crawler.BrowserSession) error {
		var err error
		records, err = pager.Collect(ctx, query, func(ctx context.Context, page int) ([]crawler.RawRecord, error) {
			rendered, err := session.Render(ctx, crawler.RenderRequest{
				URL:          a.PageURL(query, page),
				WaitSelector: cardSelector,
				Settle:       a.opts.Settle,
			})
			if err != nil {
				return nil, err
			}
			return parseListing(rendered, a.opts.BaseURL, a.opts.Detector)
		})
		return err
	})
	if err != nil {
		return crawler.FailureFrom(Name, err)
	}
	return crawler.Success(Name, records)
}

// PageURL builds the listing URL for one page.
func (a *Adapter) PageURL(query crawler.Query, page int) string {
	params := url.Values{}
	params.Set("k", query.Position)
	if code := cityCodes.Lookup(query.City); code != "" {
		params.Set("c", code)
	}
	params.Set("p", strconv.Itoa(page))
	return strings.TrimRight(a.opts.BaseURL, "/") + "/interns?" + params.Encode()
}

func parseListing(page crawler.RenderedPage, baseURL string, challenge *detector.Challenge) ([]crawler.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, source.ParseError(err, "read listing html: %v", err)
	}
	cards := doc.Find(cardSelector)
	if verdict := challenge.Inspect(page, doc, cards.Length()); verdict.Challenged {
		return nil, source.Blocked("verification page (%s)", verdict.Reason)
	}
	if cards.Length() == 0 && detector.Shell(page.HTML) {
		return nil, source.ParseError(nil, "listing did not render")
	}
	out := make([]crawler.RawRecord, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if job, ok := parseCard(card, baseURL); ok {
			out = append(out, job)
		}
	})
	return out, nil
}

// parseCard prefers title attributes: the visible text of names is drawn
// with an obfuscated font and does not survive scraping.
func parseCard(card *goquery.Selection, baseURL string) (Intern, bool) {
	var job Intern
	for _, sel := range []string{".intern-detail__job a.title", "a.title", ".title"} {
		node := card.Find(sel).First()
		if text := attrOrText(node); text != "" {
			job.Title = text
			job.URL = source.Absolute(baseURL, node.AttrOr("href", ""))
			break
		}
	}
	if job.Title == "" {
		return Intern{}, false
	}
	for _, sel := range []string{".day.font", ".day", "span.day"} {
		if text := source.Clean(card.Find(sel).First().Text()); text != "" {
			job.Salary = strings.TrimSpace(strings.ReplaceAll(text, "-/天", "面议"))
			break
		}
	}
	for _, sel := range []string{".intern-detail__company a.title", ".intern-detail__company .title", ".company-name"} {
		if text := attrOrText(card.Find(sel).First()); text != "" {
			job.Company = text
			break
		}
	}
	job.City = source.FirstText(card, ".city")
	for _, text := range source.Texts(card, ".tip .font") {
		switch {
		case job.DaysPerWeek == "" && strings.Contains(text, "天") && strings.Contains(text, "周"):
			job.DaysPerWeek = text
		case job.Duration == "" && strings.Contains(text, "月"):
			job.Duration = text
		}
	}
	return job, true
}

func attrOrText(node *goquery.Selection) string {
	if title := source.Clean(node.AttrOr("title", "")); title != "" {
		return title
	}
	return source.Clean(node.Text())
}

// Intern is one card of the 实习僧 listing.
type Intern struct {
	Title       string
	Company     string
	Salary      string
	City        string
	Duration    string
	DaysPerWeek string
	URL         string
}

// JobRecord implements crawler.RawRecord.
func (i Intern) JobRecord() crawler.JobRecord {
	return crawler.JobRecord{
		Title:       i.Title,
		Company:     i.Company,
		SalaryRange: i.Salary,
		City:        i.City,
		Duration:    i.Duration,
		DaysPerWeek: i.DaysPerWeek,
		SourceURL:   i.URL,
	}
}

var _ crawler.Adapter = (*Adapter)(nil)
