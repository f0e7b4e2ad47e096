// Package ciwei searches 刺猬实习 through its rendered search page.
package ciwei

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
	Name        = "ciwei"
	DisplayName = "刺猬实习"
	BaseURL     = "https://www.ciweishixi.com"
)

const (
	platformPageSize = 20
	cardSelector     = ".job-list .job-item, .job-item, .internship-item"
	defaultSettle    = 2 * time.Second
)

// cityHints identify the location tag among a card's info tags.
var cityHints = []string{"北京", "上海", "广州", "深圳", "杭州", "成都", "南京", "武汉", "西安", "苏州", "天津", "重庆"}

// Options wires the adapter.
type Options struct {
	BaseURL  string
	Gate     source.Gate
	Retry    crawler.RetryPolicy
	Detector *detector.Challenge
	Settle   time.Duration
	Logger   *zap.Logger
}

// Adapter implements crawler.Adapter for 刺猬实习.
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

// Search renders search pages until the query window is covered.
func (a *Adapter) Search(ctx context.Context, query crawler.Query, env crawler.RunEnv) crawler.Outcome {
	pager := source.Pager{
		Source:       Name,
		PlatformSize: platformPageSize,
		Gate:         a.opts.Gate,
		Retry:        a.opts.Retry,
		Logger:       a.logger,
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

// PageURL builds the search URL. The site filters by city name.
func (a *Adapter) PageURL(query crawler.Query, page int) string {
	params := url.Values{}
	params.Set("key", query.Position)
	if query.City != "" {
		params.Set("city", query.City)
	}
	params.Set("page", strconv.Itoa(page))
	return strings.TrimRight(a.opts.BaseURL, "/") + "/search?" + params.Encode()
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
		return nil, source.ParseError(nil, "search page did not render")
	}
	out := make([]crawler.RawRecord, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if job, ok := parseCard(card, baseURL); ok {
			out = append(out, job)
		}
	})
	return out, nil
}

func parseCard(card *goquery.Selection, baseURL string) (Intern, bool) {
	var job Intern
	for _, sel := range []string{".job-title a", ".job-title", ".title a", ".title"} {
		node := card.Find(sel).First()
		if text := source.Clean(node.Text()); text != "" {
			job.Title = text
			job.URL = source.Absolute(baseURL, node.AttrOr("href", ""))
			break
		}
	}
	if job.Title == "" {
		return Intern{}, false
	}
	job.Salary = source.FirstText(card, ".salary", ".money", ".pay")
	job.Company = source.FirstText(card, ".company-name", ".company a", ".company")
	for _, text := range source.Texts(card, ".info span, .tags span, .demand span") {
		switch {
		case job.City == "" && containsAny(text, cityHints):
			job.City = text
		case job.DaysPerWeek == "" && strings.Contains(text, "天") && strings.Contains(text, "/"):
			job.DaysPerWeek = text
		case job.Duration == "" && strings.Contains(text, "月"):
			job.Duration = text
		}
	}
	return job, true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Intern is one card of the 刺猬实习 search page.
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
