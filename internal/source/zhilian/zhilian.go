// Package zhilian searches 智联招聘 through its rendered listing pages.
package zhilian

import (
	"context"
	"fmt"
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
	Name        = "zhilian"
	DisplayName = "智联招聘"
	BaseURL     = "https://www.zhaopin.com"
	SearchURL   = "https://sou.zhaopin.com"
)

const (
	platformPageSize = 20
	cardSelector     = ".joblist-box__item"
	defaultSettle    = 2 * time.Second
)

var infoCityHints = []string{"北京", "上海", "广州", "深圳", "杭州", "成都", "武汉", "·"}

var educationHints = []string{"科", "专", "士", "学历", "不限"}

// Options wires the adapter.
type Options struct {
	BaseURL   string
	SearchURL string
	Gate      source.Gate
	Retry     crawler.RetryPolicy
	Detector  *detector.Challenge
	Settle    time.Duration
	Logger    *zap.Logger
}

// Adapter implements crawler.Adapter for 智联招聘.
type Adapter struct {
	opts   Options
	logger *zap.Logger
}

// New creates the adapter.
func New(opts Options) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.SearchURL == "" {
		opts.SearchURL = SearchURL
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
			return parseListing(rendered, a.opts.Detector)
		})
		return err
	})
	if err != nil {
		return crawler.FailureFrom(Name, err)
	}
	return crawler.Success(Name, records)
}

// PageURL builds the listing URL. Known cities use the path form; other
// cities are folded into the keyword.
func (a *Adapter) PageURL(query crawler.Query, page int) string {
	if code := cityCodes.Lookup(query.City); code != "" {
		return fmt.Sprintf("%s/sou/jl%s/kw%s/p%d",
			strings.TrimRight(a.opts.BaseURL, "/"), code, url.PathEscape(query.Position), page)
	}
	keyword := query.Position
	if query.City != "" {
		keyword += " " + query.City
	}
	params := url.Values{}
	params.Set("kw", keyword)
	params.Set("p", strconv.Itoa(page))
	return strings.TrimRight(a.opts.SearchURL, "/") + "/?" + params.Encode()
}

func parseListing(page crawler.RenderedPage, challenge *detector.Challenge) ([]crawler.RawRecord, error) {
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
		if job, ok := parseCard(card); ok {
			out = append(out, job)
		}
	})
	return out, nil
}

func parseCard(card *goquery.Selection) (Job, bool) {
	var job Job
	for _, sel := range []string{"a.jobinfo__name", ".jobinfo__name", "[class*='jobinfo__name']"} {
		node := card.Find(sel).First()
		text := source.Clean(node.Text())
		if text == "" {
			text = source.Clean(node.AttrOr("title", ""))
		}
		if len([]rune(text)) > 2 {
			job.Title = text
			job.URL = source.Absolute(BaseURL, node.AttrOr("href", ""))
			break
		}
	}
	if job.Title == "" {
		return Job{}, false
	}
	job.Salary = source.FirstText(card, ".jobinfo__salary", "[class*='salary']")
	for _, sel := range []string{"a.companyinfo__name", ".companyinfo__name", "[class*='companyinfo__name']"} {
		node := card.Find(sel).First()
		name := strings.TrimSpace(node.AttrOr("title", ""))
		if name == "" {
			name = source.Clean(node.Text())
		}
		if len([]rune(name)) > 1 {
			job.Company = name
			break
		}
	}
	for _, text := range source.Texts(card, ".jobinfo__other-info span, .jobinfo__other span") {
		switch {
		case job.City == "" && containsAny(text, infoCityHints):
			job.City = text
		case job.Experience == "" && strings.Contains(text, "年"):
			job.Experience = text
		case job.Education == "" && containsAny(text, educationHints):
			job.Education = text
		}
	}
	job.CompanyTags = source.Texts(card, ".companyinfo__tag div")
	job.Welfare = source.Texts(card, ".joblist-box__item-tag span, [class*='welfare'] span")
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

// Job is one card of the 智联招聘 listing.
type Job struct {
	Title       string
	Company     string
	Salary      string
	City        string
	Experience  string
	Education   string
	CompanyTags []string
	Welfare     []string
	URL         string
}

// JobRecord implements crawler.RawRecord. Company tags carry the company
// type first and its size second when the listing shows both.
func (j Job) JobRecord() crawler.JobRecord {
	rec := crawler.JobRecord{
		Title:              j.Title,
		Company:            j.Company,
		SalaryRange:        j.Salary,
		City:               j.City,
		ExperienceRequired: j.Experience,
		EducationRequired:  j.Education,
		Benefits:           j.Welfare,
		SourceURL:          j.URL,
	}
	if len(j.CompanyTags) > 0 {
		rec.CompanyType = j.CompanyTags[0]
	}
	if len(j.CompanyTags) > 1 {
		rec.CompanySize = j.CompanyTags[1]
	}
	return rec
}

var _ crawler.Adapter = (*Adapter)(nil)
