package liepin

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

// Internship adapter identity. Internships are not served by the search
// API, so this adapter renders the web listing instead.
const (
	InternName        = "liepin_intern"
	InternDisplayName = "猎聘(实习)"
	InternBaseURL     = "https://www.liepin.com"
)

const (
	internPageSize = 40
	internJobKind  = "2"
	internSettle   = 2 * time.Second
)

var internCardSelectors = []string{".job-list-item", "[class*='job-list-item']", "[class*='job-card']"}

// InternOptions wires the internship adapter.
type InternOptions struct {
	BaseURL  string
	Gate     source.Gate
	Retry    crawler.RetryPolicy
	Detector *detector.Challenge
	Settle   time.Duration
	Logger   *zap.Logger
}

// InternAdapter implements crawler.Adapter for 猎聘 internships.
type InternAdapter struct {
	opts   InternOptions
	logger *zap.Logger
}

// NewIntern creates the internship adapter.
func NewIntern(opts InternOptions) *InternAdapter {
	if opts.BaseURL == "" {
		opts.BaseURL = InternBaseURL
	}
	if opts.Detector == nil {
		opts.Detector = detector.NewChallenge()
	}
	if opts.Settle == 0 {
		opts.Settle = internSettle
	}
	return &InternAdapter{opts: opts, logger: logging.OrNop(opts.Logger).With(zap.String("source", InternName))}
}

// Name implements crawler.Adapter.
func (a *InternAdapter) Name() string { return InternName }

// DisplayName implements crawler.Adapter.
func (a *InternAdapter) DisplayName() string { return InternDisplayName }

// Strategy implements crawler.Adapter.
func (a *InternAdapter) Strategy() crawler.Strategy { return crawler.StrategyBrowser }

// Search renders listing pages until the query window is covered.
func (a *InternAdapter) Search(ctx context.Context, query crawler.Query, env crawler.RunEnv) crawler.Outcome {
	pager := source.Pager{
		Source:       InternName,
		PlatformSize: internPageSize,
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
				WaitSelector: internCardSelectors[0],
				Settle:       a.opts.Settle,
			})
			if err != nil {
				return nil, err
			}
			return parseInternListing(rendered, a.opts.BaseURL, a.opts.Detector)
		})
		return err
	})
	if err != nil {
		return crawler.FailureFrom(InternName, err)
	}
	return crawler.Success(InternName, records)
}

// PageURL builds the listing URL. The listing counts pages from zero and
// cities outside the code table are searched nationwide.
func (a *InternAdapter) PageURL(query crawler.Query, page int) string {
	params := url.Values{}
	params.Set("key", query.Position)
	if code := internCityCodes.Lookup(query.City); code != "" {
		params.Set("dq", code)
	}
	params.Set("jobKind", internJobKind)
	params.Set("currentPage", strconv.Itoa(page-1))
	return strings.TrimRight(a.opts.BaseURL, "/") + "/zhaopin/?" + params.Encode()
}

func parseInternListing(page crawler.RenderedPage, baseURL string, challenge *detector.Challenge) ([]crawler.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, source.ParseError(err, "read listing html: %v", err)
	}
	var cards *goquery.Selection
	for _, sel := range internCardSelectors {
		if cards = doc.Find(sel); cards.Length() > 0 {
			break
		}
	}
	if verdict := challenge.Inspect(page, doc, cards.Length()); verdict.Challenged {
		return nil, source.Blocked("verification page (%s)", verdict.Reason)
	}
	if cards.Length() == 0 && detector.Shell(page.HTML) {
		return nil, source.ParseError(nil, "listing did not render")
	}
	out := make([]crawler.RawRecord, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if job, ok := parseInternCard(card, baseURL); ok {
			out = append(out, job)
		}
	})
	return out, nil
}

func parseInternCard(card *goquery.Selection, baseURL string) (InternJob, bool) {
	var job InternJob
	for _, sel := range []string{".job-title-box .ellipsis-1", ".job-title", "h3"} {
		text := source.Clean(card.Find(sel).First().Text())
		// the title box also carries the recruiter's online badge
		if len([]rune(text)) > 2 && !strings.Contains(text, "在线") {
			job.Title = text
			break
		}
	}
	job.Company = source.FirstText(card, ".company-name a", ".company-name")
	if job.Title == "" || job.Company == "" {
		return InternJob{}, false
	}
	for _, sel := range []string{".job-salary", "[class*='salary']"} {
		text := source.Clean(card.Find(sel).First().Text())
		if strings.ContainsAny(text, "元Kk") {
			job.Salary = text
			break
		}
	}
	job.City = source.FirstText(card, ".job-dq-box .ellipsis-1", ".job-dq")
	card.Find("a[href*='/job/']").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href := source.Absolute(baseURL, link.AttrOr("href", ""))
		if strings.Contains(href, "liepin") {
			job.URL = href
			return false
		}
		return true
	})
	return job, true
}

// InternJob is one card of the 猎聘 internship listing.
type InternJob struct {
	Title   string
	Company string
	Salary  string
	City    string
	URL     string
}

// JobRecord implements crawler.RawRecord.
func (j InternJob) JobRecord() crawler.JobRecord {
	return crawler.JobRecord{
		Title:       j.Title,
		Company:     j.Company,
		SalaryRange: j.Salary,
		City:        j.City,
		SourceURL:   j.URL,
	}
}

var _ crawler.Adapter = (*InternAdapter)(nil)
