// Package boss searches Boss直聘 through its rendered web listing, either for
// regular jobs or, with the internship stage filter, for internships.
package boss

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
	Name        = "boss"
	DisplayName = "Boss直聘"
	BaseURL     = "https://www.zhipin.com"

	InternName        = "boss_intern"
	InternDisplayName = "Boss直聘(实习)"
)

// internStage is the listing's job stage filter for internships.
const internStage = "303"

const (
	platformPageSize = 30
	cardSelector     = ".job-card-wrap, .job-card-box, li.job-card-box, .rec-job-list .card-area"
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

// Adapter implements crawler.Adapter for Boss直聘.
type Adapter struct {
	opts    Options
	name    string
	display string
	intern  bool
	logger  *zap.Logger
}

// New creates the job search adapter.
func New(opts Options) *Adapter {
	return newAdapter(opts, Name, DisplayName, false)
}

// NewIntern creates the internship search adapter. It shares the listing
// and card layout with the job adapter.
func NewIntern(opts Options) *Adapter {
	return newAdapter(opts, InternName, InternDisplayName, true)
}

func newAdapter(opts Options, name, display string, intern bool) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Detector == nil {
		opts.Detector = detector.NewChallenge()
	}
	if opts.Settle == 0 {
		opts.Settle = defaultSettle
	}
	return &Adapter{
		opts:    opts,
		name:    name,
		display: display,
		intern:  intern,
		logger:  logging.OrNop(opts.Logger).With(zap.String("source", name)),
	}
}

// Name implements crawler.Adapter.
func (a *Adapter) Name() string { return a.name }

// DisplayName implements crawler.Adapter.
func (a *Adapter) DisplayName() string { return a.display }

// Strategy implements crawler.Adapter.
func (a *Adapter) Strategy() crawler.Strategy { return crawler.StrategyBrowser }

// Search renders as many listing pages as the query window needs.
func (a *Adapter) Search(ctx context.Context, query crawler.Query, env crawler.RunEnv) crawler.Outcome {
	pager := source.Pager{
		Source:       a.name,
		PlatformSize: platformPageSize,
		Gate:         a.opts.Gate,
		Retry:        a.opts.Retry,
		Logger:       a.logger,
	}
	var records []crawler.RawRecord
	err := source.Browse(ctx, env.Sessions, func(session crawler.BrowserSession) error {
		var err error
		records, err = pager.Collect(ctx, query, func(ctx context.Context, page int) ([]crawler.RawRecord, error) {
			return a.fetchPage(ctx, session, query, page)
		})
		return err
	})
	if err != nil {
		return crawler.FailureFrom(a.name, err)
	}
	return crawler.Success(a.name, records)
}

// SearchURL builds the listing URL for one platform page.
func (a *Adapter) SearchURL(query crawler.Query, page int) string {
	params := url.Values{}
	params.Set("query", query.Position)
	params.Set("city", cityCodes.Lookup(query.City))
	if a.intern {
		params.Set("stage", internStage)
	} else if code := experienceCodes.Lookup(query.Experience); code != "" {
		params.Set("experience", code)
	}
	if code := educationCodes.Lookup(query.Education); code != "" {
		params.Set("degree", code)
	}
	params.Set("page", strconv.Itoa(page))
	return strings.TrimRight(a.opts.BaseURL, "/") + "/web/geek/job?" + params.Encode()
}

func (a *Adapter) fetchPage(ctx context.Context, session crawler.BrowserSession, query crawler.Query, page int) ([]crawler.RawRecord, error) {
	rendered, err := session.Render(ctx, crawler.RenderRequest{
		URL:          a.SearchURL(query, page),
		WaitSelector: cardSelector,
		Settle:       a.opts.Settle,
	})
	if err != nil {
		return nil, err
	}
	jobs, err := parseListing(rendered, a.opts.BaseURL, a.opts.Detector)
	if err != nil {
		return nil, err
	}
	out := make([]crawler.RawRecord, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job)
	}
	return out, nil
}

var placeholderSalaries = map[string]bool{"": true, "-K": true, "-": true, "K": true, "薪": true}

func parseListing(page crawler.RenderedPage, baseURL string, challenge *detector.Challenge) ([]Job, error) {
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
	jobs := make([]Job, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if job, ok := parseCard(card, baseURL); ok {
			jobs = append(jobs, job)
		}
	})
	return jobs, nil
}

func parseCard(card *goquery.Selection, baseURL string) (Job, bool) {
	var job Job
	for _, sel := range []string{"a.job-name", ".job-name", ".job-title a"} {
		node := card.Find(sel).First()
		if text := source.Clean(node.Text()); len([]rune(text)) > 1 {
			job.Title = text
			if href, ok := node.Attr("href"); ok {
				job.URL = source.Absolute(baseURL, href)
			}
			break
		}
	}
	if job.Title == "" {
		return Job{}, false
	}
	job.Salary = salaryText(card)
	job.Company = source.FirstText(card, ".company-name a", ".company-name", ".info-company .name", ".boss-name")
	job.City = source.FirstText(card, ".company-location", ".job-area")
	tags := source.Texts(card, ".tag-list li")
	if len(tags) > 0 {
		job.Experience = tags[0]
	}
	if len(tags) > 1 {
		job.Education = tags[1]
	}
	job.Skills = source.Texts(card, ".job-label-list li")
	companyTags := source.Texts(card, ".company-tag-list li")
	if len(companyTags) > 0 {
		job.Industry = companyTags[0]
	}
	if len(companyTags) > 1 {
		job.Scale = companyTags[len(companyTags)-1]
	}
	job.Welfare = splitWelfare(source.FirstText(card, ".info-desc", ".job-card-footer .info-desc"))
	if job.URL == "" {
		if href, ok := card.Find("a[href*='job_detail']").First().Attr("href"); ok {
			job.URL = source.Absolute(baseURL, href)
		}
	}
	return job, true
}

// salaryText copes with the obfuscated salary font: the visible text can be
// a placeholder while the real value sits in a data attribute.
func salaryText(card *goquery.Selection) string {
	for _, sel := range []string{".salary", ".job-salary", "[class*='salary']"} {
		node := card.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := source.Clean(node.Text())
		if placeholderSalaries[text] {
			for _, attr := range []string{"data-salary", "data-v", "data-text"} {
				if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" {
					text = strings.TrimSpace(v)
					break
				}
			}
		}
		if !placeholderSalaries[text] && len([]rune(text)) > 1 {
			return text
		}
	}
	return ""
}

func splitWelfare(text string) []string {
	if text == "" {
		return nil
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '，' || r == ',' || r == '、'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

var _ crawler.Adapter = (*Adapter)(nil)
