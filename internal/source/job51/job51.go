// Package job51 searches 前程无忧 through its form-encoded search API.
package job51

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/clock/system"
	"github.com/Mouseminar/job-mcp/internal/crawler"
	collyfetcher "github.com/Mouseminar/job-mcp/internal/fetcher/colly"
	"github.com/Mouseminar/job-mcp/internal/logging"
	"github.com/Mouseminar/job-mcp/internal/source"
)

// Adapter identity.
const (
	Name        = "job51"
	DisplayName = "前程无忧"
	Endpoint    = "https://we.51job.com/api/job/search-pc"
)

// Options wires the adapter.
type Options struct {
	Endpoint string
	Client   source.Doer
	Gate     source.Gate
	Retry    crawler.RetryPolicy
	Clock    crawler.Clock
	Logger   *zap.Logger
}

// Adapter implements crawler.Adapter for 前程无忧.
type Adapter struct {
	opts   Options
	logger *zap.Logger
}

// New creates the adapter.
func New(opts Options) *Adapter {
	if opts.Endpoint == "" {
		opts.Endpoint = Endpoint
	}
	if opts.Clock == nil {
		opts.Clock = system.New()
	}
	return &Adapter{opts: opts, logger: logging.OrNop(opts.Logger).With(zap.String("source", Name))}
}

// Name implements crawler.Adapter.
func (a *Adapter) Name() string { return Name }

// DisplayName implements crawler.Adapter.
func (a *Adapter) DisplayName() string { return DisplayName }

// Strategy implements crawler.Adapter.
func (a *Adapter) Strategy() crawler.Strategy { return crawler.StrategyAPI }

// Search pages through the API with the query's own page size.
func (a *Adapter) Search(ctx context.Context, query crawler.Query, _ crawler.RunEnv) crawler.Outcome {
	pager := source.Pager{
		Source: Name,
		Gate:   a.opts.Gate,
		Retry:  a.opts.Retry,
		Logger: a.logger,
	}
	records, err := pager.Collect(ctx, query, func(ctx context.Context, page int) ([]crawler.RawRecord, error) {
		return a.fetchPage(ctx, query, page)
	})
	if err != nil {
		return crawler.FailureFrom(Name, err)
	}
	return crawler.Success(Name, records)
}

// Form builds the search form for one page.
func (a *Adapter) Form(query crawler.Query, page int) url.Values {
	form := url.Values{}
	form.Set("api_key", "51job")
	form.Set("timestamp", strconv.FormatInt(a.opts.Clock.Now().Unix(), 10))
	form.Set("keyword", query.Position)
	form.Set("searchType", "2")
	form.Set("jobArea", cityCodes.Lookup(query.City))
	form.Set("workYear", experienceCodes.Lookup(query.Experience))
	form.Set("degree", educationCodes.Lookup(query.Education))
	form.Set("sortType", "0")
	form.Set("pageNum", strconv.Itoa(page))
	form.Set("pageSize", strconv.Itoa(query.PageSize))
	form.Set("source", "1")
	form.Set("pageCode", "sou|sou|sou")
	return form
}

func (a *Adapter) fetchPage(ctx context.Context, query crawler.Query, page int) ([]crawler.RawRecord, error) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	headers.Set("Accept", "application/json, text/plain, */*")
	headers.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	headers.Set("Origin", "https://we.51job.com")
	headers.Set("Referer", "https://we.51job.com/pc/search?keyword="+url.QueryEscape(query.Position)+"&searchType=2&sortType=0")

	resp, err := a.opts.Client.Do(ctx, collyfetcher.Request{
		Method:  http.MethodPost,
		URL:     a.opts.Endpoint,
		Headers: headers,
		Body:    []byte(a.Form(query, page).Encode()),
	})
	if err != nil {
		return nil, err
	}
	return parseResponse(resp.Body)
}

type searchResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ResultBody *struct {
		Job *struct {
			TotalCount int   `json:"totalCount"`
			Items      []Job `json:"items"`
		} `json:"job"`
	} `json:"resultbody"`
}

func parseResponse(body []byte) ([]crawler.RawRecord, error) {
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, source.ParseError(err, "decode response: %v", err)
	}
	if payload.Status != "1" {
		return nil, source.Blocked("api status %q %s", payload.Status, payload.Message)
	}
	if payload.ResultBody == nil || payload.ResultBody.Job == nil {
		return []crawler.RawRecord{}, nil
	}
	items := payload.ResultBody.Job.Items
	out := make([]crawler.RawRecord, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out, nil
}

// Job is one item of the 前程无忧 search API.
type Job struct {
	JobName             string   `json:"jobName"`
	CompanyName         string   `json:"companyName"`
	ProvideSalaryString string   `json:"provideSalaryString"`
	JobAreaString       string   `json:"jobAreaString"`
	WorkYearString      string   `json:"workYearString"`
	DegreeString        string   `json:"degreeString"`
	CompanyTypeString   string   `json:"companyTypeString"`
	CompanySizeString   string   `json:"companySizeString"`
	JobTags             []string `json:"jobTags"`
	CompanyTags         []string `json:"companyTags"`
	JobHref             string   `json:"jobHref"`
	IssueDateString     string   `json:"issueDateString"`
}

// JobRecord implements crawler.RawRecord.
func (j Job) JobRecord() crawler.JobRecord {
	return crawler.JobRecord{
		Title:              j.JobName,
		Company:            j.CompanyName,
		SalaryRange:        j.ProvideSalaryString,
		City:               j.JobAreaString,
		ExperienceRequired: j.WorkYearString,
		EducationRequired:  j.DegreeString,
		CompanyType:        j.CompanyTypeString,
		CompanySize:        j.CompanySizeString,
		Skills:             j.JobTags,
		Benefits:           j.CompanyTags,
		SourceURL:          j.JobHref,
		PublishTime:        j.IssueDateString,
	}
}

var _ crawler.Adapter = (*Adapter)(nil)
