// Package liepin searches 猎聘 through its JSON search API.
package liepin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/crawler"
	collyfetcher "github.com/Mouseminar/job-mcp/internal/fetcher/colly"
	"github.com/Mouseminar/job-mcp/internal/logging"
	"github.com/Mouseminar/job-mcp/internal/source"
)

// Adapter identity.
const (
	Name        = "liepin"
	DisplayName = "猎聘"
	Endpoint    = "https://api-c.liepin.com/api/com.liepin.searchfront4c.pc-search-job"
)

// Options wires the adapter.
type Options struct {
	Endpoint string
	Client   source.Doer
	Gate     source.Gate
	Retry    crawler.RetryPolicy
	Logger   *zap.Logger
}

// Adapter implements crawler.Adapter for 猎聘.
type Adapter struct {
	opts   Options
	logger *zap.Logger
}

// New creates the adapter.
func New(opts Options) *Adapter {
	if opts.Endpoint == "" {
		opts.Endpoint = Endpoint
	}
	return &Adapter{opts: opts, logger: logging.OrNop(opts.Logger).With(zap.String("source", Name))}
}

// Name implements crawler.Adapter.
func (a *Adapter) Name() string { return Name }

// DisplayName implements crawler.Adapter.
func (a *Adapter) DisplayName() string { return DisplayName }

// Strategy implements crawler.Adapter.
func (a *Adapter) Strategy() crawler.Strategy { return crawler.StrategyAPI }

// Search pages through the API. The API takes the page size from the
// query, so logical and platform pages line up.
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

func buildRequest(query crawler.Query, page int) searchRequest {
	city := cityCodes.Lookup(query.City)
	return searchRequest{Data: searchData{
		MainSearchPcConditionForm: conditionForm{
			City:         city,
			DQ:           city,
			CurrentPage:  page - 1,
			PageSize:     query.PageSize,
			Key:          query.Position,
			WorkYearCode: experienceCodes.Lookup(query.Experience),
			EduLevel:     educationCodes.Lookup(query.Education),
			SortFlag:     "0",
		},
		PassThroughForm: passThroughForm{Scene: "conditionSearch"},
	}}
}

func (a *Adapter) fetchPage(ctx context.Context, query crawler.Query, page int) ([]crawler.RawRecord, error) {
	body, err := json.Marshal(buildRequest(query, page))
	if err != nil {
		return nil, source.ParseError(err, "encode request: %v", err)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json;charset=UTF-8")
	headers.Set("Accept", "application/json, text/plain, */*")
	headers.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	headers.Set("Origin", "https://www.liepin.com")
	headers.Set("Referer", "https://www.liepin.com/zhaopin/?key="+url.QueryEscape(query.Position))
	headers.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := a.opts.Client.Do(ctx, collyfetcher.Request{
		Method:  http.MethodPost,
		URL:     a.opts.Endpoint,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	return parseResponse(resp.Body)
}

func parseResponse(body []byte) ([]crawler.RawRecord, error) {
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, source.ParseError(err, "decode response: %v", err)
	}
	if payload.Flag != 1 {
		return nil, source.Blocked("api flag %d %s", payload.Flag, payload.Msg)
	}
	if payload.Data == nil || payload.Data.Data == nil {
		return []crawler.RawRecord{}, nil
	}
	cards := payload.Data.Data.JobCardList
	out := make([]crawler.RawRecord, 0, len(cards))
	for _, card := range cards {
		out = append(out, Job{card: card})
	}
	return out, nil
}

var _ crawler.Adapter = (*Adapter)(nil)
