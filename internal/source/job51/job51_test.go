package job51

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mouseminar/job-mcp/internal/clock/system"
	"github.com/Mouseminar/job-mcp/internal/crawler"
	collyfetcher "github.com/Mouseminar/job-mcp/internal/fetcher/colly"
)

const sampleResponse = `{
  "status": "1",
  "resultbody": {"job": {"totalCount": 2, "items": [
    {
      "jobName": "Golang开发工程师",
      "companyName": "前程科技",
      "provideSalaryString": "1.5-2.5万",
      "jobAreaString": "杭州·西湖区",
      "workYearString": "3-4年",
      "degreeString": "本科",
      "companyTypeString": "民营",
      "companySizeString": "150-500人",
      "jobTags": ["Go", "Redis"],
      "companyTags": ["五险一金", "弹性工作"],
      "jobHref": "https://jobs.51job.com/hangzhou/1.html",
      "issueDateString": "2024-03-01 10:00:00"
    },
    {"jobName": "后端开发", "companyName": "无标签公司", "jobTags": null}
  ]}}
}`

func TestParseResponse(t *testing.T) {
	t.Parallel()

	records, err := parseResponse([]byte(sampleResponse))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, crawler.JobRecord{
		Title:              "Golang开发工程师",
		Company:            "前程科技",
		SalaryRange:        "1.5-2.5万",
		City:               "杭州·西湖区",
		ExperienceRequired: "3-4年",
		EducationRequired:  "本科",
		CompanyType:        "民营",
		CompanySize:        "150-500人",
		Skills:             []string{"Go", "Redis"},
		Benefits:           []string{"五险一金", "弹性工作"},
		SourceURL:          "https://jobs.51job.com/hangzhou/1.html",
		PublishTime:        "2024-03-01 10:00:00",
	}, records[0].JobRecord())
	require.Nil(t, records[1].JobRecord().Skills)

	_, err = parseResponse([]byte(`{"status": "0", "message": "访问频繁"}`))
	require.Equal(t, crawler.KindBlocked, crawler.Classify(err).Kind)

	_, err = parseResponse([]byte(`not json`))
	require.Equal(t, crawler.KindParseFailure, crawler.Classify(err).Kind)
}

func TestForm(t *testing.T) {
	t.Parallel()

	a := New(Options{Clock: system.Fixed(time.Unix(1700000000, 0))})
	form := a.Form(crawler.Query{Position: "Go", City: "杭州", Experience: "应届生", Education: "中专", PageSize: 30}, 2)
	require.Equal(t, "Go", form.Get("keyword"))
	require.Equal(t, "080200", form.Get("jobArea"))
	require.Equal(t, "01", form.Get("workYear"))
	require.Equal(t, "02", form.Get("degree"))
	require.Equal(t, "2", form.Get("pageNum"))
	require.Equal(t, "30", form.Get("pageSize"))
	require.Equal(t, "1700000000", form.Get("timestamp"))
	require.Equal(t, "sou|sou|sou", form.Get("pageCode"))
}

func TestSearchAgainstServer(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		got url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		mu.Lock()
		got = form
		mu.Unlock()
		if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, sampleResponse)
	}))
	t.Cleanup(srv.Close)

	a := New(Options{Endpoint: srv.URL, Client: collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second})})
	out := a.Search(context.Background(), crawler.Query{Position: "Go", Page: 1, PageSize: 20}, crawler.RunEnv{})
	require.True(t, out.OK(), "unexpected failure: %v", out.Err)
	require.Len(t, out.Records, 2)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "Go", got.Get("keyword"))
	require.Equal(t, "1", got.Get("pageNum"))
}

func TestSearchForbidden(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	a := New(Options{Endpoint: srv.URL, Client: collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second})})
	out := a.Search(context.Background(), crawler.Query{Position: "Go", Page: 1, PageSize: 20}, crawler.RunEnv{})
	require.Equal(t, crawler.KindBlocked, out.Err.Kind)
	require.Equal(t, "Blocked: HTTP 403", out.Err.Error())
}
