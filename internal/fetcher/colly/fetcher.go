// Package collyfetcher implements the HTTP transport used by API-based
// source adapters, built on gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/Mouseminar/job-mcp/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Request is one platform API call.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the raw platform answer.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// HTTPError reports a non-2xx platform response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.URL, e.StatusCode)
}

// HTTPStatus exposes the status code for error classification.
func (e *HTTPError) HTTPStatus() int {
	return e.StatusCode
}

// Fetcher executes platform API requests through a Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Do executes a single request and returns the body. Non-2xx answers come
// back as *HTTPError alongside whatever response was captured.
func (f *Fetcher) Do(ctx context.Context, request Request) (Response, error) {
	var (
		result   Response
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector()
	f.configureCollectorHooks(collector, start, &result, &fetchErr)

	method := request.Method
	if method == "" {
		method = http.MethodGet
	}
	if err := f.runCollector(ctx, collector, method, request, &fetchErr); err != nil {
		if ctx.Err() != nil {
			// the collector goroutine may still be writing result
			return Response{}, err
		}
		if result.StatusCode >= http.StatusBadRequest {
			metrics.ObservePlatformRequest(request.URL, result.StatusCode)
			return result, &HTTPError{URL: request.URL, StatusCode: result.StatusCode}
		}
		metrics.ObservePlatformRequest(request.URL, 0)
		return Response{}, err
	}
	metrics.ObservePlatformRequest(request.URL, result.StatusCode)
	return result, nil
}

func (f *Fetcher) buildCollector() *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *Response,
	fetchErr *error,
) {
	capture := func(r *colly.Response) {
		*result = Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    cloneHeader(r.Headers),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	}

	hooks.OnResponse(capture)

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Request != nil && r.StatusCode > 0 {
			capture(r)
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	method string,
	request Request,
	fetchErr *error,
) error {
	var body io.Reader
	if len(request.Body) > 0 {
		body = bytes.NewReader(request.Body)
	}
	headers := cloneHeader(&request.Headers)

	done := make(chan error, 1)
	go func() {
		done <- collector.Request(method, request.URL, body, nil, headers)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly request canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly request failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func cloneHeader(src *http.Header) http.Header {
	if src == nil || *src == nil {
		return http.Header{}
	}
	return src.Clone()
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
