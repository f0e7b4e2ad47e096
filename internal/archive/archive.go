// Package archive persists completed search reports: the report JSON goes to a
// blob store, a summary row to the history store, and a completion event to
// the publisher. Each sink is optional.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

// ContentType is the MIME type of archived reports.
const ContentType = "application/json; charset=utf-8"

// Config controls blob layout and the event topic.
type Config struct {
	Prefix string
	Topic  string
}

// Recorder fans a report out to the configured sinks.
type Recorder struct {
	cfg       Config
	blobs     crawler.BlobStore
	history   crawler.HistoryStore
	publisher crawler.Publisher
	clock     crawler.Clock
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithBlobStore stores report JSON at <prefix>/<run_id>.json.
func WithBlobStore(store crawler.BlobStore) Option {
	return func(r *Recorder) { r.blobs = store }
}

// WithHistory records one summary row per report.
func WithHistory(store crawler.HistoryStore) Option {
	return func(r *Recorder) { r.history = store }
}

// WithPublisher publishes a completion event per report when Config.Topic is set.
func WithPublisher(p crawler.Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

// New builds a Recorder.
func New(cfg Config, clock crawler.Clock, opts ...Option) *Recorder {
	r := &Recorder{cfg: cfg, clock: clock}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether any sink is configured.
func (r *Recorder) Enabled() bool {
	if r == nil {
		return false
	}
	return r.blobs != nil || r.history != nil || (r.publisher != nil && r.cfg.Topic != "")
}

// Event is the completion message body.
type Event struct {
	RunID     string            `json:"run_id"`
	Success   bool              `json:"success"`
	Total     int               `json:"total"`
	BySource  map[string]int    `json:"by_source"`
	Errors    map[string]string `json:"errors"`
	BlobURI   string            `json:"blob_uri,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Record writes report to every configured sink. A failing sink does not stop
// the others; the returned error joins all failures.
func (r *Recorder) Record(ctx context.Context, report crawler.Report) error {
	if !r.Enabled() {
		return nil
	}
	if report.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	completed := r.now()

	var errs []error
	uri, err := r.storeBlob(ctx, report)
	if err != nil {
		errs = append(errs, err)
	}
	if r.history != nil {
		entry := crawler.SearchHistory{
			RunID:     report.RunID,
			Query:     report.Params,
			Success:   report.Success,
			Total:     report.Statistics.Total,
			BySource:  report.Statistics.BySource,
			Errors:    report.Errors,
			BlobURI:   uri,
			Completed: completed,
		}
		if err := r.history.RecordSearch(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("record history: %w", err))
		}
	}
	if r.publisher != nil && r.cfg.Topic != "" {
		event := Event{
			RunID:     report.RunID,
			Success:   report.Success,
			Total:     report.Statistics.Total,
			BySource:  report.Statistics.BySource,
			Errors:    report.Errors,
			BlobURI:   uri,
			Timestamp: completed.Format(time.RFC3339),
		}
		if _, err := r.publisher.Publish(ctx, r.cfg.Topic, event); err != nil {
			errs = append(errs, fmt.Errorf("publish event: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Recorder) storeBlob(ctx context.Context, report crawler.Report) (string, error) {
	if r.blobs == nil {
		return "", nil
	}
	data, err := Encode(report)
	if err != nil {
		return "", err
	}
	uri, err := r.blobs.PutObject(ctx, BlobPath(r.cfg.Prefix, report.RunID), ContentType, data)
	if err != nil {
		return "", fmt.Errorf("put report: %w", err)
	}
	return uri, nil
}

func (r *Recorder) now() time.Time {
	if r.clock == nil {
		return time.Now().UTC()
	}
	return r.clock.Now()
}

// BlobPath is where the report for runID is stored.
func BlobPath(prefix, runID string) string {
	return path.Join(prefix, runID+".json")
}

// Encode renders report as indented UTF-8 JSON with non-ASCII and HTML
// characters left unescaped.
func Encode(report crawler.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return buf.Bytes(), nil
}
