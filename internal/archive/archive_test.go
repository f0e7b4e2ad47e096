package archive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mouseminar/job-mcp/internal/clock/system"
	"github.com/Mouseminar/job-mcp/internal/crawler"
	pubmemory "github.com/Mouseminar/job-mcp/internal/publisher/memory"
	"github.com/Mouseminar/job-mcp/internal/storage/memory"
)

type fakeHistory struct {
	mu      sync.Mutex
	entries []crawler.SearchHistory
	err     error
}

func (f *fakeHistory) RecordSearch(_ context.Context, entry crawler.SearchHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type failingBlobs struct{}

func (failingBlobs) PutObject(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("bucket missing")
}

func sampleReport() crawler.Report {
	return crawler.Report{
		RunID:   "run-1",
		Success: true,
		Params:  crawler.Query{Position: "Go开发", City: "上海", Page: 1, PageSize: 30},
		Statistics: crawler.Statistics{
			Total:    1,
			BySource: map[string]int{"boss": 1},
		},
		Jobs: []crawler.JobRecord{{
			Title:      "Go开发 <高级>",
			Company:    "字节",
			SourceName: "boss",
			Skills:     []string{},
			Benefits:   []string{},
		}},
		Errors: map[string]string{"liepin": "Timeout"},
	}
}

func TestRecordAllSinks(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	blobs := memory.NewBlobStore()
	history := &fakeHistory{}
	pub := pubmemory.New()
	rec := New(Config{Prefix: "reports", Topic: "search-completed"}, system.Fixed(at),
		WithBlobStore(blobs), WithHistory(history), WithPublisher(pub))
	require.True(t, rec.Enabled())

	require.NoError(t, rec.Record(context.Background(), sampleReport()))

	data, ok := blobs.Object("reports/run-1.json")
	require.True(t, ok)
	require.Contains(t, string(data), "Go开发 <高级>")
	require.Contains(t, string(data), "\n  \"success\": true")
	require.NotContains(t, string(data), "run-1")

	require.Len(t, history.entries, 1)
	entry := history.entries[0]
	require.Equal(t, "run-1", entry.RunID)
	require.Equal(t, "memory://reports/run-1.json", entry.BlobURI)
	require.Equal(t, at, entry.Completed)
	require.Equal(t, map[string]string{"liepin": "Timeout"}, entry.Errors)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "search-completed", msgs[0].Topic)
	var event Event
	require.NoError(t, json.Unmarshal(msgs[0].Data, &event))
	require.Equal(t, Event{
		RunID:     "run-1",
		Success:   true,
		Total:     1,
		BySource:  map[string]int{"boss": 1},
		Errors:    map[string]string{"liepin": "Timeout"},
		BlobURI:   "memory://reports/run-1.json",
		Timestamp: "2024-03-01T10:00:00Z",
	}, event)
}

func TestRecordContinuesPastFailures(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{err: errors.New("db down")}
	pub := pubmemory.New()
	rec := New(Config{Topic: "done"}, nil,
		WithBlobStore(failingBlobs{}), WithHistory(history), WithPublisher(pub))

	err := rec.Record(context.Background(), sampleReport())
	require.Error(t, err)
	require.Contains(t, err.Error(), "put report: bucket missing")
	require.Contains(t, err.Error(), "record history: db down")
	require.Len(t, pub.Messages(), 1)
}

func TestRecordDisabled(t *testing.T) {
	t.Parallel()

	var nilRec *Recorder
	require.False(t, nilRec.Enabled())
	require.NoError(t, nilRec.Record(context.Background(), sampleReport()))

	// A publisher without a topic is not a sink.
	rec := New(Config{}, nil, WithPublisher(pubmemory.New()))
	require.False(t, rec.Enabled())
	require.NoError(t, rec.Record(context.Background(), crawler.Report{}))
}

func TestRecordRequiresRunID(t *testing.T) {
	t.Parallel()

	rec := New(Config{}, nil, WithBlobStore(memory.NewBlobStore()))
	report := sampleReport()
	report.RunID = ""
	require.Error(t, rec.Record(context.Background(), report))
}

func TestEncodeKeepsUTF8(t *testing.T) {
	t.Parallel()

	data, err := Encode(sampleReport())
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), `\u`), string(data))
	require.True(t, strings.HasPrefix(string(data), "{\n  \"success\""))
	require.Equal(t, "reports/abc.json", BlobPath("reports", "abc"))
	require.Equal(t, "abc.json", BlobPath("", "abc"))
}
