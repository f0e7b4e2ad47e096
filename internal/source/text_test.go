package source

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

func TestCleanAndSelectors(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<div class="card">
  <span class="name">  Go
     工程师 </span>
  <ul class="tags"><li> Go </li><li></li><li>K8s</li></ul>
</div>`))
	require.NoError(t, err)
	card := doc.Find(".card")
	require.Equal(t, "Go 工程师", FirstText(card, ".missing", ".name"))
	require.Empty(t, FirstText(card, ".missing"))
	require.Equal(t, []string{"Go", "K8s"}, Texts(card, ".tags li"))
}

func TestAbsolute(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://www.zhipin.com/job_detail/abc.html", Absolute("https://www.zhipin.com", "/job_detail/abc.html"))
	require.Equal(t, "https://jobs.zhaopin.com/1.htm", Absolute("https://www.zhaopin.com", "https://jobs.zhaopin.com/1.htm"))
	require.Equal(t, "https://jobs.zhaopin.com/2.htm", Absolute("https://www.zhaopin.com", "//jobs.zhaopin.com/2.htm"))
	require.Empty(t, Absolute("https://x", " "))
}

type countingPool struct {
	acquired, released int
	err                error
}

func (p *countingPool) Acquire(context.Context) (crawler.BrowserSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return nil, nil
}

func (p *countingPool) Release(crawler.BrowserSession) { p.released++ }

func TestBrowseReleases(t *testing.T) {
	t.Parallel()

	pool := &countingPool{}
	err := Browse(context.Background(), pool, func(crawler.BrowserSession) error {
		return Blocked("title %q", "安全验证")
	})
	require.Equal(t, crawler.KindBlocked, crawler.Classify(err).Kind)
	require.Equal(t, 1, pool.acquired)
	require.Equal(t, 1, pool.released)

	err = Browse(context.Background(), nil, func(crawler.BrowserSession) error { return nil })
	require.Equal(t, crawler.KindBrowserUnavailable, crawler.Classify(err).Kind)
}
