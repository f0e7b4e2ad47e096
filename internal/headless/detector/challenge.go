// Package detector recognizes anti-bot interstitials and empty client-side
// shells in rendered listing pages.
package detector

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

const defaultPrefixBytes = 2000

// Verdict explains why a page is not a usable listing.
type Verdict struct {
	Challenged bool
	Reason     string
}

// Challenge spots verification walls served instead of search results.
type Challenge struct {
	TitleMarkers     []string
	BodyMarkers      []string
	PrefixBytes      int
	CaptchaSelectors []string
}

// NewChallenge returns a detector tuned for the supported job boards.
func NewChallenge() *Challenge {
	return &Challenge{
		TitleMarkers: []string{"验证", "请稍候", "安全检查", "访问受限"},
		BodyMarkers:  []string{"验证"},
		PrefixBytes:  defaultPrefixBytes,
		CaptchaSelectors: []string{
			".geetest_panel",
			".geetest_holder",
			"#captcha",
			".verify-wrap",
			".nc_wrapper",
			"iframe[src*='captcha']",
		},
	}
}

// Inspect checks a rendered page. doc must be parsed from page.HTML; cards is
// the number of listing cards the caller already found. Body markers only
// count when no card rendered, since descriptions can mention them.
func (c *Challenge) Inspect(page crawler.RenderedPage, doc *goquery.Document, cards int) Verdict {
	switch page.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return Verdict{Challenged: true, Reason: fmt.Sprintf("HTTP %d", page.StatusCode)}
	}
	for _, marker := range c.TitleMarkers {
		if strings.Contains(page.Title, marker) {
			return Verdict{Challenged: true, Reason: fmt.Sprintf("title %q", page.Title)}
		}
	}
	if doc != nil {
		for _, sel := range c.CaptchaSelectors {
			if doc.Find(sel).Length() > 0 {
				return Verdict{Challenged: true, Reason: "captcha " + sel}
			}
		}
	}
	if cards > 0 {
		return Verdict{}
	}
	prefix := page.HTML
	if c.PrefixBytes > 0 && len(prefix) > c.PrefixBytes {
		prefix = prefix[:c.PrefixBytes]
	}
	for _, marker := range c.BodyMarkers {
		if strings.Contains(prefix, marker) {
			return Verdict{Challenged: true, Reason: "verification marker in page"}
		}
	}
	return Verdict{}
}

// Shell reports whether html looks like an unrendered single-page app: almost
// nothing but script.
func Shell(html string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}
	return scriptDensityHigh(html)
}

func scriptDensityHigh(body string) bool {
	lower := strings.ToLower(body)
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed; the rest of the document counts as script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		nextSearch := total
		if relativeEnd := strings.Index(lower[contentStart:], closeTag); relativeEnd != -1 {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}
		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}
	return scriptCoverage*100/total >= 60
}
