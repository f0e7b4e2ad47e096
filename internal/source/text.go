package source

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Clean collapses runs of whitespace and trims.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FirstText returns the cleaned text of the first selector that yields a
// non-empty match inside sel.
func FirstText(sel *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		if text := Clean(sel.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// Texts returns the cleaned, non-empty texts of every match.
func Texts(sel *goquery.Selection, selector string) []string {
	var out []string
	sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := Clean(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// Absolute resolves href against base. Unparseable input is returned as is.
func Absolute(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
