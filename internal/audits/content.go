package audits

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// Content extracts structural content statistics from the DOM snapshot.
type Content struct{}

// NewContent builds the content audit.
func NewContent() *Content { return &Content{} }

// Name implements audit.Audit.
func (a *Content) Name() string { return "content" }

// Run counts body words, heading levels, and links split by destination
// host relative to the audited URL.
func (a *Content) Run(_ context.Context, page *audit.Context) error {
	doc, err := document(page)
	if err != nil {
		return err
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()

	res := &audit.ContentResult{
		WordCount: len(strings.Fields(body.Text())),
		Headings:  make(map[string]int),
	}
	for _, level := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		if n := doc.Find(level).Length(); n > 0 {
			res.Headings[level] = n
		}
	}

	pageHost := hostOf(page.URL)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if u.Host == "" || strings.EqualFold(u.Host, pageHost) {
			res.Links.Internal++
		} else {
			res.Links.External++
		}
	})

	page.Content = res
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
