package audits

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

const (
	titleMinLen = 10
	titleMaxLen = 60
	metaDescMax = 160
)

// SEO scores the document's head metadata and heading structure.
type SEO struct{}

// NewSEO builds the SEO audit.
func NewSEO() *SEO { return &SEO{} }

// Name implements audit.Audit.
func (a *SEO) Name() string { return "seo" }

// Run scrapes title, description, canonical, robots, and h1 structure from
// the cached DOM snapshot.
func (a *SEO) Run(_ context.Context, page *audit.Context) error {
	doc, err := document(page)
	if err != nil {
		return err
	}

	res := &audit.SEOResult{Score: 100}
	penalize := func(points int, issue string) {
		res.Score -= points
		res.Issues = append(res.Issues, issue)
	}

	res.Title = strings.TrimSpace(doc.Find("head title").First().Text())
	res.TitleLength = len([]rune(res.Title))
	switch {
	case res.Title == "":
		penalize(25, "missing_title")
	case res.TitleLength < titleMinLen:
		penalize(10, "title_too_short")
	case res.TitleLength > titleMaxLen:
		penalize(10, "title_too_long")
	}

	if desc, ok := findMetaContent(doc, "description"); ok && strings.TrimSpace(desc) != "" {
		res.MetaDescription = strings.TrimSpace(desc)
		if len([]rune(res.MetaDescription)) > metaDescMax {
			penalize(5, "meta_description_too_long")
		}
	} else {
		penalize(15, "missing_meta_description")
	}

	res.Canonical, _ = doc.Find(`head link[rel="canonical"]`).First().Attr("href")
	if res.Canonical == "" {
		penalize(5, "missing_canonical")
	}

	if robots, ok := findMetaContent(doc, "robots"); ok && strings.Contains(strings.ToLower(robots), "noindex") {
		res.RobotsNoindex = true
		penalize(20, "robots_noindex")
	}

	res.H1Count = doc.Find("h1").Length()
	switch {
	case res.H1Count == 0:
		penalize(15, "missing_h1")
	case res.H1Count > 1:
		penalize(5, "multiple_h1")
	}

	if res.Score < 0 {
		res.Score = 0
	}
	page.SEO = res
	return nil
}

func findMetaContent(doc *goquery.Document, name string) (string, bool) {
	var content string
	var found bool
	doc.Find("head meta[name]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		n, _ := sel.Attr("name")
		if !strings.EqualFold(n, name) {
			return true
		}
		content, found = sel.Attr("content")
		return false
	})
	return content, found
}

// document parses the context's cached DOM snapshot.
func document(page *audit.Context) (*goquery.Document, error) {
	html := page.HTML()
	if html == "" {
		return nil, errors.New("no dom snapshot available")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return doc, nil
}
