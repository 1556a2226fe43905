package audits

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// smallFontExpr counts rendered text elements below 12px computed font
// size. Runs in the page because font size is a computed-style property a
// static scrape cannot see.
const smallFontExpr = `(() => {
	let n = 0;
	for (const el of document.querySelectorAll('body *')) {
		if (!el.innerText || el.children.length > 0) continue;
		const size = parseFloat(getComputedStyle(el).fontSize);
		if (!isNaN(size) && size < 12) n++;
	}
	return n;
})()`

var fixedWidthViewport = regexp.MustCompile(`width\s*=\s*\d`)

// Mobile checks viewport configuration and legibility signals.
type Mobile struct {
	logger *zap.Logger
}

// NewMobile builds the mobile-friendliness audit.
func NewMobile(logger *zap.Logger) *Mobile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mobile{logger: logger}
}

// Name implements audit.Audit.
func (a *Mobile) Name() string { return "mobile" }

// Run inspects the viewport meta tag in the snapshot and counts small-font
// nodes in the live page. A failed font probe degrades to zero findings
// rather than failing the audit.
func (a *Mobile) Run(ctx context.Context, page *audit.Context) error {
	doc, err := document(page)
	if err != nil {
		return err
	}

	res := &audit.MobileResult{Score: 100}
	penalize := func(points int, issue string) {
		res.Score -= points
		res.Issues = append(res.Issues, issue)
	}

	if content, ok := findMetaViewport(doc); ok {
		res.HasViewport = true
		lowered := strings.ToLower(content)
		if !strings.Contains(lowered, "width=device-width") && fixedWidthViewport.MatchString(lowered) {
			res.FixedWidthViewport = true
			penalize(30, "fixed_width_viewport")
		}
	} else {
		penalize(40, "missing_viewport")
	}

	if err := page.Page.Eval(ctx, smallFontExpr, &res.SmallFontNodes); err != nil {
		a.logger.Debug("small font probe failed", zap.String("url", page.URL), zap.Error(err))
	}
	if res.SmallFontNodes > 0 {
		penalize(20, "small_font_text")
	}

	if res.Score < 0 {
		res.Score = 0
	}
	page.Mobile = res
	return nil
}

func findMetaViewport(doc *goquery.Document) (string, bool) {
	sel := doc.Find(`head meta[name="viewport"]`).First()
	if sel.Length() == 0 {
		return "", false
	}
	content, _ := sel.Attr("content")
	return content, true
}
