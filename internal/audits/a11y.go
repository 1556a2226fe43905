package audits

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// A11y runs static accessibility checks against the DOM snapshot. It is a
// heuristic subset, not a full WCAG engine: rules that need computed style
// or runtime state are out of reach of a static scrape.
type A11y struct{}

// NewA11y builds the accessibility audit.
func NewA11y() *A11y { return &A11y{} }

// Name implements audit.Audit.
func (a *A11y) Name() string { return "a11y" }

type a11yRule struct {
	rule        string
	impact      string
	description string
	count       func(doc *goquery.Document) int
}

var a11yRules = []a11yRule{
	{
		rule:        "image-alt",
		impact:      "critical",
		description: "images must have an alt attribute",
		count: func(doc *goquery.Document) int {
			return doc.Find("img:not([alt])").Length()
		},
	},
	{
		rule:        "html-has-lang",
		impact:      "serious",
		description: "the html element must declare a lang attribute",
		count: func(doc *goquery.Document) int {
			if lang, ok := doc.Find("html").First().Attr("lang"); !ok || strings.TrimSpace(lang) == "" {
				return 1
			}
			return 0
		},
	},
	{
		rule:        "link-name",
		impact:      "serious",
		description: "links must have discernible text",
		count: func(doc *goquery.Document) int {
			n := 0
			doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
				if strings.TrimSpace(sel.Text()) != "" {
					return
				}
				if label, ok := sel.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
					return
				}
				if alt := sel.Find("img[alt]"); alt.Length() > 0 {
					if v, _ := alt.First().Attr("alt"); strings.TrimSpace(v) != "" {
						return
					}
				}
				n++
			})
			return n
		},
	},
	{
		rule:        "label",
		impact:      "serious",
		description: "form inputs must have an associated label",
		count: func(doc *goquery.Document) int {
			labeled := make(map[string]struct{})
			doc.Find("label[for]").Each(func(_ int, sel *goquery.Selection) {
				if id, ok := sel.Attr("for"); ok {
					labeled[id] = struct{}{}
				}
			})
			n := 0
			doc.Find(`input:not([type="hidden"]):not([type="submit"]):not([type="button"]), select, textarea`).
				Each(func(_ int, sel *goquery.Selection) {
					if id, ok := sel.Attr("id"); ok {
						if _, ok := labeled[id]; ok {
							return
						}
					}
					if label, ok := sel.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
						return
					}
					if _, ok := sel.Attr("aria-labelledby"); ok {
						return
					}
					if sel.ParentsFiltered("label").Length() > 0 {
						return
					}
					n++
				})
			return n
		},
	},
	{
		rule:        "button-name",
		impact:      "serious",
		description: "buttons must have discernible text",
		count: func(doc *goquery.Document) int {
			n := 0
			doc.Find("button").Each(func(_ int, sel *goquery.Selection) {
				if strings.TrimSpace(sel.Text()) != "" {
					return
				}
				if label, ok := sel.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
					return
				}
				n++
			})
			return n
		},
	},
	{
		rule:        "frame-title",
		impact:      "moderate",
		description: "iframes must have a title attribute",
		count: func(doc *goquery.Document) int {
			return doc.Find("iframe:not([title])").Length()
		},
	},
}

// Run evaluates each rule and records only the rules with findings.
func (a *A11y) Run(_ context.Context, page *audit.Context) error {
	doc, err := document(page)
	if err != nil {
		return err
	}

	res := &audit.A11yResult{Violations: []audit.Violation{}}
	for _, rule := range a11yRules {
		nodes := rule.count(doc)
		if nodes == 0 {
			continue
		}
		res.Violations = append(res.Violations, audit.Violation{
			Rule:        rule.rule,
			Impact:      rule.impact,
			Description: rule.description,
			Nodes:       nodes,
		})
	}
	page.Accessibility = res
	return nil
}
