package redirect

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// metaRefreshContent matches the content attribute of a meta refresh tag,
// e.g. "5; url=https://example.com/next".
var metaRefreshContent = regexp.MustCompile(`(?i)^\s*\d+\s*;\s*url\s*=\s*['"]?([^'"]+)['"]?\s*$`)

// scriptRedirect matches the assignment and replace forms of a scripted
// redirect. Only quoted absolute http(s) URLs are recognized; relative
// targets are a known miss of this heuristic.
var scriptRedirect = regexp.MustCompile(
	`window\.location(?:\.href\s*=|\s*=|\.replace\s*\(|\.assign\s*\()\s*['"](https?://[^'"]+)['"]`)

// findMetaRefresh extracts the target of a <meta http-equiv="refresh"> tag
// from the document, resolved against baseURL. Returns "" when no
// parseable refresh is present.
func findMetaRefresh(doc *goquery.Document, baseURL string) string {
	var target string
	doc.Find(`meta[http-equiv]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		equiv, _ := sel.Attr("http-equiv")
		if !strings.EqualFold(equiv, "refresh") {
			return true
		}
		content, ok := sel.Attr("content")
		if !ok {
			return true
		}
		m := metaRefreshContent.FindStringSubmatch(content)
		if m == nil {
			return true
		}
		target = resolveURL(baseURL, strings.TrimSpace(m[1]))
		return target == ""
	})
	return target
}

// findScriptRedirect scans inline script text for a literal scripted
// redirect. This is a best-effort text scan, not execution tracing: it
// misses dynamically constructed URLs and may match dead code.
func findScriptRedirect(doc *goquery.Document) string {
	var target string
	doc.Find("script:not([src])").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		m := scriptRedirect.FindStringSubmatch(sel.Text())
		if m == nil {
			return true
		}
		target = m[1]
		return false
	})
	return target
}

func resolveURL(base, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}

func sameURL(a, b string) bool {
	na, errA := normalize(a)
	nb, errB := normalize(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return na == nb
}

// normalize canonicalizes a URL for comparison: lowercased scheme/host,
// stripped fragment and trailing slash on the root path.
func normalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String(), nil
}
