package redirect

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/browser"
)

// DetectorConfig controls probe timing and chain limits.
type DetectorConfig struct {
	// NavTimeout bounds the probe navigation (DOM-ready, not full load).
	NavTimeout time.Duration
	// CollectWindow is how long to keep collecting hops after navigation
	// when no 2xx response has been observed yet.
	CollectWindow time.Duration
	// MaxHops truncates runaway redirect chains.
	MaxHops int
}

func (c *DetectorConfig) applyDefaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 10 * time.Second
	}
	if c.CollectWindow <= 0 {
		c.CollectWindow = 2 * time.Second
	}
	if c.MaxHops <= 0 {
		c.MaxHops = 10
	}
}

const responsePollInterval = 50 * time.Millisecond

// Detector probes a URL with a borrowed page and reports where the page
// really ends up. It never returns an error: navigation failures and
// malformed documents all degrade to "no redirect detected".
type Detector struct {
	cfg    DetectorConfig
	logger *zap.Logger
}

// NewDetector builds a Detector.
func NewDetector(cfg DetectorConfig, logger *zap.Logger) *Detector {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{cfg: cfg, logger: logger}
}

// Detect navigates page to rawURL and inspects the response chain, the
// loaded DOM's meta refresh tag, and inline scripts. Returns nil when the
// page stays put. The page is left on the probed document.
func (d *Detector) Detect(ctx context.Context, page browser.Page, rawURL string) *Info {
	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavTimeout)
	err := page.Navigate(navCtx, rawURL)
	cancel()
	if err != nil {
		// Redirect detection is advisory: a failed probe is "no redirect",
		// never a page-level error.
		d.logger.Debug("redirect probe navigation failed", zap.String("url", rawURL), zap.Error(err))
	}

	d.awaitChain(ctx, page)

	info := d.httpRedirect(ctx, page, rawURL)

	// Meta and script detection always run, regardless of the HTTP outcome.
	doc := d.loadDocument(ctx, page)
	if doc != nil {
		if target := findMetaRefresh(doc, d.currentURL(ctx, page, rawURL)); target != "" && !sameURL(target, rawURL) {
			info = &Info{
				OriginalURL: rawURL,
				FinalURL:    target,
				StatusCode:  200,
				Type:        TypeMeta,
				DetectedAt:  time.Now().UTC(),
			}
		}
		if info == nil {
			if target := findScriptRedirect(doc); target != "" && !sameURL(target, rawURL) {
				info = &Info{
					OriginalURL: rawURL,
					FinalURL:    target,
					StatusCode:  200,
					Type:        TypeJavaScript,
					DetectedAt:  time.Now().UTC(),
				}
			}
		}
	}
	return info
}

// awaitChain races the first 2xx response against the collection window so
// slow chains get a chance to finish without stalling fast pages.
func (d *Detector) awaitChain(ctx context.Context, page browser.Page) {
	deadline := time.Now().Add(d.cfg.CollectWindow)
	for time.Now().Before(deadline) {
		for _, resp := range page.Responses() {
			if resp.Status >= 200 && resp.Status < 300 {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(responsePollInterval):
		}
	}
}

func (d *Detector) httpRedirect(ctx context.Context, page browser.Page, rawURL string) *Info {
	var (
		chain       []Hop
		finalStatus int
	)
	for _, resp := range page.Responses() {
		if resp.Status >= 300 && resp.Status < 400 {
			loc := resp.Location()
			if loc == "" {
				continue
			}
			if len(chain) >= d.cfg.MaxHops {
				break
			}
			chain = append(chain, Hop{
				From:   resp.URL,
				To:     resolveURL(resp.URL, loc),
				Status: resp.Status,
			})
			finalStatus = resp.Status
		}
	}

	current := d.currentURL(ctx, page, rawURL)
	if len(chain) == 0 && sameURL(current, rawURL) {
		return nil
	}
	final := current
	if final == "" || sameURL(final, rawURL) {
		if len(chain) > 0 {
			final = chain[len(chain)-1].To
		}
	}
	if finalStatus == 0 {
		finalStatus = 200
	}
	return &Info{
		OriginalURL: rawURL,
		FinalURL:    final,
		StatusCode:  chainStatus(chain, finalStatus),
		Type:        TypeHTTP,
		DetectedAt:  time.Now().UTC(),
		Chain:       chain,
	}
}

func (d *Detector) loadDocument(ctx context.Context, page browser.Page) *goquery.Document {
	html, err := page.HTML(ctx)
	if err != nil || html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return doc
}

func (d *Detector) currentURL(ctx context.Context, page browser.Page, fallback string) string {
	loc, err := page.Location(ctx)
	if err != nil || loc == "" || loc == "about:blank" {
		return fallback
	}
	return loc
}

func chainStatus(chain []Hop, fallback int) int {
	if len(chain) > 0 {
		return chain[0].Status
	}
	return fallback
}
