// Package sitemap discovers audit targets by walking a site's XML sitemap,
// including nested sitemap index files.
package sitemap

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls discovery limits.
type Config struct {
	// MaxURLs caps the number of page URLs collected.
	MaxURLs int
	// SameHostOnly drops page URLs whose host differs from the sitemap's.
	SameHostOnly bool
	// UserAgent sent with sitemap fetches.
	UserAgent string
	// Timeout bounds each sitemap fetch.
	Timeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxURLs <= 0 {
		c.MaxURLs = 1000
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// Fetcher walks sitemap documents with a colly collector.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

// NewFetcher builds a Fetcher.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// Discover fetches sitemapURL, follows nested sitemap index entries, and
// returns deduplicated page URLs in document order up to the configured
// cap.
func (f *Fetcher) Discover(sitemapURL string) ([]string, error) {
	root, err := url.Parse(sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap url: %w", err)
	}
	rootHost := strings.ToLower(root.Hostname())

	opts := []colly.CollectorOption{colly.MaxDepth(0)}
	if f.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(f.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(f.cfg.Timeout)

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		out  []string
	)

	c.OnXML("//urlset/url/loc", func(e *colly.XMLElement) {
		loc := strings.TrimSpace(e.Text)
		if loc == "" {
			return
		}
		u, err := url.Parse(loc)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		if f.cfg.SameHostOnly && !strings.EqualFold(u.Hostname(), rootHost) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if len(out) >= f.cfg.MaxURLs {
			return
		}
		if _, dup := seen[loc]; dup {
			return
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	})

	c.OnXML("//sitemapindex/sitemap/loc", func(e *colly.XMLElement) {
		mu.Lock()
		full := len(out) >= f.cfg.MaxURLs
		mu.Unlock()
		if full {
			return
		}
		child := strings.TrimSpace(e.Text)
		if child == "" {
			return
		}
		if err := e.Request.Visit(child); err != nil {
			f.logger.Warn("nested sitemap fetch failed", zap.String("url", child), zap.Error(err))
		}
	})

	c.OnError(func(resp *colly.Response, err error) {
		f.logger.Warn("sitemap fetch error", zap.String("url", resp.Request.URL.String()), zap.Error(err))
	})

	if err := c.Visit(sitemapURL); err != nil {
		return nil, fmt.Errorf("fetch sitemap %s: %w", sitemapURL, err)
	}
	c.Wait()

	f.logger.Info("sitemap discovery complete",
		zap.String("sitemap", sitemapURL), zap.Int("urls", len(out)))
	return out, nil
}
