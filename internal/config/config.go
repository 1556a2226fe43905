// Package config loads the typed configuration consumed by the audit engine.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// RedirectPolicy selects how the orchestrator treats pages that redirect.
type RedirectPolicy string

// Supported redirect policies.
const (
	// RedirectFollow audits the resolved final URL and records the
	// original as redirected.
	RedirectFollow RedirectPolicy = "follow"
	// RedirectSkip records the redirect and skips auditing the page.
	RedirectSkip RedirectPolicy = "skip"
)

// Config captures every knob that influences an audit run. All values
// originate from Viper so the engine can be configured via files, env vars,
// or CLI flags.
type Config struct {
	Concurrency          int
	MaxRetries           int
	RetryBaseDelay       time.Duration
	RequestDelay         time.Duration
	MaxRequestsPerSecond int
	RedirectPolicy       RedirectPolicy
	MaxRedirectHops      int
	EnabledAudits        []string
	PerformanceBudget    string
	OutputDir            string

	BrowserMaxPages       int
	BrowserPrewarm        int
	BrowserNavTimeout     time.Duration
	BrowserUserAgent      string
	BrowserReaperInterval time.Duration
	BrowserIdleFloor      int
	BrowserStaleAfter     time.Duration

	SitemapMaxURLs      int
	SitemapSameHostOnly bool

	ServerAddr  string
	PostgresDSN string

	LogDevelopment bool
}

// Load constructs a Config by reading from Viper.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Concurrency:          v.GetInt("audit.concurrency"),
		MaxRetries:           v.GetInt("audit.max_retries"),
		RetryBaseDelay:       v.GetDuration("audit.retry_base_delay"),
		RequestDelay:         v.GetDuration("audit.request_delay"),
		MaxRequestsPerSecond: v.GetInt("audit.max_requests_per_second"),
		RedirectPolicy:       RedirectPolicy(v.GetString("audit.redirect_policy")),
		MaxRedirectHops:      v.GetInt("audit.max_redirect_hops"),
		EnabledAudits:        v.GetStringSlice("audit.audits"),
		PerformanceBudget:    v.GetString("audit.performance_budget"),
		OutputDir:            v.GetString("audit.output_dir"),

		BrowserMaxPages:       v.GetInt("browser.max_pages"),
		BrowserPrewarm:        v.GetInt("browser.prewarm"),
		BrowserNavTimeout:     v.GetDuration("browser.nav_timeout"),
		BrowserUserAgent:      v.GetString("browser.user_agent"),
		BrowserReaperInterval: v.GetDuration("browser.reaper_interval"),
		BrowserIdleFloor:      v.GetInt("browser.idle_floor"),
		BrowserStaleAfter:     v.GetDuration("browser.stale_after"),

		SitemapMaxURLs:      v.GetInt("sitemap.max_urls"),
		SitemapSameHostOnly: v.GetBool("sitemap.same_host_only"),

		ServerAddr:  v.GetString("server.addr"),
		PostgresDSN: v.GetString("postgres.dsn"),

		LogDevelopment: v.GetBool("log.development"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("audit.concurrency must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("audit.max_retries must be >= 0")
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("audit.retry_base_delay must be > 0")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("audit.request_delay must be >= 0")
	}
	if c.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("audit.max_requests_per_second must be >= 0")
	}
	switch c.RedirectPolicy {
	case RedirectFollow, RedirectSkip:
	default:
		return fmt.Errorf("audit.redirect_policy must be follow or skip, got %q", c.RedirectPolicy)
	}
	if c.MaxRedirectHops <= 0 {
		return fmt.Errorf("audit.max_redirect_hops must be > 0")
	}
	if len(c.EnabledAudits) == 0 {
		return fmt.Errorf("audit.audits must enable at least one audit")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("audit.output_dir must be set")
	}
	if c.BrowserMaxPages <= 0 {
		return fmt.Errorf("browser.max_pages must be > 0")
	}
	if c.BrowserPrewarm < 0 || c.BrowserPrewarm > c.BrowserMaxPages {
		return fmt.Errorf("browser.prewarm must be in [0, browser.max_pages]")
	}
	if c.BrowserNavTimeout <= 0 {
		return fmt.Errorf("browser.nav_timeout must be > 0")
	}
	if c.BrowserIdleFloor < 0 {
		return fmt.Errorf("browser.idle_floor must be >= 0")
	}
	if c.SitemapMaxURLs <= 0 {
		return fmt.Errorf("sitemap.max_urls must be > 0")
	}
	return nil
}
