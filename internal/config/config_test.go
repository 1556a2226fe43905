package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseViper() *viper.Viper {
	v := viper.New()
	v.Set("audit.concurrency", 4)
	v.Set("audit.max_retries", 2)
	v.Set("audit.retry_base_delay", "1s")
	v.Set("audit.request_delay", "0s")
	v.Set("audit.max_requests_per_second", 0)
	v.Set("audit.redirect_policy", "follow")
	v.Set("audit.max_redirect_hops", 10)
	v.Set("audit.audits", []string{"seo", "perf"})
	v.Set("audit.performance_budget", "default")
	v.Set("audit.output_dir", "data/audits")
	v.Set("browser.max_pages", 10)
	v.Set("browser.prewarm", 2)
	v.Set("browser.nav_timeout", "10s")
	v.Set("browser.reaper_interval", "30s")
	v.Set("browser.idle_floor", 2)
	v.Set("browser.stale_after", "5m")
	v.Set("sitemap.max_urls", 1000)
	v.Set("sitemap.same_host_only", true)
	return v
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(baseViper())
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, RedirectFollow, cfg.RedirectPolicy)
	assert.Equal(t, 10, cfg.BrowserMaxPages)
	assert.Equal(t, 5*time.Minute, cfg.BrowserStaleAfter)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"zero concurrency", "audit.concurrency", 0},
		{"negative retries", "audit.max_retries", -1},
		{"zero base delay", "audit.retry_base_delay", "0s"},
		{"negative request delay", "audit.request_delay", "-1s"},
		{"bad redirect policy", "audit.redirect_policy", "bounce"},
		{"zero hops", "audit.max_redirect_hops", 0},
		{"no audits", "audit.audits", []string{}},
		{"empty output dir", "audit.output_dir", ""},
		{"zero max pages", "browser.max_pages", 0},
		{"prewarm beyond capacity", "browser.prewarm", 99},
		{"zero nav timeout", "browser.nav_timeout", "0s"},
		{"negative idle floor", "browser.idle_floor", -1},
		{"zero sitemap cap", "sitemap.max_urls", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := baseViper()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestRedirectPolicies(t *testing.T) {
	for _, policy := range []string{"follow", "skip"} {
		v := baseViper()
		v.Set("audit.redirect_policy", policy)
		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, RedirectPolicy(policy), cfg.RedirectPolicy)
	}
}
