// Package config initializes the application's configuration. It uses the
// Viper library to read settings from a config file, environment variables,
// and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// InitConfig initializes the application's configuration using Viper. It sets
// up default values, defines configuration search paths, and enables reading
// from environment variables. Call once at startup.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/auditmysite/")
	viper.AddConfigPath("$HOME/.auditmysite")

	// Orchestrator defaults.
	viper.SetDefault("audit.concurrency", 4)
	viper.SetDefault("audit.max_retries", 2)
	viper.SetDefault("audit.retry_base_delay", "1s")
	viper.SetDefault("audit.request_delay", "0s")
	viper.SetDefault("audit.max_requests_per_second", 0)
	viper.SetDefault("audit.redirect_policy", "follow")
	viper.SetDefault("audit.max_redirect_hops", 10)
	viper.SetDefault("audit.audits", []string{
		"perf", "seo", "a11y", "content", "mobile", "console",
	})
	viper.SetDefault("audit.performance_budget", "default")
	viper.SetDefault("audit.output_dir", "data/audits")

	// Browser pool defaults.
	viper.SetDefault("browser.max_pages", 10)
	viper.SetDefault("browser.prewarm", 2)
	viper.SetDefault("browser.nav_timeout", "10s")
	viper.SetDefault("browser.user_agent",
		"AuditMySite/1.0 (+https://github.com/casoon/auditmysite-studio)")
	viper.SetDefault("browser.reaper_interval", "30s")
	viper.SetDefault("browser.idle_floor", 2)
	viper.SetDefault("browser.stale_after", "5m")

	// Sitemap discovery defaults.
	viper.SetDefault("sitemap.max_urls", 1000)
	viper.SetDefault("sitemap.same_host_only", true)

	// Server / persistence defaults.
	viper.SetDefault("server.addr", ":8090")
	viper.SetDefault("postgres.dsn", "")

	viper.SetDefault("log.development", false)

	viper.SetEnvPrefix("AUDIT") // e.g. AUDIT_BROWSER_MAX_PAGES=16
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file is optional; defaults plus env vars are enough to run.
	_ = viper.ReadInConfig()
}
