package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/casoon/auditmysite-studio-sub002/internal/config"
	"github.com/casoon/auditmysite-studio-sub002/internal/events"
	"github.com/casoon/auditmysite-studio-sub002/internal/events/sinks"
	"github.com/casoon/auditmysite-studio-sub002/internal/id/uuid"
	"github.com/casoon/auditmysite-studio-sub002/internal/logging"
	"github.com/casoon/auditmysite-studio-sub002/internal/sitemap"
)

var auditSitemapURL string

var auditCmd = &cobra.Command{
	Use:   "audit [urls...]",
	Short: "Run one audit over the given URLs or a sitemap",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.LogDevelopment)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		urls := args
		if auditSitemapURL != "" {
			fetcher := sitemap.NewFetcher(sitemap.Config{
				MaxURLs:      cfg.SitemapMaxURLs,
				SameHostOnly: cfg.SitemapSameHostOnly,
				UserAgent:    cfg.BrowserUserAgent,
			}, logger)
			discovered, err := fetcher.Discover(auditSitemapURL)
			if err != nil {
				return err
			}
			urls = append(urls, discovered...)
		}
		if len(urls) == 0 {
			return fmt.Errorf("nothing to audit: pass urls or --sitemap")
		}

		runID, err := uuid.NewGenerator().NewID()
		if err != nil {
			return err
		}

		hub := events.NewHub(events.Config{Logger: logger}, sinks.NewLogSink(logger))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = hub.Close(ctx)
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := executeRun(ctx, cfg, logger, hub, runID, urls)
		if err != nil {
			return err
		}
		fmt.Printf("run %s: %d pages, %d%% success\n", runID, summary.Pages.Total, summary.SuccessRate)
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditSitemapURL, "sitemap", "", "sitemap URL to discover pages from")
	rootCmd.AddCommand(auditCmd)
}
