package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/api"
	"github.com/casoon/auditmysite-studio-sub002/internal/artifact"
	"github.com/casoon/auditmysite-studio-sub002/internal/config"
	"github.com/casoon/auditmysite-studio-sub002/internal/events"
	"github.com/casoon/auditmysite-studio-sub002/internal/events/sinks"
	"github.com/casoon/auditmysite-studio-sub002/internal/id/uuid"
	"github.com/casoon/auditmysite-studio-sub002/internal/logging"
	"github.com/casoon/auditmysite-studio-sub002/internal/sitemap"
	"github.com/casoon/auditmysite-studio-sub002/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.LogDevelopment)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		promSink, err := sinks.NewPrometheusSink(registry)
		if err != nil {
			return err
		}

		hubSinks := []events.Sink{sinks.NewLogSink(logger), promSink}
		var history store.RunHistory
		if cfg.PostgresDSN != "" {
			history, err = store.Connect(cmd.Context(), cfg.PostgresDSN, logger)
			if err != nil {
				return err
			}
			defer func() { _ = history.Close(context.Background()) }()
			hubSinks = append(hubSinks, sinks.NewHistorySink(history, logger))
		}
		hub := events.NewHub(events.Config{Logger: logger}, hubSinks...)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = hub.Close(ctx)
		}()

		gen := uuid.NewGenerator()
		runs, err := api.NewRuns(
			func() string {
				id, err := gen.NewID()
				if err != nil {
					logger.Error("run id generation failed", zap.Error(err))
					return ""
				}
				return id
			},
			func(ctx context.Context, runID string, urls []string) (artifact.Summary, error) {
				if history != nil {
					if err := history.StartRun(ctx, runID, len(urls), time.Now().UTC()); err != nil {
						logger.Warn("record run start failed", zap.String("run_id", runID), zap.Error(err))
					}
				}
				summary, err := executeRun(ctx, cfg, logger, hub, runID, urls)
				if err == nil && history != nil {
					record := store.RunRecord{
						RunID:       runID,
						Total:       summary.Pages.Total,
						Successful:  summary.Pages.Successful,
						Errors:      summary.Pages.Errors + summary.Pages.Crashed,
						SuccessRate: summary.SuccessRate,
						FinishedAt:  time.Now().UTC(),
					}
					if err := history.CompleteRun(ctx, record); err != nil {
						logger.Warn("record run completion failed", zap.String("run_id", runID), zap.Error(err))
					}
				}
				return summary, err
			},
			logger,
		)
		if err != nil {
			return err
		}

		server := api.NewServer(api.ServerConfig{
			Addr: cfg.ServerAddr,
			Runs: runs,
			Hub:  hub,
			Sitemap: sitemap.NewFetcher(sitemap.Config{
				MaxURLs:      cfg.SitemapMaxURLs,
				SameHostOnly: cfg.SitemapSameHostOnly,
				UserAgent:    cfg.BrowserUserAgent,
			}, logger),
			Registry: registry,
			Logger:   logger,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
