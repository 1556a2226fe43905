// Package cmd wires the CLI surface: a one-shot audit run and the
// long-running API server.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pkgconfig "github.com/casoon/auditmysite-studio-sub002/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "auditmysite",
	Short: "Website audit engine",
	Long: `auditmysite crawls a site's sitemap, audits every page through a
headless browser, and writes per-page JSON artifacts plus an aggregated
run summary.`,
	PersistentPreRun: func(*cobra.Command, []string) {
		pkgconfig.InitConfig()
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
