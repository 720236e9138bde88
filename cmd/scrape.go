// File: cmd/scrape.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/artifact"
	"github.com/quixlabs/loginforge/internal/browser"
	"github.com/quixlabs/loginforge/internal/config"
	"github.com/quixlabs/loginforge/internal/observability"
)

// newScrapeCmd creates and configures the `scrape` command.
func newScrapeCmd() *cobra.Command {
	scrapeCmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Captures a page across mobile, tablet and desktop viewports",
		Long: `Renders the target page in three device viewports, takes a full-page
screenshot of each, extracts the desktop DOM and aggregated CSS, and persists
everything as a single JSON artifact.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			targetURL := args[0]

			// Re-resolve the config now that the command flags are bound.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			store, err := artifact.NewStore(cfg.Output, logger)
			if err != nil {
				return err
			}

			scraper := browser.NewScraper(cfg.Browser, logger)
			capture, err := scraper.Scrape(ctx, targetURL, cfg.Output.ScreenshotDir)
			if err != nil {
				return fmt.Errorf("scrape failed: %w", err)
			}

			simplified, err := browser.SimplifyMarkup(capture.DOM)
			if err != nil {
				logger.Warn("Markup simplification failed, persisting raw DOM only.", zap.Error(err))
			}

			path, err := store.SaveScrape(artifact.ScrapeRecord{
				URL:           capture.URL,
				DOM:           capture.DOM,
				DOMSimplified: simplified,
				CSS:           capture.CSS,
				Screenshots:   capture.Screenshots,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\nScrape complete: %s\n", capture.URL)
			fmt.Printf("Artifact:    %s\n", path)
			fmt.Printf("Screenshots: %d\n", len(capture.Screenshots))
			fmt.Printf("DOM bytes:   %d\n", len(capture.DOM))
			return nil
		},
	}

	scrapeCmd.Flags().Bool("headless", true, "run the browser without a visible window")
	return scrapeCmd
}
