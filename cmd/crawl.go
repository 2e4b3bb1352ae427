package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/api"
)

// newCrawlCmd creates the 'crawl' subcommand. Positional arguments replace
// the configured start URLs.
func newCrawlCmd() *cobra.Command {
	var (
		serve    bool
		maxPages int
	)
	cmd := &cobra.Command{
		Use:   "crawl [start-url...]",
		Short: "Runs a crawl from the start URLs",
		Long: `Crawls outward from the start URLs until the frontier drains, the page
budget is spent, or the process is interrupted. Itemized pages go to the log
and, when configured, to Postgres and Pub/Sub. Final run totals are printed as
JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			cfg := rt.cfg
			if len(args) > 0 {
				cfg.Crawler.StartURLs = args
			}
			if cmd.Flags().Changed("max-pages") {
				cfg.Crawler.MaxPages = maxPages
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			defer a.Close()

			if serve {
				shutdown := startServer(api.Deps{
					Pages:   a.Pages(),
					Links:   a.Links(),
					Breaker: a.Breaker(),
					Run:     a.Stats(),
				}, cfg.HTTP.Port, rt.logger, stop)
				defer shutdown()
			}

			stats, err := a.Crawl(ctx, cfg.Crawler.StartURLs)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run crawl: %w", err)
			}
			rt.logger.Info("crawl command finished", zap.String("state", string(stats.State)))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(stats); err != nil {
				return fmt.Errorf("write stats: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the ops API on http.port while crawling")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many fetches (0 = unbounded)")
	return cmd
}
