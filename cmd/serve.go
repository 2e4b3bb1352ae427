package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/dvsvc-crawler/internal/api"
	"github.com/JakeFAU/dvsvc-crawler/internal/app"
	"github.com/JakeFAU/dvsvc-crawler/internal/domain"
)

// newServeCmd creates the 'serve' subcommand, which exposes the scorers over
// HTTP without crawling.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the scoring and ops API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			pages, links, err := app.BuildScorers(rt.cfg, domain.NewResolver(), rt.logger)
			if err != nil {
				return fmt.Errorf("build scorers: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown := startServer(api.Deps{Pages: pages, Links: links}, rt.cfg.HTTP.Port, rt.logger, stop)
			<-ctx.Done()
			rt.logger.Info("shutdown initiated")
			shutdown()
			return nil
		},
	}
}
