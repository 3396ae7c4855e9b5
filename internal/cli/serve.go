package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causeway/internal/server"
	"github.com/matzehuels/causeway/pkg/observability"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Long: `Serve the search API over HTTP.

  POST /v1/search       search inline CSV data (JSON body, same fields as the config)
  GET  /v1/runs         list runs
  GET  /v1/runs/{id}    show one run
  GET  /metrics         Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}

			prom := observability.NewPrometheus()
			observability.SetPipelineHooks(prom)
			observability.SetCacheHooks(prom)
			observability.SetHTTPHooks(prom)
			defer observability.Reset()

			runner, err := c.newRunner(cmd.Context(), cfg, noCache, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			defaults := cfg.SearchOptions()
			defaults.SearchHooks = prom
			srv := server.New(runner, server.Options{
				Defaults: defaults,
				Metrics:  prom.Handler(),
				Logger:   c.Logger,
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, \":8080\")")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	return cmd
}
