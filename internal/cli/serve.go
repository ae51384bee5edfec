package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/drbmap/pkg/cache"
	"github.com/matzehuels/drbmap/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve mapping requests over HTTP until interrupted.

  POST /v1/mappings           map an inline graph
  GET  /v1/mappings           list recent runs
  GET  /v1/mappings/{id}      show a run
  GET  /v1/mappings/{id}/map  download a mapping

Requests inherit the [mapping] and [strategy] settings of the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			runner, err := c.newRunner(ctx, cfg, noCache, logger)
			if err != nil {
				return err
			}
			defer runner.Close()
			runner.Keyer = cache.NewScopedKeyer(nil, cfg.Server.CachePrefix)

			srv := server.New(runner, server.Config{
				Timeout:       cfg.Server.Timeout.Duration,
				MaxGraphBytes: cfg.Server.MaxGraphBytes,
				Defaults:      pipelineOptions(cfg),
			}, logger)
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	return cmd
}
