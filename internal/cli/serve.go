package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/internal/api"
	"github.com/matzehuels/qlayout/pkg/design"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		ephemeral bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve designs and the geometry tools over HTTP",
		Long: `Serve designs and the geometry tools over HTTP until interrupted.

Designs are persisted to the configured store unless --ephemeral is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			srvCfg := c.cfg.Server
			if addr == "" {
				addr = srvCfg.Addr
			}

			bridges, err := c.cfg.AirBridge()
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			var store design.Store
			if !ephemeral {
				if store, err = c.newStore(ctx); err != nil {
					return err
				}
				defer store.Close()
				logger.Info("persisting designs", "backend", store.Backend())
			}

			srv := api.New(api.Options{
				Store:          store,
				Runner:         runner,
				Catalog:        c.catalog,
				Bridges:        bridges,
				TopoSpacing:    c.cfg.Topology.Spacing,
				MaxUploadBytes: srvCfg.MaxUploadBytes,
				Logger:         logger,
			})
			return srv.ListenAndServe(ctx, addr, srvCfg.ReadTimeout, srvCfg.WriteTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep designs in memory only")
	return cmd
}
