package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/pkg/airbridge"
	"github.com/matzehuels/qlayout/pkg/options"
)

// bridgeFlags are the placement overrides shared by the bridge commands.
type bridgeFlags struct {
	output    string
	spacing   float64
	clearance float64
}

func (f *bridgeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default: overwrite the input)")
	cmd.Flags().Float64Var(&f.spacing, "spacing", 0, "bridge spacing (default from config)")
	cmd.Flags().Float64Var(&f.clearance, "clearance", -1, "clearance from bends and crossings (default from config)")
}

// config merges the flags over the configured bridge settings.
func (f *bridgeFlags) config(c *CLI) (airbridge.Config, error) {
	cfg, err := c.cfg.AirBridge()
	if err != nil {
		return cfg, err
	}
	if f.spacing != 0 {
		cfg.Spacing = f.spacing
	}
	if f.clearance >= 0 {
		cfg.Clearance = f.clearance
	}
	return cfg, nil
}

func (f *bridgeFlags) target(input string) string {
	if f.output != "" {
		return f.output
	}
	return input
}

// bridgesCommand creates the air bridge command group.
func (c *CLI) bridgesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridges",
		Short: "Place and prune air bridges in a design file",
	}

	cmd.AddCommand(c.bridgesGenerateCommand())
	cmd.AddCommand(c.bridgesOptimizeCommand())
	return cmd
}

func (c *CLI) bridgesGenerateCommand() *cobra.Command {
	var (
		flags    bridgeFlags
		lineType string
		optimize bool
	)

	cmd := &cobra.Command{
		Use:   "generate [design] [line]",
		Short: "Place evenly spaced air bridges along a line",
		Long: `Place evenly spaced air bridges along a line of a design file. The new
records go into the air_bridges section and are named <type>_<line>_<i>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(c)
			if err != nil {
				return err
			}
			ops, err := options.ImportMap(args[0])
			if err != nil {
				return err
			}
			ops, added, err := airbridge.GenerateOps(ops, lineType, args[1], cfg)
			if err != nil {
				return err
			}
			if len(added) == 0 {
				printWarning("Line %s is too short or too bent for any bridge", args[1])
			} else {
				printSuccess("Placed %d bridges on %s", len(added), args[1])
			}
			if optimize {
				var report airbridge.Report
				if ops, report, err = airbridge.Optimize(ops, cfg); err != nil {
					return err
				}
				printReport(report)
			}
			return writeValue(flags.target(args[0]), options.MapOf(ops))
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&lineType, "line-type", "transmission_lines", "section holding the line")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "prune the bridges afterwards")
	return cmd
}

func (c *CLI) bridgesOptimizeCommand() *cobra.Command {
	var flags bridgeFlags

	cmd := &cobra.Command{
		Use:   "optimize [design]",
		Short: "Drop air bridges that crowd each other or cross other lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(c)
			if err != nil {
				return err
			}
			ops, err := options.ImportMap(args[0])
			if err != nil {
				return err
			}
			ops, report, err := airbridge.Optimize(ops, cfg)
			if err != nil {
				return err
			}
			printReport(report)
			return writeValue(flags.target(args[0]), options.MapOf(ops))
		},
	}

	flags.register(cmd)
	return cmd
}

func printReport(r airbridge.Report) {
	printSuccess("Kept %d bridges, removed %d", len(r.Kept), len(r.Removed))
	for _, rm := range r.Removed {
		printDetail("%s: %s", rm.Name, rm.Reason)
	}
}
