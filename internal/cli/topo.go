package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/options"
	"github.com/matzehuels/qlayout/pkg/topo"
)

// topoCommand creates the topology command group.
func (c *CLI) topoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topo",
		Short: "Work with qubit lattices",
		Long: `Work with qubit lattices.

A topology file holds integer lattice positions and optional couplings:

  {"positions": {"q0": (0, 0), "q1": (1, 0)}, "edges": [("q0", "q1")]}`,
	}

	cmd.AddCommand(c.topoGridCommand())
	cmd.AddCommand(c.topoMapCommand())
	cmd.AddCommand(c.topoRenderCommand())
	return cmd
}

func (c *CLI) topoGridCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "grid [cols] [rows]",
		Short: "Write a rectangular lattice with nearest-neighbour couplings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err1 := strconv.Atoi(args[0])
			rows, err2 := strconv.Atoi(args[1])
			if err1 != nil || err2 != nil || cols <= 0 || rows <= 0 {
				return errors.New(errors.ErrCodeInvalidInput, "grid size must be two positive integers, got %s %s", args[0], args[1])
			}
			return writeValue(output, options.MapOf(topo.Grid(cols, rows).Options()))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (c *CLI) topoMapCommand() *cobra.Command {
	var (
		output    string
		spacing   float64
		couplings bool
	)

	cmd := &cobra.Command{
		Use:   "map [file]",
		Short: "Project lattice positions to chip coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readTopology(args[0])
			if err != nil {
				return err
			}
			if spacing == 0 {
				spacing = c.cfg.Topology.Spacing
			}
			if spacing <= 0 {
				return errors.New(errors.ErrCodeInvalidInput, "spacing must be positive, got %g", spacing)
			}
			if couplings {
				cs, err := g.Couplings()
				if err != nil {
					return err
				}
				for _, cp := range cs {
					printDetail("%s -> %s: %s", cp.From, cp.To, cp.Side)
				}
			}
			return writeValue(output, options.MapOf(g.PhysicalOptions(spacing)))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().Float64Var(&spacing, "spacing", 0, "lattice spacing (default from config)")
	cmd.Flags().BoolVar(&couplings, "couplings", false, "also print the side of every coupling")
	return cmd
}

func (c *CLI) topoRenderCommand() *cobra.Command {
	var (
		output  string
		spacing float64
		dot     bool
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Draw a lattice as SVG",
		Long: `Draw a lattice as SVG with Graphviz. Nodes are pinned at their lattice
positions; couplings between nodes that are not neighbours are dashed red.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readTopology(args[0])
			if err != nil {
				return err
			}
			src := topo.ToDOT(g, topo.DOTOptions{Spacing: spacing})
			if dot {
				return writeOutput(output, []byte(src))
			}
			prog := newProgress(c.Logger)
			svg, err := topo.RenderSVG(cmd.Context(), src)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "render lattice")
			}
			prog.done(fmt.Sprintf("Rendered %d qubits", len(g.Nodes())))
			return writeOutput(output, svg)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().Float64Var(&spacing, "spacing", 0, "show physical coordinates at this spacing")
	cmd.Flags().BoolVar(&dot, "dot", false, "write Graphviz DOT instead of SVG")
	return cmd
}

func readTopology(path string) (*topo.Graph, error) {
	m, err := options.ImportMap(path)
	if err != nil {
		return nil, err
	}
	return topo.FromOptions(m)
}

// writeValue formats v to path, or to stdout when path is empty.
func writeValue(path string, v options.Value) error {
	if path == "" {
		return options.Write(os.Stdout, v)
	}
	if err := options.Export(path, v); err != nil {
		return err
	}
	printFile(path)
	return nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	printFile(path)
	return nil
}
