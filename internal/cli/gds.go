package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsbridge"
	"github.com/matzehuels/qlayout/pkg/options"
	"github.com/matzehuels/qlayout/pkg/pipeline"
)

// gdsCommand creates the GDS command group.
func (c *CLI) gdsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gds",
		Short: "Move geometry between GDS files and designs",
	}

	cmd.AddCommand(c.gdsImportCommand())
	cmd.AddCommand(c.gdsSynthCommand())
	cmd.AddCommand(c.gdsSVGCommand())
	cmd.AddCommand(c.gdsBuildCommand())
	return cmd
}

func (c *CLI) gdsImportCommand() *cobra.Command {
	var (
		opts       pipeline.Options
		designPath string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "import [file.gds]",
		Short: "Turn the cells of a GDS file into component records",
		Long: `Turn every cell of a GDS file that holds polygons into a component
record. With --design the records are added to that design file; otherwise
they are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts.Path = args[0]
			if opts.Type == "" {
				opts.Type = c.cfg.Import.Type
			}
			if opts.Chip == "" {
				opts.Chip = c.cfg.Import.Chip
			}
			if !cmd.Flags().Changed("merge") {
				opts.Merge = c.cfg.Import.Merge
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinnerWithContext(ctx, "Importing "+filepath.Base(opts.Path)+"...")
			spinner.Start()
			res, cached, err := runner.ImportWithCacheInfo(ctx, opts)
			spinner.Stop()
			if err != nil {
				return err
			}
			printSuccess("Imported %s", opts.Path)
			printStats(len(res.Records), len(res.Warnings), cached)
			for _, w := range res.Warnings {
				printWarning("%s", w)
			}

			if designPath == "" {
				section := options.NewMap()
				for _, rec := range res.Records {
					section.Set(rec.Str("name"), options.MapOf(rec))
				}
				return options.Write(os.Stdout, options.MapOf(options.NewMap().Set(res.Section, options.MapOf(section))))
			}

			reg := design.NewRegistry()
			d, err := reg.Open(designPath)
			if err != nil {
				return err
			}
			err = reg.Update(d.Name, func(d *design.Design) error {
				for _, rec := range res.Records {
					if err := d.Add(res.Section, rec); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			if err := reg.Save(d.Name); err != nil {
				return err
			}
			printFile(designPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "component type and design section (default from config)")
	cmd.Flags().StringVar(&opts.Chip, "chip", "", "chip written into the records (default from config)")
	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "fold all cells into one record")
	cmd.Flags().StringVar(&designPath, "design", "", "design file to add the records to")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) gdsSynthCommand() *cobra.Command {
	var (
		opts    pipeline.Options
		outDir  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "synth [file.gds]",
		Short: "Make a component template from a GDS file",
		Long: `Merge all cells of a GDS file into one component template and write it to
<dir>/<base>.txt. The template type is the file name in CamelCase unless
--name is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts.Path = args[0]
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			prog := newProgress(c.Logger)
			tmpl, cached, err := runner.SynthesizeWithCacheInfo(ctx, opts)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Synthesized %s", tmpl.Str("type")))

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", outDir)
			}
			base := strings.TrimSuffix(filepath.Base(opts.Path), filepath.Ext(opts.Path))
			path := filepath.Join(outDir, base+gdsbridge.TemplateExt)
			if err := options.Export(path, options.MapOf(tmpl)); err != nil {
				return err
			}
			printStats(1, 0, cached)
			printFile(path)
			printNextStep("Preview it", appName+" gds svg "+opts.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "template type (default from the file name)")
	cmd.Flags().StringVar(&opts.Chip, "chip", "", "chip written into the template")
	cmd.Flags().StringVarP(&outDir, "dir", "d", ".", "output directory")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) gdsSVGCommand() *cobra.Command {
	var (
		opts    pipeline.Options
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "svg [file]",
		Short: "Render a cell of a GDS file or a design as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			var svg []byte
			if strings.EqualFold(filepath.Ext(args[0]), ".gds") {
				opts.Path = args[0]
				svg, err = runner.RenderFile(ctx, opts)
			} else {
				var d *design.Design
				if d, err = design.NewRegistry().Open(args[0]); err != nil {
					return err
				}
				svg, err = runner.RenderDesign(ctx, d, c.catalog, opts)
			}
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".svg"
			}
			return writeOutput(output, svg)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <input>.svg)")
	cmd.Flags().StringVar(&opts.Cell, "cell", "", "cell to draw (default TOP or the first top cell)")
	cmd.Flags().Float64VarP(&opts.Width, "width", "w", pipeline.DefaultWidth, "image width in pixels")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) gdsBuildCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build [design]",
		Short: "Build a design file into a GDS library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := design.NewRegistry().Open(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".gds"
			}
			prog := newProgress(c.Logger)
			if err := d.SaveGDS(cmd.Context(), output, c.catalog); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Built %d components", len(d.Components())))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <design>.gds)")
	return cmd
}
