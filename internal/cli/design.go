package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/pkg/design"
)

// designCommand creates the design store command group.
func (c *CLI) designCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Keep design snapshots in the configured store",
		Long: `Keep design snapshots in the configured store: a directory, Redis or
MongoDB, selected by the [store] section of the config file. The HTTP
server reads and writes the same store.`,
	}

	cmd.AddCommand(c.designOpenCommand())
	cmd.AddCommand(c.designSaveCommand())
	cmd.AddCommand(c.designListCommand())
	cmd.AddCommand(c.designDeleteCommand())
	return cmd
}

func (c *CLI) designOpenCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "open [file]",
		Short: "Copy a design file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			reg := design.NewRegistry()
			d, err := reg.Open(args[0])
			if err != nil {
				return err
			}
			if name != "" && name != d.Name {
				return c.persistAs(cmd, reg, store, d.Name, name)
			}
			if err := reg.Persist(ctx, store, d.Name); err != nil {
				return err
			}
			printSuccess("Stored %s in %s store", d.Name, store.Backend())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "store under this name (default from the file name)")
	return cmd
}

// persistAs stores the design registered as from under the name to.
func (c *CLI) persistAs(cmd *cobra.Command, reg *design.Registry, store design.Store, from, to string) error {
	d, err := reg.Get(from)
	if err != nil {
		return err
	}
	renamed, err := design.New(to)
	if err != nil {
		return err
	}
	renamed.ID, renamed.Path = d.ID, d.Path
	if err := renamed.InjectOptions(d.Ops); err != nil {
		return err
	}
	data, err := design.Encode(renamed)
	if err != nil {
		return err
	}
	if err := store.Save(cmd.Context(), to, data); err != nil {
		return err
	}
	printSuccess("Stored %s in %s store", to, store.Backend())
	return nil
}

func (c *CLI) designSaveCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Write a stored design to an option file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			reg := design.NewRegistry()
			d, err := reg.Restore(ctx, store, args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = d.Name + design.OptionsExt
			}
			path, err := reg.SaveAs(d.Name, output)
			if err != nil {
				return err
			}
			printFile(path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <name>.txt)")
	return cmd
}

func (c *CLI) designListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored designs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No stored designs")
				return nil
			}
			for _, n := range names {
				printInfo("%s", n)
			}
			return nil
		},
	}
}

func (c *CLI) designDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name...]",
		Short: "Remove designs from the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, n := range args {
				if err := store.Delete(ctx, n); err != nil {
					return err
				}
				printSuccess("Deleted %s", n)
			}
			return nil
		},
	}
}
