package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/pkg/options"
)

// optionsCommand creates the option file command group.
func (c *CLI) optionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Read, check and rewrite option files",
	}

	cmd.AddCommand(c.optionsFmtCommand())
	cmd.AddCommand(c.optionsCheckCommand())
	cmd.AddCommand(c.optionsFlattenCommand())
	return cmd
}

func (c *CLI) optionsFmtCommand() *cobra.Command {
	var (
		write   bool
		outline bool
	)

	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Print an option file in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := options.Import(args[0])
			if err != nil {
				return err
			}
			switch {
			case outline:
				return options.Show(os.Stdout, v)
			case write:
				return writeValue(args[0], v)
			}
			return options.Write(os.Stdout, v)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place")
	cmd.Flags().BoolVar(&outline, "outline", false, "print an indented outline instead of a literal")
	return cmd
}

func (c *CLI) optionsCheckCommand() *cobra.Command {
	var noTuples bool

	cmd := &cobra.Command{
		Use:   "check [file...]",
		Short: "Check that option files parse",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var firstErr error
			for _, path := range args {
				v, err := options.Import(path)
				if err == nil && noTuples {
					err = options.CheckNoTuples(v)
				}
				if err != nil {
					printError("%s: %v", path, err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				printSuccess("%s", path)
			}
			return firstErr
		},
	}

	cmd.Flags().BoolVar(&noTuples, "no-tuples", false, "also reject tuples, which JSON cannot hold")
	return cmd
}

func (c *CLI) optionsFlattenCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "flatten [file]",
		Short: "Convert every tuple in an option file into a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := options.ImportLists(args[0])
			if err != nil {
				return err
			}
			return writeValue(output, v)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
