package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/options"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "inspect [design]",
		Short: "Browse the components of a design",
		Long: `Browse the components of a design file. Without --name an interactive
list is shown; the chosen component is built and its record and bounding
box are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := design.NewRegistry().Open(args[0])
			if err != nil {
				return err
			}
			entries := d.Components()
			if len(entries) == 0 {
				printInfo("Design %s has no components", d.Name)
				return nil
			}

			var picked design.Entry
			if name != "" {
				e, ok := d.Component(name)
				if !ok {
					return errors.New(errors.ErrCodeNotFound, "component %s not found in design %s", name, d.Name)
				}
				picked = e
			} else {
				model := NewComponentListModel(fmt.Sprintf("Components of %s", d.Name), entries)
				final, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
				if err != nil {
					return fmt.Errorf("component picker: %w", err)
				}
				sel := final.(ComponentListModel).Selected
				if sel == nil {
					return nil
				}
				picked = *sel
			}
			return c.showComponent(picked)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "component to show without the picker")
	return cmd
}

func (c *CLI) showComponent(e design.Entry) error {
	fmt.Fprintln(out, styleTitle.Render(e.Section+"/"+e.Name))
	if err := options.Show(out, options.MapOf(e.Record)); err != nil {
		return err
	}
	comp, err := c.catalog.Build(e.Record)
	if err != nil {
		printWarning("cannot build %s: %v", e.Name, err)
		return nil
	}
	if box, ok := comp.Box(); ok {
		printBox(comp.CellName(), box)
	} else {
		printDetail("%s has no geometry", comp.CellName())
	}
	return nil
}
