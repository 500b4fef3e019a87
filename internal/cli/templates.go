package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sharemeow/internal/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the available templates",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range templates.NewRegistry(templates.DefaultFactories()).Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}
