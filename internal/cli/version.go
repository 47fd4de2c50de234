package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/trackerhub/pkg/trackerhub"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the trackerhub version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "trackerhub v%s\nmodule: %s\n", trackerhub.Version, trackerhub.ModulePath)
			return nil
		},
	}
}
