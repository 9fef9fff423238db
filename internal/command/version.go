package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rune-sh/rune/internal/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:           "version",
	Short:         "Print the rune toolchain version",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fmt.Fprintln(cmd.OutOrStdout(), version.BuildVersionString())
		return nil
	},
}
