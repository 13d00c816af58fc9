package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"pulse/app/internal/style"
	"pulse/app/internal/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the pulse version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
			style.Bold.Render("pulse"), version.Version, style.DimText.Render(runtime.Version()))
		return nil
	},
}
