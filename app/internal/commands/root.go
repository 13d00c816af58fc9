package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Endpoint prober with history and alerting",
	Long: `pulse probes a set of named endpoints on a fixed interval, keeps a bounded
history per endpoint and raises alerts on significant status changes.

Configuration is read from sites.{toml,yaml,json} in ./, ~/.config/pulse or
/etc/pulse, or from the file given with --config.`,
	SilenceUsage: true,
}

// Execute runs the CLI. ctx is cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the sites config file")
}
