package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pulse/app/internal/config"
	"pulse/app/internal/style"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and print the resolved endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, style.Banner.Render("pulse config"))
		fmt.Fprintf(out, "%s %s\n", style.DimText.Render("file"), cfg.File)

		monitorCfg := cfg.Monitor()
		for _, e := range monitorCfg.Endpoints {
			interval := e.EffectiveInterval(cfg.Settings.DefaultInterval)
			fmt.Fprintf(out, "  %s %-20s %s %s\n",
				style.Healthy.Render("✓"), e.Name, e.Target, style.DimText.Render("every "+interval.String()))
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, style.Healthy.Render(fmt.Sprintf("  %d endpoint(s) valid", len(monitorCfg.Endpoints))))
		return nil
	},
}
