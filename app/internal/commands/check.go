package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pulse/app/internal/checker"
	"pulse/app/internal/config"
	"pulse/app/internal/models"
	"pulse/app/internal/style"
)

const checkConcurrency = 8

var failOnDown bool

func init() {
	checkCmd.Flags().BoolVar(&failOnDown, "fail", false, "exit non-zero when any endpoint is down")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every endpoint once and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		monitorCfg := cfg.Monitor()
		prober := checker.New(checker.Options{
			Timeout:        cfg.Settings.Timeout,
			WarningLatency: cfg.Settings.WarningLatency,
		})

		samples := make([]models.Sample, len(monitorCfg.Endpoints))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(checkConcurrency)
		for i, e := range monitorCfg.Endpoints {
			g.Go(func() error {
				samples[i] = prober.Check(ctx, e)
				return nil
			})
		}
		_ = g.Wait()

		down := printResults(cmd.OutOrStdout(), monitorCfg.Endpoints, samples)
		if failOnDown && down > 0 {
			return fmt.Errorf("%d endpoint(s) down", down)
		}
		return nil
	},
}

// printResults renders one row per endpoint and returns how many are down
func printResults(out io.Writer, endpoints []models.Endpoint, samples []models.Sample) int {
	width := len("ENDPOINT")
	for _, e := range endpoints {
		if len(e.Name) > width {
			width = len(e.Name)
		}
	}

	fmt.Fprintf(out, "  %s%s%s%s\n",
		style.TableHeader.Render(pad("ENDPOINT", width)),
		style.TableHeader.Render(pad("STATUS", 7)),
		style.TableHeader.Render(pad("LATENCY", 7)),
		style.TableHeader.Render("DETAIL"))

	down := 0
	for i, e := range endpoints {
		s := samples[i]
		if s.Status == models.StatusDown {
			down++
		}

		latency := "-"
		if ms := s.LatencyMS(); ms != nil {
			latency = fmt.Sprintf("%dms", *ms)
		}
		detail := s.Error
		if detail == "" && s.Code != nil {
			detail = fmt.Sprintf("code %d", *s.Code)
		}

		fmt.Fprintf(out, "%s %s  %s  %s  %s\n",
			style.Dot(s.Status),
			pad(e.Name, width),
			style.ForStatus(s.Status).Render(pad(s.Status.Label(), 7)),
			pad(latency, 7),
			style.DimText.Render(detail))
	}

	fmt.Fprintln(out)
	if down == 0 {
		fmt.Fprintln(out, style.Healthy.Render(fmt.Sprintf("  %d/%d endpoints up", len(endpoints), len(endpoints))))
	} else {
		fmt.Fprintln(out, style.Unhealthy.Render(fmt.Sprintf("  %d/%d endpoints down", down, len(endpoints))))
	}
	return down
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
