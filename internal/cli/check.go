package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/bantoinese83/gemini-exec/internal/control"
	"github.com/bantoinese83/gemini-exec/internal/core/config"
	"github.com/bantoinese83/gemini-exec/internal/health"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe all configured targets once and print the results",
	Run:   runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	initLogging(cfg)

	appCfg, err := buildControlConfig(cfg)
	if err != nil {
		slog.Error("Invalid execution config", "error", err)
		os.Exit(1)
	}

	prober := control.NewProber(
		appCfg.Targets,
		appCfg.Batch,
		appCfg.Policy,
		health.NewMonitor(),
		appCfg.Interval,
	)
	results := prober.RunOnce(context.Background())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TARGET\tSTATUS\tLATENCY\tERROR")

	failed := false
	for i := range results {
		name := appCfg.Targets[results[i].Index].Name
		if results[i].Err != nil {
			failed = true
			_, _ = fmt.Fprintf(w, "%s\tFAIL\t-\t%v\n", name, results[i].Err)
			continue
		}
		latency := results[i].Value.Latency.Round(time.Millisecond)
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t\n", name, results[i].Value.Status, latency)
	}
	_ = w.Flush()

	if failed {
		os.Exit(1)
	}
}
