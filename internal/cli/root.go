package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/bantoinese83/gemini-exec/internal/control"
	"github.com/bantoinese83/gemini-exec/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "gemini-exec",
	Short: "Resilient execution service",
	Long: `gemini-exec runs unreliable remote operations safely: classified retries
with exponential backoff, and bounded-concurrency batches with aggregated
failures. The daemon probes configured targets and exposes health and metrics.`,
	Run: runService,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

func runService(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

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

	app, err := control.NewApp(appCfg)
	if err != nil {
		slog.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start service", "error", err)
		os.Exit(1)
	}

	slog.Info("Service started", "config", cfgPath)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.AppConfig) {
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

func buildControlConfig(cfg *config.AppConfig) (control.Config, error) {
	policy, err := cfg.Retry.Policy()
	if err != nil {
		return control.Config{}, err
	}
	batchCfg, err := cfg.Batch.Config()
	if err != nil {
		return control.Config{}, err
	}

	return control.Config{
		Port:     cfg.Server.Port,
		Interval: cfg.Probe.Interval(),
		Targets:  cfg.Probe.Targets,
		Batch:    batchCfg,
		Policy:   policy,
	}, nil
}
